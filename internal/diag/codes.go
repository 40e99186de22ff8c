package diag

import "fmt"

// Code identifies a diagnostic kind. Ranges are reserved per pipeline stage:
// 1xxx explorer, 2xxx mapper-C, 3xxx mapper-target, 4xxx merge/driver.
type Code uint16

const (
	UnknownCode Code = 0

	// Explorer
	ExploreInfo       Code = 1000
	UnknownCursorKind Code = 1001
	UnresolvedTypeRef Code = 1002
	AnonymousNamed    Code = 1003
	OpaquePromoted    Code = 1004

	// Mapper-C
	MapCInfo                 Code = 2000
	UnsupportedType          Code = 2001
	VariadicFunctionDropped  Code = 2002
	MacroObjectNotTranspiled Code = 2003
	LayoutUnavailable        Code = 2004

	// Mapper-Target
	MapTargetInfo        Code = 3000
	AliasShadowsBuiltin  Code = 3001
	EnumWidthUnsupported Code = 3002
	IgnoredName          Code = 3003
	ParamRenamed         Code = 3004
	AliasOverridesName   Code = 3005

	// Merge / driver
	MergePlatformNodes Code = 4001
	CacheCorrupt       Code = 4002
	ObsTimings         Code = 4003
)

var codeNames = map[Code]string{
	UnknownCode:              "UnknownCode",
	ExploreInfo:              "ExploreInfo",
	UnknownCursorKind:        "UnknownCursorKind",
	UnresolvedTypeRef:        "UnresolvedTypeRef",
	AnonymousNamed:           "AnonymousNamed",
	OpaquePromoted:           "OpaquePromoted",
	MapCInfo:                 "MapCInfo",
	UnsupportedType:          "UnsupportedType",
	VariadicFunctionDropped:  "VariadicFunctionDropped",
	MacroObjectNotTranspiled: "MacroObjectNotTranspiled",
	LayoutUnavailable:        "LayoutUnavailable",
	MapTargetInfo:            "MapTargetInfo",
	AliasShadowsBuiltin:      "AliasShadowsBuiltin",
	EnumWidthUnsupported:     "EnumWidthUnsupported",
	IgnoredName:              "IgnoredName",
	ParamRenamed:             "ParamRenamed",
	AliasOverridesName:       "AliasOverridesName",
	MergePlatformNodes:       "MergePlatformNodes",
	CacheCorrupt:             "CacheCorrupt",
	ObsTimings:               "ObsTimings",
}

// String returns the symbolic name of the code.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Code(%d)", uint16(c))
}

// ID returns the stable printable identifier, e.g. "BND2002".
func (c Code) ID() string {
	return fmt.Sprintf("BND%04d", uint16(c))
}
