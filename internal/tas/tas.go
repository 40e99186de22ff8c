// Package tas defines the Target Abstract Surface: the host-language-ready
// intermediate the emitter consumes. It mirrors the C Abstract Surface but
// carries final target names, normalized enum widths and the wrapped-array
// flags the emitter needs. Nodes are immutable once the mapper produced them.
package tas

// Builtin target primitives. Every type name in a TAS resolves either to a
// TAS entity or to one of these.
var Builtins = []string{
	"void", "i8", "u8", "i16", "u16", "i32", "u32", "i64", "u64",
	"f32", "f64", "CBool", "CString", "Pointer",
}

// IsBuiltin reports whether a name is a target primitive.
func IsBuiltin(name string) bool {
	for _, b := range Builtins {
		if name == b {
			return true
		}
	}
	return false
}

// IsScalarPrimitive reports whether a name is a fixed-width scalar that can
// back a fixed-size inline buffer without wrapping.
func IsScalarPrimitive(name string) bool {
	switch name {
	case "i8", "u8", "i16", "u16", "i32", "u32", "i64", "u64", "f32", "f64", "CBool":
		return true
	}
	return false
}

// TypeKind mirrors the CAS kinds.
type TypeKind string

const (
	KindBuiltin         TypeKind = "Builtin"
	KindPointer         TypeKind = "Pointer"
	KindStruct          TypeKind = "Struct"
	KindEnum            TypeKind = "Enum"
	KindTypedef         TypeKind = "Typedef"
	KindFunctionPointer TypeKind = "FunctionPointer"
	KindConstArray      TypeKind = "ConstArray"
	KindOpaque          TypeKind = "Opaque"
)

// Location is the serializable source position of a node.
type Location struct {
	File string `json:"file,omitempty"`
	Line uint32 `json:"line,omitempty"`
	Col  uint32 `json:"col,omitempty"`
}

// Type is one entry of the TAS type table. TargetName is the final name
// emitted into host-language source.
type Type struct {
	Name       string   `json:"name"`
	TargetName string   `json:"target_name"`
	Kind       TypeKind `json:"kind"`
	SizeBytes  uint32   `json:"size_bytes"`
	AlignBytes uint32   `json:"align_bytes"`
	IsSystem   bool     `json:"is_system,omitempty"`
}

// Parameter is one function or function-pointer parameter with a sanitized,
// unique, non-empty name.
type Parameter struct {
	Name     string `json:"name"`
	TypeName string `json:"type_name"`
	IsConst  bool   `json:"is_const,omitempty"`
}

// Function is one late-bound entry of the emitted virtual table. Symbol is
// the C name the loader resolves; Name is the (possibly aliased) target name.
type Function struct {
	Name              string      `json:"name"`
	Symbol            string      `json:"symbol"`
	ReturnTypeName    string      `json:"return_type_name"`
	CallingConvention string      `json:"calling_convention"`
	Parameters        []Parameter `json:"parameters"`
	Loc               Location    `json:"loc,omitempty"`
}

// FunctionPointer is a named function-pointer type.
type FunctionPointer struct {
	Name           string      `json:"name"`
	IsSynthetic    bool        `json:"is_synthetic,omitempty"`
	ReturnTypeName string      `json:"return_type_name"`
	Parameters     []Parameter `json:"parameters"`
	Loc            Location    `json:"loc,omitempty"`
}

// StructField is one emitted field. A wrapped array field is stored as an
// inline byte buffer of WrappedSizeBytes and read through a synthesized
// accessor typed as ElementTypeName.
type StructField struct {
	Name             string `json:"name"`
	TypeName         string `json:"type_name"`
	OffsetBits       uint32 `json:"offset_bits"`
	PaddingBits      uint32 `json:"padding_bits"`
	IsWrappedArray   bool   `json:"is_wrapped_array,omitempty"`
	WrappedSizeBytes uint32 `json:"wrapped_size_bytes,omitempty"`
	ElementTypeName  string `json:"element_type_name,omitempty"`
	ElementCount     uint32 `json:"element_count,omitempty"`
	IsCharArray      bool   `json:"is_char_array,omitempty"`
}

// Struct is an emitted record with layout pinned to the C ABI.
type Struct struct {
	Name                   string             `json:"name"`
	IsUnion                bool               `json:"is_union,omitempty"`
	SizeBytes              uint32             `json:"size_bytes"`
	AlignBytes             uint32             `json:"align_bytes"`
	Fields                 []StructField      `json:"fields"`
	NestedStructs          []*Struct          `json:"nested_structs,omitempty"`
	NestedFunctionPointers []*FunctionPointer `json:"nested_function_pointers,omitempty"`
	// Platform carries the target triple when a multi-target merge found this
	// node divergent and the per-platform strategy is active.
	Platform string   `json:"platform,omitempty"`
	Loc      Location `json:"loc,omitempty"`
}

// OpaqueType is emitted as an empty zero-field record.
type OpaqueType struct {
	Name string   `json:"name"`
	Loc  Location `json:"loc,omitempty"`
}

// Typedef aliases one target name to another.
type Typedef struct {
	Name               string   `json:"name"`
	UnderlyingTypeName string   `json:"underlying_type_name"`
	IsSystem           bool     `json:"is_system,omitempty"`
	Loc                Location `json:"loc,omitempty"`
}

// EnumValue is one enumerator.
type EnumValue struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// Enum is emitted with an explicit fixed-width integer type (i32 or u32).
type Enum struct {
	Name            string      `json:"name"`
	IntegerTypeName string      `json:"integer_type_name"`
	Values          []EnumValue `json:"values"`
	Loc             Location    `json:"loc,omitempty"`
}

// Variable is an untyped-pointer slot of the virtual table. Symbol is the C
// name the loader resolves.
type Variable struct {
	Name     string   `json:"name"`
	Symbol   string   `json:"symbol"`
	TypeName string   `json:"type_name"`
	Loc      Location `json:"loc,omitempty"`
}

// MacroObject is an object-like macro lowered to a single literal constant.
type MacroObject struct {
	Name   string   `json:"name"`
	Tokens []string `json:"tokens"`
	Loc    Location `json:"loc,omitempty"`
}
