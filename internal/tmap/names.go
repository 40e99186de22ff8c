package tmap

import (
	"fmt"
	"strings"

	"bindc/internal/cas"
	"bindc/internal/tas"
)

// goReserved is the Go keyword set plus predeclared identifiers that would
// shadow something a generated file relies on.
var goReserved = map[string]bool{
	"break": true, "case": true, "chan": true, "const": true, "continue": true,
	"default": true, "defer": true, "else": true, "fallthrough": true,
	"for": true, "func": true, "go": true, "goto": true, "if": true,
	"import": true, "interface": true, "map": true, "package": true,
	"range": true, "return": true, "select": true, "struct": true,
	"switch": true, "type": true, "var": true,
	"string": true, "bool": true, "byte": true, "rune": true, "error": true,
	"int": true, "uint": true, "uintptr": true, "len": true, "cap": true,
	"nil": true, "new": true, "make": true, "copy": true, "append": true,
}

// sanitize makes an identifier legal in the target language. Reserved words
// get a trailing underscore; everything else passes through unchanged.
func sanitize(name string) string {
	if goReserved[name] {
		return name + "_"
	}
	return name
}

// uniqueParams renames empty and duplicate parameter names and sanitizes
// reserved words. Returns the renamed list and the indices that changed.
func uniqueParams(params []tas.Parameter) ([]tas.Parameter, []int) {
	out := make([]tas.Parameter, len(params))
	copy(out, params)
	var renamed []int
	taken := make(map[string]bool, len(out))
	emptySeen := 0
	for i := range out {
		name := out[i].Name
		if name == "" {
			emptySeen++
			name = "param"
			if emptySeen > 1 {
				name = fmt.Sprintf("param%d", emptySeen)
			}
		}
		name = sanitize(name)
		base := name
		for n := 2; taken[name]; n++ {
			name = fmt.Sprintf("%s%d", base, n)
		}
		taken[name] = true
		if name != out[i].Name {
			renamed = append(renamed, i)
		}
		out[i].Name = name
	}
	return out, renamed
}

// builtinTargetName maps a surface primitive to its spelling in generated
// source. Unknown names return empty.
func builtinTargetName(name string) string {
	switch name {
	case "void":
		return ""
	case "i8":
		return "int8"
	case "u8":
		return "uint8"
	case "i16":
		return "int16"
	case "u16":
		return "uint16"
	case "i32":
		return "int32"
	case "u32":
		return "uint32"
	case "i64":
		return "int64"
	case "u64":
		return "uint64"
	case "f32":
		return "float32"
	case "f64":
		return "float64"
	case "CBool":
		return "bool"
	case "CString":
		return "string"
	case "Pointer":
		return "unsafe.Pointer"
	}
	return ""
}

// shapeClass buckets a parameter or return type for delegate shape naming.
// Empty means the type has no shape bucket and the pointer keeps a typed name.
func shapeClass(name string, kindOf func(string) (cas.TypeKind, bool)) string {
	switch name {
	case "void":
		return "Void"
	case "CString", "void*", "Pointer":
		return "Pointer"
	case "CBool":
		return "Bool"
	case "i8", "u8", "i16", "u16", "i32", "u32", "i64", "u64":
		return "Int"
	case "f32", "f64":
		return "Float"
	}
	if strings.HasSuffix(name, "*") {
		return "Pointer"
	}
	if kind, ok := kindOf(name); ok {
		switch kind {
		case cas.KindEnum:
			return "Int"
		case cas.KindFunctionPointer:
			return "Pointer"
		}
	}
	return ""
}

// shapeName derives the delegate shape for a function pointer: FnPtrVoid for
// the nullary void shape, otherwise FnPtr<Ret><Param>... over the buckets.
// ok is false when any part has no bucket (a by-value record, for instance).
func shapeName(ret string, params []string, kindOf func(string) (cas.TypeKind, bool)) (string, bool) {
	if ret == "void" && len(params) == 0 {
		return "FnPtrVoid", true
	}
	var b strings.Builder
	b.WriteString("FnPtr")
	rc := shapeClass(ret, kindOf)
	if rc == "" {
		return "", false
	}
	b.WriteString(rc)
	for _, p := range params {
		pc := shapeClass(p, kindOf)
		if pc == "" || pc == "Void" {
			return "", false
		}
		b.WriteString(pc)
	}
	return b.String(), true
}
