package emit

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"bindc/internal/tas"
)

var titleCaser = cases.Title(language.English, cases.NoLower)

// exportName turns a surface name into an exported Go identifier:
// snake_case segments are title-cased and joined.
func exportName(name string) string {
	name = strings.TrimSuffix(name, "_")
	parts := strings.Split(name, "_")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(titleCaser.String(p))
	}
	if b.Len() == 0 {
		return "X"
	}
	return b.String()
}

// unexportName lowers only the first rune, for local identifiers.
func unexportName(name string) string {
	n := exportName(name)
	return strings.ToLower(n[:1]) + n[1:]
}

// goScalar maps a surface primitive to its Go spelling in value position.
func goScalar(name string) (string, bool) {
	switch name {
	case "i8":
		return "int8", true
	case "u8":
		return "uint8", true
	case "i16":
		return "int16", true
	case "u16":
		return "uint16", true
	case "i32":
		return "int32", true
	case "u32":
		return "uint32", true
	case "i64":
		return "int64", true
	case "u64":
		return "uint64", true
	case "f32":
		return "float32", true
	case "f64":
		return "float64", true
	case "CBool":
		return "bool", true
	}
	return "", false
}

// paramType is the Go type of a value crossing the call boundary.
func (g *generator) paramType(name string) string {
	if s, ok := goScalar(name); ok {
		return s
	}
	switch name {
	case "void":
		return ""
	case "CString":
		return "string"
	case "void*", "Pointer":
		return "unsafe.Pointer"
	}
	if elem, isPtr := strings.CutSuffix(name, "*"); isPtr {
		if s, ok := goScalar(elem); ok {
			return "*" + s
		}
		if t, ok := g.sur.TypeByName(elem); ok {
			return "*" + exportName(displayName(t))
		}
		return "unsafe.Pointer"
	}
	if t, ok := g.sur.TypeByName(name); ok {
		switch t.Kind {
		case tas.KindFunctionPointer:
			return exportName(displayName(t))
		case tas.KindOpaque:
			return "*" + exportName(displayName(t))
		case tas.KindConstArray:
			return t.TargetName
		default:
			return exportName(displayName(t))
		}
	}
	return "unsafe.Pointer"
}

// fieldType is the Go type of a struct field. Pointers are held as uintptr
// so a C-owned record never looks like it holds Go pointers.
func (g *generator) fieldType(name string) string {
	if s, ok := goScalar(name); ok {
		return s
	}
	switch name {
	case "CString", "void*", "Pointer":
		return "uintptr"
	}
	if strings.HasSuffix(name, "*") {
		return "uintptr"
	}
	if t, ok := g.sur.TypeByName(name); ok {
		switch t.Kind {
		case tas.KindConstArray:
			return t.TargetName
		case tas.KindFunctionPointer:
			return exportName(displayName(t))
		case tas.KindPointer:
			return "uintptr"
		default:
			return exportName(displayName(t))
		}
	}
	return "uintptr"
}

// displayName is the name an entity is emitted under: the target name when
// the mapper set one, the canonical name otherwise.
func displayName(t *tas.Type) string {
	if t.TargetName != "" && !strings.ContainsAny(t.TargetName, "*[]. ") {
		return t.TargetName
	}
	return t.Name
}

// goLiteral rewrites a C literal token into a Go constant expression,
// stripping integer and float suffixes C allows but Go does not.
func goLiteral(tok string) string {
	if tok == "" {
		return tok
	}
	if tok[0] == '"' {
		return tok
	}
	trimmed := strings.TrimRight(tok, "uUlL")
	if trimmed != tok {
		return trimmed
	}
	if strings.ContainsAny(tok, ".eE") && !strings.HasPrefix(tok, "0x") {
		return strings.TrimRight(tok, "fF")
	}
	return tok
}
