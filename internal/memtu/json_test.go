package memtu

import (
	"strings"
	"testing"

	"bindc/internal/cursor"
)

const demoUnitJSON = `{
  "file": "demo.h",
  "widths": {"long": 8, "ptr": 8},
  "decls": [
    {"decl": "typedef", "name": "size_t", "type": "unsigned long", "system": true},
    {"decl": "struct", "name": "Point", "fields": [
      {"name": "x", "type": "int"},
      {"name": "y", "type": "int"}
    ]},
    {"decl": "opaque", "name": "engine_ctx"},
    {"decl": "enum", "name": "Mode", "int": "int", "values": [
      {"name": "M_OFF", "value": 0},
      {"name": "M_ON", "value": 1}
    ]},
    {"decl": "typedef", "name": "Callback", "type": {"ptr": {"fn": {
      "result": "void", "params": ["int"], "variadic": false
    }}}},
    {"decl": "function", "name": "point_dist", "result": "double", "params": [
      {"name": "a", "type": {"ptr": {"const": "Point"}}},
      {"name": "b", "type": {"ptr": "Point"}}
    ]},
    {"decl": "function", "name": "log_printf", "result": "void", "variadic": true, "params": [
      {"name": "fmt", "type": {"ptr": {"const": "char"}}}
    ]},
    {"decl": "var", "name": "g_modes", "type": {"array": {"of": "Mode", "count": 4}}},
    {"decl": "macro", "name": "MAX_N", "tokens": ["42"]},
    {"decl": "macro", "name": "SQ", "function_like": true, "tokens": ["(", "x", ")", "*", "(", "x", ")"]}
  ]
}`

func TestLoadJSONFullUnit(t *testing.T) {
	b, err := LoadJSON(strings.NewReader(demoUnitJSON))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if b.File() != "demo.h" {
		t.Fatalf("file = %q", b.File())
	}

	kinds := []cursor.Kind{
		cursor.KindTypedefDecl,
		cursor.KindStructDecl,
		cursor.KindStructDecl,
		cursor.KindEnumDecl,
		cursor.KindTypedefDecl,
		cursor.KindFunctionDecl,
		cursor.KindFunctionDecl,
		cursor.KindVarDecl,
		cursor.KindMacroDefinition,
		cursor.KindMacroDefinition,
	}
	decls := b.root.children
	if len(decls) != len(kinds) {
		t.Fatalf("decl count = %d, want %d", len(decls), len(kinds))
	}
	for i, want := range kinds {
		if decls[i].kind != want {
			t.Fatalf("decl %d kind = %v, want %v", i, decls[i].kind, want)
		}
	}

	if !decls[0].system || decls[1].system {
		t.Fatal("system flag must apply per declaration")
	}
	if decls[2].isDef {
		t.Fatal("opaque decl must not be a definition")
	}

	dist := decls[5]
	if dist.typ.result.spelling != "double" || len(dist.typ.args) != 2 {
		t.Fatalf("point_dist proto = %q", dist.typ.spelling)
	}
	if got := dist.typ.args[0].pointee.spelling; got != "const struct Point" {
		t.Fatalf("param a pointee = %q", got)
	}
	if !decls[6].variadic {
		t.Fatal("log_printf must be variadic")
	}

	modes := decls[7].typ
	if modes.kind != cursor.TypeConstantArray || modes.count != 4 || modes.size != 16 {
		t.Fatalf("g_modes type = %q size %d", modes.spelling, modes.size)
	}

	if !decls[9].macroFnLike || decls[8].macroFnLike {
		t.Fatal("function_like flag mismatch")
	}
}

func TestLoadJSONWidths(t *testing.T) {
	b, err := LoadJSON(strings.NewReader(demoUnitJSON))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if b.Long.size != 8 || b.Pointer(b.Int).size != 8 {
		t.Fatalf("declared widths ignored: long=%d", b.Long.size)
	}

	b32, err := LoadJSONWidths(strings.NewReader(demoUnitJSON), ILP32())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if b32.Long.size != 4 || b32.Pointer(b32.Int).size != 4 {
		t.Fatalf("override ignored: long=%d", b32.Long.size)
	}
	// The system size_t typedef follows the overridden unsigned long.
	if b32.root.children[0].underlying.size != 4 {
		t.Fatalf("size_t underlying = %d bytes", b32.root.children[0].underlying.size)
	}
}

func TestLoadJSONDefaultsToLP64(t *testing.T) {
	b, err := LoadJSON(strings.NewReader(`{"file": "demo.h", "decls": []}`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if b.Long.size != 8 {
		t.Fatalf("long = %d bytes, want 8", b.Long.size)
	}
}

func TestLoadJSONErrors(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"missing file", `{"decls": []}`, "no file"},
		{"unknown decl", `{"file": "h", "decls": [{"decl": "alias", "name": "x"}]}`, "unknown decl kind"},
		{"unknown type", `{"file": "h", "decls": [{"decl": "var", "name": "v", "type": "frob"}]}`, `unknown type "frob"`},
		{"unknown key", `{"file": "h", "extra": 1, "decls": []}`, "unknown field"},
		{"empty type ref", `{"file": "h", "decls": [{"decl": "var", "name": "v", "type": {}}]}`, "empty type reference"},
		{"typedef without type", `{"file": "h", "decls": [{"decl": "typedef", "name": "T"}]}`, "missing type"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadJSON(strings.NewReader(tc.in))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want substring %q", err, tc.want)
			}
		})
	}
}

func TestLoadJSONResolvesEarlierNames(t *testing.T) {
	in := `{
  "file": "h",
  "decls": [
    {"decl": "union", "name": "Value", "fields": [
      {"name": "i", "type": "int"},
      {"name": "d", "type": "double"}
    ]},
    {"decl": "function", "name": "value_read", "result": "void", "params": [
      {"name": "v", "type": {"ptr": "Value"}}
    ]}
  ]
}`
	b, err := LoadJSON(strings.NewReader(in))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	union := b.root.children[0]
	if union.kind != cursor.KindUnionDecl || union.typ.size != 8 {
		t.Fatalf("union = %q size %d", union.typ.spelling, union.typ.size)
	}
	param := b.root.children[1].typ.args[0]
	if param.pointee != union.typ {
		t.Fatal("parameter must reference the declared union type")
	}
}
