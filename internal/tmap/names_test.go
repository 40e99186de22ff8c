package tmap

import (
	"testing"

	"bindc/internal/cas"
	"bindc/internal/tas"
)

func TestSanitize(t *testing.T) {
	cases := []struct{ in, want string }{
		{"type", "type_"},
		{"func", "func_"},
		{"range", "range_"},
		{"string", "string_"},
		{"len", "len_"},
		{"value", "value"},
		{"Type", "Type"},
	}
	for _, tc := range cases {
		if got := sanitize(tc.in); got != tc.want {
			t.Errorf("sanitize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestUniqueParams(t *testing.T) {
	in := []tas.Parameter{
		{Name: ""},
		{Name: "type"},
		{Name: "x"},
		{Name: "x"},
		{Name: ""},
	}
	out, renamed := uniqueParams(in)
	want := []string{"param", "type_", "x", "x2", "param2"}
	for i, w := range want {
		if out[i].Name != w {
			t.Errorf("param %d = %q, want %q", i, out[i].Name, w)
		}
	}
	if len(renamed) != 4 {
		t.Errorf("renamed = %v, want indices 0,1,3,4", renamed)
	}
}

func TestShapeName(t *testing.T) {
	kindOf := func(name string) (cas.TypeKind, bool) {
		switch name {
		case "Color":
			return cas.KindEnum, true
		case "Callback":
			return cas.KindFunctionPointer, true
		case "Vec2":
			return cas.KindRecord, true
		}
		return "", false
	}
	cases := []struct {
		ret    string
		params []string
		want   string
		ok     bool
	}{
		{"void", nil, "FnPtrVoid", true},
		{"i32", []string{"i32", "i32"}, "FnPtrIntIntInt", true},
		{"void", []string{"void*"}, "FnPtrVoidPointer", true},
		{"f64", []string{"CString"}, "FnPtrFloatPointer", true},
		{"CBool", []string{"Color"}, "FnPtrBoolInt", true},
		{"void", []string{"Callback"}, "FnPtrVoidPointer", true},
		{"i32", []string{"Vec2*"}, "FnPtrIntPointer", true},
		{"Vec2", nil, "", false},
		{"i32", []string{"Vec2"}, "", false},
	}
	for _, tc := range cases {
		got, ok := shapeName(tc.ret, tc.params, kindOf)
		if got != tc.want || ok != tc.ok {
			t.Errorf("shapeName(%q, %v) = %q, %v; want %q, %v", tc.ret, tc.params, got, ok, tc.want, tc.ok)
		}
	}
}
