package tas

import (
	"encoding/json"
	"fmt"
	"io"
)

// Surface is the complete Target Abstract Surface for one header.
// Slice order follows CAS insertion order, which follows discovery order;
// two runs over the same input produce byte-identical JSON.
type Surface struct {
	Header           string             `json:"header"`
	Triple           string             `json:"triple"`
	ClassName        string             `json:"class_name,omitempty"`
	LibraryName      string             `json:"library_name,omitempty"`
	Functions        []*Function        `json:"functions"`
	FunctionPointers []*FunctionPointer `json:"function_pointers"`
	Structs          []*Struct          `json:"structs"`
	OpaqueTypes      []*OpaqueType      `json:"opaque_types"`
	Typedefs         []*Typedef         `json:"typedefs"`
	Enums            []*Enum            `json:"enums"`
	Variables        []*Variable        `json:"variables"`
	Macros           []*MacroObject     `json:"macros"`
	Types            []*Type            `json:"types"`

	typeIndex map[string]int
}

// New creates an empty TAS.
func New(header, triple string) *Surface {
	return &Surface{
		Header:           header,
		Triple:           triple,
		Functions:        []*Function{},
		FunctionPointers: []*FunctionPointer{},
		Structs:          []*Struct{},
		OpaqueTypes:      []*OpaqueType{},
		Typedefs:         []*Typedef{},
		Enums:            []*Enum{},
		Variables:        []*Variable{},
		Macros:           []*MacroObject{},
		Types:            []*Type{},
	}
}

// AddType inserts a type table entry unless one with the same name exists.
func (s *Surface) AddType(t *Type) *Type {
	if existing, ok := s.TypeByName(t.Name); ok {
		return existing
	}
	if s.typeIndex == nil {
		s.typeIndex = make(map[string]int)
	}
	s.typeIndex[t.Name] = len(s.Types)
	s.Types = append(s.Types, t)
	return t
}

// TypeByName resolves a name in the type table.
func (s *Surface) TypeByName(name string) (*Type, bool) {
	if s.typeIndex == nil || len(s.typeIndex) != len(s.Types) {
		s.typeIndex = make(map[string]int, len(s.Types))
		for i, t := range s.Types {
			s.typeIndex[t.Name] = i
		}
	}
	i, ok := s.typeIndex[name]
	if !ok {
		return nil, false
	}
	return s.Types[i], true
}

// WriteJSON serializes the surface with stable field and element order.
func (s *Surface) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// ReadJSON deserializes a surface previously written by WriteJSON.
func ReadJSON(r io.Reader) (*Surface, error) {
	var s Surface
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("tas: decode surface: %w", err)
	}
	return &s, nil
}

// Validate checks that every referenced type name resolves to a TAS entity
// or a builtin primitive, and that function parameter names are pairwise
// distinct and non-empty.
func (s *Surface) Validate() error {
	resolves := func(name string) bool {
		if IsBuiltin(name) {
			return true
		}
		_, ok := s.TypeByName(name)
		return ok
	}

	checkParams := func(owner string, params []Parameter) error {
		seen := make(map[string]bool, len(params))
		for _, p := range params {
			if p.Name == "" {
				return fmt.Errorf("tas: %s has an unnamed parameter", owner)
			}
			if seen[p.Name] {
				return fmt.Errorf("tas: %s has duplicate parameter %q", owner, p.Name)
			}
			seen[p.Name] = true
			if !resolves(p.TypeName) {
				return fmt.Errorf("tas: %s param %s references unresolved type %q", owner, p.Name, p.TypeName)
			}
		}
		return nil
	}

	for _, fn := range s.Functions {
		if !resolves(fn.ReturnTypeName) {
			return fmt.Errorf("tas: function %s references unresolved type %q", fn.Name, fn.ReturnTypeName)
		}
		if err := checkParams("function "+fn.Name, fn.Parameters); err != nil {
			return err
		}
	}
	for _, fp := range s.FunctionPointers {
		if !resolves(fp.ReturnTypeName) {
			return fmt.Errorf("tas: function pointer %s references unresolved type %q", fp.Name, fp.ReturnTypeName)
		}
		if err := checkParams("function pointer "+fp.Name, fp.Parameters); err != nil {
			return err
		}
	}

	var checkStruct func(st *Struct) error
	checkStruct = func(st *Struct) error {
		var sum uint32
		for _, f := range st.Fields {
			if !f.IsWrappedArray && !resolves(f.TypeName) {
				return fmt.Errorf("tas: struct %s field %s references unresolved type %q", st.Name, f.Name, f.TypeName)
			}
			var fieldBits uint32
			if f.IsWrappedArray {
				fieldBits = f.WrappedSizeBytes * 8
			} else if t, ok := s.TypeByName(f.TypeName); ok {
				fieldBits = t.SizeBytes * 8
			} else {
				fieldBits = builtinSizeBytes(f.TypeName) * 8
			}
			sum += fieldBits + f.PaddingBits
		}
		if !st.IsUnion && len(st.Fields) > 0 && sum != st.SizeBytes*8 {
			return fmt.Errorf("tas: struct %s fields sum to %d bits, record is %d bits", st.Name, sum, st.SizeBytes*8)
		}
		for _, nested := range st.NestedStructs {
			if err := checkStruct(nested); err != nil {
				return err
			}
		}
		return nil
	}
	for _, st := range s.Structs {
		if err := checkStruct(st); err != nil {
			return err
		}
	}

	for _, td := range s.Typedefs {
		if !resolves(td.UnderlyingTypeName) {
			return fmt.Errorf("tas: typedef %s references unresolved type %q", td.Name, td.UnderlyingTypeName)
		}
	}
	for _, e := range s.Enums {
		if e.IntegerTypeName != "i32" && e.IntegerTypeName != "u32" {
			return fmt.Errorf("tas: enum %s has non-normalized integer type %q", e.Name, e.IntegerTypeName)
		}
	}
	for _, v := range s.Variables {
		if !resolves(v.TypeName) {
			return fmt.Errorf("tas: variable %s references unresolved type %q", v.Name, v.TypeName)
		}
	}
	return nil
}

func builtinSizeBytes(name string) uint32 {
	switch name {
	case "i8", "u8", "CBool":
		return 1
	case "i16", "u16":
		return 2
	case "i32", "u32", "f32":
		return 4
	case "i64", "u64", "f64", "CString", "Pointer":
		return 8
	}
	return 0
}
