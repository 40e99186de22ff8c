package cas

import (
	"encoding/json"
	"fmt"
	"io"

	"bindc/internal/layout"
)

// Surface is the complete C Abstract Surface of one header for one target.
// All slices are in discovery order; the JSON form round-trips bit-exactly.
type Surface struct {
	Header           string             `json:"header"`
	Triple           string             `json:"triple"`
	Functions        []*Function        `json:"functions"`
	FunctionPointers []*FunctionPointer `json:"function_pointers"`
	Records          []*Record          `json:"records"`
	OpaqueTypes      []*OpaqueType      `json:"opaque_types"`
	Typedefs         []*Typedef         `json:"typedefs"`
	Enums            []*Enum            `json:"enums"`
	Variables        []*Variable        `json:"variables"`
	Macros           []*MacroObject     `json:"macros"`
	Types            []*Type            `json:"types"`

	typeIndex map[string]int
}

// New creates an empty surface for the given header and target triple.
func New(header, triple string) *Surface {
	return &Surface{
		Header:           header,
		Triple:           triple,
		Functions:        []*Function{},
		FunctionPointers: []*FunctionPointer{},
		Records:          []*Record{},
		OpaqueTypes:      []*OpaqueType{},
		Typedefs:         []*Typedef{},
		Enums:            []*Enum{},
		Variables:        []*Variable{},
		Macros:           []*MacroObject{},
		Types:            []*Type{},
	}
}

// AddType inserts a type table entry unless one with the same name exists.
// Returns the canonical entry for the name.
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
	dec := json.NewDecoder(r)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("cas: decode surface: %w", err)
	}
	return &s, nil
}

// Validate checks the closure invariants: every referenced type resolves,
// names are unique within their kind, record layouts are consistent, and no
// record is both complete and opaque.
func (s *Surface) Validate() error {
	if err := s.checkUniqueNames(); err != nil {
		return err
	}

	ref := func(owner, name string) error {
		if name == "" {
			return fmt.Errorf("cas: %s references an empty type name", owner)
		}
		if _, ok := s.TypeByName(name); !ok {
			return fmt.Errorf("cas: %s references unresolved type %q", owner, name)
		}
		return nil
	}

	for _, fn := range s.Functions {
		if err := ref("function "+fn.Name, fn.ReturnTypeName); err != nil {
			return err
		}
		for _, p := range fn.Parameters {
			if p.Name == "" {
				return fmt.Errorf("cas: function %s has an unnamed parameter", fn.Name)
			}
			if err := ref(fmt.Sprintf("function %s param %s", fn.Name, p.Name), p.TypeName); err != nil {
				return err
			}
		}
	}
	for _, fp := range s.FunctionPointers {
		if err := ref("function pointer "+fp.Name, fp.ReturnTypeName); err != nil {
			return err
		}
		for _, p := range fp.Parameters {
			if err := ref(fmt.Sprintf("function pointer %s param %s", fp.Name, p.Name), p.TypeName); err != nil {
				return err
			}
		}
	}

	opaque := make(map[string]bool, len(s.OpaqueTypes))
	for _, o := range s.OpaqueTypes {
		opaque[o.Name] = true
	}
	var checkRecord func(r *Record) error
	checkRecord = func(r *Record) error {
		if opaque[r.Name] {
			return fmt.Errorf("cas: record %s is both complete and opaque", r.Name)
		}
		rt, ok := s.TypeByName(r.TypeRef)
		if !ok {
			return fmt.Errorf("cas: record %s references unresolved type %q", r.Name, r.TypeRef)
		}
		slots := make([]layout.FieldSlot, len(r.Fields))
		for i, f := range r.Fields {
			ft, ok := s.TypeByName(f.TypeName)
			if !ok {
				return fmt.Errorf("cas: record %s field %s references unresolved type %q", r.Name, f.Name, f.TypeName)
			}
			slots[i] = layout.FieldSlot{
				Name:       f.Name,
				OffsetBits: int64(f.OffsetBits),
				SizeBytes:  int64(ft.SizeBytes),
			}
		}
		if err := layout.ValidateRecord(slots, int64(rt.SizeBytes), r.IsUnion); err != nil {
			return fmt.Errorf("cas: record %s: %w", r.Name, err)
		}
		for _, nested := range r.NestedRecords {
			if err := checkRecord(nested); err != nil {
				return err
			}
		}
		return nil
	}
	for _, r := range s.Records {
		if err := checkRecord(r); err != nil {
			return err
		}
	}

	for _, td := range s.Typedefs {
		if err := ref("typedef "+td.Name, td.UnderlyingTypeName); err != nil {
			return err
		}
	}
	for _, e := range s.Enums {
		if err := ref("enum "+e.Name, e.IntegerTypeName); err != nil {
			return err
		}
	}
	for _, v := range s.Variables {
		if err := ref("variable "+v.Name, v.TypeName); err != nil {
			return err
		}
	}
	return nil
}

func (s *Surface) checkUniqueNames() error {
	check := func(kind string, names []string) error {
		seen := make(map[string]bool, len(names))
		for _, n := range names {
			if seen[n] {
				return fmt.Errorf("cas: duplicate %s name %q", kind, n)
			}
			seen[n] = true
		}
		return nil
	}

	collect := func(n int, get func(int) string) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = get(i)
		}
		return out
	}

	// Record and function-pointer names include nested nodes: a synthesized
	// Anonymous_* or FnPtr_* name must be unique across the whole surface.
	recordNames := make([]string, 0, len(s.Records))
	fnPtrNames := collect(len(s.FunctionPointers), func(i int) string { return s.FunctionPointers[i].Name })
	var walk func(r *Record)
	walk = func(r *Record) {
		recordNames = append(recordNames, r.Name)
		for _, fp := range r.NestedFunctionPointers {
			fnPtrNames = append(fnPtrNames, fp.Name)
		}
		for _, nested := range r.NestedRecords {
			walk(nested)
		}
	}
	for _, r := range s.Records {
		walk(r)
	}

	if err := check("function", collect(len(s.Functions), func(i int) string { return s.Functions[i].Name })); err != nil {
		return err
	}
	if err := check("function pointer", fnPtrNames); err != nil {
		return err
	}
	if err := check("record", recordNames); err != nil {
		return err
	}
	if err := check("opaque type", collect(len(s.OpaqueTypes), func(i int) string { return s.OpaqueTypes[i].Name })); err != nil {
		return err
	}
	if err := check("typedef", collect(len(s.Typedefs), func(i int) string { return s.Typedefs[i].Name })); err != nil {
		return err
	}
	if err := check("enum", collect(len(s.Enums), func(i int) string { return s.Enums[i].Name })); err != nil {
		return err
	}
	if err := check("variable", collect(len(s.Variables), func(i int) string { return s.Variables[i].Name })); err != nil {
		return err
	}
	if err := check("macro", collect(len(s.Macros), func(i int) string { return s.Macros[i].Name })); err != nil {
		return err
	}
	return check("type", collect(len(s.Types), func(i int) string { return s.Types[i].Name }))
}
