// Package cas defines the C Abstract Surface: the platform-neutral
// intermediate describing everything externally visible in a C API.
// A surface is a closed tree: every type name referenced anywhere resolves
// in the surface's own type table. Node order is discovery order and is
// preserved through serialization.
package cas

// TypeKind classifies an entry of the type table.
type TypeKind string

const (
	KindBuiltin         TypeKind = "Builtin"
	KindPointer         TypeKind = "Pointer"
	KindRecord          TypeKind = "Record"
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

// Type is one resolved entry of the type table.
type Type struct {
	Name         string   `json:"name"`
	OriginalName string   `json:"original_name,omitempty"`
	Kind         TypeKind `json:"kind"`
	SizeBytes    uint32   `json:"size_bytes"`
	AlignBytes   uint32   `json:"align_bytes"`
	ArraySize    uint32   `json:"array_size,omitempty"`
	ElementSize  uint32   `json:"element_size,omitempty"`
	ElementName  string   `json:"element_name,omitempty"`
	IsSystem     bool     `json:"is_system,omitempty"`
}

// FunctionParameter is one parameter of an exported function.
type FunctionParameter struct {
	Name     string `json:"name"`
	TypeName string `json:"type_name"`
	IsConst  bool   `json:"is_const,omitempty"`
}

// Function is an exported C function with C calling convention.
type Function struct {
	Name              string              `json:"name"`
	ReturnTypeName    string              `json:"return_type_name"`
	CallingConvention string              `json:"calling_convention"`
	Parameters        []FunctionParameter `json:"parameters"`
	Loc               Location            `json:"loc,omitempty"`
}

// FunctionPointerParameter is one parameter of a function-pointer type.
type FunctionPointerParameter struct {
	Name     string `json:"name"`
	TypeName string `json:"type_name"`
}

// FunctionPointer is a named function-pointer shape: a typedef, or a
// synthesized FnPtr_<field> entry for untypedefed record fields.
type FunctionPointer struct {
	Name           string                     `json:"name"`
	IsSynthetic    bool                       `json:"is_synthetic,omitempty"`
	ReturnTypeName string                     `json:"return_type_name"`
	Parameters     []FunctionPointerParameter `json:"parameters"`
	Loc            Location                   `json:"loc,omitempty"`
}

// RecordField is one field with its oracle-reported offset and the padding
// to the next field (or to the end of the record).
type RecordField struct {
	Name        string `json:"name"`
	TypeName    string `json:"type_name"`
	OffsetBits  uint32 `json:"offset_bits"`
	PaddingBits uint32 `json:"padding_bits"`
}

// Record is a complete struct or union definition.
type Record struct {
	Name                   string             `json:"name"`
	IsUnion                bool               `json:"is_union,omitempty"`
	Fields                 []RecordField      `json:"fields"`
	NestedRecords          []*Record          `json:"nested_records,omitempty"`
	NestedFunctionPointers []*FunctionPointer `json:"nested_function_pointers,omitempty"`
	TypeRef                string             `json:"type_ref"`
	Loc                    Location           `json:"loc,omitempty"`
}

// OpaqueType is a record declared but never defined in the input set.
type OpaqueType struct {
	Name string   `json:"name"`
	Loc  Location `json:"loc,omitempty"`
}

// Typedef aliases one type name to another. System typedefs stay in the
// surface tagged IsSystem; whether they are emitted is a target-side choice.
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

// Enum is a C enum with its underlying integer type.
type Enum struct {
	Name            string      `json:"name"`
	IntegerTypeName string      `json:"integer_type_name"`
	Values          []EnumValue `json:"values"`
	Loc             Location    `json:"loc,omitempty"`
}

// Variable is an exported global.
type Variable struct {
	Name     string   `json:"name"`
	TypeName string   `json:"type_name"`
	Loc      Location `json:"loc,omitempty"`
}

// MacroObject is an object-like macro whose body is a single literal token.
type MacroObject struct {
	Name   string   `json:"name"`
	Tokens []string `json:"tokens"`
	Loc    Location `json:"loc,omitempty"`
}
