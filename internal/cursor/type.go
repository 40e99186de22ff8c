package cursor

// TypeKind classifies a type the oracle reports.
type TypeKind uint8

const (
	TypeInvalid TypeKind = iota
	TypeVoid
	TypeBool
	TypeChar
	TypeSChar
	TypeUChar
	TypeShort
	TypeUShort
	TypeInt
	TypeUInt
	TypeLong
	TypeULong
	TypeLongLong
	TypeULongLong
	TypeFloat
	TypeDouble
	TypeLongDouble
	TypePointer
	TypeRecord
	TypeEnum
	TypeTypedef
	TypeFunctionProto
	TypeConstantArray
	TypeIncompleteArray
	TypeElaborated
	TypeVector
	TypeComplex
)

func (k TypeKind) String() string {
	switch k {
	case TypeVoid:
		return "Void"
	case TypeBool:
		return "Bool"
	case TypeChar:
		return "Char"
	case TypeSChar:
		return "SChar"
	case TypeUChar:
		return "UChar"
	case TypeShort:
		return "Short"
	case TypeUShort:
		return "UShort"
	case TypeInt:
		return "Int"
	case TypeUInt:
		return "UInt"
	case TypeLong:
		return "Long"
	case TypeULong:
		return "ULong"
	case TypeLongLong:
		return "LongLong"
	case TypeULongLong:
		return "ULongLong"
	case TypeFloat:
		return "Float"
	case TypeDouble:
		return "Double"
	case TypeLongDouble:
		return "LongDouble"
	case TypePointer:
		return "Pointer"
	case TypeRecord:
		return "Record"
	case TypeEnum:
		return "Enum"
	case TypeTypedef:
		return "Typedef"
	case TypeFunctionProto:
		return "FunctionProto"
	case TypeConstantArray:
		return "ConstantArray"
	case TypeIncompleteArray:
		return "IncompleteArray"
	case TypeElaborated:
		return "Elaborated"
	case TypeVector:
		return "Vector"
	case TypeComplex:
		return "Complex"
	}
	return "Invalid"
}

// IsBuiltin reports whether the kind is a C builtin scalar.
func (k TypeKind) IsBuiltin() bool {
	return k >= TypeVoid && k <= TypeLongDouble
}

// CallConv is the ABI calling convention of a function type.
type CallConv uint8

const (
	CallC CallConv = iota
	CallOther
)

func (c CallConv) String() string {
	if c == CallC {
		return "C"
	}
	return "Other"
}

// Type is a type handle the oracle reports for a cursor. Accessors that do
// not apply to the kind return nil (types) or zero values.
//
// SizeOf/AlignOf answer for the target triple the unit was parsed for; the
// core treats them as the layout oracle and never computes C layout itself.
type Type interface {
	Kind() TypeKind
	Spelling() string
	Canonical() Type
	SizeOf() (int64, error)
	AlignOf() (int64, error)
	IsConstQualified() bool

	// ElementType and ArraySize apply to array and vector kinds.
	ElementType() Type
	ArraySize() int64
	// PointeeType applies to TypePointer.
	PointeeType() Type
	// NamedType unwraps TypeElaborated to the underlying named type.
	NamedType() Type
	// Declaration returns the declaring cursor for records, enums, typedefs.
	Declaration() (Cursor, bool)

	// ResultType and ArgTypes apply to TypeFunctionProto.
	ResultType() Type
	ArgTypes() []Type
	IsFunctionVariadic() bool
	CallingConv() CallConv
}
