// Package cursor defines the contract the generator core requires from a
// C parser. libclang is the canonical implementation; the core never depends
// on a concrete parser, only on this surface. Any oracle that can answer
// these queries (kinds, spellings, locations, layout) is acceptable.
package cursor

// Kind classifies a cursor in the translation unit.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindTranslationUnit
	KindFunctionDecl
	KindStructDecl
	KindUnionDecl
	KindEnumDecl
	KindEnumConstantDecl
	KindFieldDecl
	KindParmDecl
	KindTypedefDecl
	KindVarDecl
	KindMacroDefinition
	KindUnexposed
)

func (k Kind) String() string {
	switch k {
	case KindTranslationUnit:
		return "TranslationUnit"
	case KindFunctionDecl:
		return "FunctionDecl"
	case KindStructDecl:
		return "StructDecl"
	case KindUnionDecl:
		return "UnionDecl"
	case KindEnumDecl:
		return "EnumDecl"
	case KindEnumConstantDecl:
		return "EnumConstantDecl"
	case KindFieldDecl:
		return "FieldDecl"
	case KindParmDecl:
		return "ParmDecl"
	case KindTypedefDecl:
		return "TypedefDecl"
	case KindVarDecl:
		return "VarDecl"
	case KindMacroDefinition:
		return "MacroDefinition"
	case KindUnexposed:
		return "Unexposed"
	}
	return "Invalid"
}

// Location is a position the oracle reports for a cursor.
type Location struct {
	File string
	Line uint32
	Col  uint32
}

// VisitResult controls child traversal, mirroring the usual visitor protocol.
type VisitResult uint8

const (
	// VisitContinue proceeds to the next sibling without descending.
	VisitContinue VisitResult = iota
	// VisitRecurse descends into the children of the current cursor.
	VisitRecurse
	// VisitBreak stops the traversal entirely.
	VisitBreak
)

// Visitor is invoked for each direct child with its parent.
type Visitor func(c, parent Cursor) VisitResult

// Cursor is one node of a parsed translation unit.
//
// Accessors that only apply to certain kinds (EnumValue, MacroTokens,
// OffsetOfFieldBits, ...) return zero values for other kinds.
type Cursor interface {
	Kind() Kind
	Spelling() string
	// USR is a stable identity for the declared entity: two cursors with the
	// same USR refer to the same declaration.
	USR() string
	Location() Location
	IsInSystemHeader() bool

	// IsDefinition reports whether this cursor is the defining occurrence.
	IsDefinition() bool
	// Definition resolves a forward declaration to its definition, if one
	// exists anywhere in the translation unit.
	Definition() (Cursor, bool)

	Type() Type
	// TypedefUnderlyingType returns the aliased type for KindTypedefDecl.
	TypedefUnderlyingType() Type
	// EnumIntegerType returns the underlying integer type for KindEnumDecl.
	EnumIntegerType() Type
	// EnumValue returns the constant value for KindEnumConstantDecl.
	EnumValue() int64
	// IsVariadic reports trailing-ellipsis for KindFunctionDecl.
	IsVariadic() bool
	// OffsetOfFieldBits returns the bit offset for KindFieldDecl within its
	// enclosing record. ok is false outside field cursors.
	OffsetOfFieldBits() (int64, bool)
	// MacroTokens returns the body token stream for KindMacroDefinition.
	MacroTokens() []string
	// IsMacroFunctionLike reports whether the macro takes parameters.
	IsMacroFunctionLike() bool

	VisitChildren(fn Visitor)
}
