package memtu

import (
	"bindc/internal/cursor"
)

// Cursor implements cursor.Cursor.
type Cursor struct {
	kind     cursor.Kind
	spelling string
	usr      string
	loc      cursor.Location
	system   bool

	typ      *Type
	children []*Cursor

	isDef bool
	def   *Cursor // definition for forward declarations

	underlying *Type // typedef target
	enumInt    *Type
	enumVal    int64
	variadic   bool

	offsetBits int64
	hasOffset  bool

	macroTokens []string
	macroFnLike bool
}

func (c *Cursor) Kind() cursor.Kind         { return c.kind }
func (c *Cursor) Spelling() string          { return c.spelling }
func (c *Cursor) USR() string               { return c.usr }
func (c *Cursor) Location() cursor.Location { return c.loc }
func (c *Cursor) IsInSystemHeader() bool    { return c.system }
func (c *Cursor) IsDefinition() bool        { return c.isDef }

func (c *Cursor) Definition() (cursor.Cursor, bool) {
	if c.isDef {
		return c, true
	}
	if c.def != nil {
		return c.def, true
	}
	return nil, false
}

func (c *Cursor) Type() cursor.Type {
	if c.typ == nil {
		return nil
	}
	return c.typ
}

func (c *Cursor) TypedefUnderlyingType() cursor.Type {
	if c.underlying == nil {
		return nil
	}
	return c.underlying
}

func (c *Cursor) EnumIntegerType() cursor.Type {
	if c.enumInt == nil {
		return nil
	}
	return c.enumInt
}

func (c *Cursor) EnumValue() int64 { return c.enumVal }
func (c *Cursor) IsVariadic() bool { return c.variadic }

func (c *Cursor) OffsetOfFieldBits() (int64, bool) {
	return c.offsetBits, c.hasOffset
}

func (c *Cursor) MacroTokens() []string     { return c.macroTokens }
func (c *Cursor) IsMacroFunctionLike() bool { return c.macroFnLike }

// VisitChildren walks direct children, recursing when the visitor asks for it.
func (c *Cursor) VisitChildren(fn cursor.Visitor) {
	c.visit(fn)
}

func (c *Cursor) visit(fn cursor.Visitor) bool {
	for _, child := range c.children {
		switch fn(child, c) {
		case cursor.VisitBreak:
			return false
		case cursor.VisitRecurse:
			if !child.visit(fn) {
				return false
			}
		case cursor.VisitContinue:
		}
	}
	return true
}
