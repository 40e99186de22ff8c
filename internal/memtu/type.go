// Package memtu provides an in-memory implementation of the parser oracle
// contract. Translation units are constructed structurally, either through
// the Builder (tests) or from a JSON dump (CLI). Layout answers are computed
// with natural C alignment rules for the configured widths, so the unit acts
// as its own layout oracle the same way a real parser would.
package memtu

import (
	"errors"

	"bindc/internal/cursor"
)

var (
	// ErrIncomplete is returned by SizeOf/AlignOf for incomplete types.
	ErrIncomplete = errors.New("memtu: incomplete type has no layout")
	// ErrNoLayout is returned for types without object layout (functions).
	ErrNoLayout = errors.New("memtu: type has no object layout")
)

// Type implements cursor.Type.
type Type struct {
	kind     cursor.TypeKind
	spelling string
	size     int64 // -1: incomplete, -2: no object layout
	align    int64
	constQ   bool

	elem    *Type
	count   int64
	pointee *Type
	named   *Type
	decl    *Cursor

	result   *Type
	args     []*Type
	variadic bool
	cc       cursor.CallConv

	canon *Type // nil means the type is its own canonical form
}

func (t *Type) Kind() cursor.TypeKind { return t.kind }
func (t *Type) Spelling() string      { return t.spelling }

func (t *Type) Canonical() cursor.Type {
	c := t.canonicalType()
	if c == nil {
		return nil
	}
	return c
}

func (t *Type) canonicalType() *Type {
	cur := t
	for cur.canon != nil {
		cur = cur.canon
	}
	return cur
}

func (t *Type) SizeOf() (int64, error) {
	c := t.canonicalType()
	switch {
	case c.size == -1:
		return 0, ErrIncomplete
	case c.size == -2:
		return 0, ErrNoLayout
	}
	return c.size, nil
}

func (t *Type) AlignOf() (int64, error) {
	c := t.canonicalType()
	switch {
	case c.size == -1:
		return 0, ErrIncomplete
	case c.size == -2:
		return 0, ErrNoLayout
	}
	return c.align, nil
}

func (t *Type) IsConstQualified() bool { return t.constQ }

func (t *Type) ElementType() cursor.Type {
	if t.elem == nil {
		return nil
	}
	return t.elem
}

func (t *Type) ArraySize() int64 { return t.count }

func (t *Type) PointeeType() cursor.Type {
	if t.pointee == nil {
		return nil
	}
	return t.pointee
}

func (t *Type) NamedType() cursor.Type {
	if t.named == nil {
		return nil
	}
	return t.named
}

func (t *Type) Declaration() (cursor.Cursor, bool) {
	if t.decl == nil {
		return nil, false
	}
	return t.decl, true
}

func (t *Type) ResultType() cursor.Type {
	if t.result == nil {
		return nil
	}
	return t.result
}

func (t *Type) ArgTypes() []cursor.Type {
	if len(t.args) == 0 {
		return nil
	}
	out := make([]cursor.Type, len(t.args))
	for i, a := range t.args {
		out[i] = a
	}
	return out
}

func (t *Type) IsFunctionVariadic() bool     { return t.variadic }
func (t *Type) CallingConv() cursor.CallConv { return t.cc }
