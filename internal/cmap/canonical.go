package cmap

import (
	"fmt"

	"bindc/internal/cas"
	"bindc/internal/cursor"
	"bindc/internal/layout"
)

// typeName canonicalises one oracle type to its platform-neutral CAS name and
// registers the matching type table entry. fieldContext keeps constant arrays
// as arrays; everywhere else they decay to pointers.
func (m *mapper) typeName(t cursor.Type, fieldContext bool, at cursor.Cursor) (string, error) {
	t = peel(t)
	if t == nil {
		return "", fmt.Errorf("unresolvable type")
	}

	switch t.Kind() {
	case cursor.TypeVoid:
		return m.registerBuiltin("void", t, 0, 1), nil
	case cursor.TypeBool:
		return m.registerScalar("CBool", t), nil
	case cursor.TypeChar, cursor.TypeUChar:
		return m.registerScalar("u8", t), nil
	case cursor.TypeSChar:
		return m.registerScalar("i8", t), nil
	case cursor.TypeShort:
		return m.registerScalar("i16", t), nil
	case cursor.TypeUShort:
		return m.registerScalar("u16", t), nil
	case cursor.TypeInt:
		return m.registerScalar("i32", t), nil
	case cursor.TypeUInt:
		return m.registerScalar("u32", t), nil
	case cursor.TypeLong:
		return m.registerScalar(longName(t, "i32", "i64"), t), nil
	case cursor.TypeULong:
		return m.registerScalar(longName(t, "u32", "u64"), t), nil
	case cursor.TypeLongLong:
		return m.registerScalar("i64", t), nil
	case cursor.TypeULongLong:
		return m.registerScalar("u64", t), nil
	case cursor.TypeFloat:
		return m.registerScalar("f32", t), nil
	case cursor.TypeDouble:
		return m.registerScalar("f64", t), nil

	case cursor.TypeLongDouble:
		return "", fmt.Errorf("unsupported type %q: long double has no portable target width", t.Spelling())
	case cursor.TypeVector:
		return "", fmt.Errorf("unsupported type %q: vector types are not mappable", t.Spelling())
	case cursor.TypeComplex:
		return "", fmt.Errorf("unsupported type %q: complex types are not mappable", t.Spelling())

	case cursor.TypePointer:
		return m.pointerName(t, at)

	case cursor.TypeConstantArray:
		if fieldContext {
			return m.arrayName(t, at)
		}
		return m.decayedName(t, at)
	case cursor.TypeIncompleteArray:
		return m.decayedName(t, at)

	case cursor.TypeRecord:
		return m.recordName(t)
	case cursor.TypeEnum:
		return m.enumName(t)
	case cursor.TypeTypedef:
		return m.typedefName(t, at)

	case cursor.TypeFunctionProto:
		return "", fmt.Errorf("unsupported type %q: bare function type outside a pointer", t.Spelling())
	}
	return "", fmt.Errorf("unsupported type %q (kind %s)", t.Spelling(), t.Kind())
}

// pointerName names a pointer type. char pointers collapse to CString,
// function pointers without a name collapse to void*, and pointees that are
// arrays decay before naming.
func (m *mapper) pointerName(t cursor.Type, at cursor.Cursor) (string, error) {
	pointee := peel(t.PointeeType())
	if pointee == nil {
		return "", fmt.Errorf("pointer with unresolvable pointee in %q", t.Spelling())
	}

	if isCharKind(pointee) {
		return m.registerPointerEntry("CString", t), nil
	}

	switch pointee.Kind() {
	case cursor.TypeVoid:
		return m.registerPointerEntry("void*", t), nil
	case cursor.TypeFunctionProto:
		// An unnamed function-pointer parameter or variable carries no shape
		// the target can express; it degrades to an untyped pointer.
		return m.registerPointerEntry("void*", t), nil
	case cursor.TypeConstantArray, cursor.TypeIncompleteArray:
		inner, err := m.typeName(pointee.ElementType(), false, at)
		if err != nil {
			return "", err
		}
		return m.registerPointerEntry(inner+"*", t), nil
	case cursor.TypeTypedef:
		if canonicalCharTypedef(pointee) {
			return m.registerPointerEntry("CString", t), nil
		}
	}

	inner, err := m.typeName(pointee, false, at)
	if err != nil {
		return "", err
	}
	return m.registerPointerEntry(inner+"*", t), nil
}

func (m *mapper) arrayName(t cursor.Type, at cursor.Cursor) (string, error) {
	elemName, err := m.typeName(t.ElementType(), false, at)
	if err != nil {
		return "", err
	}
	n := t.ArraySize()
	name := fmt.Sprintf("%s[%d]", elemName, n)
	if _, ok := m.sur.TypeByName(name); ok {
		return name, nil
	}
	size, align := typeLayout(t)
	elemSize := uint32(0)
	if et, ok := m.sur.TypeByName(elemName); ok {
		elemSize = et.SizeBytes
	}
	m.sur.AddType(&cas.Type{
		Name:         name,
		OriginalName: t.Spelling(),
		Kind:         cas.KindConstArray,
		SizeBytes:    size,
		AlignBytes:   align,
		ArraySize:    layout.MustUint32(n),
		ElementSize:  elemSize,
		ElementName:  elemName,
	})
	return name, nil
}

func (m *mapper) decayedName(t cursor.Type, at cursor.Cursor) (string, error) {
	elemName, err := m.typeName(t.ElementType(), false, at)
	if err != nil {
		return "", err
	}
	name := elemName + "*"
	if _, ok := m.sur.TypeByName(name); ok {
		return name, nil
	}
	m.sur.AddType(&cas.Type{
		Name:         name,
		OriginalName: t.Spelling(),
		Kind:         cas.KindPointer,
		SizeBytes:    m.ptrSize(),
		AlignBytes:   m.ptrSize(),
	})
	return name, nil
}

func (m *mapper) recordName(t cursor.Type) (string, error) {
	decl, ok := t.Declaration()
	if !ok {
		return "", fmt.Errorf("record type %q has no declaration", t.Spelling())
	}
	usr := decl.USR()
	if def, has := decl.Definition(); has {
		usr = def.USR()
	}
	name := m.disc.Names[usr]
	if name == "" {
		return "", fmt.Errorf("record type %q was not discovered", t.Spelling())
	}
	if _, exists := m.sur.TypeByName(name); exists {
		return name, nil
	}
	size, err := t.SizeOf()
	if err != nil {
		// Forward-declared without a definition in this unit: opaque.
		m.sur.AddType(&cas.Type{
			Name:         name,
			OriginalName: t.Spelling(),
			Kind:         cas.KindOpaque,
			SizeBytes:    0,
			AlignBytes:   1,
			IsSystem:     m.disc.System[usr],
		})
		return name, nil
	}
	align, aerr := t.AlignOf()
	if aerr != nil {
		align = 1
	}
	m.sur.AddType(&cas.Type{
		Name:         name,
		OriginalName: t.Spelling(),
		Kind:         cas.KindRecord,
		SizeBytes:    layout.MustUint32(size),
		AlignBytes:   layout.MustUint32(align),
		IsSystem:     m.disc.System[usr],
	})
	return name, nil
}

// recordTypeEntry registers the type table entry for a record being built and
// returns its type reference name.
func (m *mapper) recordTypeEntry(rec cursor.Cursor, name string) (string, error) {
	if _, exists := m.sur.TypeByName(name); exists {
		return name, nil
	}
	t := rec.Type()
	size, err := t.SizeOf()
	if err != nil {
		return "", fmt.Errorf("record %q has no layout: %v", name, err)
	}
	align, err := t.AlignOf()
	if err != nil {
		return "", fmt.Errorf("record %q has no alignment: %v", name, err)
	}
	m.sur.AddType(&cas.Type{
		Name:         name,
		OriginalName: t.Spelling(),
		Kind:         cas.KindRecord,
		SizeBytes:    layout.MustUint32(size),
		AlignBytes:   layout.MustUint32(align),
		IsSystem:     m.disc.System[rec.USR()],
	})
	return name, nil
}

func (m *mapper) enumName(t cursor.Type) (string, error) {
	decl, ok := t.Declaration()
	if !ok {
		return "", fmt.Errorf("enum type %q has no declaration", t.Spelling())
	}
	usr := decl.USR()
	if def, has := decl.Definition(); has {
		usr = def.USR()
	}
	name := m.disc.Names[usr]
	if name == "" {
		return "", fmt.Errorf("enum type %q was not discovered", t.Spelling())
	}
	if _, exists := m.sur.TypeByName(name); exists {
		return name, nil
	}
	size, align := typeLayout(t)
	m.sur.AddType(&cas.Type{
		Name:         name,
		OriginalName: t.Spelling(),
		Kind:         cas.KindEnum,
		SizeBytes:    size,
		AlignBytes:   align,
	})
	return name, nil
}

// typedefName keeps user typedefs as named aliases; system typedefs resolve
// through to the canonical spelling of what they alias.
func (m *mapper) typedefName(t cursor.Type, at cursor.Cursor) (string, error) {
	if isVaListName(t.Spelling()) {
		return "", errVaList
	}
	decl, ok := t.Declaration()
	if !ok || decl.IsInSystemHeader() {
		canon := t.Canonical()
		if canon == nil || canon == t {
			return "", fmt.Errorf("system typedef %q does not resolve", t.Spelling())
		}
		return m.typeName(canon, false, at)
	}
	name := m.disc.Names[decl.USR()]
	if name == "" {
		name = t.Spelling()
	}
	if _, exists := m.sur.TypeByName(name); exists {
		return name, nil
	}
	// Make sure the aliased type is in the table before the alias.
	if _, err := m.typeName(decl.TypedefUnderlyingType(), false, at); err != nil {
		return "", err
	}
	size, align := typeLayout(t)
	m.sur.AddType(&cas.Type{
		Name:         name,
		OriginalName: t.Spelling(),
		Kind:         cas.KindTypedef,
		SizeBytes:    size,
		AlignBytes:   align,
	})
	return name, nil
}

func (m *mapper) registerScalar(name string, t cursor.Type) string {
	size, align := typeLayout(t)
	return m.register(name, t, cas.KindBuiltin, size, align)
}

func (m *mapper) registerBuiltin(name string, t cursor.Type, size, align uint32) string {
	return m.register(name, t, cas.KindBuiltin, size, align)
}

func (m *mapper) registerPointerEntry(name string, t cursor.Type) string {
	size, align := typeLayout(t)
	return m.register(name, t, cas.KindPointer, size, align)
}

func (m *mapper) register(name string, t cursor.Type, kind cas.TypeKind, size, align uint32) string {
	if _, exists := m.sur.TypeByName(name); exists {
		return name
	}
	m.sur.AddType(&cas.Type{
		Name:         name,
		OriginalName: t.Spelling(),
		Kind:         kind,
		SizeBytes:    size,
		AlignBytes:   align,
	})
	return name
}

// longName picks the 32- or 64-bit spelling from the oracle's size for the
// target the unit was parsed for.
func longName(t cursor.Type, narrow, wide string) string {
	if s, err := t.SizeOf(); err == nil && s == 4 {
		return narrow
	}
	return wide
}

func typeLayout(t cursor.Type) (size, align uint32) {
	s, err := t.SizeOf()
	if err != nil {
		return 0, 1
	}
	a, err := t.AlignOf()
	if err != nil {
		return layout.MustUint32(s), 1
	}
	return layout.MustUint32(s), layout.MustUint32(a)
}

func isCharKind(t cursor.Type) bool {
	switch t.Kind() {
	case cursor.TypeChar, cursor.TypeSChar:
		return true
	}
	return false
}

// canonicalCharTypedef reports whether a typedef resolves to plain char,
// so pointers through it still collapse to CString.
func canonicalCharTypedef(t cursor.Type) bool {
	canon := t.Canonical()
	return canon != nil && isCharKind(canon)
}
