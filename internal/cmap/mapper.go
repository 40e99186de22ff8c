// Package cmap converts the explorer's cursor maps into an immutable C
// Abstract Surface. It canonicalises type names to the fixed platform-neutral
// spellings, pulls sizes and offsets from the parser's layout oracle, lowers
// literal object-like macros, and drops variadic functions with a diagnostic.
//
// A mapping error (an unsupported or unresolvable type) aborts the mapper;
// the partial surface built so far is still returned for inspection.
package cmap

import (
	"errors"
	"fmt"

	"bindc/internal/cas"
	"bindc/internal/cursor"
	"bindc/internal/diag"
	"bindc/internal/explorer"
	"bindc/internal/layout"
	"bindc/internal/source"
)

var errVaList = errors.New("cmap: va_list parameter")

type mapper struct {
	fs       *source.FileSet
	reporter diag.Reporter
	disc     *explorer.Result
	sur      *cas.Surface

	records map[string]*cas.Record // record USR -> built node
	err     error
}

// Map builds the CAS from a discovery result. On error the returned surface
// is partial but structurally sound up to the failing declaration.
func Map(disc *explorer.Result, fs *source.FileSet, reporter diag.Reporter, header, triple string) (*cas.Surface, error) {
	m := &mapper{
		fs:       fs,
		reporter: reporter,
		disc:     disc,
		sur:      cas.New(header, triple),
		records:  map[string]*cas.Record{},
	}

	m.mapRecords()
	m.mapOpaques()
	m.mapFnPtrTypedefs()
	m.mapTypedefs()
	m.mapEnums()
	m.mapFunctions()
	m.mapVariables()
	m.mapMacros()

	return m.sur, m.err
}

func (m *mapper) failed() bool { return m.err != nil }

func (m *mapper) fail(code diag.Code, subject string, loc source.Loc, msg string) {
	if m.err != nil {
		return
	}
	diag.Error(m.reporter, code, subject, loc, msg)
	m.err = fmt.Errorf("cmap: %s: %s", subject, msg)
}

func (m *mapper) loc(c cursor.Cursor) source.Loc {
	l := c.Location()
	if l.File == "" {
		return source.Loc{}
	}
	return source.Loc{File: m.fs.Intern(l.File), Line: l.Line, Col: l.Col}
}

func (m *mapper) casLoc(c cursor.Cursor) cas.Location {
	l := c.Location()
	return cas.Location{File: l.File, Line: l.Line, Col: l.Col}
}

func (m *mapper) mapFunctions() {
	for _, fn := range m.disc.Functions {
		if m.failed() {
			return
		}
		m.mapFunction(fn)
	}
}

func (m *mapper) mapFunction(fn cursor.Cursor) {
	name := m.disc.Names[fn.USR()]
	if fn.IsVariadic() {
		diag.Warning(m.reporter, diag.VariadicFunctionDropped, name, m.loc(fn),
			"variadic function dropped: variadic calls are not supported")
		return
	}

	ft := fn.Type()
	retName, err := m.typeName(ft.ResultType(), false, fn)
	if err != nil {
		m.functionTypeError(name, fn, err)
		return
	}

	params := m.disc.FuncParams[fn.USR()]
	node := &cas.Function{
		Name:              name,
		ReturnTypeName:    retName,
		CallingConvention: ft.CallingConv().String(),
		Parameters:        make([]cas.FunctionParameter, 0, len(params)),
		Loc:               m.casLoc(fn),
	}
	emptySeen := 0
	for _, p := range params {
		pt := p.Type()
		if isVaList(pt) {
			m.functionTypeError(name, fn, errVaList)
			return
		}
		tn, err := m.typeName(pt, false, p)
		if err != nil {
			m.functionTypeError(name, fn, err)
			return
		}
		pname := p.Spelling()
		if pname == "" {
			emptySeen++
			pname = "param"
			if emptySeen > 1 {
				pname = fmt.Sprintf("param%d", emptySeen)
			}
		}
		node.Parameters = append(node.Parameters, cas.FunctionParameter{
			Name:     pname,
			TypeName: tn,
			IsConst:  pt != nil && pt.IsConstQualified(),
		})
	}
	if m.failed() {
		return
	}
	m.sur.Functions = append(m.sur.Functions, node)
}

// functionTypeError handles the two non-uniform outcomes of mapping a
// function: va_list drops the function with a warning, anything else is
// a fatal mapping error.
func (m *mapper) functionTypeError(name string, fn cursor.Cursor, err error) {
	if errors.Is(err, errVaList) {
		diag.Warning(m.reporter, diag.VariadicFunctionDropped, name, m.loc(fn),
			"function dropped: va_list parameter is not supported")
		return
	}
	m.fail(diag.UnsupportedType, name, m.loc(fn), err.Error())
}

func (m *mapper) mapRecords() {
	for _, rec := range m.disc.Records {
		if m.failed() {
			return
		}
		usr := rec.USR()
		if _, nested := m.disc.AnonParent[usr]; nested {
			continue // emitted inside its parent
		}
		if m.disc.System[usr] {
			continue // system records are resolved through, never emitted
		}
		node := m.buildRecord(rec)
		if node != nil {
			m.sur.Records = append(m.sur.Records, node)
		}
	}
}

func (m *mapper) buildRecord(rec cursor.Cursor) *cas.Record {
	usr := rec.USR()
	if node, ok := m.records[usr]; ok {
		return node
	}
	name := m.disc.Names[usr]
	typeRef, err := m.recordTypeEntry(rec, name)
	if err != nil {
		m.fail(diag.UnsupportedType, name, m.loc(rec), err.Error())
		return nil
	}

	node := &cas.Record{
		Name:    name,
		IsUnion: rec.Kind() == cursor.KindUnionDecl,
		Fields:  []cas.RecordField{},
		TypeRef: typeRef,
		Loc:     m.casLoc(rec),
	}
	m.records[usr] = node

	recSize, sizeErr := rec.Type().SizeOf()
	if sizeErr != nil {
		m.fail(diag.LayoutUnavailable, name, m.loc(rec), "record has no layout: "+sizeErr.Error())
		return nil
	}

	fields := m.disc.RecordFields[usr]
	slots := make([]layout.FieldSlot, 0, len(fields))
	for _, f := range fields {
		if m.failed() {
			return nil
		}
		fieldName := f.Spelling()
		tn, ok := m.recordFieldType(usr, f, node)
		if !ok {
			return nil
		}
		offset, hasOffset := f.OffsetOfFieldBits()
		if !hasOffset {
			m.fail(diag.LayoutUnavailable, name+"."+fieldName, m.loc(f), "oracle reports no field offset")
			return nil
		}
		ft, ok := m.sur.TypeByName(tn)
		if !ok {
			m.fail(diag.LayoutUnavailable, name+"."+fieldName, m.loc(f), "field type has no table entry")
			return nil
		}
		slots = append(slots, layout.FieldSlot{
			Name:       fieldName,
			OffsetBits: offset,
			SizeBytes:  int64(ft.SizeBytes),
		})
		node.Fields = append(node.Fields, cas.RecordField{
			Name:       fieldName,
			TypeName:   tn,
			OffsetBits: layout.MustUint32(offset),
		})
	}
	if m.failed() {
		return nil
	}

	padding, err := layout.PaddingBits(slots, recSize, node.IsUnion)
	if err != nil {
		m.fail(diag.LayoutUnavailable, name, m.loc(rec), err.Error())
		return nil
	}
	for i := range node.Fields {
		node.Fields[i].PaddingBits = layout.MustUint32(padding[i])
	}
	return node
}

// recordFieldType maps one field's type, attaching nested anonymous records
// and synthesized function-pointer shapes to the parent node.
func (m *mapper) recordFieldType(recordUSR string, f cursor.Cursor, parent *cas.Record) (string, bool) {
	// Untypedefed function-pointer fields were named by the explorer.
	for i := range m.disc.FnPtrFields {
		fp := &m.disc.FnPtrFields[i]
		if fp.RecordUSR == recordUSR && fp.FieldName == f.Spelling() {
			node, err := m.fnPtrNode(fp.Name, true, fp.Proto, f)
			if err != nil {
				m.fail(diag.UnsupportedType, fp.Name, m.loc(f), err.Error())
				return "", false
			}
			parent.NestedFunctionPointers = append(parent.NestedFunctionPointers, node)
			return fp.Name, true
		}
	}

	t := peel(f.Type())
	if t != nil && t.Kind() == cursor.TypeRecord {
		if decl, ok := t.Declaration(); ok {
			if def, has := decl.Definition(); has {
				if _, anon := m.disc.AnonParent[def.USR()]; anon {
					nested := m.buildRecord(def)
					if nested == nil {
						return "", false
					}
					parent.NestedRecords = append(parent.NestedRecords, nested)
					return nested.TypeRef, true
				}
			}
		}
	}

	tn, err := m.typeName(f.Type(), true, f)
	if err != nil {
		m.fail(diag.UnsupportedType, parent.Name+"."+f.Spelling(), m.loc(f), err.Error())
		return "", false
	}
	return tn, true
}

func (m *mapper) mapOpaques() {
	for _, o := range m.disc.Opaques {
		if m.failed() {
			return
		}
		name := m.disc.Names[o.USR()]
		m.sur.OpaqueTypes = append(m.sur.OpaqueTypes, &cas.OpaqueType{
			Name: name,
			Loc:  m.casLoc(o),
		})
		m.sur.AddType(&cas.Type{
			Name:         name,
			OriginalName: o.Type().Spelling(),
			Kind:         cas.KindOpaque,
			SizeBytes:    0,
			AlignBytes:   1,
			IsSystem:     m.disc.System[o.USR()],
		})
	}
}

func (m *mapper) mapFnPtrTypedefs() {
	for _, td := range m.disc.FnPtrTypedefs {
		if m.failed() {
			return
		}
		name := m.disc.Names[td.USR()]
		proto := peel(peel(td.TypedefUnderlyingType()).PointeeType())
		node, err := m.fnPtrNode(name, false, proto, td)
		if err != nil {
			m.fail(diag.UnsupportedType, name, m.loc(td), err.Error())
			return
		}
		m.sur.FunctionPointers = append(m.sur.FunctionPointers, node)
	}
}

// fnPtrNode builds a function-pointer node and registers its type entry.
func (m *mapper) fnPtrNode(name string, synthetic bool, proto cursor.Type, at cursor.Cursor) (*cas.FunctionPointer, error) {
	if proto == nil || proto.Kind() != cursor.TypeFunctionProto {
		return nil, fmt.Errorf("not a function prototype")
	}
	retName, err := m.typeName(proto.ResultType(), false, at)
	if err != nil {
		return nil, err
	}
	node := &cas.FunctionPointer{
		Name:           name,
		IsSynthetic:    synthetic,
		ReturnTypeName: retName,
		Parameters:     []cas.FunctionPointerParameter{},
		Loc:            m.casLoc(at),
	}
	for i, a := range proto.ArgTypes() {
		tn, err := m.typeName(a, false, at)
		if err != nil {
			return nil, err
		}
		pname := "param"
		if i > 0 {
			pname = fmt.Sprintf("param%d", i+1)
		}
		node.Parameters = append(node.Parameters, cas.FunctionPointerParameter{
			Name:     pname,
			TypeName: tn,
		})
	}
	m.sur.AddType(&cas.Type{
		Name:         name,
		OriginalName: proto.Spelling(),
		Kind:         cas.KindFunctionPointer,
		SizeBytes:    m.ptrSize(),
		AlignBytes:   m.ptrSize(),
	})
	return node, nil
}

func (m *mapper) mapTypedefs() {
	for _, td := range m.disc.Typedefs {
		if m.failed() {
			return
		}
		name := m.disc.Names[td.USR()]
		if isVaListName(name) {
			continue // only meaningful inside function signatures
		}
		underlying, err := m.typeName(td.TypedefUnderlyingType(), false, td)
		if err != nil {
			if errors.Is(err, errVaList) {
				continue
			}
			m.fail(diag.UnsupportedType, name, m.loc(td), err.Error())
			return
		}
		// References to a system typedef resolve through to the canonical
		// builtin; the alias itself stays in the surface tagged as system so
		// the target mapper can decide whether to emit it.
		system := m.disc.System[td.USR()]
		m.sur.Typedefs = append(m.sur.Typedefs, &cas.Typedef{
			Name:               name,
			UnderlyingTypeName: underlying,
			IsSystem:           system,
			Loc:                m.casLoc(td),
		})
		size, align := m.layoutOf(td.Type())
		m.sur.AddType(&cas.Type{
			Name:         name,
			OriginalName: td.Type().Spelling(),
			Kind:         cas.KindTypedef,
			SizeBytes:    size,
			AlignBytes:   align,
			IsSystem:     system,
		})
	}
}

func (m *mapper) mapEnums() {
	for _, en := range m.disc.Enums {
		if m.failed() {
			return
		}
		usr := en.USR()
		if m.disc.System[usr] {
			continue
		}
		name := m.disc.Names[usr]
		intName, err := m.typeName(en.EnumIntegerType(), false, en)
		if err != nil {
			m.fail(diag.UnsupportedType, name, m.loc(en), err.Error())
			return
		}
		node := &cas.Enum{
			Name:            name,
			IntegerTypeName: intName,
			Values:          []cas.EnumValue{},
			Loc:             m.casLoc(en),
		}
		for _, v := range m.disc.EnumValues[usr] {
			node.Values = append(node.Values, cas.EnumValue{
				Name:  v.Spelling(),
				Value: v.EnumValue(),
			})
		}
		m.sur.Enums = append(m.sur.Enums, node)
		size, align := m.layoutOf(en.Type())
		m.sur.AddType(&cas.Type{
			Name:         name,
			OriginalName: en.Type().Spelling(),
			Kind:         cas.KindEnum,
			SizeBytes:    size,
			AlignBytes:   align,
		})
	}
}

func (m *mapper) mapVariables() {
	for _, v := range m.disc.Variables {
		if m.failed() {
			return
		}
		name := m.disc.Names[v.USR()]
		tn, err := m.typeName(v.Type(), false, v)
		if err != nil {
			if errors.Is(err, errVaList) {
				continue
			}
			m.fail(diag.UnsupportedType, name, m.loc(v), err.Error())
			return
		}
		m.sur.Variables = append(m.sur.Variables, &cas.Variable{
			Name:     name,
			TypeName: tn,
			Loc:      m.casLoc(v),
		})
	}
}

func (m *mapper) mapMacros() {
	for _, mc := range m.disc.Macros {
		if m.failed() {
			return
		}
		name := m.disc.Names[mc.USR()]
		tokens := mc.MacroTokens()
		if mc.IsMacroFunctionLike() || len(tokens) != 1 || !isLiteralToken(tokens[0]) {
			diag.Warning(m.reporter, diag.MacroObjectNotTranspiled, name, m.loc(mc),
				"macro body is not a single literal")
			continue
		}
		m.sur.Macros = append(m.sur.Macros, &cas.MacroObject{
			Name:   name,
			Tokens: append([]string(nil), tokens...),
			Loc:    m.casLoc(mc),
		})
	}
}

func (m *mapper) layoutOf(t cursor.Type) (size, align uint32) {
	if t == nil {
		return 0, 1
	}
	return typeLayout(t)
}

func (m *mapper) ptrSize() uint32 {
	// Every pointer entry registered so far has the same width; fall back to
	// 8 (LP64) before the first one. The real width is recorded the moment
	// any pointer type is canonicalised.
	for _, t := range m.sur.Types {
		if t.Kind == cas.KindPointer || t.Kind == cas.KindFunctionPointer {
			return t.SizeBytes
		}
	}
	return 8
}

// isVaList checks the spelling before typedef resolution so the alias name
// itself is what gets recognized.
func isVaList(t cursor.Type) bool {
	t = peel(t)
	return t != nil && isVaListName(t.Spelling())
}

func isVaListName(name string) bool {
	return name == "va_list" || name == "__builtin_va_list" || name == "__va_list_tag"
}

func peel(t cursor.Type) cursor.Type {
	for t != nil && t.Kind() == cursor.TypeElaborated {
		t = t.NamedType()
	}
	return t
}

