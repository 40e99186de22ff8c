// Package tmap lowers a C Abstract Surface to the Target Abstract Surface:
// final names (aliases, reserved-word sanitisation, unique parameters),
// normalized enum widths, delegate shapes for function pointers, and the
// wrapped-array decision for fixed-size record fields.
//
// The mapping is a pure function of the input surface and the options; running
// it twice over the same input yields identical output.
package tmap

import (
	"fmt"
	"strings"

	"bindc/internal/cas"
	"bindc/internal/diag"
	"bindc/internal/source"
	"bindc/internal/tas"
)

// Alias renames one C-side name on the target side.
type Alias struct {
	From string
	To   string
}

// Options control naming and filtering.
type Options struct {
	Aliases         []Alias
	IgnoredNames    []string
	ClassName       string
	LibraryName     string
	EmitSystemTypes bool
}

type mapper struct {
	fs       *source.FileSet
	reporter diag.Reporter
	in       *cas.Surface
	out      *tas.Surface

	aliases map[string]string
	// builtinAlias maps names aliased onto a builtin primitive; the aliased
	// entity is suppressed and every reference rewrites to the builtin.
	builtinAlias map[string]string
	ignored      map[string]bool
	emitSystem   bool
}

// Map lowers one CAS to a TAS. The input surface must already validate;
// an error here means an internal inconsistency, not bad user input.
func Map(in *cas.Surface, fs *source.FileSet, reporter diag.Reporter, opts Options) (*tas.Surface, error) {
	m := &mapper{
		fs:           fs,
		reporter:     reporter,
		in:           in,
		out:          tas.New(in.Header, in.Triple),
		aliases:      map[string]string{},
		builtinAlias: map[string]string{},
		ignored:      map[string]bool{},
		emitSystem:   opts.EmitSystemTypes,
	}
	m.out.ClassName = opts.ClassName
	m.out.LibraryName = opts.LibraryName

	for _, n := range opts.IgnoredNames {
		m.ignored[n] = true
	}
	for _, a := range opts.Aliases {
		if tas.IsBuiltin(a.To) {
			// Aliasing onto a builtin collapses the type: the entity is not
			// emitted and references go straight to the primitive.
			diag.Info(reporter, diag.AliasShadowsBuiltin, a.From, source.Loc{},
				fmt.Sprintf("suppressed: references are emitted as builtin %q", a.To))
			m.builtinAlias[a.From] = a.To
			continue
		}
		m.aliases[a.From] = a.To
	}

	m.buildTypeTable(opts.EmitSystemTypes)
	m.mapFunctions()
	m.mapFunctionPointers()
	m.mapStructs()
	m.mapOpaques()
	m.mapTypedefs()
	m.mapEnums()
	m.mapVariables()
	m.mapMacros()

	return m.out, nil
}

func (m *mapper) loc(l cas.Location) source.Loc {
	if l.File == "" {
		return source.Loc{}
	}
	return source.Loc{File: m.fs.Intern(l.File), Line: l.Line, Col: l.Col}
}

func tasLoc(l cas.Location) tas.Location {
	return tas.Location{File: l.File, Line: l.Line, Col: l.Col}
}

// rename applies the alias table and reserved-word sanitisation to an entity
// name. The canonical name stays the lookup key everywhere; only TargetName
// and emitted entity names change.
func (m *mapper) rename(name string, l cas.Location) string {
	if to, ok := m.aliases[name]; ok {
		diag.Info(m.reporter, diag.AliasOverridesName, name, m.loc(l),
			fmt.Sprintf("emitted as %q", to))
		return sanitize(to)
	}
	return sanitize(name)
}

// renameQuiet is rename without the diagnostic, for type table entries that
// would otherwise report the same alias once per reference.
func (m *mapper) renameQuiet(name string) string {
	if to, ok := m.aliases[name]; ok {
		return sanitize(to)
	}
	return sanitize(name)
}

// resolveRef rewrites a type reference through the builtin alias table.
// Pointers to a collapsed type become pointers to the primitive.
func (m *mapper) resolveRef(name string) string {
	if to, ok := m.builtinAlias[name]; ok {
		return to
	}
	if elem, isPtr := strings.CutSuffix(name, "*"); isPtr {
		if to, ok := m.builtinAlias[elem]; ok {
			rewritten := to + "*"
			if _, exists := m.out.TypeByName(rewritten); !exists {
				if orig, ok := m.in.TypeByName(name); ok {
					m.out.AddType(&tas.Type{
						Name:       rewritten,
						TargetName: "*" + builtinTargetName(to),
						Kind:       tas.KindPointer,
						SizeBytes:  orig.SizeBytes,
						AlignBytes: orig.AlignBytes,
					})
				}
			}
			return rewritten
		}
	}
	return name
}

// suppressed reports whether an entity collapsed onto a builtin.
func (m *mapper) suppressed(name string) bool {
	_, ok := m.builtinAlias[name]
	return ok
}

func (m *mapper) skipIgnored(name string, l cas.Location) bool {
	if !m.ignored[name] {
		return false
	}
	diag.Info(m.reporter, diag.IgnoredName, name, m.loc(l), "dropped: name is in the ignored list")
	return true
}

func (m *mapper) kindOf(name string) (cas.TypeKind, bool) {
	t, ok := m.in.TypeByName(name)
	if !ok {
		return "", false
	}
	return t.Kind, true
}

func (m *mapper) ptrSize() uint32 {
	for _, t := range m.in.Types {
		if t.Kind == cas.KindPointer || t.Kind == cas.KindFunctionPointer {
			return t.SizeBytes
		}
	}
	return 8
}

func (m *mapper) buildTypeTable(emitSystem bool) {
	ptr := m.ptrSize()

	for _, t := range m.in.Types {
		entry := &tas.Type{
			Name:       t.Name,
			Kind:       tas.TypeKind(t.Kind),
			SizeBytes:  t.SizeBytes,
			AlignBytes: t.AlignBytes,
			IsSystem:   t.IsSystem,
		}
		if t.Kind == cas.KindRecord {
			entry.Kind = tas.KindStruct
		}
		entry.TargetName = m.targetName(t)
		if t.IsSystem && !emitSystem {
			entry.TargetName = ""
		}
		m.out.AddType(entry)
	}

	// The two pointer-width primitives always resolve, with the width of the
	// surface's own target.
	m.out.AddType(&tas.Type{
		Name: "CString", TargetName: "string",
		Kind: tas.KindBuiltin, SizeBytes: ptr, AlignBytes: ptr,
	})
	m.out.AddType(&tas.Type{
		Name: "Pointer", TargetName: "unsafe.Pointer",
		Kind: tas.KindBuiltin, SizeBytes: ptr, AlignBytes: ptr,
	})
}

// targetName computes the spelling a type table entry gets in generated
// source.
func (m *mapper) targetName(t *cas.Type) string {
	switch t.Kind {
	case cas.KindBuiltin:
		return builtinTargetName(t.Name)
	case cas.KindPointer:
		if t.Name == "CString" {
			return "string"
		}
		if t.Name == "void*" {
			return "unsafe.Pointer"
		}
		elem := strings.TrimSuffix(t.Name, "*")
		if bt := builtinTargetName(elem); bt != "" {
			return "*" + bt
		}
		return "*" + m.renameQuiet(elem)
	case cas.KindRecord, cas.KindEnum, cas.KindTypedef, cas.KindOpaque:
		return m.renameQuiet(t.Name)
	case cas.KindFunctionPointer:
		if shaped, ok := m.fnPtrShape(t.Name); ok {
			return shaped
		}
		return m.renameQuiet(t.Name)
	case cas.KindConstArray:
		if !tas.IsScalarPrimitive(t.ElementName) {
			return fmt.Sprintf("[%d]byte", t.SizeBytes)
		}
		return fmt.Sprintf("[%d]%s", t.ArraySize, builtinTargetName(t.ElementName))
	}
	return m.renameQuiet(t.Name)
}

// fnPtrShape resolves a named function pointer to its delegate shape.
func (m *mapper) fnPtrShape(name string) (string, bool) {
	fp := m.findFnPtr(name)
	if fp == nil {
		return "", false
	}
	params := make([]string, len(fp.Parameters))
	for i, p := range fp.Parameters {
		params[i] = p.TypeName
	}
	return shapeName(fp.ReturnTypeName, params, m.kindOf)
}

func (m *mapper) findFnPtr(name string) *cas.FunctionPointer {
	for _, fp := range m.in.FunctionPointers {
		if fp.Name == name {
			return fp
		}
	}
	var found *cas.FunctionPointer
	var walk func(r *cas.Record)
	walk = func(r *cas.Record) {
		for _, fp := range r.NestedFunctionPointers {
			if fp.Name == name {
				found = fp
			}
		}
		for _, nested := range r.NestedRecords {
			walk(nested)
		}
	}
	for _, r := range m.in.Records {
		walk(r)
		if found != nil {
			return found
		}
	}
	return nil
}

func (m *mapper) mapFunctions() {
	for _, fn := range m.in.Functions {
		if m.skipIgnored(fn.Name, fn.Loc) {
			continue
		}
		params := make([]tas.Parameter, len(fn.Parameters))
		for i, p := range fn.Parameters {
			params[i] = tas.Parameter{Name: p.Name, TypeName: m.resolveRef(p.TypeName), IsConst: p.IsConst}
		}
		params, renamed := uniqueParams(params)
		for _, i := range renamed {
			diag.Info(m.reporter, diag.ParamRenamed, fn.Name, m.loc(fn.Loc),
				fmt.Sprintf("parameter %d emitted as %q", i+1, params[i].Name))
		}
		m.out.Functions = append(m.out.Functions, &tas.Function{
			Name:              m.rename(fn.Name, fn.Loc),
			Symbol:            fn.Name,
			ReturnTypeName:    m.resolveRef(fn.ReturnTypeName),
			CallingConvention: fn.CallingConvention,
			Parameters:        params,
			Loc:               tasLoc(fn.Loc),
		})
	}
}

func (m *mapper) mapFunctionPointers() {
	for _, fp := range m.in.FunctionPointers {
		if m.skipIgnored(fp.Name, fp.Loc) {
			continue
		}
		m.out.FunctionPointers = append(m.out.FunctionPointers, m.functionPointer(fp))
	}
}

func (m *mapper) functionPointer(fp *cas.FunctionPointer) *tas.FunctionPointer {
	params := make([]tas.Parameter, len(fp.Parameters))
	for i, p := range fp.Parameters {
		params[i] = tas.Parameter{Name: p.Name, TypeName: m.resolveRef(p.TypeName)}
	}
	params, _ = uniqueParams(params)
	return &tas.FunctionPointer{
		Name:           m.rename(fp.Name, fp.Loc),
		IsSynthetic:    fp.IsSynthetic,
		ReturnTypeName: m.resolveRef(fp.ReturnTypeName),
		Parameters:     params,
		Loc:            tasLoc(fp.Loc),
	}
}

func (m *mapper) mapStructs() {
	for _, rec := range m.in.Records {
		if m.suppressed(rec.Name) || m.skipIgnored(rec.Name, rec.Loc) {
			continue
		}
		m.out.Structs = append(m.out.Structs, m.structNode(rec))
	}
}

func (m *mapper) structNode(rec *cas.Record) *tas.Struct {
	rt, _ := m.in.TypeByName(rec.TypeRef)
	node := &tas.Struct{
		Name:    m.rename(rec.Name, rec.Loc),
		IsUnion: rec.IsUnion,
		Fields:  make([]tas.StructField, 0, len(rec.Fields)),
		Loc:     tasLoc(rec.Loc),
	}
	if rt != nil {
		node.SizeBytes = rt.SizeBytes
		node.AlignBytes = rt.AlignBytes
	}
	for _, f := range rec.Fields {
		node.Fields = append(node.Fields, m.structField(f))
	}
	for _, nested := range rec.NestedRecords {
		if m.skipIgnored(nested.Name, nested.Loc) {
			continue
		}
		node.NestedStructs = append(node.NestedStructs, m.structNode(nested))
	}
	for _, fp := range rec.NestedFunctionPointers {
		if m.skipIgnored(fp.Name, fp.Loc) {
			continue
		}
		node.NestedFunctionPointers = append(node.NestedFunctionPointers, m.functionPointer(fp))
	}
	return node
}

// structField decides between an inline array, a wrapped byte buffer, and a
// plain field. Arrays of scalar primitives stay inline; anything else becomes
// an opaque byte buffer read through synthesized accessors.
func (m *mapper) structField(f cas.RecordField) tas.StructField {
	out := tas.StructField{
		Name:        sanitize(f.Name),
		TypeName:    m.resolveRef(f.TypeName),
		OffsetBits:  f.OffsetBits,
		PaddingBits: f.PaddingBits,
	}
	ft, ok := m.in.TypeByName(f.TypeName)
	if ok && m.ignored[f.TypeName] {
		// The field's type is omitted from the output. The slot cannot
		// disappear without breaking the layout, so it degrades to an opaque
		// byte buffer of the same size.
		out.IsWrappedArray = true
		out.WrappedSizeBytes = ft.SizeBytes
		out.ElementTypeName = "u8"
		out.ElementCount = ft.SizeBytes
		return out
	}
	if !ok || ft.Kind != cas.KindConstArray {
		return out
	}

	out.ElementTypeName = ft.ElementName
	out.ElementCount = ft.ArraySize
	if ft.ElementName == "u8" && strings.HasPrefix(ft.OriginalName, "char") {
		out.IsCharArray = true
	}
	if !tas.IsScalarPrimitive(ft.ElementName) {
		out.IsWrappedArray = true
		out.WrappedSizeBytes = ft.SizeBytes
		out.ElementTypeName = m.renameQuiet(ft.ElementName)
	}
	return out
}

func (m *mapper) mapOpaques() {
	for _, o := range m.in.OpaqueTypes {
		if m.suppressed(o.Name) || m.skipIgnored(o.Name, o.Loc) {
			continue
		}
		m.out.OpaqueTypes = append(m.out.OpaqueTypes, &tas.OpaqueType{
			Name: m.rename(o.Name, o.Loc),
			Loc:  tasLoc(o.Loc),
		})
	}
}

func (m *mapper) mapTypedefs() {
	for _, td := range m.in.Typedefs {
		if td.IsSystem && !m.emitSystem {
			continue // references already resolve through; emitted only on request
		}
		if m.suppressed(td.Name) || m.skipIgnored(td.Name, td.Loc) {
			continue
		}
		m.out.Typedefs = append(m.out.Typedefs, &tas.Typedef{
			Name:               m.rename(td.Name, td.Loc),
			UnderlyingTypeName: m.resolveRef(td.UnderlyingTypeName),
			IsSystem:           td.IsSystem,
			Loc:                tasLoc(td.Loc),
		})
	}
}

// mapEnums normalizes every enum to a 32-bit integer type. Enums whose
// underlying type is wider are dropped with a diagnostic unless every value
// fits in 32 bits.
func (m *mapper) mapEnums() {
	for _, e := range m.in.Enums {
		if m.suppressed(e.Name) || m.skipIgnored(e.Name, e.Loc) {
			continue
		}
		intName, ok := normalizeEnumWidth(e)
		if !ok {
			diag.Warning(m.reporter, diag.EnumWidthUnsupported, e.Name, m.loc(e.Loc),
				fmt.Sprintf("enum dropped: values do not fit a 32-bit %s", e.IntegerTypeName))
			continue
		}
		if strings.HasSuffix(e.IntegerTypeName, "64") {
			diag.Info(m.reporter, diag.EnumWidthUnsupported, e.Name, m.loc(e.Loc),
				fmt.Sprintf("%s narrowed to %s: every value fits in 32 bits", e.IntegerTypeName, intName))
		}
		values := make([]tas.EnumValue, len(e.Values))
		for i, v := range e.Values {
			values[i] = tas.EnumValue{Name: sanitize(v.Name), Value: v.Value}
		}
		m.out.Enums = append(m.out.Enums, &tas.Enum{
			Name:            m.rename(e.Name, e.Loc),
			IntegerTypeName: intName,
			Values:          values,
			Loc:             tasLoc(e.Loc),
		})
	}
}

func normalizeEnumWidth(e *cas.Enum) (string, bool) {
	unsigned := strings.HasPrefix(e.IntegerTypeName, "u")
	wide := strings.HasSuffix(e.IntegerTypeName, "64")
	if wide {
		for _, v := range e.Values {
			if unsigned {
				if uint64(v.Value) > 1<<32-1 {
					return "", false
				}
			} else if v.Value < -(1<<31) || v.Value > 1<<31-1 {
				return "", false
			}
		}
	}
	if unsigned {
		return "u32", true
	}
	return "i32", true
}

func (m *mapper) mapVariables() {
	for _, v := range m.in.Variables {
		if m.skipIgnored(v.Name, v.Loc) {
			continue
		}
		m.out.Variables = append(m.out.Variables, &tas.Variable{
			Name:     m.rename(v.Name, v.Loc),
			Symbol:   v.Name,
			TypeName: m.resolveRef(v.TypeName),
			Loc:      tasLoc(v.Loc),
		})
	}
}

func (m *mapper) mapMacros() {
	for _, mc := range m.in.Macros {
		if m.skipIgnored(mc.Name, mc.Loc) {
			continue
		}
		m.out.Macros = append(m.out.Macros, &tas.MacroObject{
			Name:   m.rename(mc.Name, mc.Loc),
			Tokens: append([]string(nil), mc.Tokens...),
			Loc:    tasLoc(mc.Loc),
		})
	}
}
