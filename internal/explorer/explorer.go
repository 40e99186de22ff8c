// Package explorer walks a parsed translation unit and discovers every
// declaration reachable from the user's header set. It assigns stable names
// (including synthesized names for anonymous records and untypedefed
// function-pointer fields), deduplicates by declaration identity and records
// structural parent/child relations. The result feeds Mapper-C; discovery
// order determines emission order everywhere downstream.
package explorer

import (
	"fmt"

	"bindc/internal/cursor"
	"bindc/internal/diag"
	"bindc/internal/source"
)

// Options configures which files count as the user's header set.
type Options struct {
	// IsUserFile reports whether a path belongs to the input header set.
	// When nil, every non-system file is in the set.
	IsUserFile func(path string) bool
}

// Result carries the discovery maps and the ordered declaration lists.
// Lists hold definition cursors in first-encounter order.
type Result struct {
	// Names maps declaration identity (USR) to the assigned surface name.
	Names map[string]string
	// FuncParams maps a function USR to its parameter cursors in order.
	FuncParams map[string][]cursor.Cursor
	// RecordFields maps a record USR to its field cursors in order.
	RecordFields map[string][]cursor.Cursor
	// EnumValues maps an enum USR to its enumerator cursors in order.
	EnumValues map[string][]cursor.Cursor

	Functions     []cursor.Cursor
	Records       []cursor.Cursor
	FnPtrTypedefs []cursor.Cursor
	Typedefs      []cursor.Cursor
	Opaques       []cursor.Cursor
	Enums         []cursor.Cursor
	Variables     []cursor.Cursor
	Macros        []cursor.Cursor

	// AnonParent maps an anonymous record USR to its enclosing record USR.
	AnonParent map[string]string
	// FnPtrFields lists untypedefed function-pointer record fields; each
	// entry names the synthesized FnPtr_<field> shape.
	FnPtrFields []FnPtrField
	// System marks USRs of declarations that live in system headers.
	System map[string]bool
}

// FnPtrField describes a record field of raw function-pointer type.
type FnPtrField struct {
	Name      string // synthesized FnPtr_<field> name
	RecordUSR string
	FieldName string
	Proto     cursor.Type // the underlying function prototype
	Loc       source.Loc
}

type explorer struct {
	fs       *source.FileSet
	reporter diag.Reporter
	opts     Options
	res      *Result
	seen     map[string]bool
	// used tracks every assigned surface name so synthesized names stay
	// unique: two unrelated records with an anonymous union in a field
	// named "u" must not both become Anonymous_Union_u.
	used     map[string]bool
	fatalErr error
}

// Explore runs discovery over one translation unit. It returns an error only
// for fatal conditions (an unresolved type reference); ordinary oddities are
// reported as diagnostics and skipped.
func Explore(tu cursor.Cursor, fs *source.FileSet, reporter diag.Reporter, opts Options) (*Result, error) {
	e := &explorer{
		fs:       fs,
		reporter: reporter,
		opts:     opts,
		res: &Result{
			Names:        map[string]string{},
			FuncParams:   map[string][]cursor.Cursor{},
			RecordFields: map[string][]cursor.Cursor{},
			EnumValues:   map[string][]cursor.Cursor{},
			AnonParent:   map[string]string{},
			System:       map[string]bool{},
		},
		seen: map[string]bool{},
		used: map[string]bool{},
	}

	tu.VisitChildren(func(c, _ cursor.Cursor) cursor.VisitResult {
		if e.fatalErr != nil {
			return cursor.VisitBreak
		}
		e.topLevel(c)
		return cursor.VisitContinue
	})
	if e.fatalErr != nil {
		return e.res, e.fatalErr
	}
	return e.res, nil
}

// claim records a name as taken by a declaration.
func (e *explorer) claim(name string) string {
	if name != "" {
		e.used[name] = true
	}
	return name
}

// synthName returns base, or base with the lowest numeric suffix that does
// not collide with an already assigned name.
func (e *explorer) synthName(base string) string {
	name := base
	for n := 2; e.used[name]; n++ {
		name = fmt.Sprintf("%s%d", base, n)
	}
	e.used[name] = true
	return name
}

func (e *explorer) loc(c cursor.Cursor) source.Loc {
	l := c.Location()
	if l.File == "" {
		return source.Loc{}
	}
	return source.Loc{File: e.fs.Intern(l.File), Line: l.Line, Col: l.Col}
}

func (e *explorer) inUserSet(c cursor.Cursor) bool {
	if c.IsInSystemHeader() {
		return false
	}
	if e.opts.IsUserFile == nil {
		return true
	}
	return e.opts.IsUserFile(c.Location().File)
}

func (e *explorer) topLevel(c cursor.Cursor) {
	switch c.Kind() {
	case cursor.KindFunctionDecl:
		if e.inUserSet(c) {
			e.function(c)
		}
	case cursor.KindStructDecl, cursor.KindUnionDecl:
		if e.inUserSet(c) {
			e.record(c, "")
		}
	case cursor.KindEnumDecl:
		if e.inUserSet(c) {
			e.enum(c)
		}
	case cursor.KindTypedefDecl:
		if e.inUserSet(c) {
			e.typedef(c)
		}
	case cursor.KindVarDecl:
		if e.inUserSet(c) {
			e.variable(c)
		}
	case cursor.KindMacroDefinition:
		if e.inUserSet(c) {
			e.macro(c)
		}
	default:
		diag.Warning(e.reporter, diag.UnknownCursorKind, c.Spelling(), e.loc(c),
			fmt.Sprintf("skipping unsupported cursor kind %s", c.Kind()))
	}
}

func (e *explorer) function(c cursor.Cursor) {
	usr := c.USR()
	if e.seen[usr] {
		return
	}
	e.seen[usr] = true
	e.res.Names[usr] = e.claim(c.Spelling())
	e.res.System[usr] = c.IsInSystemHeader()
	e.res.Functions = append(e.res.Functions, c)

	c.VisitChildren(func(child, _ cursor.Cursor) cursor.VisitResult {
		if child.Kind() == cursor.KindParmDecl {
			e.res.FuncParams[usr] = append(e.res.FuncParams[usr], child)
			e.resolveType(child.Type(), child)
		}
		return cursor.VisitContinue
	})
	if t := c.Type(); t != nil {
		e.resolveType(t.ResultType(), c)
	}
}

// record discovers a struct/union declaration. fieldName is the enclosing
// field when the record is anonymous and appears as a field type.
func (e *explorer) record(c cursor.Cursor, fieldName string) {
	def, hasDef := c.Definition()
	if !hasDef {
		e.opaque(c)
		return
	}
	usr := def.USR()
	if e.seen[usr] {
		return
	}
	e.seen[usr] = true

	// A typedef of an anonymous record pre-assigns the name; honor it.
	name := e.res.Names[usr]
	if name == "" {
		name = def.Spelling()
	}
	if name == "" {
		tag := "Struct"
		if def.Kind() == cursor.KindUnionDecl {
			tag = "Union"
		}
		if fieldName == "" {
			fieldName = "unnamed"
		}
		name = e.synthName(fmt.Sprintf("Anonymous_%s_%s", tag, fieldName))
		diag.Info(e.reporter, diag.AnonymousNamed, name, e.loc(def),
			fmt.Sprintf("synthesized name for anonymous %s", def.Kind()))
	} else {
		e.claim(name)
	}
	e.res.Names[usr] = name
	e.res.System[usr] = def.IsInSystemHeader()
	e.res.Records = append(e.res.Records, def)

	def.VisitChildren(func(child, _ cursor.Cursor) cursor.VisitResult {
		if child.Kind() != cursor.KindFieldDecl {
			return cursor.VisitContinue
		}
		e.res.RecordFields[usr] = append(e.res.RecordFields[usr], child)
		e.field(usr, child)
		return cursor.VisitContinue
	})
}

// field resolves one record field's type, handling the anonymous-record and
// raw function-pointer naming policies.
func (e *explorer) field(recordUSR string, f cursor.Cursor) {
	t := peel(f.Type())
	if t == nil {
		e.fatal(f, "field has no type")
		return
	}
	switch t.Kind() {
	case cursor.TypeRecord:
		if decl, ok := t.Declaration(); ok {
			anonymous := decl.Spelling() == ""
			e.record(decl, f.Spelling())
			if anonymous {
				if def, has := decl.Definition(); has {
					e.res.AnonParent[def.USR()] = recordUSR
				}
			}
			return
		}
		e.fatal(f, "record field type has no declaration")
	case cursor.TypePointer:
		pointee := peel(t.PointeeType())
		if pointee != nil && pointee.Kind() == cursor.TypeFunctionProto {
			// An untypedefed function pointer field: synthesize a shape name.
			name := e.synthName("FnPtr_" + f.Spelling())
			e.res.FnPtrFields = append(e.res.FnPtrFields, FnPtrField{
				Name:      name,
				RecordUSR: recordUSR,
				FieldName: f.Spelling(),
				Proto:     pointee,
				Loc:       e.loc(f),
			})
			diag.Info(e.reporter, diag.AnonymousNamed, name, e.loc(f),
				"synthesized name for function-pointer field")
			e.resolveType(pointee.ResultType(), f)
			for _, a := range pointee.ArgTypes() {
				e.resolveType(a, f)
			}
			return
		}
		e.resolveType(t, f)
	default:
		e.resolveType(t, f)
	}
}

func (e *explorer) opaque(c cursor.Cursor) {
	usr := c.USR()
	if e.seen[usr] {
		return
	}
	e.seen[usr] = true
	e.res.Names[usr] = e.claim(c.Spelling())
	e.res.System[usr] = c.IsInSystemHeader()
	e.res.Opaques = append(e.res.Opaques, c)
}

func (e *explorer) enum(c cursor.Cursor) {
	def, hasDef := c.Definition()
	if !hasDef {
		def = c
	}
	usr := def.USR()
	if e.seen[usr] {
		return
	}
	e.seen[usr] = true
	e.res.Names[usr] = e.claim(def.Spelling())
	e.res.System[usr] = def.IsInSystemHeader()
	e.res.Enums = append(e.res.Enums, def)

	def.VisitChildren(func(child, _ cursor.Cursor) cursor.VisitResult {
		if child.Kind() == cursor.KindEnumConstantDecl {
			e.res.EnumValues[usr] = append(e.res.EnumValues[usr], child)
		}
		return cursor.VisitContinue
	})
}

func (e *explorer) typedef(c cursor.Cursor) {
	usr := c.USR()
	if e.seen[usr] {
		return
	}
	e.seen[usr] = true
	e.res.Names[usr] = e.claim(c.Spelling())
	e.res.System[usr] = c.IsInSystemHeader()

	underlying := peel(c.TypedefUnderlyingType())
	if underlying == nil {
		e.fatal(c, "typedef has no underlying type")
		return
	}

	switch underlying.Kind() {
	case cursor.TypePointer:
		pointee := peel(underlying.PointeeType())
		if pointee != nil && pointee.Kind() == cursor.TypeFunctionProto {
			e.res.FnPtrTypedefs = append(e.res.FnPtrTypedefs, c)
			e.resolveType(pointee.ResultType(), c)
			for _, a := range pointee.ArgTypes() {
				e.resolveType(a, c)
			}
			return
		}
	case cursor.TypeRecord:
		if decl, ok := underlying.Declaration(); ok && decl.Spelling() == "" {
			// Typedef of an anonymous record: the typedef name becomes the
			// record's name and no separate typedef entry is emitted.
			if def, has := decl.Definition(); has {
				e.res.Names[def.USR()] = c.Spelling()
				e.record(def, c.Spelling())
				return
			}
		}
	}

	e.res.Typedefs = append(e.res.Typedefs, c)
	e.resolveType(underlying, c)
}

func (e *explorer) variable(c cursor.Cursor) {
	usr := c.USR()
	if e.seen[usr] {
		return
	}
	e.seen[usr] = true
	e.res.Names[usr] = e.claim(c.Spelling())
	e.res.System[usr] = c.IsInSystemHeader()
	e.res.Variables = append(e.res.Variables, c)
	e.resolveType(c.Type(), c)
}

func (e *explorer) macro(c cursor.Cursor) {
	usr := c.USR()
	if e.seen[usr] {
		return
	}
	e.seen[usr] = true
	e.res.Names[usr] = e.claim(c.Spelling())
	e.res.Macros = append(e.res.Macros, c)
}

// resolveType enqueues every declaration a type transitively references.
// Declarations outside the user set are promoted so the surface stays closed.
func (e *explorer) resolveType(t cursor.Type, referrer cursor.Cursor) {
	t = peel(t)
	if t == nil || e.fatalErr != nil {
		return
	}
	switch t.Kind() {
	case cursor.TypePointer:
		e.resolveType(t.PointeeType(), referrer)
	case cursor.TypeConstantArray, cursor.TypeIncompleteArray, cursor.TypeVector:
		e.resolveType(t.ElementType(), referrer)
	case cursor.TypeRecord:
		decl, ok := t.Declaration()
		if !ok {
			e.fatal(referrer, fmt.Sprintf("record type %q has no declaration", t.Spelling()))
			return
		}
		e.record(decl, "")
	case cursor.TypeEnum:
		decl, ok := t.Declaration()
		if !ok {
			e.fatal(referrer, fmt.Sprintf("enum type %q has no declaration", t.Spelling()))
			return
		}
		e.enum(decl)
	case cursor.TypeTypedef:
		decl, ok := t.Declaration()
		if !ok {
			e.fatal(referrer, fmt.Sprintf("typedef type %q has no declaration", t.Spelling()))
			return
		}
		if !e.seen[decl.USR()] {
			e.typedef(decl)
		}
	case cursor.TypeFunctionProto:
		e.resolveType(t.ResultType(), referrer)
		for _, a := range t.ArgTypes() {
			e.resolveType(a, referrer)
		}
	}
}

func (e *explorer) fatal(c cursor.Cursor, msg string) {
	if e.fatalErr != nil {
		return
	}
	diag.Error(e.reporter, diag.UnresolvedTypeRef, c.Spelling(), e.loc(c), msg)
	e.fatalErr = fmt.Errorf("explorer: %s (at %s)", msg, c.Spelling())
}

// peel unwraps elaborated sugar to the named type underneath.
func peel(t cursor.Type) cursor.Type {
	for t != nil && t.Kind() == cursor.TypeElaborated {
		t = t.NamedType()
	}
	return t
}
