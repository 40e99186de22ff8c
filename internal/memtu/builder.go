package memtu

import (
	"fmt"

	"bindc/internal/cursor"
)

// Widths configures the platform-dependent scalar widths of a unit.
// Everything else follows the usual C data models.
type Widths struct {
	Long int64 // 4 on LLP64/ILP32, 8 on LP64
	Ptr  int64
}

// LP64 is the default width set (x86_64 linux, arm64 darwin).
func LP64() Widths { return Widths{Long: 8, Ptr: 8} }

// LLP64 matches 64-bit windows.
func LLP64() Widths { return Widths{Long: 4, Ptr: 8} }

// ILP32 matches 32-bit platforms.
func ILP32() Widths { return Widths{Long: 4, Ptr: 4} }

// Builder assembles an in-memory translation unit. Declarations are appended
// in call order, which becomes the cursor order the explorer sees.
type Builder struct {
	file   string
	widths Widths
	root   *Cursor
	line   uint32
	system bool
	usrSeq int

	Void, Bool                *Type
	Char, SChar, UChar        *Type
	Short, UShort             *Type
	Int, UInt                 *Type
	Long, ULong               *Type
	LongLong, ULongLong       *Type
	Float, Double, LongDouble *Type
}

// NewBuilder creates a builder for one header file with the given widths.
func NewBuilder(file string, w Widths) *Builder {
	b := &Builder{file: file, widths: w}
	b.root = &Cursor{kind: cursor.KindTranslationUnit, spelling: file, isDef: true}

	b.Void = b.builtin(cursor.TypeVoid, "void", -2, 1)
	b.Bool = b.builtin(cursor.TypeBool, "_Bool", 1, 1)
	b.Char = b.builtin(cursor.TypeChar, "char", 1, 1)
	b.SChar = b.builtin(cursor.TypeSChar, "signed char", 1, 1)
	b.UChar = b.builtin(cursor.TypeUChar, "unsigned char", 1, 1)
	b.Short = b.builtin(cursor.TypeShort, "short", 2, 2)
	b.UShort = b.builtin(cursor.TypeUShort, "unsigned short", 2, 2)
	b.Int = b.builtin(cursor.TypeInt, "int", 4, 4)
	b.UInt = b.builtin(cursor.TypeUInt, "unsigned int", 4, 4)
	b.Long = b.builtin(cursor.TypeLong, "long", w.Long, w.Long)
	b.ULong = b.builtin(cursor.TypeULong, "unsigned long", w.Long, w.Long)
	b.LongLong = b.builtin(cursor.TypeLongLong, "long long", 8, 8)
	b.ULongLong = b.builtin(cursor.TypeULongLong, "unsigned long long", 8, 8)
	b.Float = b.builtin(cursor.TypeFloat, "float", 4, 4)
	b.Double = b.builtin(cursor.TypeDouble, "double", 8, 8)
	b.LongDouble = b.builtin(cursor.TypeLongDouble, "long double", 16, 16)
	return b
}

// Unit returns the root translation-unit cursor.
func (b *Builder) Unit() cursor.Cursor { return b.root }

// File returns the header path the unit was built for.
func (b *Builder) File() string { return b.file }

// SetSystem marks subsequently created declarations as system-header decls.
func (b *Builder) SetSystem(system bool) { b.system = system }

func (b *Builder) builtin(k cursor.TypeKind, spelling string, size, align int64) *Type {
	return &Type{kind: k, spelling: spelling, size: size, align: align}
}

func (b *Builder) nextLoc() cursor.Location {
	b.line++
	return cursor.Location{File: b.file, Line: b.line, Col: 1}
}

func (b *Builder) nextUSR(prefix, name string) string {
	if name == "" {
		b.usrSeq++
		return fmt.Sprintf("c:%s@anon%d@%s", prefix, b.usrSeq, b.file)
	}
	return fmt.Sprintf("c:%s@%s", prefix, name)
}

// Pointer creates a pointer type.
func (b *Builder) Pointer(pointee *Type) *Type {
	return &Type{
		kind:     cursor.TypePointer,
		spelling: pointee.spelling + " *",
		size:     b.widths.Ptr,
		align:    b.widths.Ptr,
		pointee:  pointee,
	}
}

// Const returns a const-qualified view of the type.
func (b *Builder) Const(t *Type) *Type {
	qualified := *t
	qualified.constQ = true
	qualified.spelling = "const " + t.spelling
	qualified.canon = t.canonicalType()
	return &qualified
}

// ConstArray creates a T[N] type.
func (b *Builder) ConstArray(elem *Type, count int64) *Type {
	size := int64(-1)
	align := elem.align
	if elem.size > 0 {
		size = elem.size * count
	}
	return &Type{
		kind:     cursor.TypeConstantArray,
		spelling: fmt.Sprintf("%s[%d]", elem.spelling, count),
		size:     size,
		align:    align,
		elem:     elem,
		count:    count,
	}
}

// FunctionProto creates a function prototype type with C calling convention.
func (b *Builder) FunctionProto(result *Type, variadic bool, args ...*Type) *Type {
	spelling := result.spelling + " ("
	for i, a := range args {
		if i > 0 {
			spelling += ", "
		}
		spelling += a.spelling
	}
	if variadic {
		if len(args) > 0 {
			spelling += ", "
		}
		spelling += "..."
	}
	spelling += ")"
	return &Type{
		kind:     cursor.TypeFunctionProto,
		spelling: spelling,
		size:     -2,
		align:    1,
		result:   result,
		args:     args,
		variadic: variadic,
		cc:       cursor.CallC,
	}
}

// Field declares a record field for Struct/Union.
type Field struct {
	Name string
	Type *Type
}

// F is shorthand for a Field.
func (b *Builder) F(name string, t *Type) Field { return Field{Name: name, Type: t} }

// Struct declares a struct with naturally aligned fields and appends it to
// the unit. Pass name "" for an anonymous struct (not appended; embed it as
// a field type instead).
func (b *Builder) Struct(name string, fields ...Field) (*Cursor, *Type) {
	return b.record(name, false, fields)
}

// Union declares a union. Same conventions as Struct.
func (b *Builder) Union(name string, fields ...Field) (*Cursor, *Type) {
	return b.record(name, true, fields)
}

func (b *Builder) record(name string, isUnion bool, fields []Field) (*Cursor, *Type) {
	tag := "struct"
	if isUnion {
		tag = "union"
	}
	kind := cursor.KindStructDecl
	if isUnion {
		kind = cursor.KindUnionDecl
	}

	loc := b.nextLoc()
	spelling := tag + " " + name
	if name == "" {
		spelling = fmt.Sprintf("%s (unnamed at %s:%d)", tag, loc.File, loc.Line)
	}

	decl := &Cursor{
		kind:     kind,
		spelling: name,
		usr:      b.nextUSR(tag, name),
		loc:      loc,
		system:   b.system,
		isDef:    true,
	}
	typ := &Type{kind: cursor.TypeRecord, spelling: spelling, decl: decl}
	decl.typ = typ

	var size, align int64 = 0, 1
	for _, f := range fields {
		fieldCanon := f.Type.canonicalType()
		fSize, fAlign := fieldCanon.size, fieldCanon.align
		if fSize < 0 {
			fSize, fAlign = 0, 1
		}
		var offset int64
		if isUnion {
			offset = 0
			if fSize > size {
				size = fSize
			}
		} else {
			offset = alignUp(size, fAlign)
			size = offset + fSize
		}
		if fAlign > align {
			align = fAlign
		}
		decl.children = append(decl.children, &Cursor{
			kind:       cursor.KindFieldDecl,
			spelling:   f.Name,
			usr:        b.nextUSR("FI", name+"@"+f.Name),
			loc:        b.nextLoc(),
			system:     b.system,
			typ:        f.Type,
			isDef:      true,
			offsetBits: offset * 8,
			hasOffset:  true,
		})
	}
	typ.size = alignUp(size, align)
	typ.align = align

	if name != "" {
		b.root.children = append(b.root.children, decl)
	}
	return decl, typ
}

// ForwardStruct declares a struct without a definition (opaque handle).
func (b *Builder) ForwardStruct(name string) (*Cursor, *Type) {
	decl := &Cursor{
		kind:     cursor.KindStructDecl,
		spelling: name,
		usr:      b.nextUSR("struct", name),
		loc:      b.nextLoc(),
		system:   b.system,
	}
	typ := &Type{kind: cursor.TypeRecord, spelling: "struct " + name, size: -1, align: 1, decl: decl}
	decl.typ = typ
	b.root.children = append(b.root.children, decl)
	return decl, typ
}

// EnumValue declares one enumerator for Enum.
type EnumValue struct {
	Name  string
	Value int64
}

// EV is shorthand for an EnumValue.
func (b *Builder) EV(name string, value int64) EnumValue { return EnumValue{Name: name, Value: value} }

// Enum declares an enum with the given underlying integer type.
func (b *Builder) Enum(name string, integer *Type, values ...EnumValue) (*Cursor, *Type) {
	decl := &Cursor{
		kind:     cursor.KindEnumDecl,
		spelling: name,
		usr:      b.nextUSR("enum", name),
		loc:      b.nextLoc(),
		system:   b.system,
		isDef:    true,
		enumInt:  integer,
	}
	typ := &Type{kind: cursor.TypeEnum, spelling: "enum " + name, size: integer.size, align: integer.align, decl: decl}
	decl.typ = typ
	for _, v := range values {
		decl.children = append(decl.children, &Cursor{
			kind:     cursor.KindEnumConstantDecl,
			spelling: v.Name,
			usr:      b.nextUSR("EV", name+"@"+v.Name),
			loc:      b.nextLoc(),
			system:   b.system,
			isDef:    true,
			enumVal:  v.Value,
		})
	}
	b.root.children = append(b.root.children, decl)
	return decl, typ
}

// Typedef declares a typedef and returns its type handle.
func (b *Builder) Typedef(name string, underlying *Type) (*Cursor, *Type) {
	decl := &Cursor{
		kind:       cursor.KindTypedefDecl,
		spelling:   name,
		usr:        b.nextUSR("T", name),
		loc:        b.nextLoc(),
		system:     b.system,
		isDef:      true,
		underlying: underlying,
	}
	typ := &Type{
		kind:     cursor.TypeTypedef,
		spelling: name,
		size:     underlying.canonicalType().size,
		align:    underlying.canonicalType().align,
		decl:     decl,
		canon:    underlying.canonicalType(),
	}
	decl.typ = typ
	b.root.children = append(b.root.children, decl)
	return decl, typ
}

// Param declares a function parameter for Function.
type Param struct {
	Name string
	Type *Type
}

// P is shorthand for a Param.
func (b *Builder) P(name string, t *Type) Param { return Param{Name: name, Type: t} }

// Function declares a function with C linkage.
func (b *Builder) Function(name string, result *Type, variadic bool, params ...Param) *Cursor {
	argTypes := make([]*Type, len(params))
	for i, p := range params {
		argTypes[i] = p.Type
	}
	decl := &Cursor{
		kind:     cursor.KindFunctionDecl,
		spelling: name,
		usr:      b.nextUSR("F", name),
		loc:      b.nextLoc(),
		system:   b.system,
		isDef:    true,
		typ:      b.FunctionProto(result, variadic, argTypes...),
		variadic: variadic,
	}
	for _, p := range params {
		decl.children = append(decl.children, &Cursor{
			kind:     cursor.KindParmDecl,
			spelling: p.Name,
			usr:      b.nextUSR("PA", name+"@"+p.Name),
			loc:      decl.loc,
			system:   b.system,
			typ:      p.Type,
		})
	}
	b.root.children = append(b.root.children, decl)
	return decl
}

// Var declares a global variable.
func (b *Builder) Var(name string, t *Type) *Cursor {
	decl := &Cursor{
		kind:     cursor.KindVarDecl,
		spelling: name,
		usr:      b.nextUSR("V", name),
		loc:      b.nextLoc(),
		system:   b.system,
		typ:      t,
	}
	b.root.children = append(b.root.children, decl)
	return decl
}

// Macro declares an object-like macro with the given body tokens.
func (b *Builder) Macro(name string, tokens ...string) *Cursor {
	decl := &Cursor{
		kind:        cursor.KindMacroDefinition,
		spelling:    name,
		usr:         b.nextUSR("M", name),
		loc:         b.nextLoc(),
		system:      b.system,
		isDef:       true,
		macroTokens: tokens,
	}
	b.root.children = append(b.root.children, decl)
	return decl
}

// MacroFn declares a function-like macro.
func (b *Builder) MacroFn(name string, tokens ...string) *Cursor {
	decl := b.Macro(name, tokens...)
	decl.macroFnLike = true
	return decl
}

// Unexposed appends a cursor of a kind the extractor does not understand.
func (b *Builder) Unexposed(spelling string) *Cursor {
	decl := &Cursor{
		kind:     cursor.KindUnexposed,
		spelling: spelling,
		usr:      b.nextUSR("X", spelling),
		loc:      b.nextLoc(),
		system:   b.system,
	}
	b.root.children = append(b.root.children, decl)
	return decl
}

// Elaborated wraps a named type the way "struct S" appears in field types.
func (b *Builder) Elaborated(named *Type) *Type {
	return &Type{
		kind:     cursor.TypeElaborated,
		spelling: named.spelling,
		size:     named.size,
		align:    named.align,
		named:    named,
		canon:    named.canonicalType(),
	}
}

func alignUp(n, align int64) int64 {
	if align <= 1 {
		return n
	}
	rem := n % align
	if rem == 0 {
		return n
	}
	return n + align - rem
}
