// Package emit renders a Target Abstract Surface as one Go source file.
// Every function call goes through a late-bound virtual table populated by
// LoadAPI from a dynamic library handle; records are emitted with explicit
// padding so their layout matches the C ABI bit for bit.
package emit

import (
	"fmt"
	"strings"

	"bindc/internal/tas"
)

// Options control file-level properties of the generated source.
type Options struct {
	// PackageName of the generated file. Defaults to "bindings".
	PackageName string
}

type generator struct {
	sur  *tas.Surface
	opts Options
	body strings.Builder

	needUnsafe bool
	needBytes  bool
	needFmt    bool
	needPurego bool

	emittedFnPtr map[string]bool
}

// File renders the surface. The output is gofmt-shaped source text.
func File(sur *tas.Surface, opts Options) ([]byte, error) {
	if opts.PackageName == "" {
		opts.PackageName = "bindings"
	}
	g := &generator{sur: sur, opts: opts, emittedFnPtr: map[string]bool{}}

	g.writeMacros()
	g.writeEnums()
	g.writeOpaques()
	g.writeTypedefs()
	g.writeFunctionPointers()
	g.writeStructs()
	g.writeTable()

	return g.assemble(), nil
}

func (g *generator) pf(format string, args ...any) {
	fmt.Fprintf(&g.body, format, args...)
}

func (g *generator) assemble() []byte {
	var out strings.Builder
	fmt.Fprintf(&out, "// Code generated by bindc from %s; DO NOT EDIT.\n\n", g.sur.Header)
	fmt.Fprintf(&out, "package %s\n\n", g.opts.PackageName)

	var std, ext []string
	if g.needBytes {
		std = append(std, `"bytes"`)
	}
	if g.needFmt {
		std = append(std, `"fmt"`)
	}
	if g.needUnsafe {
		std = append(std, `"unsafe"`)
	}
	if g.needPurego {
		ext = append(ext, `"github.com/ebitengine/purego"`)
	}
	if len(std)+len(ext) > 0 {
		out.WriteString("import (\n")
		for _, imp := range std {
			out.WriteString("\t" + imp + "\n")
		}
		if len(std) > 0 && len(ext) > 0 {
			out.WriteString("\n")
		}
		for _, imp := range ext {
			out.WriteString("\t" + imp + "\n")
		}
		out.WriteString(")\n\n")
	}

	out.WriteString(g.body.String())
	return []byte(out.String())
}

func (g *generator) writeMacros() {
	if len(g.sur.Macros) == 0 {
		return
	}
	g.pf("const (\n")
	for _, mc := range g.sur.Macros {
		g.pf("\t%s = %s\n", exportName(mc.Name), goLiteral(mc.Tokens[0]))
	}
	g.pf(")\n\n")
}

func (g *generator) writeEnums() {
	for _, e := range g.sur.Enums {
		name := exportName(e.Name)
		underlying, _ := goScalar(e.IntegerTypeName)
		g.pf("// %s is the C enum %s.\n", name, e.Name)
		g.pf("type %s %s\n\n", name, underlying)
		if len(e.Values) == 0 {
			continue
		}
		g.pf("const (\n")
		for _, v := range e.Values {
			g.pf("\t%s %s = %d\n", exportName(v.Name), name, v.Value)
		}
		g.pf(")\n\n")
	}
}

func (g *generator) writeOpaques() {
	for _, o := range g.sur.OpaqueTypes {
		g.pf("// %s is declared but never defined in the input headers; it is\n", exportName(o.Name))
		g.pf("// only handled through pointers.\n")
		g.pf("type %s struct{}\n\n", exportName(o.Name))
	}
}

func (g *generator) writeTypedefs() {
	for _, td := range g.sur.Typedefs {
		if td.UnderlyingTypeName == "void" {
			continue
		}
		target := g.paramType(td.UnderlyingTypeName)
		if strings.Contains(target, "unsafe.") {
			g.needUnsafe = true
		}
		g.pf("type %s = %s\n\n", exportName(td.Name), target)
	}
}

func (g *generator) writeFunctionPointers() {
	for _, fp := range g.sur.FunctionPointers {
		g.fnPtrType(fp)
	}
	var walk func(st *tas.Struct)
	walk = func(st *tas.Struct) {
		for _, fp := range st.NestedFunctionPointers {
			g.fnPtrType(fp)
		}
		for _, nested := range st.NestedStructs {
			walk(nested)
		}
	}
	for _, st := range g.sur.Structs {
		walk(st)
	}
}

// fnPtrType emits the named pointer type once per target name; shared shapes
// like FnPtrVoid collapse to a single declaration.
func (g *generator) fnPtrType(fp *tas.FunctionPointer) {
	name := fp.Name
	if t, ok := g.sur.TypeByName(fp.Name); ok {
		name = displayName(t)
	}
	name = exportName(name)
	if g.emittedFnPtr[name] {
		return
	}
	g.emittedFnPtr[name] = true
	g.pf("// %s holds a C function pointer of shape %s.\n", name, g.fnPtrShape(fp))
	g.pf("type %s uintptr\n\n", name)
}

func (g *generator) fnPtrShape(fp *tas.FunctionPointer) string {
	parts := make([]string, len(fp.Parameters))
	for i, p := range fp.Parameters {
		parts[i] = p.TypeName
	}
	return fmt.Sprintf("%s(%s)", fp.ReturnTypeName, strings.Join(parts, ", "))
}

func (g *generator) writeStructs() {
	for _, st := range g.sur.Structs {
		g.structDecl(st)
	}
}

func (g *generator) structDecl(st *tas.Struct) {
	for _, nested := range st.NestedStructs {
		g.structDecl(nested)
	}

	name := exportName(st.Name)
	if st.Platform != "" {
		name += "_" + platformSuffix(st.Platform)
	}
	if st.IsUnion {
		g.unionDecl(st, name)
		return
	}

	g.pf("// %s mirrors the C record %s (%d bytes).\n", name, st.Name, st.SizeBytes)
	g.pf("type %s struct {\n", name)
	for _, f := range st.Fields {
		switch {
		case f.IsWrappedArray:
			g.pf("\t%sRaw [%d]byte // offset %d\n", exportName(f.Name), f.WrappedSizeBytes, f.OffsetBits/8)
		default:
			g.pf("\t%s %s // offset %d\n", exportName(f.Name), g.fieldType(f.TypeName), f.OffsetBits/8)
		}
		if f.PaddingBits > 0 {
			g.pf("\t_ [%d]byte\n", f.PaddingBits/8)
		}
	}
	g.pf("}\n\n")

	for _, f := range st.Fields {
		g.fieldAccessors(name, st, f)
	}
}

// unionDecl emits a union as a raw byte buffer with one typed view per
// member, all at offset zero.
func (g *generator) unionDecl(st *tas.Struct, name string) {
	g.pf("// %s mirrors the C union %s (%d bytes); all members share offset 0.\n", name, st.Name, st.SizeBytes)
	g.pf("type %s struct {\n", name)
	g.pf("\traw [%d]byte\n", st.SizeBytes)
	g.pf("}\n\n")

	recv := receiver(name)
	for _, f := range st.Fields {
		ft := g.fieldType(f.TypeName)
		g.needUnsafe = true
		g.pf("// %s views the union storage as %s.\n", exportName(f.Name), f.TypeName)
		g.pf("func (%s *%s) %s() *%s {\n", recv, name, exportName(f.Name), ft)
		g.pf("\treturn (*%s)(unsafe.Pointer(&%s.raw[0]))\n", ft, recv)
		g.pf("}\n\n")
	}
}

// fieldAccessors synthesizes the wrapped-array view and, for char arrays,
// a NUL-terminated string reader.
func (g *generator) fieldAccessors(structName string, st *tas.Struct, f tas.StructField) {
	recv := receiver(structName)
	fname := exportName(f.Name)

	if f.IsWrappedArray {
		elem := exportName(f.ElementTypeName)
		if s, ok := goScalar(f.ElementTypeName); ok {
			elem = s
		}
		g.needUnsafe = true
		g.pf("// %s reinterprets the inline buffer as %d %s elements.\n", fname, f.ElementCount, elem)
		g.pf("func (%s *%s) %s() []%s {\n", recv, structName, fname, elem)
		g.pf("\treturn unsafe.Slice((*%s)(unsafe.Pointer(&%s.%sRaw[0])), %d)\n", elem, recv, fname, f.ElementCount)
		g.pf("}\n\n")
		return
	}

	if f.IsCharArray {
		g.needBytes = true
		g.pf("// %sString reads the field as a NUL-terminated string.\n", fname)
		g.pf("func (%s *%s) %sString() string {\n", recv, structName, fname)
		g.pf("\tb := %s.%s[:]\n", recv, fname)
		g.pf("\tif i := bytes.IndexByte(b, 0); i >= 0 {\n\t\tb = b[:i]\n\t}\n")
		g.pf("\treturn string(b)\n")
		g.pf("}\n\n")
	}
}

func (g *generator) writeTable() {
	if len(g.sur.Functions) == 0 && len(g.sur.Variables) == 0 {
		return
	}
	table := g.sur.ClassName
	if table == "" {
		table = "API"
	}
	table = exportName(table)
	g.needPurego = true
	g.needFmt = true

	g.pf("// %s is the virtual table: one late-bound entry per exported function\n", table)
	g.pf("// and one untyped pointer per exported variable.\n")
	g.pf("type %s struct {\n", table)
	for _, fn := range g.sur.Functions {
		g.pf("\t%s func%s\n", exportName(fn.Name), g.signature(fn))
	}
	for _, v := range g.sur.Variables {
		g.needUnsafe = true
		g.pf("\t%s unsafe.Pointer\n", exportName(v.Name))
	}
	g.pf("}\n\n")

	g.pf("var (\n\tapi %s\n\tlibHandle uintptr\n)\n\n", table)

	g.pf("// LoadAPI opens the dynamic library and binds every table entry.\n")
	g.pf("// An empty path falls back to the configured library name.\n")
	g.pf("func LoadAPI(path string) error {\n")
	if g.sur.LibraryName != "" {
		g.pf("\tif path == \"\" {\n\t\tpath = %q\n\t}\n", g.sur.LibraryName)
	}
	g.pf("\th, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)\n")
	g.pf("\tif err != nil {\n\t\treturn fmt.Errorf(\"load %%s: %%w\", path, err)\n\t}\n")
	g.pf("\tlibHandle = h\n")
	for _, fn := range g.sur.Functions {
		g.pf("\tpurego.RegisterLibFunc(&api.%s, h, %q)\n", exportName(fn.Name), fn.Symbol)
	}
	for _, v := range g.sur.Variables {
		g.pf("\tif sym, err := purego.Dlsym(h, %q); err == nil {\n", v.Symbol)
		g.pf("\t\tapi.%s = *(*unsafe.Pointer)(unsafe.Pointer(&sym))\n", exportName(v.Name))
		g.pf("\t}\n")
	}
	g.pf("\treturn nil\n}\n\n")

	g.pf("// UnloadAPI zeroes the table and releases the library handle.\n")
	g.pf("func UnloadAPI() error {\n")
	g.pf("\tapi = %s{}\n", table)
	g.pf("\tif libHandle == 0 {\n\t\treturn nil\n\t}\n")
	g.pf("\th := libHandle\n\tlibHandle = 0\n")
	g.pf("\treturn purego.Dlclose(h)\n}\n\n")

	for _, fn := range g.sur.Functions {
		g.wrapper(fn)
	}
	for _, v := range g.sur.Variables {
		g.variableAccessor(v)
	}
}

// signature renders the Go parameter list and result of one table entry.
func (g *generator) signature(fn *tas.Function) string {
	var b strings.Builder
	b.WriteString("(")
	for i, p := range fn.Parameters {
		if i > 0 {
			b.WriteString(", ")
		}
		pt := g.paramType(p.TypeName)
		if strings.Contains(pt, "unsafe.") {
			g.needUnsafe = true
		}
		fmt.Fprintf(&b, "%s %s", p.Name, pt)
	}
	b.WriteString(")")
	if fn.ReturnTypeName != "void" {
		rt := g.paramType(fn.ReturnTypeName)
		if strings.Contains(rt, "unsafe.") {
			g.needUnsafe = true
		}
		b.WriteString(" " + rt)
	}
	return b.String()
}

// wrapper emits the public function: a statically-known indirect call
// through the table.
func (g *generator) wrapper(fn *tas.Function) {
	name := exportName(fn.Name)
	args := make([]string, len(fn.Parameters))
	for i, p := range fn.Parameters {
		args[i] = p.Name
	}
	g.pf("// %s calls the C function %q.\n", name, fn.Symbol)
	g.pf("func %s%s {\n", name, g.signature(fn))
	if fn.ReturnTypeName != "void" {
		g.pf("\treturn api.%s(%s)\n", name, strings.Join(args, ", "))
	} else {
		g.pf("\tapi.%s(%s)\n", name, strings.Join(args, ", "))
	}
	g.pf("}\n\n")
}

func (g *generator) variableAccessor(v *tas.Variable) {
	name := exportName(v.Name)
	ptr := "*" + g.fieldType(v.TypeName)
	if v.TypeName == "void*" || v.TypeName == "Pointer" {
		ptr = "unsafe.Pointer"
	}
	g.needUnsafe = true
	g.pf("// %s returns the address of the C variable %q, or nil before LoadAPI.\n", name, v.Symbol)
	g.pf("func %s() %s {\n", name, ptr)
	if ptr == "unsafe.Pointer" {
		g.pf("\treturn api.%s\n", name)
	} else {
		g.pf("\treturn (%s)(api.%s)\n", ptr, name)
	}
	g.pf("}\n\n")
}

func receiver(structName string) string {
	return strings.ToLower(structName[:1])
}

// platformSuffix makes a triple usable inside an identifier.
func platformSuffix(triple string) string {
	var b strings.Builder
	for _, r := range triple {
		if r == '-' || r == '.' {
			b.WriteRune('_')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
