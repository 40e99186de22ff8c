package cmap_test

import (
	"testing"

	"bindc/internal/cas"
	"bindc/internal/cmap"
	"bindc/internal/diag"
	"bindc/internal/explorer"
	"bindc/internal/memtu"
	"bindc/internal/source"
)

const testTriple = "x86_64-unknown-linux-gnu"

func mapHeader(t *testing.T, w memtu.Widths, build func(b *memtu.Builder)) (*cas.Surface, *diag.Bag, error) {
	t.Helper()
	b := memtu.NewBuilder("demo.h", w)
	build(b)
	fs := source.NewFileSet()
	bag := diag.NewBag(64)
	rep := diag.BagReporter{Bag: bag}
	disc, err := explorer.Explore(b.Unit(), fs, rep, explorer.Options{})
	if err != nil {
		t.Fatalf("explore: %v", err)
	}
	sur, mapErr := cmap.Map(disc, fs, rep, "demo.h", testTriple)
	return sur, bag, mapErr
}

func mustMap(t *testing.T, w memtu.Widths, build func(b *memtu.Builder)) (*cas.Surface, *diag.Bag) {
	t.Helper()
	sur, bag, err := mapHeader(t, w, build)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if err := sur.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	return sur, bag
}

func TestMapMinimalFunction(t *testing.T) {
	sur, bag := mustMap(t, memtu.LP64(), func(b *memtu.Builder) {
		b.Function("add", b.Int, false, b.P("a", b.Int), b.P("b", b.Int))
	})
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics:\n%s", diag.FormatGolden(bag.Items(), nil))
	}
	if len(sur.Functions) != 1 {
		t.Fatalf("functions = %d, want 1", len(sur.Functions))
	}
	fn := sur.Functions[0]
	if fn.Name != "add" || fn.ReturnTypeName != "i32" || fn.CallingConvention != "C" {
		t.Fatalf("unexpected function node: %+v", fn)
	}
	if len(fn.Parameters) != 2 || fn.Parameters[0].Name != "a" || fn.Parameters[1].TypeName != "i32" {
		t.Fatalf("unexpected parameters: %+v", fn.Parameters)
	}
}

func TestPointerCanonicalisation(t *testing.T) {
	sur, _ := mustMap(t, memtu.LP64(), func(b *memtu.Builder) {
		b.Function("greet", b.Void, false,
			b.P("name", b.Pointer(b.Const(b.Char))),
			b.P("ctx", b.Pointer(b.Void)),
			b.P("out", b.Pointer(b.Int)))
	})
	fn := sur.Functions[0]
	want := []string{"CString", "void*", "i32*"}
	for i, w := range want {
		if got := fn.Parameters[i].TypeName; got != w {
			t.Errorf("param %d type = %q, want %q", i, got, w)
		}
	}
	ptr, ok := sur.TypeByName("i32*")
	if !ok || ptr.Kind != cas.KindPointer || ptr.SizeBytes != 8 {
		t.Fatalf("i32* entry = %+v, ok=%v", ptr, ok)
	}
}

func TestLongWidthFollowsTarget(t *testing.T) {
	cases := []struct {
		widths memtu.Widths
		want   string
	}{
		{memtu.LP64(), "i64"},
		{memtu.LLP64(), "i32"},
		{memtu.ILP32(), "i32"},
	}
	for _, tc := range cases {
		sur, _ := mustMap(t, tc.widths, func(b *memtu.Builder) {
			b.Function("tick", b.Long, false)
		})
		if got := sur.Functions[0].ReturnTypeName; got != tc.want {
			t.Errorf("long with widths %+v = %q, want %q", tc.widths, got, tc.want)
		}
	}
}

func TestVariadicFunctionDropped(t *testing.T) {
	sur, bag := mustMap(t, memtu.LP64(), func(b *memtu.Builder) {
		b.Function("printf", b.Int, true, b.P("format", b.Pointer(b.Const(b.Char))))
		b.Function("puts", b.Int, false, b.P("s", b.Pointer(b.Const(b.Char))))
	})
	if len(sur.Functions) != 1 || sur.Functions[0].Name != "puts" {
		t.Fatalf("functions = %+v, want only puts", sur.Functions)
	}
	if bag.CountCode(diag.VariadicFunctionDropped) != 1 {
		t.Fatalf("diagnostics:\n%s", diag.FormatGolden(bag.Items(), nil))
	}
}

func TestVaListParameterDropsFunction(t *testing.T) {
	sur, bag := mustMap(t, memtu.LP64(), func(b *memtu.Builder) {
		b.SetSystem(true)
		_, vaList := b.Typedef("va_list", b.Pointer(b.Void))
		b.SetSystem(false)
		b.Function("vlog", b.Void, false, b.P("ap", vaList))
	})
	if len(sur.Functions) != 0 {
		t.Fatalf("functions = %+v, want none", sur.Functions)
	}
	if bag.CountCode(diag.VariadicFunctionDropped) != 1 {
		t.Fatalf("diagnostics:\n%s", diag.FormatGolden(bag.Items(), nil))
	}
}

func TestLongDoubleIsFatal(t *testing.T) {
	sur, bag, err := mapHeader(t, memtu.LP64(), func(b *memtu.Builder) {
		b.Function("area", b.LongDouble, false)
	})
	if err == nil {
		t.Fatal("expected a mapping error")
	}
	if len(sur.Functions) != 0 {
		t.Fatalf("functions = %+v, want none on the partial surface", sur.Functions)
	}
	if bag.CountCode(diag.UnsupportedType) != 1 {
		t.Fatalf("diagnostics:\n%s", diag.FormatGolden(bag.Items(), nil))
	}
}

func TestMacroLowering(t *testing.T) {
	sur, bag := mustMap(t, memtu.LP64(), func(b *memtu.Builder) {
		b.Macro("MAX_N", "42")
		b.Macro("NAME", `"bindc"`)
		b.MacroFn("FOO", "x", "*", "2")
		b.Macro("BAR", "a", "+", "b")
	})
	if len(sur.Macros) != 2 {
		t.Fatalf("macros = %+v, want MAX_N and NAME", sur.Macros)
	}
	if sur.Macros[0].Name != "MAX_N" || sur.Macros[0].Tokens[0] != "42" {
		t.Fatalf("unexpected macro node: %+v", sur.Macros[0])
	}
	if bag.CountCode(diag.MacroObjectNotTranspiled) != 2 {
		t.Fatalf("diagnostics:\n%s", diag.FormatGolden(bag.Items(), nil))
	}
}

func TestAnonymousUnionInsideStruct(t *testing.T) {
	sur, _ := mustMap(t, memtu.LP64(), func(b *memtu.Builder) {
		_, anon := b.Union("", b.F("i", b.Int), b.F("f", b.Float))
		b.Struct("S", b.F("tag", b.Int), b.F("u", anon))
	})
	if len(sur.Records) != 1 {
		t.Fatalf("records = %d, want 1", len(sur.Records))
	}
	rec := sur.Records[0]
	if len(rec.NestedRecords) != 1 {
		t.Fatalf("nested records = %+v, want the anonymous union", rec.NestedRecords)
	}
	nested := rec.NestedRecords[0]
	if nested.Name != "Anonymous_Union_u" || !nested.IsUnion {
		t.Fatalf("nested = %+v", nested)
	}
	if rec.Fields[1].TypeName != "Anonymous_Union_u" {
		t.Fatalf("field u references %q", rec.Fields[1].TypeName)
	}
}

func TestAnonymousUnionNamesDoNotCollide(t *testing.T) {
	sur, _ := mustMap(t, memtu.LP64(), func(b *memtu.Builder) {
		_, small := b.Union("", b.F("i", b.Int))
		b.Struct("A", b.F("u", small))
		_, wide := b.Union("", b.F("d", b.Double), b.F("x", b.Double))
		b.Struct("B", b.F("u", wide))
	})
	if len(sur.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(sur.Records))
	}
	first := sur.Records[0].NestedRecords[0]
	second := sur.Records[1].NestedRecords[0]
	if first.Name != "Anonymous_Union_u" || second.Name != "Anonymous_Union_u2" {
		t.Fatalf("nested names = %q, %q", first.Name, second.Name)
	}
	// Each union keeps its own layout: the wide one must not reuse the
	// 4-byte entry of the first.
	ft, _ := sur.TypeByName(first.TypeRef)
	st, _ := sur.TypeByName(second.TypeRef)
	if ft.SizeBytes != 4 || st.SizeBytes != 8 {
		t.Fatalf("union sizes = %d, %d, want 4 and 8", ft.SizeBytes, st.SizeBytes)
	}
}

func TestStructFieldLayout(t *testing.T) {
	sur, _ := mustMap(t, memtu.LP64(), func(b *memtu.Builder) {
		b.Struct("Mixed", b.F("flag", b.Char), b.F("value", b.Double))
	})
	rec := sur.Records[0]
	if rec.Fields[0].OffsetBits != 0 || rec.Fields[0].PaddingBits != 56 {
		t.Fatalf("flag layout = %+v", rec.Fields[0])
	}
	if rec.Fields[1].OffsetBits != 64 || rec.Fields[1].PaddingBits != 0 {
		t.Fatalf("value layout = %+v", rec.Fields[1])
	}
	rt, _ := sur.TypeByName(rec.TypeRef)
	if rt.SizeBytes != 16 {
		t.Fatalf("record size = %d, want 16", rt.SizeBytes)
	}
}

func TestCharArrayFieldStaysAnArray(t *testing.T) {
	sur, _ := mustMap(t, memtu.LP64(), func(b *memtu.Builder) {
		b.Struct("Person", b.F("name", b.ConstArray(b.Char, 16)))
	})
	rec := sur.Records[0]
	if rec.Fields[0].TypeName != "u8[16]" {
		t.Fatalf("field type = %q, want u8[16]", rec.Fields[0].TypeName)
	}
	at, ok := sur.TypeByName("u8[16]")
	if !ok || at.Kind != cas.KindConstArray || at.ArraySize != 16 || at.ElementName != "u8" {
		t.Fatalf("array entry = %+v, ok=%v", at, ok)
	}
}

func TestArrayParameterDecays(t *testing.T) {
	sur, _ := mustMap(t, memtu.LP64(), func(b *memtu.Builder) {
		b.Function("sum", b.Int, false, b.P("values", b.ConstArray(b.Int, 8)))
	})
	if got := sur.Functions[0].Parameters[0].TypeName; got != "i32*" {
		t.Fatalf("decayed type = %q, want i32*", got)
	}
}

func TestOpaqueForwardDeclaration(t *testing.T) {
	sur, _ := mustMap(t, memtu.LP64(), func(b *memtu.Builder) {
		_, ctx := b.ForwardStruct("Ctx")
		b.Function("ctx_free", b.Void, false, b.P("c", b.Pointer(ctx)))
	})
	if len(sur.OpaqueTypes) != 1 || sur.OpaqueTypes[0].Name != "Ctx" {
		t.Fatalf("opaques = %+v", sur.OpaqueTypes)
	}
	if got := sur.Functions[0].Parameters[0].TypeName; got != "Ctx*" {
		t.Fatalf("param type = %q, want Ctx*", got)
	}
	ot, _ := sur.TypeByName("Ctx")
	if ot.Kind != cas.KindOpaque {
		t.Fatalf("Ctx entry = %+v", ot)
	}
}

func TestEnumMapping(t *testing.T) {
	sur, _ := mustMap(t, memtu.LP64(), func(b *memtu.Builder) {
		b.Enum("Color", b.Int, b.EV("RED", 0), b.EV("GREEN", 1), b.EV("BLUE", 2))
	})
	if len(sur.Enums) != 1 {
		t.Fatalf("enums = %d, want 1", len(sur.Enums))
	}
	e := sur.Enums[0]
	if e.IntegerTypeName != "i32" || len(e.Values) != 3 || e.Values[2].Value != 2 {
		t.Fatalf("enum = %+v", e)
	}
}

func TestFnPtrTypedefAndRawField(t *testing.T) {
	sur, bag := mustMap(t, memtu.LP64(), func(b *memtu.Builder) {
		_, cb := b.Typedef("Callback", b.Pointer(b.FunctionProto(b.Void, false, b.Int)))
		b.Struct("Handler",
			b.F("cb", cb),
			b.F("raw", b.Pointer(b.FunctionProto(b.Void, false, b.Float))))
	})
	if len(sur.FunctionPointers) != 1 || sur.FunctionPointers[0].Name != "Callback" {
		t.Fatalf("function pointers = %+v", sur.FunctionPointers)
	}
	if got := sur.FunctionPointers[0].Parameters[0]; got.Name != "param" || got.TypeName != "i32" {
		t.Fatalf("callback param = %+v", got)
	}
	rec := sur.Records[0]
	if len(rec.NestedFunctionPointers) != 1 || rec.NestedFunctionPointers[0].Name != "FnPtr_raw" {
		t.Fatalf("nested fnptrs = %+v", rec.NestedFunctionPointers)
	}
	if !rec.NestedFunctionPointers[0].IsSynthetic {
		t.Fatal("FnPtr_raw should be marked synthetic")
	}
	if bag.CountCode(diag.AnonymousNamed) != 1 {
		t.Fatalf("diagnostics:\n%s", diag.FormatGolden(bag.Items(), nil))
	}
}

func TestSystemTypedefResolvesThrough(t *testing.T) {
	sur, _ := mustMap(t, memtu.LP64(), func(b *memtu.Builder) {
		b.SetSystem(true)
		_, sizeT := b.Typedef("size_t", b.ULong)
		b.SetSystem(false)
		b.Function("buf_len", sizeT, false)
	})
	if got := sur.Functions[0].ReturnTypeName; got != "u64" {
		t.Fatalf("size_t resolved to %q, want u64", got)
	}
	// The alias stays in the surface with its system tag; the target mapper
	// decides whether it is emitted.
	if len(sur.Typedefs) != 1 || !sur.Typedefs[0].IsSystem || sur.Typedefs[0].UnderlyingTypeName != "u64" {
		t.Fatalf("typedefs = %+v, want size_t kept with its system tag", sur.Typedefs)
	}
}

func TestUserTypedefKept(t *testing.T) {
	sur, _ := mustMap(t, memtu.LP64(), func(b *memtu.Builder) {
		_, handle := b.Typedef("Handle", b.Pointer(b.Void))
		b.Function("use", b.Void, false, b.P("h", handle))
	})
	if len(sur.Typedefs) != 1 || sur.Typedefs[0].Name != "Handle" || sur.Typedefs[0].UnderlyingTypeName != "void*" {
		t.Fatalf("typedefs = %+v", sur.Typedefs)
	}
	if got := sur.Functions[0].Parameters[0].TypeName; got != "Handle" {
		t.Fatalf("param type = %q, want Handle", got)
	}
}

func TestUnnamedParametersGetStableNames(t *testing.T) {
	sur, _ := mustMap(t, memtu.LP64(), func(b *memtu.Builder) {
		b.Function("blit", b.Void, false, b.P("", b.Int), b.P("", b.Int), b.P("dst", b.Pointer(b.Void)))
	})
	ps := sur.Functions[0].Parameters
	if ps[0].Name != "param" || ps[1].Name != "param2" || ps[2].Name != "dst" {
		t.Fatalf("parameters = %+v", ps)
	}
}
