package explorer_test

import (
	"testing"

	"bindc/internal/diag"
	"bindc/internal/explorer"
	"bindc/internal/memtu"
	"bindc/internal/source"
)

func explore(t *testing.T, build func(b *memtu.Builder)) (*explorer.Result, *diag.Bag) {
	t.Helper()
	b := memtu.NewBuilder("demo.h", memtu.LP64())
	build(b)
	bag := diag.NewBag(64)
	res, err := explorer.Explore(b.Unit(), source.NewFileSet(), diag.BagReporter{Bag: bag}, explorer.Options{})
	if err != nil {
		t.Fatalf("explore: %v", err)
	}
	return res, bag
}

func TestDiscoveryOrder(t *testing.T) {
	res, _ := explore(t, func(b *memtu.Builder) {
		b.Struct("Point", b.F("x", b.Int))
		b.Function("point_x", b.Int, false, b.P("p", b.Int))
		b.Enum("Mode", b.Int, b.EV("M_A", 0))
		b.Var("g_mode", b.Int)
		b.Macro("LIMIT", "8")
	})
	if len(res.Records) != 1 || res.Records[0].Spelling() != "Point" {
		t.Fatalf("records = %d", len(res.Records))
	}
	if len(res.Functions) != 1 || len(res.Enums) != 1 || len(res.Variables) != 1 || len(res.Macros) != 1 {
		t.Fatalf("result = %+v", res)
	}
	usr := res.Functions[0].USR()
	if len(res.FuncParams[usr]) != 1 {
		t.Fatalf("params = %v", res.FuncParams[usr])
	}
}

func TestReferencedSystemDeclIsPromoted(t *testing.T) {
	res, _ := explore(t, func(b *memtu.Builder) {
		b.SetSystem(true)
		_, sizeT := b.Typedef("size_t", b.ULong)
		b.SetSystem(false)
		b.Function("buf_len", sizeT, false)
	})
	// size_t was declared in a system header but is referenced from a user
	// function, so it must enter the surface to keep it closed.
	if len(res.Typedefs) != 1 || res.Typedefs[0].Spelling() != "size_t" {
		t.Fatalf("typedefs = %d", len(res.Typedefs))
	}
	if !res.System[res.Typedefs[0].USR()] {
		t.Fatal("size_t must keep its system mark")
	}
}

func TestUnreferencedSystemDeclIsSkipped(t *testing.T) {
	res, _ := explore(t, func(b *memtu.Builder) {
		b.SetSystem(true)
		b.Typedef("wchar_t", b.Int)
		b.SetSystem(false)
		b.Function("noop", b.Void, false)
	})
	if len(res.Typedefs) != 0 {
		t.Fatalf("typedefs = %d", len(res.Typedefs))
	}
}

func TestTypedefOfAnonymousRecordTakesItsName(t *testing.T) {
	res, _ := explore(t, func(b *memtu.Builder) {
		_, anon := b.Struct("", b.F("x", b.Int))
		b.Typedef("vec_t", b.Elaborated(anon))
	})
	if len(res.Records) != 1 || len(res.Typedefs) != 0 {
		t.Fatalf("records = %d, typedefs = %d", len(res.Records), len(res.Typedefs))
	}
	usr := res.Records[0].USR()
	if res.Names[usr] != "vec_t" {
		t.Fatalf("record name = %q", res.Names[usr])
	}
}

func TestAnonymousFieldRecordNaming(t *testing.T) {
	res, bag := explore(t, func(b *memtu.Builder) {
		_, anon := b.Union("", b.F("i", b.Int), b.F("f", b.Float))
		b.Struct("Outer", b.F("u", b.Elaborated(anon)))
	})
	var found bool
	for usr, name := range res.Names {
		if name == "Anonymous_Union_u" {
			found = true
			if res.AnonParent[usr] == "" {
				t.Fatal("anonymous record must record its parent")
			}
		}
	}
	if !found {
		t.Fatalf("names = %v", res.Names)
	}
	if bag.CountCode(diag.AnonymousNamed) != 1 {
		t.Fatalf("diagnostics:\n%s", diag.FormatGolden(bag.Items(), nil))
	}
}

func TestSynthesizedNamesDoNotCollide(t *testing.T) {
	res, bag := explore(t, func(b *memtu.Builder) {
		_, small := b.Union("", b.F("i", b.Int))
		b.Struct("A",
			b.F("u", b.Elaborated(small)),
			b.F("cb", b.Pointer(b.FunctionProto(b.Void, false))))
		_, wide := b.Union("", b.F("d", b.Double), b.F("x", b.Double))
		b.Struct("B",
			b.F("u", b.Elaborated(wide)),
			b.F("cb", b.Pointer(b.FunctionProto(b.Int, false, b.Int))))
	})
	names := map[string]bool{}
	for _, n := range res.Names {
		names[n] = true
	}
	// Both records carry a field named u; the second union gets a suffix.
	for _, want := range []string{"Anonymous_Union_u", "Anonymous_Union_u2"} {
		if !names[want] {
			t.Fatalf("missing %q in %v", want, res.Names)
		}
	}
	if len(res.FnPtrFields) != 2 ||
		res.FnPtrFields[0].Name != "FnPtr_cb" || res.FnPtrFields[1].Name != "FnPtr_cb2" {
		t.Fatalf("fnptr fields = %+v", res.FnPtrFields)
	}
	if bag.CountCode(diag.AnonymousNamed) != 4 {
		t.Fatalf("diagnostics:\n%s", diag.FormatGolden(bag.Items(), nil))
	}
}

func TestRawFunctionPointerFieldSynthesized(t *testing.T) {
	res, _ := explore(t, func(b *memtu.Builder) {
		b.Struct("Handler", b.F("on_done", b.Pointer(b.FunctionProto(b.Void, false))))
	})
	if len(res.FnPtrFields) != 1 || res.FnPtrFields[0].Name != "FnPtr_on_done" {
		t.Fatalf("fnptr fields = %+v", res.FnPtrFields)
	}
}

func TestForwardDeclarationBecomesOpaque(t *testing.T) {
	res, _ := explore(t, func(b *memtu.Builder) {
		_, ctx := b.ForwardStruct("engine_ctx")
		b.Function("engine_free", b.Void, false, b.P("c", b.Pointer(ctx)))
	})
	if len(res.Opaques) != 1 || res.Opaques[0].Spelling() != "engine_ctx" {
		t.Fatalf("opaques = %d", len(res.Opaques))
	}
	if len(res.Records) != 0 {
		t.Fatalf("records = %d", len(res.Records))
	}
}

func TestUnknownCursorKindIsWarned(t *testing.T) {
	_, bag := explore(t, func(b *memtu.Builder) {
		b.Unexposed("__asm_directive")
		b.Function("noop", b.Void, false)
	})
	if bag.CountCode(diag.UnknownCursorKind) != 1 {
		t.Fatalf("diagnostics:\n%s", diag.FormatGolden(bag.Items(), nil))
	}
}
