package cas

import (
	"bytes"
	"strings"
	"testing"
)

func minimalSurface() *Surface {
	s := New("demo.h", "x86_64-unknown-linux-gnu")
	s.AddType(&Type{Name: "void", Kind: KindBuiltin})
	s.AddType(&Type{Name: "i32", Kind: KindBuiltin, SizeBytes: 4, AlignBytes: 4})
	s.Functions = append(s.Functions, &Function{
		Name:              "add",
		ReturnTypeName:    "i32",
		CallingConvention: "C",
		Parameters: []FunctionParameter{
			{Name: "a", TypeName: "i32"},
			{Name: "b", TypeName: "i32"},
		},
	})
	return s
}

func TestValidateAcceptsClosedSurface(t *testing.T) {
	if err := minimalSurface().Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateRejectsUnresolvedRef(t *testing.T) {
	s := minimalSurface()
	s.Functions[0].Parameters[0].TypeName = "Vec2*"
	err := s.Validate()
	if err == nil || !strings.Contains(err.Error(), `unresolved type "Vec2*"`) {
		t.Fatalf("err = %v", err)
	}
}

func TestValidateRejectsUnnamedParameter(t *testing.T) {
	s := minimalSurface()
	s.Functions[0].Parameters[1].Name = ""
	if err := s.Validate(); err == nil {
		t.Fatal("unnamed parameter must fail")
	}
}

func TestValidateRejectsDuplicateNames(t *testing.T) {
	s := minimalSurface()
	s.Functions = append(s.Functions, &Function{Name: "add", ReturnTypeName: "i32"})
	err := s.Validate()
	if err == nil || !strings.Contains(err.Error(), "duplicate function") {
		t.Fatalf("err = %v", err)
	}
}

func TestValidateRejectsDuplicateNestedNames(t *testing.T) {
	s := minimalSurface()
	nested := func(parent string) *Record {
		s.AddType(&Type{Name: parent, Kind: KindRecord, SizeBytes: 4, AlignBytes: 4})
		return &Record{
			Name:    parent,
			TypeRef: parent,
			Fields:  []RecordField{{Name: "u", TypeName: "Anonymous_Union_u"}},
			NestedRecords: []*Record{{
				Name:    "Anonymous_Union_u",
				IsUnion: true,
				TypeRef: "Anonymous_Union_u",
				Fields:  []RecordField{{Name: "i", TypeName: "i32"}},
			}},
		}
	}
	s.AddType(&Type{Name: "Anonymous_Union_u", Kind: KindRecord, SizeBytes: 4, AlignBytes: 4})
	s.Records = append(s.Records, nested("A"), nested("B"))
	err := s.Validate()
	if err == nil || !strings.Contains(err.Error(), "duplicate record") {
		t.Fatalf("err = %v", err)
	}
}

func TestValidateRejectsCompleteOpaqueConflict(t *testing.T) {
	s := minimalSurface()
	s.AddType(&Type{Name: "Ctx", Kind: KindRecord, SizeBytes: 4, AlignBytes: 4})
	s.Records = append(s.Records, &Record{
		Name:    "Ctx",
		TypeRef: "Ctx",
		Fields:  []RecordField{{Name: "x", TypeName: "i32"}},
	})
	s.OpaqueTypes = append(s.OpaqueTypes, &OpaqueType{Name: "Ctx"})
	err := s.Validate()
	if err == nil || !strings.Contains(err.Error(), "both complete and opaque") {
		t.Fatalf("err = %v", err)
	}
}

func TestValidateChecksFieldLayout(t *testing.T) {
	s := minimalSurface()
	s.AddType(&Type{Name: "Pair", Kind: KindRecord, SizeBytes: 4, AlignBytes: 4})
	s.Records = append(s.Records, &Record{
		Name:    "Pair",
		TypeRef: "Pair",
		Fields: []RecordField{
			{Name: "a", TypeName: "i32", OffsetBits: 0},
			{Name: "b", TypeName: "i32", OffsetBits: 32},
		},
	})
	err := s.Validate()
	if err == nil || !strings.Contains(err.Error(), "exceeds record size") {
		t.Fatalf("err = %v", err)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	s := minimalSurface()
	var buf bytes.Buffer
	if err := s.WriteJSON(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadJSON(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("validate after round trip: %v", err)
	}
	if got.Header != s.Header || len(got.Functions) != 1 || len(got.Types) != 2 {
		t.Fatalf("surface = %+v", got)
	}
	if _, ok := got.TypeByName("i32"); !ok {
		t.Fatal("type index must rebuild after decode")
	}
}

func TestAddTypeIsIdempotent(t *testing.T) {
	s := New("demo.h", "t")
	first := s.AddType(&Type{Name: "i32", Kind: KindBuiltin, SizeBytes: 4})
	second := s.AddType(&Type{Name: "i32", Kind: KindBuiltin, SizeBytes: 8})
	if first != second || len(s.Types) != 1 {
		t.Fatalf("types = %+v", s.Types)
	}
	if first.SizeBytes != 4 {
		t.Fatal("first registration wins")
	}
}
