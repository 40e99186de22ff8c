package layout

import (
	"strings"
	"testing"
)

func TestByTriple(t *testing.T) {
	got, err := ByTriple("x86_64-pc-windows-msvc")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.LongSize != 4 || got.PtrSize != 8 {
		t.Fatalf("target = %+v", got)
	}

	if _, err := ByTriple("mips-unknown-linux"); err == nil {
		t.Fatal("unknown triple must not resolve")
	}
	if len(Triples()) != 4 {
		t.Fatalf("triples = %v", Triples())
	}
}

func TestPaddingBits(t *testing.T) {
	// struct { char flag; double value; } on any 64-bit target.
	fields := []FieldSlot{
		{Name: "flag", OffsetBits: 0, SizeBytes: 1},
		{Name: "value", OffsetBits: 64, SizeBytes: 8},
	}
	pads, err := PaddingBits(fields, 16, false)
	if err != nil {
		t.Fatalf("padding: %v", err)
	}
	if pads[0] != 56 || pads[1] != 0 {
		t.Fatalf("pads = %v", pads)
	}
}

func TestPaddingBitsUnion(t *testing.T) {
	fields := []FieldSlot{
		{Name: "i", OffsetBits: 0, SizeBytes: 4},
		{Name: "d", OffsetBits: 0, SizeBytes: 8},
	}
	pads, err := PaddingBits(fields, 8, true)
	if err != nil {
		t.Fatalf("padding: %v", err)
	}
	if pads[0] != 32 || pads[1] != 0 {
		t.Fatalf("pads = %v", pads)
	}
}

func TestPaddingBitsOverlap(t *testing.T) {
	fields := []FieldSlot{
		{Name: "a", OffsetBits: 0, SizeBytes: 8},
		{Name: "b", OffsetBits: 32, SizeBytes: 4},
	}
	_, err := PaddingBits(fields, 12, false)
	if err == nil || !strings.Contains(err.Error(), "overlaps") {
		t.Fatalf("err = %v", err)
	}
}

func TestValidateRecord(t *testing.T) {
	ok := []FieldSlot{
		{Name: "x", OffsetBits: 0, SizeBytes: 4},
		{Name: "y", OffsetBits: 32, SizeBytes: 4},
	}
	if err := ValidateRecord(ok, 8, false); err != nil {
		t.Fatalf("validate: %v", err)
	}

	outOfOrder := []FieldSlot{
		{Name: "y", OffsetBits: 32, SizeBytes: 4},
		{Name: "x", OffsetBits: 0, SizeBytes: 4},
	}
	if err := ValidateRecord(outOfOrder, 8, false); err == nil {
		t.Fatal("out-of-order fields must fail")
	}
	// Declaration order is not checked for unions.
	if err := ValidateRecord(outOfOrder, 8, true); err != nil {
		t.Fatalf("union order: %v", err)
	}

	tooBig := []FieldSlot{{Name: "x", OffsetBits: 0, SizeBytes: 16}}
	if err := ValidateRecord(tooBig, 8, false); err == nil {
		t.Fatal("oversized field must fail")
	}
}

func TestBitsToBytes(t *testing.T) {
	if n, err := BitsToBytes(64); err != nil || n != 8 {
		t.Fatalf("BitsToBytes(64) = %d, %v", n, err)
	}
	if _, err := BitsToBytes(12); err == nil {
		t.Fatal("unaligned bit count must fail")
	}
}
