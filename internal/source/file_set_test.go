package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInternIsIdempotent(t *testing.T) {
	fs := NewFileSet()
	a := fs.Intern("/usr/include/demo.h")
	b := fs.Intern("/usr/include/demo.h")
	if a != b {
		t.Fatalf("ids = %d, %d", a, b)
	}
	if fs.Len() != 1 {
		t.Fatalf("len = %d", fs.Len())
	}
	// Interned files carry no content, so no preview is possible.
	if _, ok := fs.LineContent(a, 1); ok {
		t.Fatal("interned file must not yield line content")
	}
}

func TestAddUpgradesInternedEntry(t *testing.T) {
	fs := NewFileSet()
	id := fs.Intern("demo.h")
	added := fs.Add("demo.h", []byte("int x;\nint y;\n"), 0)
	if added != id {
		t.Fatalf("ids = %d, %d", id, added)
	}
	line, ok := fs.LineContent(id, 2)
	if !ok || string(line) != "int y;" {
		t.Fatalf("line 2 = %q, %v", line, ok)
	}
	if _, ok := fs.LineContent(id, 4); ok {
		t.Fatal("line 4 is out of range")
	}
}

func TestLoadNormalizesCRLFAndBOM(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "demo.h")
	raw := append([]byte{0xEF, 0xBB, 0xBF}, []byte("int a;\r\nint b;\r\n")...)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	fs := NewFileSetWithBase(dir)
	id, err := fs.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	f := fs.Get(id)
	if f.Flags&FileHadBOM == 0 || f.Flags&FileNormalizedCRLF == 0 {
		t.Fatalf("flags = %v", f.Flags)
	}
	line, ok := fs.LineContent(id, 1)
	if !ok || string(line) != "int a;" {
		t.Fatalf("line 1 = %q, %v", line, ok)
	}
	if got := fs.RelPathOf(id); got != "demo.h" {
		t.Fatalf("rel path = %q", got)
	}
}

func TestLookup(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("a/../demo.h", []byte("x"))
	// Paths are cleaned before interning.
	got, ok := fs.Lookup("demo.h")
	if !ok || got != id {
		t.Fatalf("lookup = %d, %v", got, ok)
	}
	if _, ok := fs.Lookup("other.h"); ok {
		t.Fatal("unexpected hit")
	}
}
