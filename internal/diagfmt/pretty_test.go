package diagfmt_test

import (
	"strings"
	"testing"

	"github.com/fatih/color"

	"bindc/internal/diag"
	"bindc/internal/diagfmt"
	"bindc/internal/source"
)

func demoFileSet() (*source.FileSet, source.FileID) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("demo.h", []byte("typedef long double ld;\nint add(int a, int b);\n"))
	return fs, id
}

func TestPrettyWithPreview(t *testing.T) {
	fs, id := demoFileSet()
	bag := diag.NewBag(8)
	bag.Add(diag.New(diag.SevError, diag.UnsupportedType, "ld",
		source.Loc{File: id, Line: 1, Col: 9}, "long double is not supported"))

	var sb strings.Builder
	diagfmt.Pretty(&sb, bag, fs, diagfmt.PrettyOpts{ShowPreview: true})

	want := "demo.h:1:9: ERROR BND2001 ld: long double is not supported\n" +
		"    typedef long double ld;\n" +
		"            ^\n" +
		"1 diagnostic(s)\n"
	if sb.String() != want {
		t.Fatalf("output:\n%q\nwant:\n%q", sb.String(), want)
	}
	if strings.Contains(sb.String(), "\x1b[") {
		t.Fatal("plain output must not contain escape sequences")
	}
}

func TestPrettyUnknownLocationAndNotes(t *testing.T) {
	fs, id := demoFileSet()
	bag := diag.NewBag(8)
	d := diag.New(diag.SevWarning, diag.MacroObjectNotTranspiled, "FOO",
		source.Loc{}, "macro body is not a single literal")
	d = d.WithNote(source.Loc{File: id, Line: 2, Col: 1}, "first use here")
	bag.Add(d)

	var sb strings.Builder
	diagfmt.Pretty(&sb, bag, fs, diagfmt.PrettyOpts{ShowNotes: true, ShowPreview: true})

	out := sb.String()
	if !strings.HasPrefix(out, "<unknown>: WARNING BND2003 FOO: macro body is not a single literal\n") {
		t.Fatalf("output:\n%q", out)
	}
	if !strings.Contains(out, "  note: demo.h:2:1: first use here\n") {
		t.Fatalf("missing note in:\n%q", out)
	}
	// No preview block for a location-less diagnostic.
	if strings.Contains(out, "typedef") {
		t.Fatalf("unexpected preview in:\n%q", out)
	}
}

func TestPrettyBasenamePaths(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("include/nested/demo.h", []byte("int x;\n"))
	bag := diag.NewBag(8)
	bag.Add(diag.New(diag.SevInfo, diag.ExploreInfo, "x",
		source.Loc{File: id, Line: 1, Col: 1}, "seen"))

	var sb strings.Builder
	diagfmt.Pretty(&sb, bag, fs, diagfmt.PrettyOpts{PathMode: diagfmt.PathModeBasename})
	if !strings.HasPrefix(sb.String(), "demo.h:1:1: INFO ") {
		t.Fatalf("output:\n%q", sb.String())
	}
}

func TestPrettyColoredSeverity(t *testing.T) {
	prev := color.NoColor
	color.NoColor = false
	defer func() { color.NoColor = prev }()

	fs, id := demoFileSet()
	bag := diag.NewBag(8)
	bag.Add(diag.New(diag.SevError, diag.UnsupportedType, "ld",
		source.Loc{File: id, Line: 1, Col: 9}, "long double is not supported"))

	var sb strings.Builder
	diagfmt.Pretty(&sb, bag, fs, diagfmt.PrettyOpts{Color: true})
	if !strings.Contains(sb.String(), "\x1b[") {
		t.Fatalf("expected colored severity in:\n%q", sb.String())
	}
}

func TestPrettyEmptyBagIsSilent(t *testing.T) {
	var sb strings.Builder
	diagfmt.Pretty(&sb, diag.NewBag(8), nil, diagfmt.PrettyOpts{})
	if sb.Len() != 0 {
		t.Fatalf("output:\n%q", sb.String())
	}
}
