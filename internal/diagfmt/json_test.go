package diagfmt_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"bindc/internal/diag"
	"bindc/internal/diagfmt"
	"bindc/internal/source"
)

func TestJSONDocument(t *testing.T) {
	fs, id := demoFileSet()
	bag := diag.NewBag(8)
	d := diag.New(diag.SevError, diag.UnsupportedType, "ld",
		source.Loc{File: id, Line: 1, Col: 9}, "long double is not supported")
	d = d.WithNote(source.Loc{File: id, Line: 2, Col: 1}, "declared here")
	bag.Add(d)

	var buf bytes.Buffer
	if err := diagfmt.JSON(&buf, bag, fs, diagfmt.JSONOpts{IncludeNotes: true}); err != nil {
		t.Fatalf("encode: %v", err)
	}

	var out diagfmt.DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Count != 1 || len(out.Diagnostics) != 1 {
		t.Fatalf("document = %+v", out)
	}
	got := out.Diagnostics[0]
	if got.Severity != "ERROR" || got.Code != "BND2001" || got.Subject != "ld" {
		t.Fatalf("diagnostic = %+v", got)
	}
	if got.Location.File != "demo.h" || got.Location.Line != 1 || got.Location.Col != 9 {
		t.Fatalf("location = %+v", got.Location)
	}
	if len(got.Notes) != 1 || got.Notes[0].Message != "declared here" {
		t.Fatalf("notes = %+v", got.Notes)
	}
}

func TestJSONTruncationKeepsTotalCount(t *testing.T) {
	fs, id := demoFileSet()
	bag := diag.NewBag(8)
	for i := uint32(1); i <= 3; i++ {
		bag.Add(diag.New(diag.SevWarning, diag.MacroObjectNotTranspiled, "M",
			source.Loc{File: id, Line: i, Col: 1}, "not a single literal"))
	}

	var buf bytes.Buffer
	if err := diagfmt.JSON(&buf, bag, fs, diagfmt.JSONOpts{Max: 2}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	var out diagfmt.DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Count != 3 || len(out.Diagnostics) != 2 {
		t.Fatalf("count = %d, emitted = %d", out.Count, len(out.Diagnostics))
	}
	// Notes are omitted unless requested.
	if out.Diagnostics[0].Notes != nil {
		t.Fatalf("notes = %+v", out.Diagnostics[0].Notes)
	}
}
