package diagfmt

import (
	"encoding/json"
	"io"
	"path/filepath"

	"bindc/internal/diag"
	"bindc/internal/source"
)

// LocationJSON is a file position in JSON output.
type LocationJSON struct {
	File string `json:"file"`
	Line uint32 `json:"line,omitempty"`
	Col  uint32 `json:"col,omitempty"`
}

// NoteJSON is a secondary note in JSON output.
type NoteJSON struct {
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
}

// DiagnosticJSON is one diagnostic in JSON output.
type DiagnosticJSON struct {
	Severity string       `json:"severity"`
	Code     string       `json:"code"`
	Subject  string       `json:"subject"`
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
	Notes    []NoteJSON   `json:"notes,omitempty"`
}

// DiagnosticsOutput is the root of the JSON document.
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
}

// JSON writes the bag as a single JSON document.
func JSON(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts JSONOpts) error {
	items := bag.Items()
	total := len(items)
	if opts.Max > 0 && total > opts.Max {
		items = items[:opts.Max]
	}

	out := DiagnosticsOutput{
		Diagnostics: make([]DiagnosticJSON, 0, len(items)),
		Count:       total,
	}
	for _, d := range items {
		entry := DiagnosticJSON{
			Severity: d.Severity.String(),
			Code:     d.Code.ID(),
			Subject:  d.Subject,
			Message:  d.Message,
			Location: makeLocation(d.Primary, fs, opts.PathMode),
		}
		if opts.IncludeNotes {
			for _, n := range d.Notes {
				entry.Notes = append(entry.Notes, NoteJSON{
					Message:  n.Msg,
					Location: makeLocation(n.Loc, fs, opts.PathMode),
				})
			}
		}
		out.Diagnostics = append(out.Diagnostics, entry)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func makeLocation(loc source.Loc, fs *source.FileSet, mode PathMode) LocationJSON {
	if fs == nil || !loc.Known() {
		return LocationJSON{}
	}
	var path string
	switch mode {
	case PathModeAbsolute:
		path = fs.PathOf(loc.File)
	case PathModeBasename:
		path = filepath.Base(fs.PathOf(loc.File))
	default:
		path = fs.RelPathOf(loc.File)
	}
	return LocationJSON{File: path, Line: loc.Line, Col: loc.Col}
}
