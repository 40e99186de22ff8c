package diagfmt

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"bindc/internal/diag"
	"bindc/internal/source"
)

// Pretty renders diagnostics for humans, one block per entry:
//
//	<path>:<line>:<col>: <SEV> <ID> <Subject>: <Message>
//	    <source line>
//	    ^
//
// The caller is expected to have sorted the bag. Color is applied per
// severity when enabled.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	for _, d := range bag.Items() {
		writeOne(w, d, fs, opts)
	}
	if n := bag.Len(); n > 0 {
		fmt.Fprintf(w, "%d diagnostic(s)\n", n)
	}
}

func writeOne(w io.Writer, d diag.Diagnostic, fs *source.FileSet, opts PrettyOpts) {
	fmt.Fprintf(w, "%s: %s %s %s: %s\n",
		formatLoc(d.Primary, fs, opts.PathMode),
		severityText(d.Severity, opts.Color),
		d.Code.ID(), d.Subject, d.Message)

	if opts.ShowPreview {
		writePreview(w, d.Primary, fs)
	}
	if opts.ShowNotes {
		for _, n := range d.Notes {
			fmt.Fprintf(w, "  note: %s: %s\n", formatLoc(n.Loc, fs, opts.PathMode), n.Msg)
		}
	}
}

// writePreview prints the offending line with a caret under the column.
// Wide runes before the caret are measured so it lands where the user looks.
func writePreview(w io.Writer, loc source.Loc, fs *source.FileSet) {
	if fs == nil || !loc.Known() {
		return
	}
	line, ok := fs.LineContent(loc.File, loc.Line)
	if !ok || len(line) == 0 {
		return
	}
	text := strings.ReplaceAll(string(line), "\t", "    ")
	fmt.Fprintf(w, "    %s\n", text)

	col := int(loc.Col)
	if col < 1 {
		col = 1
	}
	prefix := string(line)
	if col-1 < len(prefix) {
		prefix = prefix[:col-1]
	}
	prefix = strings.ReplaceAll(prefix, "\t", "    ")
	fmt.Fprintf(w, "    %s^\n", strings.Repeat(" ", runewidth.StringWidth(prefix)))
}

func formatLoc(loc source.Loc, fs *source.FileSet, mode PathMode) string {
	if fs == nil || !loc.Known() {
		return "<unknown>"
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
	return fmt.Sprintf("%s:%d:%d", path, loc.Line, loc.Col)
}

func severityText(sev diag.Severity, colored bool) string {
	text := sev.String()
	if !colored {
		return text
	}
	switch sev {
	case diag.SevError:
		return color.New(color.FgRed, color.Bold).Sprint(text)
	case diag.SevWarning:
		return color.New(color.FgYellow).Sprint(text)
	default:
		return color.New(color.FgCyan).Sprint(text)
	}
}
