package diag

import (
	"bindc/internal/source"
)

// Note attaches a secondary location and message to a diagnostic.
type Note struct {
	Loc source.Loc
	Msg string
}

// Diagnostic is one structured report: severity, typed code, the offending
// entity name, a primary location and optional notes.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Subject  string // name of the offending declaration or type
	Message  string
	Primary  source.Loc
	Notes    []Note
}

// New constructs a diagnostic without notes.
func New(sev Severity, code Code, subject string, primary source.Loc, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Subject:  subject,
		Primary:  primary,
		Message:  msg,
	}
}

// WithNote returns a copy with an extra note appended.
func (d Diagnostic) WithNote(loc source.Loc, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Loc: loc, Msg: msg})
	return d
}
