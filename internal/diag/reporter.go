package diag

import "bindc/internal/source"

// Reporter is the minimal contract phases use to emit diagnostics.
// Implementations: BagReporter (appends to a Bag), NopReporter,
// DedupReporter (suppresses duplicates before forwarding).
type Reporter interface {
	Report(d Diagnostic)
}

// BagReporter writes every diagnostic into a *Bag.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(d Diagnostic) {
	if r.Bag == nil {
		return
	}
	r.Bag.Add(d)
}

// NopReporter drops everything. Useful for probing passes.
type NopReporter struct{}

func (NopReporter) Report(Diagnostic) {}

type dedupKey struct {
	code    Code
	sev     Severity
	subject string
	file    source.FileID
	line    uint32
	col     uint32
	msg     string
}

// DedupReporter wraps another Reporter and suppresses duplicate diagnostics
// with the same code, severity, subject, location and message.
type DedupReporter struct {
	next Reporter
	seen map[dedupKey]struct{}
}

// NewDedupReporter returns a Reporter that filters out duplicates while
// forwarding unique diagnostics to the provided reporter.
func NewDedupReporter(next Reporter) *DedupReporter {
	return &DedupReporter{
		next: next,
		seen: make(map[dedupKey]struct{}),
	}
}

func (r *DedupReporter) Report(d Diagnostic) {
	if r == nil {
		return
	}
	key := dedupKey{
		code:    d.Code,
		sev:     d.Severity,
		subject: d.Subject,
		file:    d.Primary.File,
		line:    d.Primary.Line,
		col:     d.Primary.Col,
		msg:     d.Message,
	}
	if _, ok := r.seen[key]; ok {
		return
	}
	r.seen[key] = struct{}{}
	if r.next != nil {
		r.next.Report(d)
	}
}

// Error is a shortcut to report a SevError diagnostic.
func Error(r Reporter, code Code, subject string, primary source.Loc, msg string) {
	if r != nil {
		r.Report(New(SevError, code, subject, primary, msg))
	}
}

// Warning is a shortcut to report a SevWarning diagnostic.
func Warning(r Reporter, code Code, subject string, primary source.Loc, msg string) {
	if r != nil {
		r.Report(New(SevWarning, code, subject, primary, msg))
	}
}

// Info is a shortcut to report a SevInfo diagnostic.
func Info(r Reporter, code Code, subject string, primary source.Loc, msg string) {
	if r != nil {
		r.Report(New(SevInfo, code, subject, primary, msg))
	}
}
