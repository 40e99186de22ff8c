package driver

import (
	"encoding/json"
	"fmt"

	"bindc/internal/diag"
	"bindc/internal/observ"
	"bindc/internal/source"
)

type timingPayload struct {
	Triple  string               `json:"triple,omitempty"`
	TotalMS float64              `json:"total_ms"`
	Phases  []observ.PhaseReport `json:"phases"`
}

// appendTimingDiagnostic records a finished timer as an info diagnostic with
// the JSON report attached as a note. The entry is forced past the bag limit;
// a truncated bag must not silently drop requested timings.
func appendTimingDiagnostic(bag *diag.Bag, triple string, timer *observ.Timer) {
	if bag == nil || timer == nil {
		return
	}
	report := timer.Report()
	subject := triple
	if subject == "" {
		subject = "pipeline"
	}
	msg := fmt.Sprintf("timings: total %.2f ms", report.TotalMS)

	data, err := json.Marshal(timingPayload{Triple: triple, TotalMS: report.TotalMS, Phases: report.Phases})
	if err != nil {
		return
	}
	entry := diag.New(diag.SevInfo, diag.ObsTimings, subject, source.Loc{}, msg).
		WithNote(source.Loc{}, string(data))

	if bag.Add(entry) {
		return
	}
	overflow := diag.NewBag(bag.Len() + 1)
	overflow.Add(entry)
	bag.Merge(overflow)
}
