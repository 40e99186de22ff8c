// Package driver runs the full generation pipeline: one independent
// explore/map/map-target pass per target triple, fanned out over a worker
// group, followed by the merge post-pass and the emitter. Each per-target run
// owns its file set and diagnostic bag; nothing is shared between workers.
package driver

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"bindc/internal/cas"
	"bindc/internal/cmap"
	"bindc/internal/cursor"
	"bindc/internal/diag"
	"bindc/internal/emit"
	"bindc/internal/explorer"
	"bindc/internal/merge"
	"bindc/internal/observ"
	"bindc/internal/source"
	"bindc/internal/tas"
	"bindc/internal/tmap"
)

// Stage identifies a pipeline phase in progress events.
type Stage string

const (
	StageExplore   Stage = "explore"
	StageMapC      Stage = "map-c"
	StageMapTarget Stage = "map-target"
	StageCached    Stage = "cached"
	StageMerge     Stage = "merge"
	StageEmit      Stage = "emit"
	StageDone      Stage = "done"
	StageFailed    Stage = "failed"
)

// Event reports progress of one target. OnEvent is called from worker
// goroutines and must be safe for concurrent use.
type Event struct {
	Triple string
	Stage  Stage
}

// Unit is one translation unit to process: the oracle view of the input
// header parsed for one target triple. Digest identifies the input content
// for caching; a zero digest disables the cache for this unit.
type Unit struct {
	Triple string
	TU     cursor.Cursor
	Digest [32]byte
}

// Request describes one generation run.
type Request struct {
	Header          string
	Units           []Unit
	Aliases         []tmap.Alias
	IgnoredNames    []string
	ClassName       string
	LibraryName     string
	EmitSystemTypes bool
	MergeStrategy   merge.Strategy
	PackageName     string
	MaxDiagnostics  int
	CollectTimings  bool

	// IsUserFile filters discovery roots; nil accepts all non-system files.
	IsUserFile func(path string) bool

	Cache   *Cache
	OnEvent func(Event)
	Jobs    int
}

// TargetRun is the outcome of one per-triple pipeline instance.
type TargetRun struct {
	Triple string
	FS     *source.FileSet
	Bag    *diag.Bag
	CAS    *cas.Surface
	TAS    *tas.Surface
	Err    error
}

// Result is the outcome of a whole run. Merged and Output are set only when
// every target succeeded.
type Result struct {
	Runs     []*TargetRun
	Merged   *tas.Surface
	MergeBag *diag.Bag
	Output   []byte
}

// HasErrors reports whether any stage produced an error-severity diagnostic.
func (r *Result) HasErrors() bool {
	for _, run := range r.Runs {
		if run.Err != nil || run.Bag.HasErrors() {
			return true
		}
	}
	return r.MergeBag != nil && r.MergeBag.HasErrors()
}

// Generate runs the pipeline. The returned error covers infrastructure
// failures; surface-level problems land in the per-run bags and Result.
func Generate(ctx context.Context, req Request) (*Result, error) {
	if len(req.Units) == 0 {
		return nil, fmt.Errorf("driver: no target units")
	}
	jobs := req.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	res := &Result{Runs: make([]*TargetRun, len(req.Units))}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, unit := range req.Units {
		i, unit := i, unit
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res.Runs[i] = runTarget(req, unit)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	for _, run := range res.Runs {
		if run.Err != nil || run.Bag.HasErrors() {
			return res, nil
		}
	}

	var timer *observ.Timer
	if req.CollectTimings {
		timer = observ.NewTimer()
	}

	req.event(Event{Stage: StageMerge})
	res.MergeBag = diag.NewBag(req.maxDiagnostics())
	phase := timerBegin(timer, string(StageMerge))
	surfaces := make([]*tas.Surface, len(res.Runs))
	for i, run := range res.Runs {
		surfaces[i] = run.TAS
	}
	merged, err := merge.Surfaces(surfaces, diag.BagReporter{Bag: res.MergeBag}, req.MergeStrategy)
	timerEnd(timer, phase, fmt.Sprintf("%d surfaces", len(surfaces)))
	if err != nil {
		appendTimingDiagnostic(res.MergeBag, "", timer)
		return res, nil
	}
	res.Merged = merged

	req.event(Event{Stage: StageEmit})
	phase = timerBegin(timer, string(StageEmit))
	out, err := emit.File(merged, emit.Options{PackageName: req.PackageName})
	timerEnd(timer, phase, "")
	if err != nil {
		return res, fmt.Errorf("driver: emit: %w", err)
	}
	res.Output = out
	appendTimingDiagnostic(res.MergeBag, "", timer)
	req.event(Event{Stage: StageDone})
	return res, nil
}

func timerBegin(t *observ.Timer, name string) int {
	if t == nil {
		return -1
	}
	return t.Begin(name)
}

func timerEnd(t *observ.Timer, idx int, note string) {
	if t != nil {
		t.End(idx, note)
	}
}

func (req Request) event(e Event) {
	if req.OnEvent != nil {
		req.OnEvent(e)
	}
}

func (req Request) maxDiagnostics() int {
	if req.MaxDiagnostics == 0 {
		return 1000
	}
	return req.MaxDiagnostics
}

// runTarget is one full single-threaded pipeline instance.
func runTarget(req Request, unit Unit) *TargetRun {
	run := &TargetRun{
		Triple: unit.Triple,
		FS:     source.NewFileSet(),
		Bag:    diag.NewBag(req.maxDiagnostics()),
	}
	reporter := diag.BagReporter{Bag: run.Bag}
	key := cacheKey(unit, req)
	var timer *observ.Timer
	if req.CollectTimings {
		timer = observ.NewTimer()
	}

	if req.Cache != nil && unit.Digest != ([32]byte{}) {
		cached, err := req.Cache.Load(key)
		if err != nil {
			diag.Warning(reporter, diag.CacheCorrupt, unit.Triple, source.Loc{},
				"cached surface discarded: "+err.Error())
		} else if cached != nil {
			run.TAS = cached
			req.event(Event{Triple: unit.Triple, Stage: StageCached})
			return run
		}
	}

	req.event(Event{Triple: unit.Triple, Stage: StageExplore})
	phase := timerBegin(timer, string(StageExplore))
	disc, err := explorer.Explore(unit.TU, run.FS, reporter, explorer.Options{IsUserFile: req.IsUserFile})
	timerEnd(timer, phase, "")
	if err != nil {
		run.Err = err
		req.event(Event{Triple: unit.Triple, Stage: StageFailed})
		return run
	}

	req.event(Event{Triple: unit.Triple, Stage: StageMapC})
	phase = timerBegin(timer, string(StageMapC))
	sur, err := cmap.Map(disc, run.FS, reporter, req.Header, unit.Triple)
	timerEnd(timer, phase, "")
	run.CAS = sur
	if err != nil {
		run.Err = err
		req.event(Event{Triple: unit.Triple, Stage: StageFailed})
		return run
	}
	if err := sur.Validate(); err != nil {
		run.Err = fmt.Errorf("driver: invalid C surface for %s: %w", unit.Triple, err)
		req.event(Event{Triple: unit.Triple, Stage: StageFailed})
		return run
	}

	req.event(Event{Triple: unit.Triple, Stage: StageMapTarget})
	phase = timerBegin(timer, string(StageMapTarget))
	target, err := tmap.Map(sur, run.FS, reporter, tmap.Options{
		Aliases:         req.Aliases,
		IgnoredNames:    req.IgnoredNames,
		ClassName:       req.ClassName,
		LibraryName:     req.LibraryName,
		EmitSystemTypes: req.EmitSystemTypes,
	})
	timerEnd(timer, phase, "")
	if err != nil {
		run.Err = err
		req.event(Event{Triple: unit.Triple, Stage: StageFailed})
		return run
	}
	run.TAS = target

	run.Bag.Sort()

	// Only clean runs are cached; a hit must not hide diagnostics.
	if req.Cache != nil && unit.Digest != ([32]byte{}) && run.Bag.Len() == 0 {
		if err := req.Cache.Store(key, target); err != nil {
			diag.Warning(reporter, diag.CacheCorrupt, unit.Triple, source.Loc{},
				"cache write failed: "+err.Error())
		}
	}
	appendTimingDiagnostic(run.Bag, unit.Triple, timer)
	req.event(Event{Triple: unit.Triple, Stage: StageDone})
	return run
}
