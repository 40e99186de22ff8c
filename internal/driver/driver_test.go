package driver_test

import (
	"context"
	"crypto/sha256"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"bindc/internal/diag"
	"bindc/internal/driver"
	"bindc/internal/memtu"
	"bindc/internal/tas"
)

func demoUnits(t *testing.T, digest [32]byte) []driver.Unit {
	t.Helper()
	build := func(w memtu.Widths) *memtu.Builder {
		b := memtu.NewBuilder("demo.h", w)
		b.Struct("Point", b.F("x", b.Int), b.F("y", b.Int))
		b.Function("point_make", b.Void, false, b.P("x", b.Int), b.P("y", b.Int))
		b.Macro("VERSION", "7")
		return b
	}
	return []driver.Unit{
		{Triple: "x86_64-unknown-linux-gnu", TU: build(memtu.LP64()).Unit(), Digest: digest},
		{Triple: "x86_64-pc-windows-msvc", TU: build(memtu.LLP64()).Unit(), Digest: digest},
	}
}

type eventLog struct {
	mu     sync.Mutex
	events []driver.Event
}

func (l *eventLog) record(ev driver.Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) count(triple string, stage driver.Stage) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, ev := range l.events {
		if ev.Triple == triple && ev.Stage == stage {
			n++
		}
	}
	return n
}

func TestGenerateEndToEnd(t *testing.T) {
	log := &eventLog{}
	req := driver.Request{
		Header:      "demo.h",
		Units:       demoUnits(t, [32]byte{}),
		PackageName: "demo",
		OnEvent:     log.record,
	}
	res, err := driver.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.HasErrors() {
		t.Fatal("unexpected errors in result")
	}
	if len(res.Runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(res.Runs))
	}
	out := string(res.Output)
	if !strings.Contains(out, "package demo") || !strings.Contains(out, "func PointMake(") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	for _, triple := range []string{"x86_64-unknown-linux-gnu", "x86_64-pc-windows-msvc"} {
		if log.count(triple, driver.StageDone) != 1 {
			t.Fatalf("missing done event for %s", triple)
		}
	}
	if log.count("", driver.StageMerge) != 1 || log.count("", driver.StageEmit) != 1 {
		t.Fatal("missing merge/emit events")
	}
}

func TestGenerateUsesCacheOnSecondRun(t *testing.T) {
	cache, err := driver.OpenCacheAt(t.TempDir())
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	digest := sha256.Sum256([]byte("demo-unit-v1"))

	run := func() *eventLog {
		log := &eventLog{}
		req := driver.Request{
			Header:  "demo.h",
			Units:   demoUnits(t, digest),
			Cache:   cache,
			OnEvent: log.record,
		}
		res, err := driver.Generate(context.Background(), req)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if res.HasErrors() {
			t.Fatal("unexpected errors in result")
		}
		if len(res.Output) == 0 {
			t.Fatal("no output generated")
		}
		return log
	}

	first := run()
	if first.count("x86_64-unknown-linux-gnu", driver.StageCached) != 0 {
		t.Fatal("first run should not hit the cache")
	}
	second := run()
	for _, triple := range []string{"x86_64-unknown-linux-gnu", "x86_64-pc-windows-msvc"} {
		if second.count(triple, driver.StageCached) != 1 {
			t.Fatalf("second run should be cached for %s", triple)
		}
		if second.count(triple, driver.StageExplore) != 0 {
			t.Fatalf("second run should not explore %s again", triple)
		}
	}
}

func TestGenerateStopsBeforeMergeOnError(t *testing.T) {
	b := memtu.NewBuilder("bad.h", memtu.LP64())
	b.Function("area", b.LongDouble, false)
	log := &eventLog{}
	req := driver.Request{
		Header: "bad.h",
		Units: []driver.Unit{
			{Triple: "x86_64-unknown-linux-gnu", TU: b.Unit()},
		},
		OnEvent: log.record,
	}
	res, err := driver.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("infrastructure error: %v", err)
	}
	if !res.HasErrors() {
		t.Fatal("expected surface errors")
	}
	if res.Output != nil {
		t.Fatal("no output should be emitted after a failed run")
	}
	if log.count("x86_64-unknown-linux-gnu", driver.StageFailed) != 1 {
		t.Fatal("missing failed event")
	}
	if log.count("", driver.StageMerge) != 0 {
		t.Fatal("merge must not run after a failed target")
	}
}

func TestGenerateCollectsTimings(t *testing.T) {
	req := driver.Request{
		Header:         "demo.h",
		Units:          demoUnits(t, [32]byte{}),
		CollectTimings: true,
	}
	res, err := driver.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.HasErrors() {
		t.Fatal("unexpected errors in result")
	}
	for _, run := range res.Runs {
		if run.Bag.CountCode(diag.ObsTimings) != 1 {
			t.Fatalf("run %s has no timing entry", run.Triple)
		}
	}
	if res.MergeBag.CountCode(diag.ObsTimings) != 1 {
		t.Fatal("merge bag has no timing entry")
	}
}

func TestCacheRoundTripAndCorruption(t *testing.T) {
	dir := t.TempDir()
	cache, err := driver.OpenCacheAt(dir)
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	key := sha256.Sum256([]byte("key"))

	if got, err := cache.Load(key); err != nil || got != nil {
		t.Fatalf("empty cache load = %v, %v", got, err)
	}

	sur := tas.New("demo.h", "x86_64-unknown-linux-gnu")
	if err := cache.Store(key, sur); err != nil {
		t.Fatalf("store: %v", err)
	}
	got, err := cache.Load(key)
	if err != nil || got == nil || got.Triple != sur.Triple {
		t.Fatalf("load = %+v, %v", got, err)
	}

	entries, err := filepath.Glob(filepath.Join(dir, "*.bin"))
	if err != nil || len(entries) != 1 {
		t.Fatalf("cache entries = %v, %v", entries, err)
	}
	if err := os.WriteFile(entries[0], []byte("not msgpack"), 0o644); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	if _, err := cache.Load(key); err == nil {
		t.Fatal("corrupt entry should surface an error")
	}
	// The corrupt entry is dropped; the next load is a clean miss.
	if got, err := cache.Load(key); err != nil || got != nil {
		t.Fatalf("post-corruption load = %v, %v", got, err)
	}
}
