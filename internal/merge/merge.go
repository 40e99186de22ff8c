// Package merge folds the per-target surfaces of a multi-triple run into one.
// Nodes are matched by (kind, name) and compared bit-exactly through their
// msgpack encoding; what every target agrees on is emitted once. Divergent
// structs either fail the run or are duplicated with a platform tag,
// depending on the configured strategy. Divergence in any other node kind is
// always an error: the emitter has no per-platform form for it.
package merge

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"bindc/internal/diag"
	"bindc/internal/source"
	"bindc/internal/tas"
)

// Strategy selects what happens when targets disagree on a struct layout.
type Strategy string

const (
	// StrategyError aborts the run on any layout divergence.
	StrategyError Strategy = "error"
	// StrategyPerPlatform emits one platform-tagged copy per divergent target.
	StrategyPerPlatform Strategy = "per_platform"
)

// ParseStrategy validates a configuration string.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyError, StrategyPerPlatform:
		return Strategy(s), nil
	case "":
		return StrategyError, nil
	}
	return "", fmt.Errorf("merge: unknown strategy %q (want %q or %q)", s, StrategyError, StrategyPerPlatform)
}

// Surfaces merges one surface per target triple. With a single input the
// input is returned unchanged.
func Surfaces(surfaces []*tas.Surface, reporter diag.Reporter, strategy Strategy) (*tas.Surface, error) {
	if len(surfaces) == 0 {
		return nil, fmt.Errorf("merge: no surfaces")
	}
	if len(surfaces) == 1 {
		return surfaces[0], nil
	}

	m := &merger{surfaces: surfaces, reporter: reporter, strategy: strategy}
	return m.run()
}

type merger struct {
	surfaces []*tas.Surface
	reporter diag.Reporter
	strategy Strategy
	diverged bool
}

func (m *merger) run() (*tas.Surface, error) {
	first := m.surfaces[0]
	triples := make([]string, len(m.surfaces))
	for i, s := range m.surfaces {
		triples[i] = s.Triple
	}
	out := tas.New(first.Header, strings.Join(triples, ";"))
	out.ClassName = first.ClassName
	out.LibraryName = first.LibraryName

	m.mergeStructs(out)
	mergeKind(m, "function",
		func(s *tas.Surface) []*tas.Function { return s.Functions },
		func(n *tas.Function) string { return n.Name },
		func(n *tas.Function) { out.Functions = append(out.Functions, n) })
	mergeKind(m, "function pointer",
		func(s *tas.Surface) []*tas.FunctionPointer { return s.FunctionPointers },
		func(n *tas.FunctionPointer) string { return n.Name },
		func(n *tas.FunctionPointer) { out.FunctionPointers = append(out.FunctionPointers, n) })
	mergeKind(m, "opaque type",
		func(s *tas.Surface) []*tas.OpaqueType { return s.OpaqueTypes },
		func(n *tas.OpaqueType) string { return n.Name },
		func(n *tas.OpaqueType) { out.OpaqueTypes = append(out.OpaqueTypes, n) })
	mergeKind(m, "typedef",
		func(s *tas.Surface) []*tas.Typedef { return s.Typedefs },
		func(n *tas.Typedef) string { return n.Name },
		func(n *tas.Typedef) { out.Typedefs = append(out.Typedefs, n) })
	mergeKind(m, "enum",
		func(s *tas.Surface) []*tas.Enum { return s.Enums },
		func(n *tas.Enum) string { return n.Name },
		func(n *tas.Enum) { out.Enums = append(out.Enums, n) })
	mergeKind(m, "variable",
		func(s *tas.Surface) []*tas.Variable { return s.Variables },
		func(n *tas.Variable) string { return n.Name },
		func(n *tas.Variable) { out.Variables = append(out.Variables, n) })
	mergeKind(m, "macro",
		func(s *tas.Surface) []*tas.MacroObject { return s.Macros },
		func(n *tas.MacroObject) string { return n.Name },
		func(n *tas.MacroObject) { out.Macros = append(out.Macros, n) })

	m.mergeTypeTable(out)

	if m.diverged {
		return out, fmt.Errorf("merge: targets disagree on the surface")
	}
	return out, nil
}

// mergeKind folds one node kind across all surfaces. Nodes present and
// identical everywhere are kept once; anything else is a divergence.
func mergeKind[N any](m *merger, kind string, list func(*tas.Surface) []*N, name func(*N) string, keep func(*N)) {
	for _, n := range orderedNames(m.surfaces, list, name) {
		variants := collect(m.surfaces, list, name, n)
		if agreeing, ok := allEqual(variants); ok {
			keep(agreeing)
			continue
		}
		m.report(kind, n)
	}
}

func (m *merger) mergeStructs(out *tas.Surface) {
	list := func(s *tas.Surface) []*tas.Struct { return s.Structs }
	name := func(n *tas.Struct) string { return n.Name }
	for _, n := range orderedNames(m.surfaces, list, name) {
		variants := collect(m.surfaces, list, name, n)
		if agreeing, ok := allEqual(variants); ok {
			out.Structs = append(out.Structs, agreeing)
			continue
		}
		if m.strategy == StrategyPerPlatform {
			for i, v := range variants {
				if v == nil {
					continue
				}
				tagged := *v
				tagged.Platform = m.surfaces[i].Triple
				out.Structs = append(out.Structs, &tagged)
			}
			diag.Info(m.reporter, diag.MergePlatformNodes, n, source.Loc{},
				"struct layout differs per target; emitted once per platform")
			continue
		}
		m.report("struct", n)
	}
}

// mergeTypeTable unions the type tables. Where targets disagree on an entry
// (a long-derived width, a divergent struct size) the first target's entry
// stands in; sizing of per-platform structs rides on the node itself.
func (m *merger) mergeTypeTable(out *tas.Surface) {
	for _, s := range m.surfaces {
		for _, t := range s.Types {
			out.AddType(t)
		}
	}
}

func (m *merger) report(kind, name string) {
	diag.Error(m.reporter, diag.MergePlatformNodes, name, source.Loc{},
		fmt.Sprintf("%s %q differs between targets and cannot be merged", kind, name))
	m.diverged = true
}

func orderedNames[N any](surfaces []*tas.Surface, list func(*tas.Surface) []*N, name func(*N) string) []string {
	var names []string
	seen := map[string]bool{}
	for _, s := range surfaces {
		for _, n := range list(s) {
			if !seen[name(n)] {
				seen[name(n)] = true
				names = append(names, name(n))
			}
		}
	}
	return names
}

func collect[N any](surfaces []*tas.Surface, list func(*tas.Surface) []*N, name func(*N) string, want string) []*N {
	out := make([]*N, len(surfaces))
	for i, s := range surfaces {
		for _, n := range list(s) {
			if name(n) == want {
				out[i] = n
				break
			}
		}
	}
	return out
}

// allEqual reports whether a node is present in every surface with a
// bit-identical encoding.
func allEqual[N any](variants []*N) (*N, bool) {
	var ref []byte
	for _, v := range variants {
		if v == nil {
			return nil, false
		}
		enc, err := msgpack.Marshal(v)
		if err != nil {
			return nil, false
		}
		if ref == nil {
			ref = enc
			continue
		}
		if !bytes.Equal(ref, enc) {
			return nil, false
		}
	}
	return variants[0], true
}
