// Package layout describes the ABI targets the generator can be pointed at
// and validates the record layouts the parser oracle reports. The oracle is
// the source of truth for sizes and offsets; this package only knows what a
// triple implies for the platform-dependent scalars and checks that reported
// layouts are internally consistent.
package layout

import "fmt"

// Target describes an ABI target triple and its platform-dependent widths.
type Target struct {
	Triple   string // e.g. "x86_64-unknown-linux-gnu"
	PtrSize  int
	PtrAlign int
	LongSize int // 4 on LLP64/ILP32, 8 on LP64
	BoolSize int // 1 everywhere we support
}

func X86_64LinuxGNU() Target {
	return Target{
		Triple:   "x86_64-unknown-linux-gnu",
		PtrSize:  8,
		PtrAlign: 8,
		LongSize: 8,
		BoolSize: 1,
	}
}

func AArch64Darwin() Target {
	return Target{
		Triple:   "aarch64-apple-darwin",
		PtrSize:  8,
		PtrAlign: 8,
		LongSize: 8,
		BoolSize: 1,
	}
}

func X86_64WindowsMSVC() Target {
	return Target{
		Triple:   "x86_64-pc-windows-msvc",
		PtrSize:  8,
		PtrAlign: 8,
		LongSize: 4,
		BoolSize: 1,
	}
}

func I686LinuxGNU() Target {
	return Target{
		Triple:   "i686-unknown-linux-gnu",
		PtrSize:  4,
		PtrAlign: 4,
		LongSize: 4,
		BoolSize: 1,
	}
}

var knownTargets = []Target{
	X86_64LinuxGNU(),
	AArch64Darwin(),
	X86_64WindowsMSVC(),
	I686LinuxGNU(),
}

// ByTriple resolves a triple string to a known target.
func ByTriple(triple string) (Target, error) {
	for _, t := range knownTargets {
		if t.Triple == triple {
			return t, nil
		}
	}
	return Target{}, fmt.Errorf("layout: unsupported target triple %q", triple)
}

// Triples lists the supported triples in a stable order.
func Triples() []string {
	out := make([]string, len(knownTargets))
	for i, t := range knownTargets {
		out[i] = t.Triple
	}
	return out
}
