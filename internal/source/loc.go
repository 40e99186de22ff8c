package source

import "fmt"

// Loc is a position reported by the parser oracle: file plus 1-based
// line/column. Every diagnostic carries one. The zero Loc means "no
// location" (synthetic entities, config-level diagnostics).
type Loc struct {
	File FileID
	Line uint32
	Col  uint32
}

// Known reports whether the location points at an actual file position.
func (l Loc) Known() bool {
	return l.Line != 0
}

func (l Loc) String() string {
	return fmt.Sprintf("%d:%d:%d", l.File, l.Line, l.Col)
}

// Before orders locations within one FileSet: by file, then line, then col.
func (l Loc) Before(other Loc) bool {
	if l.File != other.File {
		return l.File < other.File
	}
	if l.Line != other.Line {
		return l.Line < other.Line
	}
	return l.Col < other.Col
}
