package diag

import (
	"fmt"
	"sort"
	"strings"

	"bindc/internal/source"
)

// FormatGolden renders diagnostics into a stable single-line-per-entry
// representation suitable for golden comparisons in tests:
//
//	<path>:<line>:<col>: <SEV> <ID> <Subject>: <Message>
//
// Entries are sorted deterministically; the result is "" when empty.
func FormatGolden(diags []Diagnostic, fs *source.FileSet) string {
	if len(diags) == 0 {
		return ""
	}
	lines := make([]string, 0, len(diags))
	for _, d := range diags {
		path := ""
		if fs != nil {
			path = fs.RelPathOf(d.Primary.File)
		}
		lines = append(lines, fmt.Sprintf("%s:%d:%d: %s %s %s: %s",
			path, d.Primary.Line, d.Primary.Col,
			d.Severity, d.Code.ID(), d.Subject, d.Message))
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}
