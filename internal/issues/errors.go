package issues

import (
	"fmt"
	"strings"
)

// LoadError reports a source file that could not be turned into a Table:
// missing or unreadable file, unparseable content, absent required columns or
// an invalid cell.
type LoadError struct {
	Path    string
	Missing []string // required columns absent from the header
	Row     int      // 1-indexed source row of an invalid cell, 0 if not row-specific
	Err     error
}

func (e *LoadError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "loading %s", e.Path)
	if len(e.Missing) > 0 {
		fmt.Fprintf(&sb, ": missing required columns %s", strings.Join(quoteAll(e.Missing), ", "))
	}
	if e.Row > 0 {
		fmt.Fprintf(&sb, ": row %d", e.Row)
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

func (e *LoadError) Unwrap() error { return e.Err }

func quoteAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fmt.Sprintf("%q", v)
	}
	return out
}
