// Package issues loads annotated issue-tracker exports into in-memory tables.
//
// A source file (spreadsheet, CSV/TSV, JSON or YAML) carries one issue per row
// with at least the columns in RequiredColumns. Each row becomes a Record;
// columns the package does not interpret are kept in Record.Extra so that an
// export reproduces the source row.
//
// Tables are never mutated after Load returns. Filtering produces new tables
// that share the schema of their source.
package issues

import (
	"strings"
	"time"
)

// Column names expected in the source file.
const (
	ColumnKey     = "Issue key"
	ColumnSummary = "Summary"
	ColumnTag     = "Suggested Tag"
	ColumnStatus  = "Status"
	ColumnCluster = "Cluster"
	ColumnCreated = "Created"
)

// RequiredColumns must be present in every source file.
var RequiredColumns = []string{ColumnKey, ColumnSummary, ColumnTag, ColumnStatus, ColumnCluster}

// Record is one issue row. Empty strings stand for missing values.
type Record struct {
	Key     string
	Summary string
	Tag     string
	Status  string
	Cluster int
	Created *time.Time // nil when absent or unparseable

	// Extra holds the remaining source columns keyed by column name.
	// Shared between a table and the tables derived from it; treat as read-only.
	Extra map[string]string
}

// Table is an ordered collection of records sharing one schema.
type Table struct {
	Source     string   // absolute path of the file the table was read from
	Columns    []string // schema order, as in the source header
	HasCreated bool     // the source carried a Created column
	Records    []Record
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// WithRecords returns a table with t's schema and the given records.
func (t *Table) WithRecords(records []Record) *Table {
	return &Table{
		Source:     t.Source,
		Columns:    t.Columns,
		HasCreated: t.HasCreated,
		Records:    records,
	}
}

// Clone returns a table with its own copy of the record slice.
func (t *Table) Clone() *Table {
	out := make([]Record, len(t.Records))
	copy(out, t.Records)
	return t.WithRecords(out)
}

// Cell returns the textual value of column for r, formatted the way exports
// write it.
func (t *Table) Cell(r Record, column string) string {
	switch column {
	case ColumnKey:
		return r.Key
	case ColumnSummary:
		return r.Summary
	case ColumnTag:
		return r.Tag
	case ColumnStatus:
		return r.Status
	case ColumnCluster:
		return formatCluster(r.Cluster)
	case ColumnCreated:
		return FormatCreated(r.Created)
	}
	return r.Extra[column]
}

// FormatCreated renders a creation timestamp as RFC 3339, or "" when absent.
func FormatCreated(ts *time.Time) string {
	if ts == nil {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}

// canonicalColumn maps a header cell to the package's column name when it names
// one of the interpreted columns, matching case-insensitively.
func canonicalColumn(header string) string {
	h := strings.TrimSpace(header)
	for _, c := range []string{ColumnKey, ColumnSummary, ColumnTag, ColumnStatus, ColumnCluster, ColumnCreated} {
		if strings.EqualFold(h, c) {
			return c
		}
	}
	return h
}
