// Package aggregate computes the dashboard's summary statistics over an issue
// table: tag frequency, monthly creation trend, and the cluster x tag
// cross-tabulation. All functions are read-only and return empty results for an
// empty table.
package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hurttlocker/issuelens/internal/issues"
)

// Scope names the table the aggregations are computed on.
type Scope string

const (
	// ScopeFiltered uses every criterion except the cluster selection.
	ScopeFiltered Scope = "filtered"
	// ScopeCluster uses the fully filtered table.
	ScopeCluster Scope = "cluster"
	// ScopeSource uses the whole loaded table, ignoring all criteria.
	ScopeSource Scope = "source"
)

// DefaultScope matches the original dashboard: global charts next to a
// cluster-specific table.
const DefaultScope = ScopeFiltered

// ParseScope parses a scope name. Empty input yields DefaultScope.
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultScope, nil
	case ScopeFiltered:
		return ScopeFiltered, nil
	case ScopeCluster:
		return ScopeCluster, nil
	case ScopeSource:
		return ScopeSource, nil
	}
	return "", fmt.Errorf("unknown aggregate scope %q (want filtered, cluster or source)", s)
}

// TagCount is the number of records carrying one suggested tag.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Frequency is a tag histogram ordered by count descending, then tag.
type Frequency []TagCount

// Total returns the sum of all counts.
func (f Frequency) Total() int {
	n := 0
	for _, tc := range f {
		n += tc.Count
	}
	return n
}

// Map returns the histogram as a tag -> count mapping.
func (f Frequency) Map() map[string]int {
	out := make(map[string]int, len(f))
	for _, tc := range f {
		out[tc.Tag] = tc.Count
	}
	return out
}

// Max returns the largest count, or 0.
func (f Frequency) Max() int {
	if len(f) == 0 {
		return 0
	}
	return f[0].Count
}

// TagFrequency counts records per suggested tag. Records without a tag are
// counted under the empty tag, so the counts always sum to the table length.
func TagFrequency(table *issues.Table) Frequency {
	counts := map[string]int{}
	for _, rec := range table.Records {
		counts[rec.Tag]++
	}

	out := make(Frequency, 0, len(counts))
	for tag, n := range counts {
		out = append(out, TagCount{Tag: tag, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}

// MonthCount is the number of records created in one calendar month.
type MonthCount struct {
	Month string `json:"month"` // YYYY-MM
	Count int    `json:"count"`
}

// Trend is a monthly series in chronological order.
type Trend []MonthCount

// Max returns the largest monthly count, or 0.
func (t Trend) Max() int {
	m := 0
	for _, mc := range t {
		if mc.Count > m {
			m = mc.Count
		}
	}
	return m
}

// Map returns the series as a month -> count mapping.
func (t Trend) Map() map[string]int {
	out := make(map[string]int, len(t))
	for _, mc := range t {
		out[mc.Month] = mc.Count
	}
	return out
}

// MonthlyTrend counts records per creation month (UTC). Records without a
// creation timestamp are left out. Months with no records are not listed.
func MonthlyTrend(table *issues.Table) Trend {
	counts := map[string]int{}
	for _, rec := range table.Records {
		if rec.Created == nil {
			continue
		}
		counts[rec.Created.UTC().Format("2006-01")]++
	}

	out := make(Trend, 0, len(counts))
	for month, n := range counts {
		out = append(out, MonthCount{Month: month, Count: n})
	}
	// YYYY-MM sorts lexically in chronological order for years 0000-9999.
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}
