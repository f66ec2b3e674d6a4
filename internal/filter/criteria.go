// Package filter narrows issue tables by search text, creation date, status
// and cluster.
//
// Every step is an independent predicate over a single record, so the order in
// which Apply runs them does not change the result. Apply never mutates its
// input; it returns a new table sharing the input's schema.
package filter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DateRange is an inclusive interval of creation timestamps.
type DateRange struct {
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
}

// Contains reports whether ts lies within [Start, End].
func (r DateRange) Contains(ts time.Time) bool {
	return !ts.Before(r.Start) && !ts.After(r.End)
}

// DayRange builds a range covering whole calendar days, from the first instant
// of from to the last instant of to, in UTC.
func DayRange(from, to time.Time) DateRange {
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC).Add(24*time.Hour - time.Nanosecond)
	return DateRange{Start: start, End: end}
}

// ParseDayRange parses "YYYY-MM-DD" bounds. An empty bound is open: from
// defaults to the zero time and to to the far future.
func ParseDayRange(from, to string) (*DateRange, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" && to == "" {
		return nil, nil
	}
	start := time.Time{}
	end := time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	if from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return nil, &FilterError{Field: "date_range", Reason: fmt.Sprintf("invalid start date %q (want YYYY-MM-DD)", from)}
		}
		start = t
	}
	if to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return nil, &FilterError{Field: "date_range", Reason: fmt.Sprintf("invalid end date %q (want YYYY-MM-DD)", to)}
		}
		end = t
	}
	r := DayRange(start, end)
	if from == "" {
		r.Start = time.Time{}
	}
	return &r, nil
}

// Criteria is the set of narrowing predicates applied by Apply. The zero value
// narrows nothing.
type Criteria struct {
	// SearchText keeps records whose summary or suggested tag contains it,
	// case-insensitively. It is matched as typed, surrounding spaces
	// included; a whitespace-only value means no search.
	SearchText string `json:"search_text,omitempty" yaml:"search_text,omitempty"`

	// DateRange keeps records created within the range. Ignored when the
	// table has no Created column.
	DateRange *DateRange `json:"date_range,omitempty" yaml:"date_range,omitempty"`

	// Statuses keeps records whose status is listed. Nil means every status;
	// an empty non-nil slice keeps nothing.
	Statuses []string `json:"statuses" yaml:"statuses,omitempty"`

	// Cluster keeps records of one cluster. Nil means every cluster.
	Cluster *int `json:"cluster,omitempty" yaml:"cluster,omitempty"`

	// Where is an optional boolean expression over record fields.
	Where string `json:"where,omitempty" yaml:"where,omitempty"`
}

// DefaultCriteria returns criteria that keep every record.
func DefaultCriteria() Criteria {
	return Criteria{}
}

// WithCluster returns a copy of c narrowed to cluster id.
func (c Criteria) WithCluster(id int) Criteria {
	c.Cluster = &id
	return c
}

// WithoutCluster returns a copy of c with the cluster step disabled.
func (c Criteria) WithoutCluster() Criteria {
	c.Cluster = nil
	return c
}

// Validate rejects criteria that cannot be applied.
func (c Criteria) Validate() error {
	if c.DateRange != nil && c.DateRange.Start.After(c.DateRange.End) {
		return &FilterError{
			Field: "date_range",
			Reason: fmt.Sprintf("start %s is after end %s",
				c.DateRange.Start.Format("2006-01-02"), c.DateRange.End.Format("2006-01-02")),
		}
	}
	if strings.TrimSpace(c.Where) != "" {
		if _, err := compileWhere(c.Where); err != nil {
			return err
		}
	}
	return nil
}

// Describe renders the active predicates for logs and headers.
func (c Criteria) Describe() string {
	var parts []string
	if strings.TrimSpace(c.SearchText) != "" {
		parts = append(parts, fmt.Sprintf("search=%q", c.SearchText))
	}
	if c.DateRange != nil {
		parts = append(parts, fmt.Sprintf("created=%s..%s",
			c.DateRange.Start.Format("2006-01-02"), c.DateRange.End.Format("2006-01-02")))
	}
	if c.Statuses != nil {
		statuses := append([]string(nil), c.Statuses...)
		sort.Strings(statuses)
		parts = append(parts, fmt.Sprintf("status=[%s]", strings.Join(statuses, ",")))
	}
	if c.Cluster != nil {
		parts = append(parts, fmt.Sprintf("cluster=%d", *c.Cluster))
	}
	if w := strings.TrimSpace(c.Where); w != "" {
		parts = append(parts, fmt.Sprintf("where=%q", w))
	}
	if len(parts) == 0 {
		return "all issues"
	}
	return strings.Join(parts, " ")
}

// FilterError reports malformed criteria.
type FilterError struct {
	Field  string
	Reason string
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ParseCluster parses a cluster selector. Empty input and "all" select every
// cluster and yield nil.
func ParseCluster(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return nil, nil
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		return nil, &FilterError{Field: "cluster", Reason: fmt.Sprintf("invalid cluster %q (want an integer or \"all\")", s)}
	}
	return &id, nil
}
