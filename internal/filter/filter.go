package filter

import (
	"errors"
	"sort"
	"strings"

	"github.com/hurttlocker/issuelens/internal/issues"
	"golang.org/x/text/cases"
)

// predicate decides whether a record survives one filter step.
type predicate func(issues.Record) (bool, error)

type step struct {
	name string
	keep predicate
}

// Apply narrows table by every predicate in c, in the order search, date,
// status, cluster, where. The result is a new table; table is not modified.
func Apply(table *issues.Table, c Criteria) (*issues.Table, error) {
	return run(table, c, true)
}

// ApplyExceptCluster applies every predicate in c except the cluster step.
// This is the table the dashboard's global charts are computed on.
func ApplyExceptCluster(table *issues.Table, c Criteria) (*issues.Table, error) {
	return run(table, c, false)
}

func run(table *issues.Table, c Criteria, withCluster bool) (*issues.Table, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	steps, err := c.steps(table, withCluster)
	if err != nil {
		return nil, err
	}

	records := table.Records
	for _, s := range steps {
		records, err = keep(records, s.keep)
		if err != nil {
			var fe *FilterError
			if errors.As(err, &fe) {
				return nil, fe
			}
			return nil, &FilterError{Field: s.name, Reason: err.Error()}
		}
	}
	if len(steps) == 0 {
		return table.Clone(), nil
	}
	return table.WithRecords(records), nil
}

func (c Criteria) steps(table *issues.Table, withCluster bool) ([]step, error) {
	var steps []step

	if strings.TrimSpace(c.SearchText) != "" {
		steps = append(steps, step{name: "search", keep: searchPredicate(c.SearchText)})
	}
	if c.DateRange != nil && table.HasCreated {
		r := *c.DateRange
		steps = append(steps, step{name: "date", keep: func(rec issues.Record) (bool, error) {
			return rec.Created != nil && r.Contains(*rec.Created), nil
		}})
	}
	if c.Statuses != nil {
		allowed := make(map[string]struct{}, len(c.Statuses))
		for _, s := range c.Statuses {
			allowed[s] = struct{}{}
		}
		steps = append(steps, step{name: "status", keep: func(rec issues.Record) (bool, error) {
			_, ok := allowed[rec.Status]
			return ok, nil
		}})
	}
	if withCluster && c.Cluster != nil {
		id := *c.Cluster
		steps = append(steps, step{name: "cluster", keep: func(rec issues.Record) (bool, error) {
			return rec.Cluster == id, nil
		}})
	}
	if strings.TrimSpace(c.Where) != "" {
		prog, err := compileWhere(c.Where)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step{name: "where", keep: prog.match})
	}
	return steps, nil
}

// searchPredicate matches text against summary or tag with Unicode case
// folding. A missing field never matches but does not veto the other field.
func searchPredicate(text string) predicate {
	folder := cases.Fold()
	needle := folder.String(text)
	contains := func(field string) bool {
		return field != "" && strings.Contains(folder.String(field), needle)
	}
	return func(rec issues.Record) (bool, error) {
		return contains(rec.Summary) || contains(rec.Tag), nil
	}
}

func keep(records []issues.Record, p predicate) ([]issues.Record, error) {
	out := make([]issues.Record, 0, len(records))
	for _, rec := range records {
		ok, err := p(rec)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Choices lists the values a caller can pick from for the status and cluster
// selectors.
type Choices struct {
	Statuses []string `json:"statuses"`
	Clusters []int    `json:"clusters"`
}

// Options returns the distinct non-empty statuses and the distinct clusters of
// table, both sorted.
func Options(table *issues.Table) Choices {
	statuses := map[string]struct{}{}
	clusters := map[int]struct{}{}
	for _, rec := range table.Records {
		if rec.Status != "" {
			statuses[rec.Status] = struct{}{}
		}
		clusters[rec.Cluster] = struct{}{}
	}

	out := Choices{
		Statuses: make([]string, 0, len(statuses)),
		Clusters: make([]int, 0, len(clusters)),
	}
	for s := range statuses {
		out.Statuses = append(out.Statuses, s)
	}
	for c := range clusters {
		out.Clusters = append(out.Clusters, c)
	}
	sort.Strings(out.Statuses)
	sort.Ints(out.Clusters)
	return out
}
