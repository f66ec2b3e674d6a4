package aggregate

import (
	"sort"

	"github.com/hurttlocker/issuelens/internal/issues"
)

// CrossTab is a cluster x tag count matrix. Rows follow Clusters, columns
// follow Tags, both sorted ascending.
type CrossTab struct {
	Clusters []int    `json:"clusters"`
	Tags     []string `json:"tags"`
	Counts   [][]int  `json:"counts"`

	rowIndex map[int]int
	colIndex map[string]int
}

// CrossTabulate counts records per (cluster, tag) pair. Records without a tag
// fall under the empty tag.
func CrossTabulate(table *issues.Table) *CrossTab {
	clusterSet := map[int]struct{}{}
	tagSet := map[string]struct{}{}
	for _, rec := range table.Records {
		clusterSet[rec.Cluster] = struct{}{}
		tagSet[rec.Tag] = struct{}{}
	}

	ct := &CrossTab{
		Clusters: make([]int, 0, len(clusterSet)),
		Tags:     make([]string, 0, len(tagSet)),
	}
	for c := range clusterSet {
		ct.Clusters = append(ct.Clusters, c)
	}
	for tag := range tagSet {
		ct.Tags = append(ct.Tags, tag)
	}
	sort.Ints(ct.Clusters)
	sort.Strings(ct.Tags)
	ct.index()

	ct.Counts = make([][]int, len(ct.Clusters))
	for i := range ct.Counts {
		ct.Counts[i] = make([]int, len(ct.Tags))
	}
	for _, rec := range table.Records {
		ct.Counts[ct.rowIndex[rec.Cluster]][ct.colIndex[rec.Tag]]++
	}
	return ct
}

func (ct *CrossTab) index() {
	ct.rowIndex = make(map[int]int, len(ct.Clusters))
	for i, c := range ct.Clusters {
		ct.rowIndex[c] = i
	}
	ct.colIndex = make(map[string]int, len(ct.Tags))
	for i, tag := range ct.Tags {
		ct.colIndex[tag] = i
	}
}

// Count returns the number of records in cluster with tag; 0 for any pair not
// present in the table.
func (ct *CrossTab) Count(cluster int, tag string) int {
	if ct.rowIndex == nil {
		ct.index()
	}
	i, ok := ct.rowIndex[cluster]
	if !ok {
		return 0
	}
	j, ok := ct.colIndex[tag]
	if !ok {
		return 0
	}
	return ct.Counts[i][j]
}

// Total returns the sum of all cells.
func (ct *CrossTab) Total() int {
	n := 0
	for _, row := range ct.Counts {
		for _, v := range row {
			n += v
		}
	}
	return n
}

// Max returns the largest cell value, or 0.
func (ct *CrossTab) Max() int {
	m := 0
	for _, row := range ct.Counts {
		for _, v := range row {
			if v > m {
				m = v
			}
		}
	}
	return m
}

// Empty reports whether the matrix has no cells.
func (ct *CrossTab) Empty() bool {
	return len(ct.Clusters) == 0 || len(ct.Tags) == 0
}
