// Package pipeline runs one dashboard pass: filter a loaded table, pick the
// aggregation scope, and compute the charts every front end renders.
package pipeline

import (
	"context"
	"fmt"

	"github.com/hurttlocker/issuelens/internal/aggregate"
	"github.com/hurttlocker/issuelens/internal/filter"
	"github.com/hurttlocker/issuelens/internal/issues"
	"go.uber.org/zap"
)

// Options configures a pass.
type Options struct {
	Scope aggregate.Scope

	// SelectFirstCluster picks the lowest available cluster when the criteria
	// leave the cluster unset, the way a single-select widget defaults.
	SelectFirstCluster bool

	// Clusters maps cluster ids to human descriptions.
	Clusters map[int]string
}

// View is the outcome of one pass.
type View struct {
	Criteria filter.Criteria `json:"criteria"`
	Scope    aggregate.Scope `json:"scope"`

	// Source is the loaded table. Filtered has every criterion applied except
	// the cluster; Clustered has all of them.
	Source    *issues.Table `json:"-"`
	Filtered  *issues.Table `json:"-"`
	Clustered *issues.Table `json:"-"`

	// Statuses lists the statuses selectable after search and date filtering;
	// Clusters lists the clusters selectable after status filtering.
	Statuses []string `json:"statuses"`
	Clusters []int    `json:"clusters"`

	Tags     aggregate.Frequency `json:"tags"`
	Trend    aggregate.Trend     `json:"trend"`
	CrossTab *aggregate.CrossTab `json:"crosstab"`

	ClusterDescriptions map[int]string `json:"cluster_descriptions,omitempty"`
}

// Aggregated returns the table the charts were computed on.
func (v *View) Aggregated() *issues.Table {
	switch v.Scope {
	case aggregate.ScopeCluster:
		return v.Clustered
	case aggregate.ScopeSource:
		return v.Source
	}
	return v.Filtered
}

// Run filters source by c and aggregates according to opts.
func Run(source *issues.Table, c filter.Criteria, opts Options) (*View, error) {
	if source == nil {
		return nil, fmt.Errorf("no issue table loaded")
	}
	if opts.Scope == "" {
		opts.Scope = aggregate.DefaultScope
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	// Status choices come from the table narrowed by search and date only,
	// so picking statuses never hides the other status options.
	statusBase, err := filter.ApplyExceptCluster(source, filter.Criteria{SearchText: c.SearchText, DateRange: c.DateRange})
	if err != nil {
		return nil, err
	}

	filtered, err := filter.ApplyExceptCluster(source, c)
	if err != nil {
		return nil, err
	}
	clusterChoices := filter.Options(filtered).Clusters

	if c.Cluster == nil && opts.SelectFirstCluster && len(clusterChoices) > 0 {
		c = c.WithCluster(clusterChoices[0])
	}

	clustered, err := filter.Apply(filtered, filter.Criteria{Cluster: c.Cluster})
	if err != nil {
		return nil, err
	}

	v := &View{
		Criteria:            c,
		Scope:               opts.Scope,
		Source:              source,
		Filtered:            filtered,
		Clustered:           clustered,
		Statuses:            filter.Options(statusBase).Statuses,
		Clusters:            clusterChoices,
		ClusterDescriptions: opts.Clusters,
	}

	table := v.Aggregated()
	v.Tags = aggregate.TagFrequency(table)
	v.Trend = aggregate.MonthlyTrend(table)
	v.CrossTab = aggregate.CrossTabulate(table)
	return v, nil
}

// Session binds a data file, its cache, and pass options so front ends can
// recompute a View per interaction.
type Session struct {
	Cache    *issues.Cache
	DataPath string
	Options  Options
	Logger   *zap.Logger
}

// Table returns the (cached) source table.
func (s *Session) Table(ctx context.Context) (*issues.Table, error) {
	return s.Cache.Get(ctx, s.DataPath)
}

// View loads the source table and runs one pass with c.
func (s *Session) View(ctx context.Context, c filter.Criteria) (*View, error) {
	return s.ViewWith(ctx, c, s.Options)
}

// ViewWith is View with per-call options, for front ends that override the
// scope or the cluster default.
func (s *Session) ViewWith(ctx context.Context, c filter.Criteria, opts Options) (*View, error) {
	table, err := s.Table(ctx)
	if err != nil {
		return nil, err
	}
	v, err := Run(table, c, opts)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Debug("dashboard pass",
			zap.String("criteria", v.Criteria.Describe()),
			zap.String("scope", string(v.Scope)),
			zap.Int("source", v.Source.Len()),
			zap.Int("filtered", v.Filtered.Len()),
			zap.Int("clustered", v.Clustered.Len()),
		)
	}
	return v, nil
}
