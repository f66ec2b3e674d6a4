package main

import (
	"context"
	"fmt"

	"github.com/hurttlocker/issuelens/internal/filter"
	"github.com/spf13/cobra"
)

// criteriaFlags are the filter flags shared by filter, summary, tui and
// views save.
type criteriaFlags struct {
	search   string
	from     string
	to       string
	statuses []string
	cluster  string
	where    string
	view     string
}

func (f *criteriaFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.search, "search", "s", "", "keep issues whose summary or tag contains this text")
	fs.StringVar(&f.from, "from", "", "keep issues created on or after this day (YYYY-MM-DD)")
	fs.StringVar(&f.to, "to", "", "keep issues created on or before this day (YYYY-MM-DD)")
	fs.StringSliceVar(&f.statuses, "status", nil, "keep issues with this status (repeatable; pass \"\" to select none)")
	fs.StringVarP(&f.cluster, "cluster", "c", "", "keep one cluster id, or \"all\"")
	fs.StringVar(&f.where, "where", "", `boolean expression over issue fields, e.g. 'Tag == "access"'`)
	fs.StringVar(&f.view, "view", "", "start from a saved view; other flags override its fields")
}

// criteria builds filter criteria from the flags, layered over the named
// saved view when --view is set.
func (f *criteriaFlags) criteria(ctx context.Context, cmd *cobra.Command, a *app) (filter.Criteria, error) {
	var c filter.Criteria
	if f.view != "" {
		st, err := a.views()
		if err != nil {
			return c, err
		}
		v, err := st.Get(ctx, f.view)
		if err != nil {
			return c, fmt.Errorf("loading view %q: %w", f.view, err)
		}
		c = v.Criteria
	}

	fs := cmd.Flags()
	if fs.Changed("search") {
		c.SearchText = f.search
	}
	if fs.Changed("from") || fs.Changed("to") {
		r, err := filter.ParseDayRange(f.from, f.to)
		if err != nil {
			return c, err
		}
		c.DateRange = r
	}
	if fs.Changed("status") {
		c.Statuses = make([]string, 0, len(f.statuses))
		for _, s := range f.statuses {
			if s != "" {
				c.Statuses = append(c.Statuses, s)
			}
		}
	}
	if fs.Changed("cluster") {
		id, err := filter.ParseCluster(f.cluster)
		if err != nil {
			return c, err
		}
		c.Cluster = id
	}
	if fs.Changed("where") {
		c.Where = f.where
	}
	return c, c.Validate()
}
