package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hurttlocker/issuelens/internal/aggregate"
	"github.com/hurttlocker/issuelens/internal/filter"
	"github.com/hurttlocker/issuelens/internal/issues"
	"github.com/hurttlocker/issuelens/internal/pipeline"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cast"
)

func criteriaOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("search",
			mcp.Description("Case-insensitive substring matched against Summary and Suggested Tag"),
		),
		mcp.WithString("from",
			mcp.Description("Earliest creation day, YYYY-MM-DD (inclusive)"),
		),
		mcp.WithString("to",
			mcp.Description("Latest creation day, YYYY-MM-DD (inclusive)"),
		),
		mcp.WithArray("statuses",
			mcp.Description("Statuses to keep. Omit for every status; an empty array keeps nothing."),
			mcp.Items(map[string]interface{}{"type": "string"}),
		),
		mcp.WithString("cluster",
			mcp.Description("Cluster id to keep, or \"all\" (default: all)"),
		),
		mcp.WithString("where",
			mcp.Description("Optional boolean expression over Key, Summary, Tag, Status, Cluster, Created, Month and Fields, e.g. `Cluster == 1 && Tag != \"access\"`"),
		),
		mcp.WithString("view",
			mcp.Description("Name of a saved view to start from; other arguments override it"),
		),
		mcp.WithString("scope",
			mcp.Description("Table the aggregations use: filtered, cluster or source"),
			mcp.Enum(string(aggregate.ScopeFiltered), string(aggregate.ScopeCluster), string(aggregate.ScopeSource)),
		),
	}
}

// run parses the criteria arguments and runs one pass. A non-nil result is a
// tool error to hand back to the client.
func (h *handlers) run(ctx context.Context, req mcp.CallToolRequest) (*pipeline.View, *mcp.CallToolResult) {
	c, scope, err := h.criteria(ctx, req.GetArguments())
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	opts := h.cfg.Session.Options
	opts.SelectFirstCluster = false
	if scope != "" {
		opts.Scope = scope
	}
	v, err := h.cfg.Session.ViewWith(ctx, c, opts)
	if err != nil {
		var le *issues.LoadError
		if errors.As(err, &le) {
			return nil, mcp.NewToolResultError(fmt.Sprintf("loading issues: %v", err))
		}
		return nil, mcp.NewToolResultError(err.Error())
	}
	return v, nil
}

func (h *handlers) criteria(ctx context.Context, args map[string]interface{}) (filter.Criteria, aggregate.Scope, error) {
	var (
		c     filter.Criteria
		scope aggregate.Scope
	)

	if name := stringArg(args, "view"); name != "" {
		if h.cfg.Views == nil {
			return c, "", errors.New("saved views are not enabled")
		}
		saved, err := h.cfg.Views.Get(ctx, name)
		if err != nil {
			return c, "", err
		}
		c = saved.Criteria
	}

	if raw, ok := args["search"]; ok {
		c.SearchText = cast.ToString(raw)
	}
	if from, to := stringArg(args, "from"), stringArg(args, "to"); from != "" || to != "" {
		r, err := filter.ParseDayRange(from, to)
		if err != nil {
			return c, "", err
		}
		c.DateRange = r
	}
	if raw, ok := args["statuses"]; ok && raw != nil {
		statuses, err := cast.ToStringSliceE(raw)
		if err != nil {
			return c, "", &filter.FilterError{Field: "statuses", Reason: "must be an array of strings"}
		}
		c.Statuses = []string{}
		for _, s := range statuses {
			if s = strings.TrimSpace(s); s != "" {
				c.Statuses = append(c.Statuses, s)
			}
		}
	}
	if _, ok := args["cluster"]; ok {
		id, err := filter.ParseCluster(stringArg(args, "cluster"))
		if err != nil {
			return c, "", err
		}
		c.Cluster = id
	}
	if _, ok := args["where"]; ok {
		c.Where = stringArg(args, "where")
	}
	if raw := stringArg(args, "scope"); raw != "" {
		s, err := aggregate.ParseScope(raw)
		if err != nil {
			return c, "", err
		}
		scope = s
	}
	return c, scope, nil
}

// stringArg reads a scalar argument as text; clients may send cluster ids as
// numbers.
func stringArg(args map[string]interface{}, key string) string {
	v, ok := args[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(cast.ToString(v))
}

func sortedIDs(m map[int]string) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
