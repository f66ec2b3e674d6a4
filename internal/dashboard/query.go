package dashboard

import (
	"context"
	"net/url"
	"strings"

	"github.com/hurttlocker/issuelens/internal/aggregate"
	"github.com/hurttlocker/issuelens/internal/filter"
)

// request is a parsed dashboard query.
type request struct {
	criteria filter.Criteria
	scope    aggregate.Scope
	// clusterSet is true when the query picked a cluster or "all"; otherwise
	// the first available cluster is selected.
	clusterSet bool
}

// parseRequest reads criteria from q. A "view" parameter loads a saved view
// as the base; the remaining parameters override it.
func (s *server) parseRequest(ctx context.Context, q url.Values) (request, error) {
	var req request

	if name := strings.TrimSpace(q.Get("view")); name != "" {
		if s.views == nil {
			return req, errNoViews
		}
		saved, err := s.views.Get(ctx, name)
		if err != nil {
			return req, err
		}
		req.criteria = saved.Criteria
		req.clusterSet = true
	}

	if q.Has("q") {
		req.criteria.SearchText = q.Get("q")
	}
	if q.Has("from") || q.Has("to") {
		r, err := filter.ParseDayRange(q.Get("from"), q.Get("to"))
		if err != nil {
			return req, err
		}
		req.criteria.DateRange = r
	}
	if q.Has("status") {
		statuses := []string{}
		for _, v := range q["status"] {
			if v = strings.TrimSpace(v); v != "" {
				statuses = append(statuses, v)
			}
		}
		req.criteria.Statuses = statuses
	}
	if q.Has("cluster") {
		c, err := filter.ParseCluster(q.Get("cluster"))
		if err != nil {
			return req, err
		}
		req.criteria.Cluster = c
		req.clusterSet = true
	}
	if q.Has("where") {
		req.criteria.Where = q.Get("where")
	}

	if raw := q.Get("scope"); raw != "" {
		scope, err := aggregate.ParseScope(raw)
		if err != nil {
			return req, &filter.FilterError{Field: "scope", Reason: err.Error()}
		}
		req.scope = scope
	}
	return req, nil
}
