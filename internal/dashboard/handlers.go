package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/hurttlocker/issuelens/internal/export"
	"github.com/hurttlocker/issuelens/internal/filter"
	"github.com/hurttlocker/issuelens/internal/issues"
	"github.com/hurttlocker/issuelens/internal/pipeline"
	"github.com/hurttlocker/issuelens/internal/views"
	"go.uber.org/zap"
)

var errNoViews = errors.New("saved views are not enabled")

// viewResponse is the /api/view payload: the pass plus the cluster table as
// display rows.
type viewResponse struct {
	*pipeline.View
	Columns      []string   `json:"columns"`
	Rows         [][]string `json:"rows"`
	SourceRows   int        `json:"source_rows"`
	FilteredRows int        `json:"filtered_rows"`
}

func (s *server) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data, err := pageFS.ReadFile("dashboard.html")
	if err != nil {
		http.Error(w, "dashboard not found", 500)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

func (s *server) run(r *http.Request) (*pipeline.View, error) {
	req, err := s.parseRequest(r.Context(), r.URL.Query())
	if err != nil {
		return nil, err
	}
	opts := s.session.Options
	opts.SelectFirstCluster = !req.clusterSet
	if req.scope != "" {
		opts.Scope = req.scope
	}
	return s.session.ViewWith(r.Context(), req.criteria, opts)
}

func (s *server) handleView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	v, err := s.run(r)
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	rows := make([][]string, 0, v.Clustered.Len())
	for _, rec := range v.Clustered.Records {
		row := make([]string, len(v.Clustered.Columns))
		for i, col := range v.Clustered.Columns {
			row[i] = v.Clustered.Cell(rec, col)
		}
		rows = append(rows, row)
	}
	writeJSON(w, http.StatusOK, viewResponse{
		View:         v,
		Columns:      v.Clustered.Columns,
		Rows:         rows,
		SourceRows:   v.Source.Len(),
		FilteredRows: v.Filtered.Len(),
	})
}

func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	v, err := s.run(r)
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	var body strings.Builder
	if err := export.Write(&body, v.Clustered, format); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	data := body.String()
	checksum := export.Checksum([]byte(data))
	etag := `"` + checksum + `"`

	filename := export.DefaultFilename
	if format == export.FormatJSON {
		filename = strings.TrimSuffix(filename, ".csv") + ".json"
	}
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if s.views != nil {
		_, err := s.views.LogExport(r.Context(), &views.ExportEntry{
			DataPath: s.session.DataPath,
			Criteria: v.Criteria.Describe(),
			Format:   string(format),
			Rows:     v.Clustered.Len(),
			Checksum: checksum,
			Surface:  "web",
		})
		if err != nil {
			s.logger.Warn("logging export failed", zap.Error(err))
		}
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(data))
}

func (s *server) handleClusters(w http.ResponseWriter, r *http.Request) {
	type cluster struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
	}
	out := []cluster{}
	for id, desc := range s.session.Options.Clusters {
		out = append(out, cluster{ID: id, Description: desc})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

type saveViewRequest struct {
	Name     string          `json:"name"`
	Criteria filter.Criteria `json:"criteria"`
}

func (s *server) handleViews(w http.ResponseWriter, r *http.Request) {
	if s.views == nil {
		writeError(w, http.StatusNotFound, errNoViews.Error())
		return
	}
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		list, err := s.views.List(ctx)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		if list == nil {
			list = []*views.SavedView{}
		}
		writeJSON(w, http.StatusOK, list)

	case http.MethodPost:
		var req saveViewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		saved, err := s.views.Save(ctx, req.Name, req.Criteria)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, saved)

	case http.MethodDelete:
		name := r.URL.Query().Get("name")
		if name == "" {
			writeError(w, http.StatusBadRequest, "name parameter required")
			return
		}
		if err := s.views.Delete(ctx, name); err != nil {
			s.writeFailure(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":    "ok",
		"data_path": s.session.DataPath,
	}
	if _, err := s.session.Table(r.Context()); err != nil {
		status["status"] = "degraded"
		status["error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, status)
}

// writeFailure maps domain errors to HTTP status codes.
func (s *server) writeFailure(w http.ResponseWriter, err error) {
	var (
		fe *filter.FilterError
		le *issues.LoadError
	)
	switch {
	case errors.As(err, &fe):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, views.ErrNotFound), errors.Is(err, errNoViews):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &le):
		s.logger.Error("loading issues failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		s.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
