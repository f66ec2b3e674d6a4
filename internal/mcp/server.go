// Package mcp exposes the issue dashboard over the Model Context Protocol.
//
// Every tool takes the same criteria arguments as the web dashboard (search,
// from, to, statuses, cluster, where, view) and runs one pipeline pass over the
// cached issue table. Cluster descriptions are published as a resource.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hurttlocker/issuelens/internal/export"
	"github.com/hurttlocker/issuelens/internal/pipeline"
	"github.com/hurttlocker/issuelens/internal/views"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// DefaultRowLimit caps the rows issues_filter returns unless asked otherwise.
const DefaultRowLimit = 50

// ServerConfig holds configuration for the MCP server.
type ServerConfig struct {
	Session *pipeline.Session
	Views   views.Store // optional; enables the "view" argument and export logging
	Version string      // version string for MCP server info
	Logger  *zap.Logger
}

// NewServer creates a configured MCP server with all issue tools and resources.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	s := server.NewMCPServer(
		"issuelens",
		ver,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(true, false),
	)

	h := &handlers{cfg: cfg}
	registerFilterTool(s, h)
	registerTagFrequencyTool(s, h)
	registerTrendTool(s, h)
	registerCrossTabTool(s, h)
	registerExportTool(s, h)
	registerClustersResource(s, h)
	return s
}

type handlers struct {
	cfg ServerConfig
}

func readOnlyTool(name, description string, extra ...mcp.ToolOption) mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(description),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	}
	opts = append(opts, criteriaOptions()...)
	opts = append(opts, extra...)
	return mcp.NewTool(name, opts...)
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// --- Tools ---

func registerFilterTool(s *server.MCPServer, h *handlers) {
	tool := readOnlyTool("issues_filter",
		"Filter the issue table by search text, creation date range, statuses, cluster and an optional expression. Returns the matching issues in source column order.",
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Maximum number of issues to return (default: %d, 0 = all)", DefaultRowLimit)),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		v, errResult := h.run(ctx, req)
		if errResult != nil {
			return errResult, nil
		}

		limit := DefaultRowLimit
		if l, err := req.RequireFloat("limit"); err == nil && l >= 0 {
			limit = int(l)
		}

		table := v.Clustered
		records := table.Records
		if limit > 0 && len(records) > limit {
			records = records[:limit]
		}
		rows := make([]map[string]string, 0, len(records))
		for _, rec := range records {
			row := make(map[string]string, len(table.Columns))
			for _, col := range table.Columns {
				row[col] = table.Cell(rec, col)
			}
			rows = append(rows, row)
		}

		return jsonResult(map[string]interface{}{
			"criteria":  v.Criteria.Describe(),
			"columns":   table.Columns,
			"total":     table.Len(),
			"returned":  len(rows),
			"truncated": len(rows) < table.Len(),
			"issues":    rows,
		})
	})
}

func registerTagFrequencyTool(s *server.MCPServer, h *handlers) {
	tool := readOnlyTool("issues_tag_frequency",
		"Count issues per suggested tag, most frequent first. Computed over the configured aggregation scope (by default every filter except the cluster).",
	)
	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		v, errResult := h.run(ctx, req)
		if errResult != nil {
			return errResult, nil
		}
		return jsonResult(map[string]interface{}{
			"scope": v.Scope,
			"total": v.Tags.Total(),
			"tags":  v.Tags,
		})
	})
}

func registerTrendTool(s *server.MCPServer, h *handlers) {
	tool := readOnlyTool("issues_trend",
		"Count issues created per calendar month (YYYY-MM), oldest first. Issues without a creation date are left out.",
	)
	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		v, errResult := h.run(ctx, req)
		if errResult != nil {
			return errResult, nil
		}
		return jsonResult(map[string]interface{}{
			"scope":       v.Scope,
			"has_created": v.Source.HasCreated,
			"trend":       v.Trend,
		})
	})
}

func registerCrossTabTool(s *server.MCPServer, h *handlers) {
	tool := readOnlyTool("issues_crosstab",
		"Count issues per (cluster, suggested tag) pair as a matrix: rows follow clusters, columns follow tags.",
	)
	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		v, errResult := h.run(ctx, req)
		if errResult != nil {
			return errResult, nil
		}
		return jsonResult(map[string]interface{}{
			"scope":    v.Scope,
			"total":    v.CrossTab.Total(),
			"crosstab": v.CrossTab,
		})
	})
}

func registerExportTool(s *server.MCPServer, h *handlers) {
	tool := readOnlyTool("issues_export",
		"Export the filtered issues as CSV (the filtered_issues.csv download) or JSON text.",
		mcp.WithString("format",
			mcp.Description("Export format: csv or json (default: csv)"),
			mcp.Enum("csv", "json"),
		),
	)
	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		format := export.FormatCSV
		if f, err := req.RequireString("format"); err == nil && f != "" {
			parsed, err := export.ParseFormat(f)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			format = parsed
		}

		v, errResult := h.run(ctx, req)
		if errResult != nil {
			return errResult, nil
		}

		var sb strings.Builder
		if err := export.Write(&sb, v.Clustered, format); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("export failed: %v", err)), nil
		}

		if h.cfg.Views != nil {
			if _, err := h.cfg.Views.LogExport(ctx, &views.ExportEntry{
				DataPath: h.cfg.Session.DataPath,
				Criteria: v.Criteria.Describe(),
				Format:   string(format),
				Rows:     v.Clustered.Len(),
				Checksum: export.Checksum([]byte(sb.String())),
				Surface:  "mcp",
			}); err != nil {
				h.cfg.Logger.Warn("logging export failed", zap.Error(err))
			}
		}
		return mcp.NewToolResultText(sb.String()), nil
	})
}

// --- Resources ---

func registerClustersResource(s *server.MCPServer, h *handlers) {
	resource := mcp.NewResource(
		"issuelens://clusters",
		"Cluster Descriptions",
		mcp.WithResourceDescription("Human descriptions of the issue clusters."),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(resource, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		type cluster struct {
			ID          int    `json:"id"`
			Description string `json:"description"`
		}
		ids := sortedIDs(h.cfg.Session.Options.Clusters)
		clusters := make([]cluster, 0, len(ids))
		for _, id := range ids {
			clusters = append(clusters, cluster{ID: id, Description: h.cfg.Session.Options.Clusters[id]})
		}
		data, _ := json.MarshalIndent(map[string]interface{}{
			"clusters": clusters,
			"count":    len(clusters),
		}, "", "  ")
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})
}
