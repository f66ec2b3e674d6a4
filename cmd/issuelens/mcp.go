package main

import (
	"github.com/hurttlocker/issuelens/internal/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the issue tools over MCP (stdio)",
		Long: `Serve the issue tools to an MCP client over stdin/stdout.

Tools: issues_filter, issues_tag_frequency, issues_trend, issues_crosstab,
issues_export. Resource: issuelens://clusters.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := mcp.NewServer(mcp.ServerConfig{
				Session: a.session(),
				Views:   a.optionalViews(),
				Version: version,
				Logger:  a.logger,
			})
			return server.ServeStdio(s)
		},
	}
}
