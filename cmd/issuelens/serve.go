package main

import (
	"github.com/hurttlocker/issuelens/internal/dashboard"
	"github.com/hurttlocker/issuelens/internal/watch"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(a *app) *cobra.Command {
	var watchFile bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web dashboard",
		Long: `Serve the web dashboard and its JSON API.

  GET  /                 dashboard page
  GET  /api/view         filtered table and charts (q, from, to, status, cluster, where, view, scope)
  GET  /api/export       filtered_issues.csv (format=json for JSON)
  GET  /api/clusters     cluster descriptions
  GET  /api/views        saved views (POST to save, DELETE ?name= to remove)
  GET  /api/health       data file and database status`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			session := a.session()

			if watchFile {
				w, err := watch.New(watch.Config{
					Path:   session.DataPath,
					Cache:  session.Cache,
					Logger: a.logger,
				})
				if err != nil {
					return err
				}
				if err := w.Start(ctx); err != nil {
					return err
				}
				defer w.Stop()
			}

			a.logger.Info("serving dashboard",
				zap.String("addr", a.cfg.Addr.Value),
				zap.String("data", session.DataPath),
				zap.Bool("watch", watchFile),
			)
			return dashboard.Serve(ctx, dashboard.ServerConfig{
				Session: session,
				Views:   a.optionalViews(),
				Addr:    a.cfg.Addr.Value,
				Logger:  a.logger,
			})
		},
	}

	cmd.Flags().StringVar(&a.addr, "addr", "", "listen address (default 127.0.0.1:8501)")
	cmd.Flags().BoolVarP(&watchFile, "watch", "w", false, "reload when the data file changes")
	return cmd
}
