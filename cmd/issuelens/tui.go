package main

import (
	"github.com/hurttlocker/issuelens/internal/tui"
	"github.com/spf13/cobra"
)

func newTUICmd(a *app) *cobra.Command {
	var (
		flags       criteriaFlags
		watchFile   bool
		allClusters bool
		exportDir   string
	)

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the terminal dashboard",
		Long: `Open the terminal dashboard.

Keys: / search, d date range, 1-9 toggle statuses, [ ] cycle clusters,
a all clusters, tab switch panel, e export CSV, y copy issue key,
r reload, q quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := flags.criteria(ctx, cmd, a)
			if err != nil {
				return err
			}
			return tui.Run(ctx, tui.Config{
				Session:         a.session(),
				Views:           a.optionalViews(),
				Criteria:        c,
				AllClusters:     allClusters,
				ClusterMarkdown: a.cfg.ClusterMarkdown(),
				ExportDir:       exportDir,
				Logger:          a.logger,
			}, watchFile)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVarP(&watchFile, "watch", "w", false, "reload when the data file changes")
	cmd.Flags().BoolVar(&allClusters, "all-clusters", false, "start with every cluster selected")
	cmd.Flags().StringVar(&exportDir, "export-dir", "", "directory for exported CSV files (default: current directory)")
	return cmd
}
