package main

import (
	"encoding/json"
	"fmt"

	"github.com/hurttlocker/issuelens/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show resolved settings and where each came from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(a.cfg)
			}
			fmt.Fprintf(w, "config file: %s\n", a.cfg.ConfigPath)
			for _, row := range []struct {
				name string
				v    config.ResolvedValue
			}{
				{"data_path", a.cfg.DataPath},
				{"sheet", a.cfg.Sheet},
				{"db_path", a.cfg.DBPath},
				{"addr", a.cfg.Addr},
				{"aggregate_scope", a.cfg.Scope},
			} {
				value := row.v.Value
				if value == "" {
					value = "(unset)"
				}
				source := string(row.v.Source)
				if row.v.From != "" {
					source += ": " + row.v.From
				}
				if row.v.Source == "" {
					source = "default"
				}
				fmt.Fprintf(w, "%-16s %s (%s)\n", row.name, value, source)
			}
			fmt.Fprintf(w, "%-16s %d described (%s)\n", "clusters", len(a.cfg.Clusters), a.cfg.ClustersSource)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
