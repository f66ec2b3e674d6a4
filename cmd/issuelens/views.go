package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/hurttlocker/issuelens/internal/views"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newViewsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "views",
		Short: "Manage saved filter views and the export log",
	}
	cmd.AddCommand(
		newViewsListCmd(a),
		newViewsSaveCmd(a),
		newViewsShowCmd(a),
		newViewsDeleteCmd(a),
		newViewsExportsCmd(a),
	)
	return cmd
}

func newViewsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved views",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.views()
			if err != nil {
				return err
			}
			list, err := st.List(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(w, "No saved views.")
				return nil
			}
			width := 0
			for _, v := range list {
				if n := runewidth.StringWidth(v.Name); n > width {
					width = n
				}
			}
			for _, v := range list {
				fmt.Fprintf(w, "%s  %-16s  %s\n",
					runewidth.FillRight(v.Name, width), humanize.Time(v.UpdatedAt), v.Criteria.Describe())
			}
			return nil
		},
	}
}

func newViewsSaveCmd(a *app) *cobra.Command {
	var flags criteriaFlags
	cmd := &cobra.Command{
		Use:     "save NAME",
		Short:   "Save the given filters under NAME, replacing an existing view",
		Example: `  issuelens views save open-access --status Open --where 'Tag == "access"'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := flags.criteria(ctx, cmd, a)
			if err != nil {
				return err
			}
			st, err := a.views()
			if err != nil {
				return err
			}
			v, err := st.Save(ctx, args[0], c)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved view %q: %s\n", v.Name, v.Criteria.Describe())
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newViewsShowCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show NAME",
		Short: "Print a saved view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.views()
			if err != nil {
				return err
			}
			v, err := st.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("loading view %q: %w", args[0], err)
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(v)
			}
			return printView(cmd.OutOrStdout(), v)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func printView(w io.Writer, v *views.SavedView) error {
	fmt.Fprintf(w, "name: %s\nid: %s\nupdated: %s\n", v.Name, v.ID, humanize.Time(v.UpdatedAt))
	b, err := yaml.Marshal(struct {
		Criteria interface{} `yaml:"criteria"`
	}{v.Criteria})
	if err != nil {
		return fmt.Errorf("encoding criteria: %w", err)
	}
	_, err = w.Write(b)
	return err
}

func newViewsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete NAME",
		Aliases: []string{"rm"},
		Short:   "Delete a saved view",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.views()
			if err != nil {
				return err
			}
			if err := st.Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("deleting view %q: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted view %q\n", args[0])
			return nil
		},
	}
}

func newViewsExportsCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "exports",
		Short: "List recent exports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.views()
			if err != nil {
				return err
			}
			list, err := st.RecentExports(cmd.Context(), limit)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(w, "No exports recorded.")
				return nil
			}
			for _, e := range list {
				fmt.Fprintf(w, "%-16s  %-4s  %-4s  %6s rows  %s  %s\n",
					humanize.Time(e.ExportedAt), e.Surface, e.Format,
					humanize.Comma(int64(e.Rows)), e.Criteria, e.DataPath)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", views.DefaultRecentLimit, "number of exports to show")
	return cmd
}
