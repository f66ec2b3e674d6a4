package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/hurttlocker/issuelens/internal/export"
	"github.com/hurttlocker/issuelens/internal/issues"
	"github.com/hurttlocker/issuelens/internal/views"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const maxCellWidth = 60

func newFilterCmd(a *app) *cobra.Command {
	var (
		flags  criteriaFlags
		format string
		out    string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Print or export the issues matching the filters",
		Example: `  issuelens filter --cluster 2 --status Open
  issuelens filter --search prod --from 2024-01-01 --format csv --out filtered_issues.csv
  issuelens filter --where 'Tag == "access" && Cluster < 3' --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := flags.criteria(ctx, cmd, a)
			if err != nil {
				return err
			}
			v, err := a.session().View(ctx, c)
			if err != nil {
				return err
			}
			table := v.Clustered

			if format == "" || format == "table" {
				if out != "" {
					return fmt.Errorf("--out needs --format csv or json")
				}
				printTable(cmd.OutOrStdout(), table, limit)
				return nil
			}

			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := export.Write(&buf, table, f); err != nil {
				return err
			}
			if out == "" {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}

			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s issues to %s (%s)\n",
				humanize.Comma(int64(table.Len())), out, humanize.Bytes(uint64(buf.Len())))

			if st := a.optionalViews(); st != nil {
				entry := &views.ExportEntry{
					DataPath: table.Source,
					Criteria: v.Criteria.Describe(),
					Format:   string(f),
					Rows:     table.Len(),
					Checksum: export.Checksum(buf.Bytes()),
					Surface:  "cli",
				}
				if _, err := st.LogExport(ctx, entry); err != nil {
					a.logger.Warn("recording export", zap.Error(err))
				}
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table, csv or json")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to this file instead of stdout (csv or json)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "print at most this many rows in table format (0 = all)")
	return cmd
}

// printTable writes the table's columns left-aligned, padding by display
// width so wide characters line up.
func printTable(w io.Writer, table *issues.Table, limit int) {
	if table.Len() == 0 {
		fmt.Fprintln(w, "No issues match the filters.")
		return
	}

	records := table.Records
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	cells := make([][]string, 0, len(records)+1)
	cells = append(cells, table.Columns)
	for _, rec := range records {
		row := make([]string, len(table.Columns))
		for i, col := range table.Columns {
			cell := strings.ReplaceAll(table.Cell(rec, col), "\n", " ")
			row[i] = runewidth.Truncate(cell, maxCellWidth, "…")
		}
		cells = append(cells, row)
	}

	widths := make([]int, len(table.Columns))
	for _, row := range cells {
		for i, cell := range row {
			if n := runewidth.StringWidth(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	for _, row := range cells {
		var sb strings.Builder
		for i, cell := range row {
			if i == len(row)-1 {
				sb.WriteString(cell)
				break
			}
			sb.WriteString(runewidth.FillRight(cell, widths[i]))
			sb.WriteString("  ")
		}
		fmt.Fprintln(w, strings.TrimRight(sb.String(), " "))
	}

	if len(records) < table.Len() {
		fmt.Fprintf(w, "... %s more (use --limit 0 to show all)\n", humanize.Comma(int64(table.Len()-len(records))))
	}
}
