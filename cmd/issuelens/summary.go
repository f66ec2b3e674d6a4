package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/hurttlocker/issuelens/internal/aggregate"
	"github.com/hurttlocker/issuelens/internal/pipeline"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

const (
	barWidth   = 30
	labelWidth = 24
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	countColor  = color.New(color.FgGreen)
	mutedColor  = color.New(color.Faint)
	barColor    = color.New(color.FgBlue)
	peakColor   = color.New(color.FgGreen, color.Bold)
)

func newSummaryCmd(a *app) *cobra.Command {
	var (
		flags criteriaFlags
		scope string
		top   int
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print tag frequency, monthly trend and the cluster x tag matrix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := flags.criteria(ctx, cmd, a)
			if err != nil {
				return err
			}

			session := a.session()
			opts := session.Options
			if scope != "" {
				s, err := aggregate.ParseScope(scope)
				if err != nil {
					return err
				}
				opts.Scope = s
			}
			v, err := session.ViewWith(ctx, c, opts)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printOverview(w, v)
			printTags(w, v.Tags, top)
			printTrend(w, v)
			printCrossTab(w, v.CrossTab)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&scope, "chart-scope", "", "override the aggregation scope for this run: filtered, cluster or source")
	cmd.Flags().IntVar(&top, "top", 15, "show at most this many tags (0 = all)")
	return cmd
}

func printOverview(w io.Writer, v *pipeline.View) {
	headerColor.Fprintln(w, "Overview")
	fmt.Fprintf(w, "  Source:    %s", v.Source.Source)
	if info, err := os.Stat(v.Source.Source); err == nil {
		mutedColor.Fprintf(w, " (%s, modified %s)", humanize.Bytes(uint64(info.Size())), humanize.Time(info.ModTime()))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Filters:   %s\n", v.Criteria.Describe())
	fmt.Fprintf(w, "  Loaded:    %s issues\n", countColor.Sprint(humanize.Comma(int64(v.Source.Len()))))
	fmt.Fprintf(w, "  Matching:  %s issues, %s in the selected cluster\n",
		countColor.Sprint(humanize.Comma(int64(v.Filtered.Len()))),
		countColor.Sprint(humanize.Comma(int64(v.Clustered.Len()))))
	fmt.Fprintf(w, "  Charts on: %s (%s issues)\n\n", v.Scope, humanize.Comma(int64(v.Aggregated().Len())))
}

func printTags(w io.Writer, tags aggregate.Frequency, top int) {
	headerColor.Fprintln(w, "Tag frequency")
	if len(tags) == 0 {
		mutedColor.Fprintln(w, "  no issues")
		fmt.Fprintln(w)
		return
	}
	shown := tags
	if top > 0 && len(shown) > top {
		shown = shown[:top]
	}
	peak := tags.Max()
	for _, tc := range shown {
		fmt.Fprintf(w, "  %s %s %d\n", label(tagLabel(tc.Tag)), bar(tc.Count, peak), tc.Count)
	}
	if len(shown) < len(tags) {
		mutedColor.Fprintf(w, "  ... %d more tags\n", len(tags)-len(shown))
	}
	fmt.Fprintln(w)
}

func printTrend(w io.Writer, v *pipeline.View) {
	headerColor.Fprintln(w, "Issues created per month")
	if !v.Source.HasCreated {
		mutedColor.Fprintln(w, "  no Created column in the data file")
		fmt.Fprintln(w)
		return
	}
	if len(v.Trend) == 0 {
		mutedColor.Fprintln(w, "  no dated issues")
		fmt.Fprintln(w)
		return
	}
	peak := v.Trend.Max()
	for _, mc := range v.Trend {
		fmt.Fprintf(w, "  %s %s %d\n", label(mc.Month), bar(mc.Count, peak), mc.Count)
	}
	fmt.Fprintln(w)
}

func printCrossTab(w io.Writer, ct *aggregate.CrossTab) {
	headerColor.Fprintln(w, "Cluster x tag")
	if ct == nil || ct.Empty() {
		mutedColor.Fprintln(w, "  no issues")
		return
	}

	widths := make([]int, len(ct.Tags))
	for i, tag := range ct.Tags {
		widths[i] = runewidth.StringWidth(tagLabel(tag))
		for r := range ct.Clusters {
			if n := len(fmt.Sprint(ct.Counts[r][i])); n > widths[i] {
				widths[i] = n
			}
		}
	}

	var sb strings.Builder
	sb.WriteString("  " + runewidth.FillRight("cluster", 8))
	for i, tag := range ct.Tags {
		sb.WriteString("  " + runewidth.FillLeft(tagLabel(tag), widths[i]))
	}
	mutedColor.Fprintln(w, sb.String())

	peak := ct.Max()
	for r, cluster := range ct.Clusters {
		fmt.Fprintf(w, "  %s", runewidth.FillRight(fmt.Sprint(cluster), 8))
		for i, n := range ct.Counts[r] {
			cell := runewidth.FillLeft(fmt.Sprint(n), widths[i])
			switch {
			case n == 0:
				cell = mutedColor.Sprint(cell)
			case n == peak:
				cell = peakColor.Sprint(cell)
			}
			fmt.Fprintf(w, "  %s", cell)
		}
		fmt.Fprintln(w)
	}
}

func tagLabel(tag string) string {
	if tag == "" {
		return "(none)"
	}
	return tag
}

func label(s string) string {
	return runewidth.FillRight(runewidth.Truncate(s, labelWidth, "…"), labelWidth)
}

func bar(n, peak int) string {
	if peak <= 0 || n <= 0 {
		return strings.Repeat(" ", barWidth)
	}
	width := n * barWidth / peak
	if width == 0 {
		width = 1
	}
	return barColor.Sprint(strings.Repeat("█", width)) + strings.Repeat(" ", barWidth-width)
}
