package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/hurttlocker/issuelens/internal/issues"
	"github.com/mattn/go-runewidth"
)

// View renders the screen.
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(" Issue Dashboard"))
	if m.cfg.Session != nil {
		sb.WriteString(mutedStyle.Render("  " + truncate(m.cfg.Session.DataPath, m.width-20)))
	}
	sb.WriteString("\n")
	sb.WriteString(m.renderFilters())
	sb.WriteString(m.renderTabs())
	sb.WriteString("\n")
	sb.WriteString(mutedStyle.Render(strings.Repeat("━", max(m.width-2, 10))))
	sb.WriteString("\n")

	switch {
	case m.view == nil && m.err != nil:
		sb.WriteString(errorStyle.Render(" " + m.err.Error()))
		sb.WriteString("\n")
	case m.view == nil:
		sb.WriteString(mutedStyle.Render(" loading..."))
		sb.WriteString("\n")
	default:
		sb.WriteString(m.renderPanel())
	}

	sb.WriteString(mutedStyle.Render(strings.Repeat("━", max(m.width-2, 10))))
	sb.WriteString("\n")
	sb.WriteString(m.renderStatusLine())
	sb.WriteString(m.renderFooter())
	return sb.String()
}

func (m Model) renderFilters() string {
	var sb strings.Builder
	sb.WriteString(" " + m.search.View() + "   " + m.dates.View() + "\n")

	if m.view == nil {
		return sb.String()
	}

	var statuses []string
	for i, s := range m.view.Statuses {
		label := statusKey(i) + ":" + s
		if i >= 9 {
			label = s
		}
		if m.excluded[s] {
			statuses = append(statuses, offStyle.Render(label))
		} else {
			statuses = append(statuses, onStyle.Render(label))
		}
	}
	sb.WriteString(mutedStyle.Render(" status ") + strings.Join(statuses, " ") + "\n")

	cluster := "all"
	if c := m.criteria.Cluster; c != nil {
		cluster = fmt.Sprintf("%d", *c)
		if desc, ok := m.view.ClusterDescriptions[*c]; ok {
			cluster += mutedStyle.Render(" (" + desc + ")")
		}
	}
	sb.WriteString(mutedStyle.Render(" cluster ") + cluster +
		mutedStyle.Render(fmt.Sprintf("   of %v   scope %s", m.view.Clusters, m.view.Scope)) + "\n")
	return sb.String()
}

func (m Model) renderTabs() string {
	tabs := make([]string, 0, panelCount)
	for p := panel(0); p < panelCount; p++ {
		if p == m.panel {
			tabs = append(tabs, activeTabStyle.Render(p.String()))
		} else {
			tabs = append(tabs, tabStyle.Render(p.String()))
		}
	}
	return " " + lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) renderPanel() string {
	switch m.panel {
	case panelTags:
		return m.renderTags()
	case panelTrend:
		return m.renderTrend()
	case panelHeatmap:
		return m.renderHeatmap()
	case panelClusters:
		return m.renderClusters()
	}
	return m.renderIssues()
}

func (m Model) renderIssues() string {
	table := m.view.Clustered
	var sb strings.Builder

	title := "all clusters"
	if c := m.criteria.Cluster; c != nil {
		title = fmt.Sprintf("cluster %d", *c)
	}
	sb.WriteString(fmt.Sprintf(" Issues in %s: %d of %d filtered, %d loaded\n",
		title, table.Len(), m.view.Filtered.Len(), m.view.Source.Len()))

	if table.Len() == 0 {
		sb.WriteString(mutedStyle.Render("   (no issues match)\n"))
		return sb.String()
	}

	const keyW, statusW, tagW, clusterW, createdW = 12, 12, 16, 7, 10
	summaryW := m.width - (keyW + statusW + tagW + clusterW + createdW + 8)
	if summaryW < 10 {
		summaryW = 10
	}
	header := strings.Join([]string{
		cell(issues.ColumnKey, keyW), cell(issues.ColumnStatus, statusW), cell("Tag", tagW),
		cell(issues.ColumnCluster, clusterW), cell(issues.ColumnCreated, createdW), cell(issues.ColumnSummary, summaryW),
	}, " ")
	sb.WriteString("  " + headerRowStyle.Render(header) + "\n")

	end := m.offset + m.tableRows()
	if end > table.Len() {
		end = table.Len()
	}
	for i := m.offset; i < end; i++ {
		rec := table.Records[i]
		created := ""
		if rec.Created != nil {
			created = rec.Created.Format("2006-01-02")
		}
		line := strings.Join([]string{
			cell(rec.Key, keyW), cell(rec.Status, statusW), cell(rec.Tag, tagW),
			cell(fmt.Sprintf("%d", rec.Cluster), clusterW), cell(created, createdW), cell(rec.Summary, summaryW),
		}, " ")
		if i == m.cursor {
			sb.WriteString(selectedStyle.Render("> " + line))
		} else {
			sb.WriteString("  " + line)
		}
		sb.WriteString("\n")
	}
	if end < table.Len() {
		sb.WriteString(mutedStyle.Render(fmt.Sprintf("   ... and %d more\n", table.Len()-end)))
	}
	return sb.String()
}

func (m Model) renderTags() string {
	freq := m.view.Tags
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(" Tag frequency (%d issues, scope %s)\n", freq.Total(), m.view.Scope))
	if len(freq) == 0 {
		sb.WriteString(mutedStyle.Render("   (no issues)\n"))
		return sb.String()
	}

	labelW := 20
	barW := m.width - labelW - 12
	for _, tc := range freq {
		label := tc.Tag
		if label == "" {
			label = "(none)"
		}
		sb.WriteString("  " + cell(label, labelW) + " " + barStyle.Render(bar(tc.Count, freq.Max(), barW)) +
			fmt.Sprintf(" %d\n", tc.Count))
	}
	return sb.String()
}

func (m Model) renderTrend() string {
	trend := m.view.Trend
	var sb strings.Builder
	sb.WriteString(" Issues created per month\n")
	if !m.view.Source.HasCreated {
		sb.WriteString(mutedStyle.Render("   (the data has no Created column)\n"))
		return sb.String()
	}
	if len(trend) == 0 {
		sb.WriteString(mutedStyle.Render("   (no dated issues)\n"))
		return sb.String()
	}
	barW := m.width - 20
	for _, mc := range trend {
		sb.WriteString("  " + mc.Month + " " + barStyle.Render(bar(mc.Count, trend.Max(), barW)) +
			fmt.Sprintf(" %d\n", mc.Count))
	}
	return sb.String()
}

func (m Model) renderHeatmap() string {
	ct := m.view.CrossTab
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(" Cluster x tag (%d issues)\n", ct.Total()))
	if ct.Empty() {
		sb.WriteString(mutedStyle.Render("   (no issues)\n"))
		return sb.String()
	}

	const rowLabelW, colW = 9, 10
	header := cell("cluster", rowLabelW)
	for _, tag := range ct.Tags {
		if tag == "" {
			tag = "(none)"
		}
		header += " " + runewidth.FillLeft(truncate(tag, colW), colW)
	}
	sb.WriteString("  " + headerRowStyle.Render(header) + "\n")

	maxCount := ct.Max()
	for i, c := range ct.Clusters {
		line := cell(fmt.Sprintf("%d", c), rowLabelW)
		for j := range ct.Tags {
			n := ct.Counts[i][j]
			line += " " + heatStyle(n, maxCount).Render(runewidth.FillLeft(fmt.Sprintf("%d", n), colW))
		}
		sb.WriteString("  " + line + "\n")
	}
	return sb.String()
}

func (m Model) renderClusters() string {
	md := m.cfg.ClusterMarkdown
	if md == "" {
		return mutedStyle.Render("   (no cluster descriptions configured)\n")
	}
	if m.rendered != "" {
		return m.rendered
	}
	return renderMarkdown(md, m.width)
}

func renderMarkdown(md string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(max(width-4, 20)),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

func (m Model) renderStatusLine() string {
	switch {
	case m.err != nil && m.view != nil:
		return errorStyle.Render(" "+m.err.Error()) + "\n"
	case m.loading:
		return mutedStyle.Render(" working...") + "\n"
	case m.flash != "":
		return flashStyle.Render(" "+m.flash) + "\n"
	}
	return "\n"
}

func (m Model) renderFooter() string {
	if m.focus != focusNone {
		return mutedStyle.Render(" " + keyHintStyle.Render("enter") + " apply  " + keyHintStyle.Render("esc") + " done")
	}
	hints := []string{
		keyHintStyle.Render("/") + " search",
		keyHintStyle.Render("d") + " dates",
		keyHintStyle.Render("1-9") + " status",
		keyHintStyle.Render("[ ]") + " cluster",
		keyHintStyle.Render("a") + " all clusters",
		keyHintStyle.Render("tab") + " panel",
		keyHintStyle.Render("e") + " export",
		keyHintStyle.Render("y") + " copy key",
		keyHintStyle.Render("r") + " reload",
		keyHintStyle.Render("q") + " quit",
	}
	return mutedStyle.Render(" " + strings.Join(hints, "  "))
}
