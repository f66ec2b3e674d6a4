// Package tui is the terminal rendition of the issue dashboard.
package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/hurttlocker/issuelens/internal/export"
	"github.com/hurttlocker/issuelens/internal/filter"
	"github.com/hurttlocker/issuelens/internal/pipeline"
	"github.com/hurttlocker/issuelens/internal/views"
	"go.uber.org/zap"
)

// Config wires the model to its data.
type Config struct {
	Session *pipeline.Session
	// Views, when set, records exports.
	Views views.Store
	// Criteria seeds the filters, e.g. from CLI flags or a saved view.
	Criteria filter.Criteria
	// AllClusters starts without a cluster selected instead of the first one.
	AllClusters bool
	// ClusterMarkdown is shown on the clusters panel.
	ClusterMarkdown string
	// ExportDir receives filtered_issues.csv. Defaults to the working directory.
	ExportDir string
	// CopyText defaults to the system clipboard.
	CopyText func(string) error
	Logger   *zap.Logger
}

type panel int

const (
	panelIssues panel = iota
	panelTags
	panelTrend
	panelHeatmap
	panelClusters
	panelCount
)

func (p panel) String() string {
	switch p {
	case panelIssues:
		return "Issues"
	case panelTags:
		return "Tags"
	case panelTrend:
		return "Trend"
	case panelHeatmap:
		return "Heatmap"
	case panelClusters:
		return "Clusters"
	}
	return "?"
}

type focus int

const (
	focusNone focus = iota
	focusSearch
	focusDates
)

// viewMsg carries the result of one pipeline pass. gen is the pass number
// the result answers.
type viewMsg struct {
	gen  int
	view *pipeline.View
	err  error
}

// FileChangedMsg tells the model the data file changed on disk.
type FileChangedMsg struct{}

// Model is the bubbletea model.
type Model struct {
	cfg Config

	search textinput.Model
	dates  textinput.Model
	focus  focus

	criteria filter.Criteria
	// allClusters disables the first-cluster default.
	allClusters bool
	// excluded holds statuses toggled off.
	excluded map[string]bool

	view    *pipeline.View
	err     error
	loading bool
	// gen numbers passes; only the latest one's result is applied.
	gen int
	flash   string

	panel  panel
	cursor int
	offset int

	width  int
	height int

	// rendered caches the cluster markdown at the current width.
	rendered string
}

// New builds a model from cfg.
func New(cfg Config) Model {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.CopyText == nil {
		cfg.CopyText = clipboard.WriteAll
	}

	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "search summary or tag"
	search.CharLimit = 200
	search.Cursor.SetMode(cursor.CursorStatic)
	search.SetValue(cfg.Criteria.SearchText)

	dates := textinput.New()
	dates.Prompt = "created "
	dates.Placeholder = "YYYY-MM-DD..YYYY-MM-DD"
	dates.CharLimit = 22
	dates.Cursor.SetMode(cursor.CursorStatic)
	if r := cfg.Criteria.DateRange; r != nil {
		dates.SetValue(formatRange(r))
	}

	return Model{
		cfg:         cfg,
		search:      search,
		dates:       dates,
		criteria:    cfg.Criteria,
		allClusters: cfg.AllClusters && cfg.Criteria.Cluster == nil,
		excluded:    map[string]bool{},
		width:       100,
		height:      30,
	}
}

// Init starts the first pass.
func (m Model) Init() tea.Cmd {
	return m.compute()
}

// compute runs one pass with the current criteria off the UI goroutine.
func (m Model) compute() tea.Cmd {
	session := m.cfg.Session
	c := m.criteria
	gen := m.gen
	opts := session.Options
	opts.SelectFirstCluster = !m.allClusters
	return func() tea.Msg {
		ctx := context.Background()
		v, err := session.ViewWith(ctx, c, opts)
		if err == nil && c.Cluster != nil && !containsInt(v.Clusters, *c.Cluster) && len(v.Clusters) > 0 {
			// The selected cluster vanished under the other filters.
			c.Cluster = nil
			v, err = session.ViewWith(ctx, c, opts)
		}
		return viewMsg{gen: gen, view: v, err: err}
	}
}

func (m *Model) recompute() tea.Cmd {
	m.gen++
	m.loading = true
	return m.compute()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.rendered = ""
		if m.cfg.ClusterMarkdown != "" {
			m.rendered = renderMarkdown(m.cfg.ClusterMarkdown, m.width)
		}
		m.clampCursor()
		return m, nil

	case viewMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.view = msg.view
			m.criteria = msg.view.Criteria
			m.syncExcluded()
			m.clampCursor()
		}
		return m, nil

	case FileChangedMsg:
		m.flash = "data file changed, reloaded"
		return m, m.recompute()

	case tea.KeyMsg:
		if m.focus != focusNone {
			return m.updateInput(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc", "enter":
		if m.focus == focusDates {
			r, err := parseRange(m.dates.Value())
			if err != nil {
				m.err = err
				return m, nil
			}
			m.criteria.DateRange = r
			m.err = nil
		}
		m.search.Blur()
		m.dates.Blur()
		m.focus = focusNone
		return m, m.recompute()
	}

	var cmd tea.Cmd
	if m.focus == focusSearch {
		m.search, cmd = m.search.Update(msg)
		if m.search.Value() != m.criteria.SearchText {
			m.criteria.SearchText = m.search.Value()
			return m, tea.Batch(cmd, m.recompute())
		}
		return m, cmd
	}
	m.dates, cmd = m.dates.Update(msg)
	return m, cmd
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "/":
		m.focus = focusSearch
		return m, m.search.Focus()
	case "d":
		m.focus = focusDates
		return m, m.dates.Focus()
	case "tab":
		m.panel = (m.panel + 1) % panelCount
		return m, nil
	case "shift+tab":
		m.panel = (m.panel + panelCount - 1) % panelCount
		return m, nil
	case "[", "]":
		return m, m.stepCluster(key == "]")
	case "a":
		m.allClusters = !m.allClusters
		if m.allClusters {
			m.criteria.Cluster = nil
		}
		return m, m.recompute()
	case "r":
		m.cfg.Session.Cache.Invalidate(m.cfg.Session.DataPath)
		m.flash = "reloaded " + filepath.Base(m.cfg.Session.DataPath)
		return m, m.recompute()
	case "e":
		m.exportCSV()
		return m, nil
	case "y":
		m.copyKey()
		return m, nil
	case "up", "k":
		m.cursor--
		m.clampCursor()
		return m, nil
	case "down", "j":
		m.cursor++
		m.clampCursor()
		return m, nil
	}

	if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
		return m, m.toggleStatus(int(key[0] - '1'))
	}
	return m, nil
}

func (m *Model) stepCluster(forward bool) tea.Cmd {
	if m.view == nil || len(m.view.Clusters) == 0 {
		return nil
	}
	choices := m.view.Clusters
	idx := -1
	if m.criteria.Cluster != nil {
		for i, c := range choices {
			if c == *m.criteria.Cluster {
				idx = i
			}
		}
	}
	switch {
	case idx < 0 && forward:
		idx = 0
	case idx < 0:
		idx = len(choices) - 1
	case forward:
		idx = (idx + 1) % len(choices)
	default:
		idx = (idx + len(choices) - 1) % len(choices)
	}
	m.allClusters = false
	m.criteria = m.criteria.WithCluster(choices[idx])
	m.cursor, m.offset = 0, 0
	return m.recompute()
}

func (m *Model) toggleStatus(i int) tea.Cmd {
	if m.view == nil || i >= len(m.view.Statuses) {
		return nil
	}
	status := m.view.Statuses[i]
	m.excluded[status] = !m.excluded[status]

	anyExcluded := false
	selected := []string{}
	for _, s := range m.view.Statuses {
		if m.excluded[s] {
			anyExcluded = true
			continue
		}
		selected = append(selected, s)
	}
	if anyExcluded {
		m.criteria.Statuses = selected
	} else {
		m.criteria.Statuses = nil
	}
	return m.recompute()
}

// syncExcluded mirrors the status criteria into the toggle state.
func (m *Model) syncExcluded() {
	m.excluded = map[string]bool{}
	if m.criteria.Statuses == nil {
		return
	}
	keep := make(map[string]bool, len(m.criteria.Statuses))
	for _, s := range m.criteria.Statuses {
		keep[s] = true
	}
	for _, s := range m.view.Statuses {
		if !keep[s] {
			m.excluded[s] = true
		}
	}
}

func (m *Model) exportCSV() {
	if m.view == nil {
		return
	}
	dir := m.cfg.ExportDir
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, export.DefaultFilename)
	table := m.view.Clustered
	data := export.CSV(table)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		m.err = fmt.Errorf("writing %s: %w", path, err)
		return
	}
	if m.cfg.Views != nil {
		if _, err := m.cfg.Views.LogExport(context.Background(), &views.ExportEntry{
			DataPath: m.cfg.Session.DataPath,
			Criteria: m.view.Criteria.Describe(),
			Format:   string(export.FormatCSV),
			Rows:     table.Len(),
			Checksum: export.Checksum(data),
			Surface:  "tui",
		}); err != nil {
			m.cfg.Logger.Warn("logging export failed", zap.Error(err))
		}
	}
	m.flash = fmt.Sprintf("exported %d issues to %s", table.Len(), path)
}

func (m *Model) copyKey() {
	if m.view == nil || m.view.Clustered.Len() == 0 {
		return
	}
	key := m.view.Clustered.Records[m.cursor].Key
	if err := m.cfg.CopyText(key); err != nil {
		m.err = fmt.Errorf("copying to clipboard: %w", err)
		return
	}
	m.flash = "copied " + key
}

func (m *Model) clampCursor() {
	n := 0
	if m.view != nil {
		n = m.view.Clustered.Len()
	}
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	rows := m.tableRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
}

// tableRows is how many issue rows fit on screen.
func (m Model) tableRows() int {
	rows := m.height - 12
	if rows < 3 {
		rows = 3
	}
	return rows
}

func parseRange(s string) (*filter.DateRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	from, to, ok := strings.Cut(s, "..")
	if !ok {
		to = from
	}
	r, err := filter.ParseDayRange(from, to)
	if err != nil {
		return nil, err
	}
	if err := (filter.Criteria{DateRange: r}).Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func formatRange(r *filter.DateRange) string {
	from := ""
	if !r.Start.IsZero() {
		from = r.Start.Format("2006-01-02")
	}
	return from + ".." + r.End.Format("2006-01-02")
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// statusKey labels the i-th status toggle.
func statusKey(i int) string {
	return strconv.Itoa(i + 1)
}
