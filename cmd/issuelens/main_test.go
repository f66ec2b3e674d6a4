package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hurttlocker/issuelens/internal/issues"
	"github.com/hurttlocker/issuelens/internal/views"
	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"
)

const fixture = `Issue key,Summary,Suggested Tag,Status,Cluster,Created
S-1,Cannot log in to PROD,access,Open,0,2024-01-10
S-2,GuidingCare workflow stuck,workflow,Closed,1,2024-01-20
S-3,Access request for new hire,access,Open,0,2024-02-03
S-4,Assessment script fails,script,Open,2,2024-03-15
`

type env struct {
	dir  string
	data string
	db   string
}

func newEnv(t *testing.T) env {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	for _, k := range []string{"ISSUELENS_DATA", "ISSUELENS_DB", "ISSUELENS_ADDR", "ISSUELENS_SCOPE", "ISSUELENS_SHEET"} {
		t.Setenv(k, "")
	}
	data := filepath.Join(dir, "issues.csv")
	if err := os.WriteFile(data, []byte(fixture), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return env{dir: dir, data: data, db: filepath.Join(dir, "views.db")}
}

// run executes the CLI with the env's data file, database and a missing
// config file, returning stdout and stderr.
func (e env) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	_, stdout, stderr, err := e.runApp(t, args...)
	return stdout, stderr, err
}

// runApp is run that also returns the app state after execution.
func (e env) runApp(t *testing.T, args ...string) (*app, string, string, error) {
	t.Helper()
	a := &app{}
	root := newRootCmd(a)
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	full := append([]string{
		"--config", filepath.Join(e.dir, "missing.yaml"),
		"--data", e.data,
		"--db", e.db,
	}, args...)
	root.SetArgs(full)
	err := execute(context.Background(), a, root)
	return a, stdout.String(), stderr.String(), err
}

func (e env) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, stderr, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("issuelens %s: %v\nstderr: %s", strings.Join(args, " "), err, stderr)
	}
	return out
}

func TestVersion(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun(t, "version")
	if !strings.Contains(out, version) {
		t.Fatalf("expected version %q in %q", version, out)
	}
}

func TestFilterTableOutput(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun(t, "filter", "--cluster", "0")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two rows, got:\n%s", out)
	}
	if !strings.HasPrefix(lines[0], "Issue key") {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "S-1") || !strings.HasPrefix(lines[2], "S-3") {
		t.Fatalf("unexpected rows:\n%s", out)
	}
}

func TestFilterAllClustersByDefault(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun(t, "filter", "--format", "csv")
	if got := strings.Count(strings.TrimSpace(out), "\n"); got != 4 {
		t.Fatalf("expected 4 data rows, got %d:\n%s", got, out)
	}
}

func TestFilterCombinedCriteria(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun(t, "filter", "--format", "csv",
		"--search", "access", "--status", "Open", "--from", "2024-02-01", "--to", "2024-02-28")

	want := "Issue key,Summary,Suggested Tag,Status,Cluster,Created\n" +
		"S-3,Access request for new hire,access,Open,0,2024-02-03T00:00:00Z\n"
	if out != want {
		t.Fatalf("unexpected csv:\n%s", out)
	}
}

func TestFilterEmptyStatusSelectsNothing(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun(t, "filter", "--status", "")
	if !strings.Contains(out, "No issues match") {
		t.Fatalf("expected empty result, got:\n%s", out)
	}
}

func TestFilterWhereJSON(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun(t, "filter", "--format", "json", "--where", `Tag == "script"`)

	var rows []map[string]interface{}
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(rows) != 1 || rows[0]["Issue key"] != "S-4" {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestFilterRejectsBadCriteria(t *testing.T) {
	e := newEnv(t)
	cases := [][]string{
		{"filter", "--from", "2024-03-01", "--to", "2024-01-01"},
		{"filter", "--from", "March"},
		{"filter", "--cluster", "two"},
		{"filter", "--where", "Tag =="},
		{"filter", "--format", "xml"},
		{"filter", "--out", "x.csv"},
	}
	for _, args := range cases {
		if _, _, err := e.run(t, args...); err == nil {
			t.Errorf("issuelens %s: expected error", strings.Join(args, " "))
		}
	}
}

func TestFilterMissingDataFile(t *testing.T) {
	e := newEnv(t)
	e.data = filepath.Join(e.dir, "nope.xlsx")
	if _, _, err := e.run(t, "filter"); err == nil {
		t.Fatal("expected load error")
	}
}

func TestFilterOutWritesFileAndLogsExport(t *testing.T) {
	e := newEnv(t)
	out := filepath.Join(e.dir, "filtered_issues.csv")
	_, stderr, err := e.run(t, "filter", "--cluster", "0", "--format", "csv", "--out", out)
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if !strings.Contains(stderr, "Wrote 2 issues") {
		t.Fatalf("expected confirmation on stderr, got %q", stderr)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.HasPrefix(string(b), "Issue key,") || strings.Count(string(b), "\n") != 3 {
		t.Fatalf("unexpected export:\n%s", b)
	}

	st, err := views.NewStore(views.StoreConfig{DBPath: e.db})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer st.Close()
	exports, err := st.RecentExports(context.Background(), 5)
	if err != nil {
		t.Fatalf("RecentExports: %v", err)
	}
	if len(exports) != 1 || exports[0].Surface != "cli" || exports[0].Rows != 2 || exports[0].Checksum == "" {
		t.Fatalf("unexpected export log: %+v", exports)
	}
}

func TestViewsLifecycle(t *testing.T) {
	e := newEnv(t)

	if out := e.mustRun(t, "views", "list"); !strings.Contains(out, "No saved views") {
		t.Fatalf("expected empty list, got %q", out)
	}

	out := e.mustRun(t, "views", "save", "open-access", "--status", "Open", "--search", "access")
	if !strings.Contains(out, `Saved view "open-access"`) {
		t.Fatalf("unexpected save output: %q", out)
	}

	if out := e.mustRun(t, "views", "list"); !strings.Contains(out, "open-access") {
		t.Fatalf("expected view in list, got %q", out)
	}

	out = e.mustRun(t, "views", "show", "open-access", "--json")
	var v views.SavedView
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decode view: %v\n%s", err, out)
	}
	if v.Criteria.SearchText != "access" || len(v.Criteria.Statuses) != 1 {
		t.Fatalf("unexpected criteria: %+v", v.Criteria)
	}

	if out := e.mustRun(t, "views", "show", "open-access"); !strings.Contains(out, "search_text: access") {
		t.Fatalf("expected yaml criteria, got:\n%s", out)
	}

	// The saved view seeds the filters; flags override single fields.
	out = e.mustRun(t, "filter", "--view", "open-access", "--format", "csv")
	if strings.Count(out, "\n") != 3 {
		t.Fatalf("expected two rows from the view, got:\n%s", out)
	}
	out = e.mustRun(t, "filter", "--view", "open-access", "--search", "log in", "--format", "csv")
	if strings.Count(out, "\n") != 2 || !strings.Contains(out, "S-1") {
		t.Fatalf("expected search override, got:\n%s", out)
	}

	e.mustRun(t, "views", "delete", "open-access")
	if _, _, err := e.run(t, "views", "show", "open-access"); err == nil {
		t.Fatal("expected error for deleted view")
	}
	if _, _, err := e.run(t, "views", "delete", "open-access"); err == nil {
		t.Fatal("expected error deleting a missing view")
	}
}

func TestViewsExports(t *testing.T) {
	e := newEnv(t)
	if out := e.mustRun(t, "views", "exports"); !strings.Contains(out, "No exports") {
		t.Fatalf("unexpected output: %q", out)
	}
	e.mustRun(t, "filter", "--format", "json", "--out", filepath.Join(e.dir, "out.json"))
	out := e.mustRun(t, "views", "exports")
	if !strings.Contains(out, "cli") || !strings.Contains(out, "json") {
		t.Fatalf("expected export row, got %q", out)
	}
}

func TestSummary(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun(t, "summary", "--status", "Open")

	for _, want := range []string{"Tag frequency", "access", "2024-01", "Cluster x tag", "Matching:"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "workflow") {
		t.Errorf("closed issue's tag should be filtered out:\n%s", out)
	}
}

func TestSummarySourceScopeIgnoresFilters(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun(t, "summary", "--status", "Open", "--chart-scope", "source")
	if !strings.Contains(out, "workflow") {
		t.Fatalf("source scope should count every issue:\n%s", out)
	}
}

func TestClustersRaw(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun(t, "clusters", "--raw")
	if !strings.Contains(out, "**Cluster 0**: Access/user request-related issues") {
		t.Fatalf("unexpected markdown:\n%s", out)
	}
}

func TestConfigShowsSources(t *testing.T) {
	e := newEnv(t)
	t.Setenv("ISSUELENS_SCOPE", "cluster")
	out := e.mustRun(t, "config")
	if !strings.Contains(out, "aggregate_scope  cluster (env: ISSUELENS_SCOPE)") {
		t.Fatalf("expected scope from env:\n%s", out)
	}
	if !strings.Contains(out, e.data+" (cli: --data)") {
		t.Fatalf("expected data path from flag:\n%s", out)
	}
}

func TestRejectsUnknownScope(t *testing.T) {
	e := newEnv(t)
	if _, _, err := e.run(t, "--scope", "everything", "version"); err == nil {
		t.Fatal("expected error for unknown scope")
	}
}

func TestFailedCommandClosesViewsStore(t *testing.T) {
	e := newEnv(t)
	a, _, _, err := e.runApp(t, "views", "show", "missing")
	if err == nil {
		t.Fatal("expected error for a missing view")
	}
	if a.store != nil {
		t.Fatal("expected the views store to be closed after a failed command")
	}

	a, _, _, err = e.runApp(t, "filter", "--view", "missing")
	if err == nil || a.store != nil {
		t.Fatalf("expected error and closed store, got err=%v store=%v", err, a.store)
	}
}

func TestPrintTableTruncatesEveryWideCell(t *testing.T) {
	tag := strings.Repeat("t", maxCellWidth+10)
	table := &issues.Table{
		Columns: []string{issues.ColumnKey, issues.ColumnTag},
		Records: []issues.Record{{Key: "S-9", Tag: tag}},
	}
	var buf bytes.Buffer
	printTable(&buf, table, 0)

	if strings.Contains(buf.String(), tag) {
		t.Fatalf("expected the tag column truncated:\n%s", buf.String())
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	// Key column padded to the header's width, two spaces, then the tag.
	if got, want := runewidth.StringWidth(lines[1]), len("Issue key")+2+maxCellWidth; got != want {
		t.Fatalf("row width = %d, want %d:\n%s", got, want, buf.String())
	}
	if !strings.HasSuffix(lines[1], "…") {
		t.Fatalf("expected an ellipsis, got %q", lines[1])
	}
}

func TestOptionalViewsWithoutDatabase(t *testing.T) {
	e := newEnv(t)
	blocker := filepath.Join(e.dir, "file")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	a := &app{logger: zap.NewNop()}
	a.cfg.DBPath.Value = filepath.Join(blocker, "views.db")
	if st := a.optionalViews(); st != nil {
		t.Fatal("expected nil store when the database cannot be opened")
	}
	if _, err := a.views(); err == nil {
		t.Fatal("expected error from views()")
	}
}
