package issues

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"
)

const sampleCSV = `Issue key,Summary,Suggested Tag,Status,Cluster,Created,Assignee
OPS-1,PROD outage in GuidingCare,workflow,Open,1,2024-01-05 10:30:00,ana
OPS-2,Grant access to reports,access,Done,0,2024-01-20,
OPS-3,,access,Open,0,not a date,li
,,,,,,
OPS-4,Assessment script fails,,In Progress,2.0,2024-02-02,
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeFile(t, "issues.csv", sampleCSV)

	table, err := Load(context.Background(), path, LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	wantColumns := []string{ColumnKey, ColumnSummary, ColumnTag, ColumnStatus, ColumnCluster, ColumnCreated, "Assignee"}
	if diff := cmp.Diff(wantColumns, table.Columns); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}
	if !table.HasCreated {
		t.Fatal("expected HasCreated")
	}
	if table.Len() != 4 {
		t.Fatalf("expected 4 records (blank row skipped), got %d", table.Len())
	}

	first := table.Records[0]
	if first.Key != "OPS-1" || first.Tag != "workflow" || first.Status != "Open" || first.Cluster != 1 {
		t.Fatalf("unexpected first record: %+v", first)
	}
	wantCreated := time.Date(2024, 1, 5, 10, 30, 0, 0, time.UTC)
	if first.Created == nil || !first.Created.Equal(wantCreated) {
		t.Fatalf("created = %v, want %v", first.Created, wantCreated)
	}
	if first.Extra["Assignee"] != "ana" {
		t.Fatalf("expected extra Assignee=ana, got %q", first.Extra["Assignee"])
	}

	if table.Records[2].Created != nil {
		t.Fatalf("unparseable Created should be absent, got %v", table.Records[2].Created)
	}
	if table.Records[2].Summary != "" {
		t.Fatalf("expected missing summary, got %q", table.Records[2].Summary)
	}
	if table.Records[3].Cluster != 2 {
		t.Fatalf("expected cluster 2.0 coerced to 2, got %d", table.Records[3].Cluster)
	}
}

func TestLoadTSVWithoutCreated(t *testing.T) {
	path := writeFile(t, "issues.tsv", "Issue key\tSummary\tSuggested Tag\tStatus\tCluster\nA-1\tLogin broken\taccess\tOpen\t3\n")

	table, err := Load(context.Background(), path, LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if table.HasCreated {
		t.Fatal("expected HasCreated=false without a Created column")
	}
	if table.Len() != 1 || table.Records[0].Cluster != 3 {
		t.Fatalf("unexpected records: %+v", table.Records)
	}
}

func TestLoadHeaderMatchingIsCaseInsensitive(t *testing.T) {
	path := writeFile(t, "issues.csv", " issue KEY ,summary,SUGGESTED TAG,status,cluster\nA-1,x,y,Open,0\n")

	table, err := Load(context.Background(), path, LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if table.Columns[0] != ColumnKey || table.Records[0].Key != "A-1" {
		t.Fatalf("expected canonical columns, got %v", table.Columns)
	}
}

func TestLoadMissingColumns(t *testing.T) {
	path := writeFile(t, "issues.csv", "Issue key,Summary,Status\nA-1,x,Open\n")

	_, err := Load(context.Background(), path, LoadOptions{})
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected *LoadError, got %T (%v)", err, err)
	}
	if diff := cmp.Diff([]string{ColumnTag, ColumnCluster}, le.Missing); diff != "" {
		t.Fatalf("missing columns mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.xlsx"), LoadOptions{})
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected *LoadError, got %T", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected LoadError to unwrap to ErrNotExist, got %v", err)
	}
}

func TestLoadBadCluster(t *testing.T) {
	path := writeFile(t, "issues.csv", "Issue key,Summary,Suggested Tag,Status,Cluster\nA-1,x,y,Open,0\nA-2,x,y,Open,one\n")

	_, err := Load(context.Background(), path, LoadOptions{})
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected *LoadError, got %v", err)
	}
	if le.Row != 3 {
		t.Fatalf("expected row 3, got %d", le.Row)
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := writeFile(t, "issues.txt", "hello")
	if _, err := Load(context.Background(), path, LoadOptions{}); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "issues.json", `[
  {"Issue key": "J-1", "Summary": "Member ID mismatch", "Suggested Tag": "member data", "Status": "Open", "Cluster": 4, "Created": "2024-03-01"},
  {"Issue key": "J-2", "Summary": "Docs outdated", "Suggested Tag": null, "Status": "Done", "Cluster": 3, "Created": null}
]`)

	table, err := Load(context.Background(), path, LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", table.Len())
	}
	if table.Records[0].Cluster != 4 || table.Records[0].Created == nil {
		t.Fatalf("unexpected first record: %+v", table.Records[0])
	}
	if table.Records[1].Tag != "" || table.Records[1].Created != nil {
		t.Fatalf("null values should load as missing: %+v", table.Records[1])
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "issues.yaml", `- Issue key: Y-1
  Summary: Complaint about letters
  Suggested Tag: complaint
  Status: Open
  Cluster: 3
  Priority: high
`)

	table, err := Load(context.Background(), path, LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if table.HasCreated {
		t.Fatal("expected no Created column")
	}
	if table.Records[0].Extra["Priority"] != "high" {
		t.Fatalf("expected extra Priority, got %+v", table.Records[0].Extra)
	}
}

func TestLoadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "issues.xlsx")

	f := excelize.NewFile()
	rows := [][]interface{}{
		{"Issue key", "Summary", "Suggested Tag", "Status", "Cluster", "Created"},
		{"X-1", "Script assessment error", "assessment", "Open", 2, "2024-04-10"},
		{"X-2", "Test plan for member IDs", "member data", "Done", 4, ""},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	table, err := Load(context.Background(), path, LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", table.Len())
	}
	if table.Records[0].Cluster != 2 || table.Records[0].Created == nil {
		t.Fatalf("unexpected first record: %+v", table.Records[0])
	}
	if table.Records[1].Created != nil {
		t.Fatal("expected empty Created cell to be absent")
	}

	if _, err := Load(context.Background(), path, LoadOptions{Sheet: "Missing"}); err == nil {
		t.Fatal("expected error for unknown sheet")
	}
}

func TestLoadXLSXDateCellsAnyNumberFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dates.xlsx")
	created := time.Date(2024, 1, 5, 10, 30, 0, 0, time.UTC)

	f := excelize.NewFile()
	header := []interface{}{"Issue key", "Summary", "Suggested Tag", "Status", "Cluster", "Created"}
	if err := f.SetSheetRow("Sheet1", "A1", &header); err != nil {
		t.Fatalf("SetSheetRow: %v", err)
	}
	for i, key := range []string{"X-1", "X-2", "X-3"} {
		row := []interface{}{key, "PROD login fails", "access", "Open", 1, created}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}

	custom := "yyyy-mm-dd hh:mm:ss"
	customStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &custom})
	if err != nil {
		t.Fatalf("NewStyle: %v", err)
	}
	shortDate, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		t.Fatalf("NewStyle: %v", err)
	}
	if err := f.SetCellStyle("Sheet1", "F3", "F3", customStyle); err != nil {
		t.Fatalf("SetCellStyle: %v", err)
	}
	if err := f.SetCellStyle("Sheet1", "F4", "F4", shortDate); err != nil {
		t.Fatalf("SetCellStyle: %v", err)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	table, err := Load(context.Background(), path, LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if table.Len() != 3 {
		t.Fatalf("expected 3 records, got %d", table.Len())
	}
	for _, rec := range table.Records {
		if rec.Created == nil {
			t.Fatalf("%s: Created lost", rec.Key)
		}
		if !rec.Created.Equal(created) {
			t.Fatalf("%s: Created = %s, want %s", rec.Key, rec.Created.Format(time.RFC3339), created.Format(time.RFC3339))
		}
		if rec.Cluster != 1 || rec.Tag != "access" {
			t.Fatalf("%s: unexpected record %+v", rec.Key, rec)
		}
	}
}

func TestParseCreated(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"2024-01-05", "2024-01-05T00:00:00Z"},
		{"2024-01-05 10:30:00", "2024-01-05T10:30:00Z"},
		{"01/05/2024", "2024-01-05T00:00:00Z"},
		{"45296", "2024-01-05T00:00:00Z"},
		{"", ""},
		{"not a date", ""},
	}
	for _, tt := range tests {
		got := FormatCreated(parseCreated(tt.raw))
		if got != tt.want {
			t.Errorf("parseCreated(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestParseCluster(t *testing.T) {
	for raw, want := range map[string]int{"3": 3, "3.0": 3, " 4 ": 4, "-1": -1} {
		got, err := parseCluster(raw)
		if err != nil || got != want {
			t.Errorf("parseCluster(%q) = %d, %v; want %d", raw, got, err, want)
		}
	}
	for _, raw := range []string{"", "x", "1.5"} {
		if _, err := parseCluster(raw); err == nil {
			t.Errorf("parseCluster(%q) should fail", raw)
		}
	}
}

func TestTableCellFormatsCoreColumns(t *testing.T) {
	created := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	table := &Table{Columns: []string{ColumnKey, ColumnCluster, ColumnCreated, "Team"}}
	rec := Record{Key: "K-1", Cluster: 7, Created: &created, Extra: map[string]string{"Team": "core"}}

	got := []string{}
	for _, c := range table.Columns {
		got = append(got, table.Cell(rec, c))
	}
	want := []string{"K-1", "7", "2024-02-01T00:00:00Z", "core"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("cells mismatch (-want +got):\n%s", diff)
	}
}
