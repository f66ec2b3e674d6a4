package issues

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadOptions configures how a source file is read.
type LoadOptions struct {
	// Sheet selects the worksheet of a spreadsheet. Empty means the first sheet.
	Sheet string
}

// reader turns one file format into a header row and data rows.
type reader interface {
	// CanHandle returns true if this reader supports the given file path.
	CanHandle(path string) bool

	// Read returns the header cells and the data rows of the file.
	Read(ctx context.Context, path string, opts LoadOptions) (header []string, rows [][]string, err error)
}

func readers() []reader {
	return []reader{
		&xlsxReader{},
		&csvReader{},
		&documentReader{},
	}
}

// SupportedExtensions lists the file extensions Load understands.
var SupportedExtensions = []string{".xlsx", ".xlsm", ".csv", ".tsv", ".json", ".yaml", ".yml"}

// Load reads the file at path into a Table. All failures are *LoadError.
func Load(ctx context.Context, path string, opts LoadOptions) (*Table, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &LoadError{Path: absPath, Err: err}
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, &LoadError{Path: absPath, Err: err}
	}
	if info.IsDir() {
		return nil, &LoadError{Path: absPath, Err: errors.New("is a directory")}
	}

	var r reader
	for _, candidate := range readers() {
		if candidate.CanHandle(absPath) {
			r = candidate
			break
		}
	}
	if r == nil {
		return nil, &LoadError{Path: absPath, Err: fmt.Errorf("unsupported file type %q (supported: %s)",
			filepath.Ext(absPath), strings.Join(SupportedExtensions, ", "))}
	}

	header, rows, err := r.Read(ctx, absPath, opts)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			return nil, le
		}
		return nil, &LoadError{Path: absPath, Err: err}
	}
	return buildTable(absPath, header, rows)
}

// buildTable validates the header and converts every non-blank row into a
// Record. Row numbers in errors are 1-indexed and count the header row.
func buildTable(path string, header []string, rows [][]string) (*Table, error) {
	if len(header) == 0 {
		return nil, &LoadError{Path: path, Missing: RequiredColumns, Err: errors.New("no header row")}
	}

	columns := make([]string, 0, len(header))
	index := make(map[string]int, len(header))
	for i, h := range header {
		name := canonicalColumn(h)
		if name == "" {
			continue
		}
		if _, dup := index[name]; !dup {
			columns = append(columns, name)
		}
		index[name] = i
	}

	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &LoadError{Path: path, Missing: missing}
	}

	_, hasCreated := index[ColumnCreated]
	table := &Table{
		Source:     path,
		Columns:    columns,
		HasCreated: hasCreated,
		Records:    make([]Record, 0, len(rows)),
	}

	cell := func(row []string, column string) string {
		i, ok := index[column]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	for n, row := range rows {
		if blankRow(row) {
			continue
		}
		cluster, err := parseCluster(cell(row, ColumnCluster))
		if err != nil {
			return nil, &LoadError{Path: path, Row: n + 2, Err: err}
		}
		rec := Record{
			Key:     cell(row, ColumnKey),
			Summary: cell(row, ColumnSummary),
			Tag:     cell(row, ColumnTag),
			Status:  cell(row, ColumnStatus),
			Cluster: cluster,
		}
		if hasCreated {
			rec.Created = parseCreated(cell(row, ColumnCreated))
		}
		for _, c := range columns {
			if isInterpreted(c) {
				continue
			}
			if rec.Extra == nil {
				rec.Extra = make(map[string]string, len(columns)-len(RequiredColumns))
			}
			rec.Extra[c] = cell(row, c)
		}
		table.Records = append(table.Records, rec)
	}

	return table, nil
}

func isInterpreted(column string) bool {
	switch column {
	case ColumnKey, ColumnSummary, ColumnTag, ColumnStatus, ColumnCluster, ColumnCreated:
		return true
	}
	return false
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
