package issues

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// xlsxReader handles Excel workbooks.
type xlsxReader struct{}

// CanHandle returns true for workbook extensions.
func (x *xlsxReader) CanHandle(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".xlsx" || ext == ".xlsm"
}

// Read returns the rows of the selected sheet, formatted as the workbook
// displays them, except Created, which is read as the stored value so date
// cells reach parseCreated as serial day numbers whatever their number format.
func (x *xlsxReader) Read(ctx context.Context, path string, opts LoadOptions) ([]string, [][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("workbook has no sheets")
	}
	sheet := sheets[0]
	if opts.Sheet != "" {
		found := false
		for _, s := range sheets {
			if strings.EqualFold(s, opts.Sheet) {
				sheet, found = s, true
				break
			}
		}
		if !found {
			return nil, nil, fmt.Errorf("sheet %q not found (have %s)", opts.Sheet, strings.Join(sheets, ", "))
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}

	created := -1
	for i, h := range rows[0] {
		if canonicalColumn(h) == ColumnCreated {
			created = i
			break
		}
	}
	if created >= 0 {
		raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
		}
		for i := 1; i < len(rows) && i < len(raw); i++ {
			if created < len(rows[i]) && created < len(raw[i]) {
				rows[i][created] = raw[i][created]
			}
		}
	}
	return rows[0], rows[1:], nil
}
