// Package export serializes issue tables for download.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/hurttlocker/issuelens/internal/issues"
)

// DefaultFilename is the name offered for CSV downloads.
const DefaultFilename = "filtered_issues.csv"

// Format selects an export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat parses an export format name. Empty input yields FormatCSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown export format %q (want csv or json)", s)
}

// Checksum identifies an export by the xxhash of its bytes, as 16 hex digits.
func Checksum(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv; charset=utf-8"
}

// Write encodes table to w in format f.
func Write(w io.Writer, table *issues.Table, f Format) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, table)
	default:
		return WriteCSV(w, table)
	}
}

// WriteCSV writes table as UTF-8 comma-separated values: a header row with the
// table's columns in schema order, then one row per record.
func WriteCSV(w io.Writer, table *issues.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(table.Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	row := make([]string, len(table.Columns))
	for i, rec := range table.Records {
		for j, col := range table.Columns {
			row[j] = table.Cell(rec, col)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSV returns the CSV encoding of table.
func CSV(table *issues.Table) []byte {
	var buf bytes.Buffer
	// Writes to a bytes.Buffer cannot fail.
	_ = WriteCSV(&buf, table)
	return buf.Bytes()
}

// WriteJSON writes table as an array of objects keyed by column name. Object
// keys are emitted in schema order.
func WriteJSON(w io.Writer, table *issues.Table) error {
	var buf bytes.Buffer
	buf.WriteString("[")
	for i, rec := range table.Records {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n  {")
		for j, col := range table.Columns {
			if j > 0 {
				buf.WriteString(", ")
			}
			k, _ := json.Marshal(col)
			buf.Write(k)
			buf.WriteString(": ")
			buf.Write(jsonValue(table, rec, col))
		}
		buf.WriteString("}")
	}
	if len(table.Records) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("]\n")
	_, err := w.Write(buf.Bytes())
	return err
}

func jsonValue(table *issues.Table, rec issues.Record, col string) []byte {
	var v interface{}
	switch col {
	case issues.ColumnCluster:
		v = rec.Cluster
	case issues.ColumnCreated:
		if rec.Created != nil {
			v = issues.FormatCreated(rec.Created)
		}
	default:
		if s := table.Cell(rec, col); s != "" {
			v = s
		}
	}
	b, _ := json.Marshal(v)
	return b
}
