package issues

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/spf13/cast"
	"github.com/xuri/excelize/v2"
)

// maxExcelSerial is 9999-12-31 in the 1900 date system.
const maxExcelSerial = 2958465

// parseCreated coerces a Created cell into a timestamp. Anything that is
// neither a recognizable date nor an Excel serial day number yields nil.
func parseCreated(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if looksLikeExcelSerial(raw) {
		serial, _ := strconv.ParseFloat(raw, 64)
		if ts, err := excelize.ExcelDateToTime(serial, false); err == nil {
			ts = ts.UTC()
			return &ts
		}
		return nil
	}
	ts, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return nil
	}
	ts = ts.UTC()
	return &ts
}

// looksLikeExcelSerial reports whether raw is a spreadsheet day number rather
// than a compact date such as "2024" or "20240105".
func looksLikeExcelSerial(raw string) bool {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 1 || f > maxExcelSerial {
		return false
	}
	if strings.Contains(raw, ".") {
		return true
	}
	return len(raw) == 5
}

// parseCluster coerces a Cluster cell ("3", "3.0", " 3 ") into an int.
func parseCluster(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("cluster is empty")
	}
	f, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, fmt.Errorf("cluster %q is not a number", raw)
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("cluster %q is not an integer", raw)
	}
	return int(f), nil
}

func formatCluster(c int) string {
	return strconv.Itoa(c)
}
