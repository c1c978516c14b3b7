package google

import (
	"fmt"
	"strconv"
	"strings"

	"screentime/internal/core"
)

// parseRecords converts a values matrix (as returned by the Sheets API) into
// records. The first row must be the Category,Value header; blank rows are skipped.
func parseRecords(values [][]interface{}, source string) ([]core.Record, error) {
	records := []core.Record{}
	if len(values) == 0 {
		return records, nil
	}

	headers := toStrings(values[0])
	if safeGet(headers, 0) != core.StoreHeader[0] || safeGet(headers, 1) != core.StoreHeader[1] {
		return nil, &core.ParseError{
			Source: source,
			Line:   1,
			Field:  "header",
			Err:    fmt.Errorf("unexpected header %v", headers),
		}
	}

	for i := 1; i < len(values); i++ {
		row := values[i]
		cells := toStrings(row)
		if strings.Join(cells, "") == "" {
			continue
		}
		if len(row) < 2 {
			return nil, &core.ParseError{Source: source, Line: i + 1, Err: fmt.Errorf("expected 2 cells, got %d", len(row))}
		}
		v, ok := cellNumber(row[1])
		if !ok {
			return nil, &core.ParseError{Source: source, Line: i + 1, Field: "Value", Err: fmt.Errorf("%q is not a number", cells[1])}
		}
		records = append(records, core.Record{Category: fmt.Sprint(row[0]), Value: v})
	}
	return records, nil
}

func cellNumber(cell interface{}) (float64, bool) {
	switch v := cell.(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx >= 0 && idx < len(arr) {
		return arr[idx]
	}
	return ""
}
