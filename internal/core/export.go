package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/JonMunkholm/smartsync/internal/schema"
	"github.com/JonMunkholm/smartsync/internal/store"
)

// InvalidRowRecords flattens invalid rows into the stored shape: source
// fields plus rowId, rowIndex and missingEssentials.
func InvalidRowRecords(rows []InvalidRow) []store.Record {
	out := make([]store.Record, 0, len(rows))
	for _, row := range rows {
		r := store.Record{
			"rowId":             row.Record.RowID,
			"rowIndex":          row.RowIndex,
			"missingEssentials": row.MissingEssentials,
		}
		for k, v := range row.Record.Fields {
			r[k] = v
		}
		out = append(out, r)
	}
	return out
}

// InvalidRowsSheet lays stored invalid rows out for a spreadsheet: row
// number and missing fields first, then schema fields in schema order, then
// any extra source columns sorted by name.
func InvalidRowsSheet(fields []schema.Field, recs []store.Record) ([]string, [][]string) {
	headers := []string{"rowIndex", "missingEssentials"}
	known := map[string]bool{"rowIndex": true, "missingEssentials": true, "rowId": true, store.KeyField: true}
	for _, f := range fields {
		headers = append(headers, f.Name)
		known[f.Name] = true
	}

	extra := map[string]bool{}
	for _, r := range recs {
		for k := range r {
			if !known[k] {
				extra[k] = true
			}
		}
	}
	extras := make([]string, 0, len(extra))
	for k := range extra {
		extras = append(extras, k)
	}
	sort.Strings(extras)
	headers = append(headers, extras...)

	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		row := make([]string, len(headers))
		for i, h := range headers {
			row[i] = cellString(r[h])
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rowNumber(rows[i][0]) < rowNumber(rows[j][0])
	})
	return headers, rows
}

// cellString flattens a stored value. Lists come back as []any after a JSON
// round trip through the SQL stores.
func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []string:
		return strings.Join(t, ", ")
	case []any:
		parts := make([]string, len(t))
		for i, p := range t {
			parts[i] = cellString(p)
		}
		return strings.Join(parts, ", ")
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprint(t)
	default:
		return fmt.Sprint(t)
	}
}

func rowNumber(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return n
		}
		n = n*10 + int(c-'0')
	}
	return n
}
