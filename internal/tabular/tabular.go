// Package tabular turns uploaded CSV and XLSX files into header/row tables.
//
// Rows are returned as maps keyed by the raw header text, the shape the
// header normalizer expects. Problems that do not stop parsing (ragged rows,
// duplicate headers, non-UTF-8 input) are reported as warnings.
package tabular

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// DefaultMaxSize caps how many bytes Parse reads (100MB).
const DefaultMaxSize = 100 * 1024 * 1024

var (
	// ErrEmptyFile means the input had no header row.
	ErrEmptyFile = errors.New("empty file: no header row")

	// ErrTooLarge means the input exceeded the size cap.
	ErrTooLarge = errors.New("file too large")
)

// Warning is a non-fatal parse problem.
type Warning struct {
	Line    int    `json:"line"` // 1-based; 0 for file-level warnings
	Message string `json:"message"`
}

// Table is a parsed file.
type Table struct {
	Headers  []string            `json:"headers"`
	Rows     []map[string]string `json:"rows"`
	Encoding string              `json:"encoding"`
	Warnings []Warning           `json:"warnings,omitempty"`
}

// Format identifies an input file type.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatFor picks the parser for a file name. Unknown extensions are read as CSV.
func FormatFor(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	default:
		return FormatCSV
	}
}

// Parse reads at most maxSize bytes from r and parses them according to the
// file name's extension. maxSize <= 0 selects DefaultMaxSize.
func Parse(name string, r io.Reader, maxSize int64) (*Table, error) {
	return ParseSheet(name, r, maxSize, "")
}

// ParseSheet is Parse with a named XLSX sheet. sheet is ignored for CSV
// input; empty reads the first sheet.
func ParseSheet(name string, r io.Reader, maxSize int64, sheet string) (*Table, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, name, maxSize)
	}

	switch FormatFor(name) {
	case FormatXLSX:
		return ParseXLSX(data, sheet)
	default:
		return ParseCSV(data)
	}
}

// build converts raw records (header first) into a Table, padding short rows,
// truncating long ones and renaming duplicate headers. Spreadsheet readers
// drop trailing empty cells, so warnShort is off for them.
func build(records [][]string, warnShort bool) (*Table, error) {
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}
	t := &Table{}
	t.Headers = uniqueHeaders(records[0], &t.Warnings)
	if len(t.Headers) == 0 {
		return nil, ErrEmptyFile
	}

	width := len(t.Headers)
	t.Rows = make([]map[string]string, 0, len(records)-1)
	for i, rec := range records[1:] {
		line := i + 2
		if isBlank(rec) {
			continue
		}
		switch {
		case len(rec) < width && warnShort:
			t.Warnings = append(t.Warnings, Warning{
				Line:    line,
				Message: fmt.Sprintf("row has %d columns, expected %d; padding with empty values", len(rec), width),
			})
		case len(rec) > width:
			t.Warnings = append(t.Warnings, Warning{
				Line:    line,
				Message: fmt.Sprintf("row has %d columns, expected %d; truncating extra columns", len(rec), width),
			})
		}
		row := make(map[string]string, width)
		for c, h := range t.Headers {
			if c < len(rec) {
				row[h] = rec[c]
			} else {
				row[h] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// uniqueHeaders trims headers and suffixes repeats with _1, _2, ...
// A suffixed name never reuses any header present in raw.
// Trailing empty header cells are dropped.
func uniqueHeaders(raw []string, warnings *[]Warning) []string {
	end := len(raw)
	for end > 0 && strings.TrimSpace(raw[end-1]) == "" {
		end--
	}
	used := make(map[string]bool, end)
	for _, h := range raw[:end] {
		used[strings.TrimSpace(h)] = true
	}
	seen := make(map[string]int, end)
	out := make([]string, 0, end)
	for _, h := range raw[:end] {
		h = strings.TrimSpace(h)
		name := h
		if n, dup := seen[h]; dup {
			for {
				name = fmt.Sprintf("%s_%d", h, n)
				if !used[name] {
					break
				}
				n++
			}
			used[name] = true
			seen[h] = n
			*warnings = append(*warnings, Warning{
				Line:    1,
				Message: fmt.Sprintf("duplicate header %q renamed to %q", h, name),
			})
		}
		seen[h]++
		out = append(out, name)
	}
	return out
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
