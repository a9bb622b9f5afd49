package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Decode strips any byte-order mark and converts the input to UTF-8.
// Input that is not valid UTF-8 is read as Windows-1252, the usual encoding
// of spreadsheet exports on Windows. The detected encoding name is returned.
func Decode(data []byte) ([]byte, string, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return data[len(bomUTF8):], "utf-8-bom", nil
	case bytes.HasPrefix(data, bomUTF16LE):
		out, err := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder().Bytes(data)
		if err != nil {
			return nil, "", fmt.Errorf("encoding error: utf-16le: %w", err)
		}
		return out, "utf-16le", nil
	case bytes.HasPrefix(data, bomUTF16BE):
		out, err := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(data)
		if err != nil {
			return nil, "", fmt.Errorf("encoding error: utf-16be: %w", err)
		}
		return out, "utf-16be", nil
	case utf8.Valid(data):
		return data, "utf-8", nil
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return nil, "", fmt.Errorf("encoding error: windows-1252: %w", err)
	}
	return out, "windows-1252", nil
}

// ParseCSV decodes and parses comma-separated data.
func ParseCSV(data []byte) (*Table, error) {
	decoded, enc, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(decoded)) == 0 {
		return nil, ErrEmptyFile
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	// Ragged rows are padded or truncated in build.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records [][]string
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %w", err)
		}
		records = append(records, rec)
	}

	t, err := build(records, true)
	if err != nil {
		return nil, err
	}
	t.Encoding = enc
	if enc == "windows-1252" {
		t.Warnings = append([]Warning{{Message: "file is not UTF-8; decoded as Windows-1252"}}, t.Warnings...)
	}
	return t, nil
}
