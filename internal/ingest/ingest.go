// Package ingest parses raw uploaded bytes into an in-memory tabular
// Dataset with per-column type inference. Datasets are ephemeral: they
// exist only long enough to derive a digest and chart series.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Kind is the inferred type of a column.
type Kind string

const (
	KindNumeric     Kind = "numeric"
	KindCategorical Kind = "categorical"
	KindDatetime    Kind = "datetime"
	KindUnknown     Kind = "unknown"
)

// Column pairs a (deduplicated) header name with its inferred kind.
type Column struct {
	Name string
	Kind Kind
}

// Dataset is the parsed table. Rows hold the decoded cell text in the
// original row order; Columns preserve header declaration order.
type Dataset struct {
	Columns  []Column
	Rows     [][]string
	Warnings []string
}

// RowCount returns the number of data rows.
func (d *Dataset) RowCount() int { return len(d.Rows) }

// ColumnNames returns header names in declaration order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// Prioritized decode attempts; the first successful decode wins.
var decoders = []struct {
	name string
	dec  *encoding.Decoder
}{
	{"utf-8", unicode.UTF8.NewDecoder()},
	{"iso-8859-1", charmap.ISO8859_1.NewDecoder()},
	{"windows-1252", charmap.Windows1252.NewDecoder()},
}

// Parse validates and parses raw bytes into a Dataset.
//
// Failure modes:
//   - *SizeLimitError when maxBytes > 0 and content exceeds it
//   - *FormatError for unsupported extensions, empty or undecodable
//     content, and malformed delimited text
//   - *EmptyDatasetError for header-only input
func Parse(content []byte, filename string, maxBytes int) (*Dataset, error) {
	delim, err := delimiterFor(filename)
	if err != nil {
		return nil, err
	}
	if maxBytes > 0 && len(content) > maxBytes {
		return nil, &SizeLimitError{Size: len(content), Limit: maxBytes}
	}
	if len(content) == 0 {
		return nil, &FormatError{Reason: "uploaded file is empty"}
	}

	text, err := decode(content)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &FormatError{Reason: "uploaded file is empty"}
		}
		return nil, &FormatError{Reason: "malformed file: could not read header row"}
	}
	if len(header) == 0 {
		return nil, &FormatError{Reason: "file has no columns"}
	}

	names, warnings := normalizeHeader(header)

	var rows [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			// Inconsistent field counts and quoting problems land here.
			return nil, &FormatError{Reason: fmt.Sprintf("malformed file: row %d could not be parsed", len(rows)+2)}
		}
		row := make([]string, len(rec))
		copy(row, rec)
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, &EmptyDatasetError{}
	}

	cols := make([]Column, len(names))
	for i, name := range names {
		cols[i] = Column{Name: name, Kind: inferKind(rows, i)}
	}
	return &Dataset{Columns: cols, Rows: rows, Warnings: warnings}, nil
}

func delimiterFor(filename string) (rune, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return ',', nil
	case ".tsv":
		return '\t', nil
	default:
		return 0, &FormatError{Reason: "unsupported file type: only .csv and .tsv files are accepted"}
	}
}

func decode(content []byte) (string, error) {
	content = bytes.TrimPrefix(content, []byte{0xEF, 0xBB, 0xBF})
	for _, d := range decoders {
		if d.name == "utf-8" {
			if utf8.Valid(content) {
				return string(content), nil
			}
			continue
		}
		out, err := d.dec.Bytes(content)
		if err == nil {
			return string(out), nil
		}
	}
	return "", &FormatError{Reason: "could not decode file: unknown text encoding"}
}

// normalizeHeader trims names, names blank headers, and disambiguates
// duplicates deterministically (name, name_2, name_3, ...).
func normalizeHeader(header []string) ([]string, []string) {
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))
	var dups []string
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if n := seen[name]; n > 0 {
			dups = append(dups, name)
			candidate := fmt.Sprintf("%s_%d", name, n+1)
			for seen[candidate] > 0 {
				n++
				candidate = fmt.Sprintf("%s_%d", name, n+1)
			}
			seen[name] = n + 1
			name = candidate
		}
		seen[name]++
		names[i] = name
	}
	var warnings []string
	if len(dups) > 0 {
		warnings = append(warnings, fmt.Sprintf("duplicate column names detected (%s) and were automatically renamed", strings.Join(dups, ", ")))
	}
	return names, warnings
}

// IsNull reports whether a cell should be treated as a missing value.
func IsNull(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "na", "n/a", "null", "nan":
		return true
	}
	return false
}

// ParseNumber parses a cell as a number. Only values strconv accepts
// (after trimming whitespace) count as numeric.
func ParseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

var timeLayouts = []string{
	time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
	"2006-01-02 15:04", "2006-01-02 15:04:05",
}

func parseTimeMaybe(s string) bool {
	v := strings.TrimSpace(s)
	for _, l := range timeLayouts {
		if _, err := time.Parse(l, v); err == nil {
			return true
		}
	}
	return false
}

// inferKind applies the strict rule: a column is numeric only when every
// non-null value parses as a number; datetime-like only when every
// non-null value parses as a known layout; mixed content defaults to
// categorical; an all-null column is unknown.
func inferKind(rows [][]string, col int) Kind {
	nonNull := 0
	numeric := true
	datetime := true
	for _, row := range rows {
		if col >= len(row) {
			continue
		}
		v := row[col]
		if IsNull(v) {
			continue
		}
		nonNull++
		if numeric {
			if _, ok := ParseNumber(v); !ok {
				numeric = false
			}
		}
		if datetime && !parseTimeMaybe(v) {
			datetime = false
		}
		if !numeric && !datetime {
			return KindCategorical
		}
	}
	if nonNull == 0 {
		return KindUnknown
	}
	if numeric {
		return KindNumeric
	}
	if datetime {
		return KindDatetime
	}
	return KindCategorical
}
