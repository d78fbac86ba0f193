// Package digest computes the bounded statistical summary of a Dataset.
// The digest is the durable artifact of an upload: it is persisted with
// the report, shown in the preview UI, and embedded verbatim in
// generation prompts, so its rendering must be deterministic and must
// stay under a configured size budget.
package digest

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Saai416/CSV-Insights-dashboard/internal/ingest"
)

// Options controls summary depth and the serialized size budget.
type Options struct {
	// SampleRows caps the row sample, preserving original order.
	SampleRows int
	// TopK caps per-categorical-column value frequencies.
	TopK int
	// MaxColumns caps how many non-numeric column digests survive the
	// last truncation stage. Numeric statistics are never dropped.
	MaxColumns int
	// BudgetBytes caps len(Render()).
	BudgetBytes int
}

// DefaultOptions returns the budgets used by the upload pipeline.
func DefaultOptions() Options {
	return Options{
		SampleRows:  20,
		TopK:        8,
		MaxColumns:  30,
		BudgetBytes: 4096,
	}
}

// reducedTopK is the first truncation stage: categorical top values
// beyond this count are dropped before anything else.
const reducedTopK = 5

// NumericStats holds descriptive statistics for a numeric column.
type NumericStats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

// ValueCount is one categorical frequency entry.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ColumnDigest summarizes one column.
type ColumnDigest struct {
	Name      string        `json:"name"`
	Kind      ingest.Kind   `json:"kind"`
	NullCount int           `json:"null_count"`
	Numeric   *NumericStats `json:"numeric,omitempty"`
	TopValues []ValueCount  `json:"top_values,omitempty"`
	Distinct  int           `json:"distinct,omitempty"`
}

// Digest is the bounded statistical summary of a dataset.
type Digest struct {
	RowCount     int            `json:"row_count"`
	ColumnCount  int            `json:"column_count"`
	Columns      []ColumnDigest `json:"columns"`
	SampleHeader []string       `json:"sample_header,omitempty"`
	SampleRows   [][]string     `json:"sample_rows,omitempty"`
	Notes        []string       `json:"notes,omitempty"`
}

// NumericColumnNames returns numeric column names in declaration order.
func (d *Digest) NumericColumnNames() []string {
	var names []string
	for _, c := range d.Columns {
		if c.Kind == ingest.KindNumeric {
			names = append(names, c.Name)
		}
	}
	return names
}

// HasNumeric reports whether any column carries numeric statistics.
func (d *Digest) HasNumeric() bool { return len(d.NumericColumnNames()) > 0 }

// Summarize computes the digest for a dataset. Given the same dataset
// the output is byte-for-byte identical: no time, randomness, or map
// iteration order leaks into the result.
func Summarize(ds *ingest.Dataset, opt Options) *Digest {
	if opt.SampleRows <= 0 {
		opt.SampleRows = DefaultOptions().SampleRows
	}
	if opt.TopK <= 0 {
		opt.TopK = DefaultOptions().TopK
	}
	if opt.MaxColumns <= 0 {
		opt.MaxColumns = DefaultOptions().MaxColumns
	}
	if opt.BudgetBytes <= 0 {
		opt.BudgetBytes = DefaultOptions().BudgetBytes
	}

	d := &Digest{
		RowCount:    ds.RowCount(),
		ColumnCount: len(ds.Columns),
		Notes:       append([]string(nil), ds.Warnings...),
	}
	for i, col := range ds.Columns {
		d.Columns = append(d.Columns, summarizeColumn(ds, i, col, opt.TopK))
	}

	sample := opt.SampleRows
	if sample > len(ds.Rows) {
		sample = len(ds.Rows)
	}
	d.SampleHeader = ds.ColumnNames()
	for _, row := range ds.Rows[:sample] {
		cp := make([]string, len(row))
		copy(cp, row)
		d.SampleRows = append(d.SampleRows, cp)
	}

	d.truncateToBudget(opt)
	return d
}

func summarizeColumn(ds *ingest.Dataset, idx int, col ingest.Column, topK int) ColumnDigest {
	cd := ColumnDigest{Name: col.Name, Kind: col.Kind}

	switch col.Kind {
	case ingest.KindNumeric:
		// Welford's algorithm keeps the mean numerically stable and
		// deterministic for a fixed row order.
		n := 0
		mean := 0.0
		min := math.Inf(1)
		max := math.Inf(-1)
		for _, row := range ds.Rows {
			v := cell(row, idx)
			if ingest.IsNull(v) {
				cd.NullCount++
				continue
			}
			x, ok := ingest.ParseNumber(v)
			if !ok {
				continue
			}
			n++
			if x < min {
				min = x
			}
			if x > max {
				max = x
			}
			mean += (x - mean) / float64(n)
		}
		if n > 0 {
			cd.Numeric = &NumericStats{Min: min, Max: max, Mean: mean}
		}
	case ingest.KindUnknown:
		cd.NullCount = ds.RowCount()
	default:
		counts := make(map[string]int)
		for _, row := range ds.Rows {
			v := cell(row, idx)
			if ingest.IsNull(v) {
				cd.NullCount++
				continue
			}
			counts[strings.TrimSpace(v)]++
		}
		cd.Distinct = len(counts)
		tops := make([]ValueCount, 0, len(counts))
		for v, c := range counts {
			tops = append(tops, ValueCount{Value: v, Count: c})
		}
		sort.Slice(tops, func(i, j int) bool {
			if tops[i].Count == tops[j].Count {
				return tops[i].Value < tops[j].Value
			}
			return tops[i].Count > tops[j].Count
		})
		if len(tops) > topK {
			tops = tops[:topK]
		}
		cd.TopValues = tops
	}
	return cd
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return row[idx]
}

// truncateToBudget shrinks the digest until Render fits BudgetBytes.
// Order: categorical top-K entries beyond 5, then sample rows, then
// non-numeric column digests beyond MaxColumns. Numeric statistics
// survive every stage.
func (d *Digest) truncateToBudget(opt Options) {
	if len(d.Render()) <= opt.BudgetBytes {
		return
	}

	reduced := false
	for i := range d.Columns {
		if len(d.Columns[i].TopValues) > reducedTopK {
			d.Columns[i].TopValues = d.Columns[i].TopValues[:reducedTopK]
			reduced = true
		}
	}
	if reduced {
		d.note("top value lists truncated to fit the summary budget")
	}
	if len(d.Render()) <= opt.BudgetBytes {
		return
	}

	if len(d.SampleRows) > 0 {
		d.note("row sample reduced to fit the summary budget")
		for len(d.SampleRows) > 0 && len(d.Render()) > opt.BudgetBytes {
			d.SampleRows = d.SampleRows[:len(d.SampleRows)-1]
		}
		if len(d.SampleRows) == 0 {
			d.SampleHeader = nil
			d.SampleRows = nil
		}
	}
	if len(d.Render()) <= opt.BudgetBytes {
		return
	}

	// Last resort: drop trailing non-numeric column digests, first down
	// to the column cap and then further if the budget still demands it.
	// The note goes in first so the budget check covers it too.
	if lastNonNumericColumn(d.Columns) >= 0 {
		d.note("column details truncated to fit the summary budget")
	}
	for len(d.Columns) > opt.MaxColumns || len(d.Render()) > opt.BudgetBytes {
		idx := lastNonNumericColumn(d.Columns)
		if idx < 0 {
			break
		}
		d.Columns = append(d.Columns[:idx], d.Columns[idx+1:]...)
	}
}

func lastNonNumericColumn(cols []ColumnDigest) int {
	for i := len(cols) - 1; i >= 0; i-- {
		if cols[i].Kind != ingest.KindNumeric {
			return i
		}
	}
	return -1
}

func (d *Digest) note(msg string) {
	for _, n := range d.Notes {
		if n == msg {
			return
		}
	}
	d.Notes = append(d.Notes, msg)
}

// Render serializes the digest as the structured text block embedded in
// generation prompts. The format is stable; tests depend on it.
func (d *Digest) Render() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	fmt.Fprintf(&b, "Rows: %d\n", d.RowCount)
	fmt.Fprintf(&b, "Columns: %d\n\n", d.ColumnCount)

	b.WriteString("[SCHEMA]\n")
	for _, c := range d.Columns {
		fmt.Fprintf(&b, "- %s: %s (nulls %d)", safeName(c.Name), c.Kind, c.NullCount)
		switch {
		case c.Numeric != nil:
			fmt.Fprintf(&b, " — min %.6g, max %.6g, mean %.6g", c.Numeric.Min, c.Numeric.Max, c.Numeric.Mean)
		case len(c.TopValues) > 0:
			b.WriteString(" — top: ")
			for i, tv := range c.TopValues {
				if i > 0 {
					b.WriteString(", ")
				}
				fmt.Fprintf(&b, "%s(%d)", safeValue(tv.Value), tv.Count)
			}
			if c.Distinct > len(c.TopValues) {
				fmt.Fprintf(&b, "; unique=%d", c.Distinct)
			}
		}
		b.WriteString("\n")
	}

	if len(d.SampleRows) > 0 {
		b.WriteString("\n[SAMPLE ROWS]\n")
		b.WriteString("| ")
		for i, name := range d.SampleHeader {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(name))
		}
		b.WriteString(" |\n")
		for _, row := range d.SampleRows {
			b.WriteString("| ")
			for i := range d.SampleHeader {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := cell(row, i)
				if r := []rune(val); len(r) > 80 {
					val = string(r[:77]) + "..."
				}
				b.WriteString(safeValue(val))
			}
			b.WriteString(" |\n")
		}
	}

	if len(d.Notes) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, n := range d.Notes {
			b.WriteString("- ")
			b.WriteString(n)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeValue(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/")
}
