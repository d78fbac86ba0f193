// Package chart derives bar-chart and histogram series from a parsed
// dataset. Chart generation is best-effort: when no numeric column
// exists it returns a "no chart" marker instead of failing, so insight
// delivery is never blocked by charting.
package chart

import (
	"fmt"
	"sort"

	"github.com/Saai416/CSV-Insights-dashboard/internal/ingest"
)

const (
	// HistogramBins is the number of equal-width buckets over the
	// primary numeric column's full value range.
	HistogramBins = 10
	// MaxBars caps bar-chart categories for legibility.
	MaxBars = 10
)

// Series is one named label/value sequence consumed by the chart UI.
type Series struct {
	Title  string    `json:"title"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// Spec holds the derived chart series. HasNumeric is false exactly when
// the dataset has zero numeric columns, in which case no series exist.
type Spec struct {
	HasNumeric    bool    `json:"has_numeric"`
	Message       string  `json:"message,omitempty"`
	PrimaryColumn string  `json:"primary_column,omitempty"`
	Bar           *Series `json:"bar_chart,omitempty"`
	Histogram     *Series `json:"histogram,omitempty"`
}

// Build selects chart series from the dataset. The primary numeric
// column is the first by declaration order; the label column is the
// categorical column with the fewest distinct values.
func Build(ds *ingest.Dataset) *Spec {
	numIdx := -1
	for i, c := range ds.Columns {
		if c.Kind == ingest.KindNumeric {
			numIdx = i
			break
		}
	}
	if numIdx < 0 {
		return &Spec{HasNumeric: false, Message: "no numeric columns found for charting"}
	}

	primary := ds.Columns[numIdx].Name
	spec := &Spec{HasNumeric: true, PrimaryColumn: primary}

	catIdx := pickLabelColumn(ds)
	if catIdx >= 0 {
		spec.Bar = categorySums(ds, numIdx, catIdx)
	} else {
		spec.Bar = rowSample(ds, numIdx)
	}
	spec.Histogram = histogram(ds, numIdx)
	return spec
}

// pickLabelColumn returns the categorical column with the fewest
// distinct values (fewer bars read better), or -1 if none exists.
// Ties resolve to the earlier column.
func pickLabelColumn(ds *ingest.Dataset) int {
	best := -1
	bestDistinct := 0
	for i, c := range ds.Columns {
		if c.Kind != ingest.KindCategorical {
			continue
		}
		distinct := make(map[string]struct{})
		for _, row := range ds.Rows {
			if v := cell(row, i); !ingest.IsNull(v) {
				distinct[v] = struct{}{}
			}
		}
		if len(distinct) == 0 {
			continue
		}
		if best < 0 || len(distinct) < bestDistinct {
			best = i
			bestDistinct = len(distinct)
		}
	}
	return best
}

// categorySums aggregates the primary numeric column per category.
// Bars are ordered by descending total, ties broken lexicographically.
func categorySums(ds *ingest.Dataset, numIdx, catIdx int) *Series {
	sums := make(map[string]float64)
	for _, row := range ds.Rows {
		label := cell(row, catIdx)
		if ingest.IsNull(label) {
			continue
		}
		x, ok := ingest.ParseNumber(cell(row, numIdx))
		if !ok {
			continue
		}
		sums[label] += x
	}
	type bar struct {
		label string
		total float64
	}
	bars := make([]bar, 0, len(sums))
	for l, t := range sums {
		bars = append(bars, bar{l, t})
	}
	sort.Slice(bars, func(i, j int) bool {
		if bars[i].total == bars[j].total {
			return bars[i].label < bars[j].label
		}
		return bars[i].total > bars[j].total
	})
	if len(bars) > MaxBars {
		bars = bars[:MaxBars]
	}
	s := &Series{Title: fmt.Sprintf("%s by %s", ds.Columns[numIdx].Name, ds.Columns[catIdx].Name)}
	for _, b := range bars {
		s.Labels = append(s.Labels, b.label)
		s.Values = append(s.Values, b.total)
	}
	return s
}

// rowSample falls back to the first values with row-index labels when
// no categorical column is available.
func rowSample(ds *ingest.Dataset, numIdx int) *Series {
	s := &Series{Title: fmt.Sprintf("%s - sample values", ds.Columns[numIdx].Name)}
	for i, row := range ds.Rows {
		if len(s.Values) >= MaxBars {
			break
		}
		x, ok := ingest.ParseNumber(cell(row, numIdx))
		if !ok {
			continue
		}
		s.Labels = append(s.Labels, fmt.Sprintf("Row %d", i+1))
		s.Values = append(s.Values, x)
	}
	return s
}

// histogram bins the primary numeric column's full value range into
// equal-width buckets with real counts.
func histogram(ds *ingest.Dataset, numIdx int) *Series {
	var vals []float64
	for _, row := range ds.Rows {
		if x, ok := ingest.ParseNumber(cell(row, numIdx)); ok {
			vals = append(vals, x)
		}
	}
	s := &Series{Title: "value distribution"}
	if len(vals) == 0 {
		return s
	}
	min, max := vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if min == max {
		s.Labels = []string{fmt.Sprintf("%.4g", min)}
		s.Values = []float64{float64(len(vals))}
		return s
	}
	width := (max - min) / HistogramBins
	counts := make([]float64, HistogramBins)
	for _, v := range vals {
		idx := int((v - min) / width)
		if idx >= HistogramBins {
			idx = HistogramBins - 1
		}
		counts[idx]++
	}
	for i := 0; i < HistogramBins; i++ {
		lo := min + float64(i)*width
		hi := lo + width
		s.Labels = append(s.Labels, fmt.Sprintf("%.4g-%.4g", lo, hi))
	}
	s.Values = counts
	return s
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return row[idx]
}
