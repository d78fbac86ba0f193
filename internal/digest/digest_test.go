package digest

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/Saai416/CSV-Insights-dashboard/internal/ingest"
)

func testDataset() *ingest.Dataset {
	return &ingest.Dataset{
		Columns: []ingest.Column{
			{Name: "value", Kind: ingest.KindNumeric},
			{Name: "category", Kind: ingest.KindCategorical},
		},
		Rows: [][]string{
			{"10", "A"},
			{"20", "B"},
			{"30", "A"},
		},
	}
}

func TestSummarizeBasic(t *testing.T) {
	d := Summarize(testDataset(), DefaultOptions())

	if d.RowCount != 3 || d.ColumnCount != 2 {
		t.Fatalf("got %d rows / %d columns, want 3 / 2", d.RowCount, d.ColumnCount)
	}

	num := d.Columns[0]
	if num.Numeric == nil {
		t.Fatal("numeric column has no stats")
	}
	if num.Numeric.Min != 10 || num.Numeric.Max != 30 || num.Numeric.Mean != 20 {
		t.Errorf("numeric stats = %+v, want min 10 max 30 mean 20", num.Numeric)
	}

	cat := d.Columns[1]
	if cat.Distinct != 2 {
		t.Errorf("distinct = %d, want 2", cat.Distinct)
	}
	if len(cat.TopValues) != 2 ||
		cat.TopValues[0] != (ValueCount{Value: "A", Count: 2}) ||
		cat.TopValues[1] != (ValueCount{Value: "B", Count: 1}) {
		t.Errorf("top values = %+v, want A(2), B(1)", cat.TopValues)
	}
}

func TestSummarizeTopValueTieOrder(t *testing.T) {
	ds := &ingest.Dataset{
		Columns: []ingest.Column{{Name: "c", Kind: ingest.KindCategorical}},
		Rows:    [][]string{{"banana"}, {"apple"}, {"banana"}, {"apple"}},
	}
	d := Summarize(ds, DefaultOptions())
	tv := d.Columns[0].TopValues
	if tv[0].Value != "apple" || tv[1].Value != "banana" {
		t.Errorf("tied counts must order by value: got %+v", tv)
	}
}

func TestSummarizeNullCounting(t *testing.T) {
	ds := &ingest.Dataset{
		Columns: []ingest.Column{{Name: "v", Kind: ingest.KindNumeric}},
		Rows:    [][]string{{"1"}, {"NA"}, {""}, {"4"}},
	}
	d := Summarize(ds, DefaultOptions())
	if d.Columns[0].NullCount != 2 {
		t.Errorf("null count = %d, want 2", d.Columns[0].NullCount)
	}
	if d.Columns[0].Numeric.Mean != 2.5 {
		t.Errorf("mean = %g, want 2.5 over non-null values", d.Columns[0].Numeric.Mean)
	}
}

func TestSummarizeDeterministic(t *testing.T) {
	a := Summarize(testDataset(), DefaultOptions()).Render()
	b := Summarize(testDataset(), DefaultOptions()).Render()
	if a != b {
		t.Error("two summaries of the same dataset rendered differently")
	}
}

func TestRenderFormat(t *testing.T) {
	out := Summarize(testDataset(), DefaultOptions()).Render()

	for _, want := range []string{
		"[DATASET SUMMARY]",
		"Rows: 3",
		"Columns: 2",
		"[SCHEMA]",
		"- value: numeric (nulls 0) — min 10, max 30, mean 20",
		"- category: categorical (nulls 0) — top: A(2), B(1)",
		"[SAMPLE ROWS]",
		"| value | category |",
		"| 10 | A |",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q:\n%s", want, out)
		}
	}
}

func TestRenderEscapesPipes(t *testing.T) {
	ds := &ingest.Dataset{
		Columns: []ingest.Column{{Name: "c", Kind: ingest.KindCategorical}},
		Rows:    [][]string{{"a|b\nc"}},
	}
	out := Summarize(ds, DefaultOptions()).Render()
	if strings.Contains(out, "a|b") {
		t.Error("pipe characters in cells must be escaped in the sample table")
	}
}

func TestRenderTruncatesCellsOnRuneBoundary(t *testing.T) {
	ds := &ingest.Dataset{
		Columns: []ingest.Column{{Name: "c", Kind: ingest.KindCategorical}},
		Rows:    [][]string{{strings.Repeat("日", 100)}},
	}
	out := Summarize(ds, DefaultOptions()).Render()
	if !utf8.ValidString(out) {
		t.Error("render contains invalid UTF-8 after cell truncation")
	}
	if !strings.Contains(out, strings.Repeat("日", 77)+"...") {
		t.Error("long cell was not truncated to 77 characters")
	}
}

func TestSummarizeNoTruncationUnderBudget(t *testing.T) {
	d := Summarize(testDataset(), DefaultOptions())
	if len(d.Notes) != 0 {
		t.Errorf("small dataset produced truncation notes: %v", d.Notes)
	}
	if len(d.SampleRows) != 3 {
		t.Errorf("sample rows = %d, want all 3", len(d.SampleRows))
	}
}

func TestSummarizeBudgetEnforced(t *testing.T) {
	rows := make([][]string, 200)
	for i := range rows {
		rows[i] = []string{
			fmt.Sprintf("%d", i),
			fmt.Sprintf("category-with-a-fairly-long-name-%d", i%40),
		}
	}
	ds := &ingest.Dataset{
		Columns: []ingest.Column{
			{Name: "value", Kind: ingest.KindNumeric},
			{Name: "label", Kind: ingest.KindCategorical},
		},
		Rows: rows,
	}

	opt := DefaultOptions()
	opt.BudgetBytes = 600
	d := Summarize(ds, opt)

	if got := len(d.Render()); got > opt.BudgetBytes {
		t.Errorf("render is %d bytes, budget is %d", got, opt.BudgetBytes)
	}
	if len(d.Notes) == 0 {
		t.Error("truncation should leave a note")
	}
	// Numeric statistics survive every truncation stage.
	found := false
	for _, c := range d.Columns {
		if c.Name == "value" && c.Numeric != nil {
			found = true
		}
	}
	if !found {
		t.Error("numeric column stats were dropped during truncation")
	}
	if d.RowCount != 200 || d.ColumnCount != 2 {
		t.Error("truncation must not change the reported row/column counts")
	}
}

func TestSummarizeTopKReducedFirst(t *testing.T) {
	rows := make([][]string, 100)
	for i := range rows {
		rows[i] = []string{fmt.Sprintf("wide-categorical-value-number-%02d", i%8)}
	}
	ds := &ingest.Dataset{
		Columns: []ingest.Column{{Name: "c", Kind: ingest.KindCategorical}},
		Rows:    rows,
	}
	opt := DefaultOptions()
	opt.SampleRows = 2
	opt.BudgetBytes = 400
	d := Summarize(ds, opt)

	if len(d.Columns) == 1 && len(d.Columns[0].TopValues) > reducedTopK {
		t.Errorf("over budget, top values = %d, want at most %d", len(d.Columns[0].TopValues), reducedTopK)
	}
}

func TestNumericColumnNames(t *testing.T) {
	d := Summarize(testDataset(), DefaultOptions())
	names := d.NumericColumnNames()
	if len(names) != 1 || names[0] != "value" {
		t.Errorf("numeric columns = %v, want [value]", names)
	}
	if !d.HasNumeric() {
		t.Error("HasNumeric = false, want true")
	}
}
