package export

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Saai416/CSV-Insights-dashboard/internal/convo"
	"github.com/Saai416/CSV-Insights-dashboard/internal/digest"
	"github.com/Saai416/CSV-Insights-dashboard/internal/insight"
	"github.com/Saai416/CSV-Insights-dashboard/internal/report"
)

func TestTextFullReport(t *testing.T) {
	r := &report.Report{
		ID:       uuid.New(),
		Filename: "sales.csv",
		Digest:   &digest.Digest{RowCount: 42, ColumnCount: 3},
		Insights: &insight.Result{
			Summary:         "Revenue is concentrated in one region.",
			Trends:          []string{"Steady growth", "Seasonal dips"},
			Outliers:        []string{"One order at 9999"},
			Risks:           []string{"Regional dependency"},
			Recommendations: []string{"Diversify"},
		},
		CreatedAt: time.Date(2026, 8, 1, 12, 30, 0, 0, time.UTC),
		Turns: []convo.Turn{
			{Question: "what stands out?", Answer: "the outlier order"},
		},
	}

	out := Text(r)

	for _, want := range []string{
		"CSV INSIGHTS REPORT",
		"File: sales.csv",
		"Generated: 2026-08-01 12:30:00 UTC",
		"Rows: 42  Columns: 3",
		"EXECUTIVE SUMMARY",
		"Revenue is concentrated in one region.",
		"KEY TRENDS",
		"1. Steady growth",
		"2. Seasonal dips",
		"OUTLIERS DETECTED",
		"RISKS",
		"RECOMMENDATIONS",
		"Q&A LOG",
		"1. Q: what stands out?",
		"   A: the outlier order",
		"End of Report",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("export missing %q", want)
		}
	}
}

func TestTextEmptySectionsOmitted(t *testing.T) {
	r := &report.Report{
		Filename:  "sales.csv",
		Digest:    &digest.Digest{RowCount: 1, ColumnCount: 1},
		Insights:  &insight.Result{Summary: "only a summary"},
		CreatedAt: time.Now().UTC(),
	}
	out := Text(r)
	for _, absent := range []string{"KEY TRENDS", "RISKS", "RECOMMENDATIONS", "Q&A LOG"} {
		if strings.Contains(out, absent) {
			t.Errorf("empty section %q should be omitted", absent)
		}
	}
}

func TestTextDegradedReport(t *testing.T) {
	r := &report.Report{
		Filename:            "sales.csv",
		Digest:              &digest.Digest{RowCount: 1, ColumnCount: 1},
		InsightsUnavailable: true,
		InsightsMessage:     report.InsightsUnavailableMessage,
		CreatedAt:           time.Now().UTC(),
	}
	out := Text(r)
	if !strings.Contains(out, "AI INSIGHTS") || !strings.Contains(out, report.InsightsUnavailableMessage) {
		t.Error("degraded export must state that insights are unavailable")
	}
	if strings.Contains(out, "EXECUTIVE SUMMARY") {
		t.Error("degraded export must not fabricate a summary section")
	}
}
