// Package export renders a report as a downloadable plaintext document.
package export

import (
	"fmt"
	"strings"

	"github.com/Saai416/CSV-Insights-dashboard/internal/report"
)

const rule = "------------------------------------------------------------"
const border = "============================================================"

// Text renders the sectioned plaintext report.
func Text(r *report.Report) string {
	var b strings.Builder
	line := func(s string) {
		b.WriteString(s)
		b.WriteString("\n")
	}
	section := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		line(title)
		line(rule)
		for i, it := range items {
			line(fmt.Sprintf("%d. %s", i+1, it))
		}
		line("")
	}

	line(border)
	line("CSV INSIGHTS REPORT")
	line(border)
	line("File: " + r.Filename)
	line("Generated: " + r.CreatedAt.Format("2006-01-02 15:04:05 UTC"))
	line("")

	if r.Digest != nil {
		line("DATASET")
		line(rule)
		line(fmt.Sprintf("Rows: %d  Columns: %d", r.Digest.RowCount, r.Digest.ColumnCount))
		line("")
	}

	if r.InsightsUnavailable {
		line("AI INSIGHTS")
		line(rule)
		line(r.InsightsMessage)
		line("")
	} else if ins := r.Insights; ins != nil {
		if ins.Summary != "" {
			line("EXECUTIVE SUMMARY")
			line(rule)
			line(ins.Summary)
			line("")
		}
		section("KEY TRENDS", ins.Trends)
		section("OUTLIERS DETECTED", ins.Outliers)
		section("RISKS", ins.Risks)
		section("RECOMMENDATIONS", ins.Recommendations)
	}

	if len(r.Turns) > 0 {
		line("Q&A LOG")
		line(rule)
		for i, t := range r.Turns {
			line(fmt.Sprintf("%d. Q: %s", i+1, t.Question))
			line("   A: " + t.Answer)
		}
		line("")
	}

	line(border)
	line("End of Report")
	line(border)
	return b.String()
}
