// Package report orchestrates the ingestion-to-insight pipeline and
// owns the Report record: one uploaded dataset's digest, insights,
// chart series, and Q&A log.
package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/Saai416/CSV-Insights-dashboard/internal/chart"
	"github.com/Saai416/CSV-Insights-dashboard/internal/convo"
	"github.com/Saai416/CSV-Insights-dashboard/internal/digest"
	"github.com/Saai416/CSV-Insights-dashboard/internal/insight"
)

// InsightsUnavailableMessage is the stable user-facing signal emitted
// when generation failed but the digest and charts are still usable.
// It is distinct from a normal empty insight result.
const InsightsUnavailableMessage = "AI insights are temporarily unavailable for this report"

// Report is the durable record produced by one upload.
type Report struct {
	ID                  uuid.UUID       `json:"id"`
	Filename            string          `json:"filename"`
	Digest              *digest.Digest  `json:"digest"`
	Insights            *insight.Result `json:"insights,omitempty"`
	InsightsUnavailable bool            `json:"insights_unavailable,omitempty"`
	InsightsMessage     string          `json:"insights_message,omitempty"`
	Chart               *chart.Spec     `json:"chart"`
	CreatedAt           time.Time       `json:"created_at"`
	Turns               []convo.Turn    `json:"-"`
}

// Listing is the lightweight view returned by report listings.
type Listing struct {
	ID        uuid.UUID `json:"id"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"created_at"`
}
