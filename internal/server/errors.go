package server

import (
	"errors"
	"net/http"

	"github.com/Saai416/CSV-Insights-dashboard/internal/convo"
	"github.com/Saai416/CSV-Insights-dashboard/internal/ingest"
	"github.com/Saai416/CSV-Insights-dashboard/internal/insight"
	"github.com/Saai416/CSV-Insights-dashboard/internal/logging"
	"github.com/Saai416/CSV-Insights-dashboard/internal/report"
)

// requestError carries a pre-mapped status and user-facing message for
// failures detected inside handlers.
type requestError struct {
	status  int
	message string
}

func (e *requestError) Error() string { return e.message }

// respondError maps typed errors to stable user-facing messages and
// status codes. Raw provider payloads and internals never reach the
// response body; they are logged server-side with the request ID.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := mapError(err)

	logger := logging.FromContext(r.Context())
	logger.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
	)

	respondJSON(w, status, map[string]string{"error": message})
}

func mapError(err error) (int, string) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return reqErr.status, reqErr.message
	}

	var formatErr *ingest.FormatError
	if errors.As(err, &formatErr) {
		return http.StatusBadRequest, formatErr.Error()
	}
	var emptyErr *ingest.EmptyDatasetError
	if errors.As(err, &emptyErr) {
		return http.StatusBadRequest, emptyErr.Error()
	}
	var sizeErr *ingest.SizeLimitError
	if errors.As(err, &sizeErr) {
		return http.StatusBadRequest, sizeErr.Error()
	}
	var valErr *convo.ValidationError
	if errors.As(err, &valErr) {
		return http.StatusBadRequest, valErr.Error()
	}
	if errors.Is(err, report.ErrNotFound) {
		return http.StatusNotFound, "report not found"
	}
	var unavailErr *insight.GenerationUnavailableError
	if errors.As(err, &unavailErr) {
		return http.StatusServiceUnavailable, "the AI service is temporarily unavailable, please try again"
	}
	var malformedErr *insight.MalformedInsightError
	if errors.As(err, &malformedErr) {
		return http.StatusBadGateway, "the AI service returned an unusable response, please try again"
	}
	return http.StatusInternalServerError, "internal server error"
}
