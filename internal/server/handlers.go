package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Saai416/CSV-Insights-dashboard/internal/convo"
	"github.com/Saai416/CSV-Insights-dashboard/internal/export"
	"github.com/Saai416/CSV-Insights-dashboard/internal/logging"
	"github.com/Saai416/CSV-Insights-dashboard/internal/report"
)

// uploadResponse mirrors what the dashboard UI consumes after an upload.
type uploadResponse struct {
	Success             bool           `json:"success"`
	ReportID            uuid.UUID      `json:"report_id"`
	Filename            string         `json:"filename"`
	Insights            any            `json:"insights,omitempty"`
	InsightsUnavailable bool           `json:"insights_unavailable,omitempty"`
	InsightsMessage     string         `json:"insights_message,omitempty"`
	Summary             any            `json:"summary"`
	ChartData           any            `json:"chart_data"`
	Warning             string         `json:"warning,omitempty"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	if err := r.ParseMultipartForm(8 << 20); err != nil {
		respondError(w, r, &requestError{status: http.StatusBadRequest, message: "request is not valid multipart form data"})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, &requestError{status: http.StatusBadRequest, message: "no file provided"})
		return
	}
	defer file.Close()
	if header.Filename == "" {
		respondError(w, r, &requestError{status: http.StatusBadRequest, message: "no file selected"})
		return
	}
	content, err := io.ReadAll(file)
	if err != nil {
		respondError(w, r, err)
		return
	}

	rep, err := s.service.Upload(r.Context(), header.Filename, content)
	if err != nil {
		respondError(w, r, err)
		return
	}
	logger.Info("report created",
		"report_id", rep.ID,
		"filename", rep.Filename,
		"rows", rep.Digest.RowCount,
		"columns", rep.Digest.ColumnCount,
		"insights_unavailable", rep.InsightsUnavailable,
	)

	resp := uploadResponse{
		Success:             true,
		ReportID:            rep.ID,
		Filename:            rep.Filename,
		InsightsUnavailable: rep.InsightsUnavailable,
		InsightsMessage:     rep.InsightsMessage,
		Summary:             rep.Digest,
		ChartData:           rep.Chart,
	}
	if rep.Insights != nil {
		resp.Insights = rep.Insights
	}
	if len(rep.Digest.Notes) > 0 {
		resp.Warning = rep.Digest.Notes[0]
	}
	respondJSON(w, http.StatusOK, resp)
}

type askRequest struct {
	ReportID string `json:"report_id"`
	Question string `json:"question"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, &requestError{status: http.StatusBadRequest, message: "request body must be JSON"})
		return
	}
	id, err := uuid.Parse(req.ReportID)
	if err != nil {
		respondError(w, r, report.ErrNotFound)
		return
	}
	turn, err := s.service.Ask(r.Context(), id, req.Question)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "answer": turn.Answer})
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	listings, err := s.service.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(listings),
		"reports": listings,
	})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id, err := parseReportID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	rep, err := s.service.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "report": rep})
}

func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	id, err := parseReportID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	turns, err := s.service.Turns(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if turns == nil {
		turns = []convo.Turn{}
	}
	respondJSON(w, http.StatusOK, turns)
}

func (s *Server) handleAskQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := parseReportID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, &requestError{status: http.StatusBadRequest, message: "request body must be JSON"})
		return
	}
	turn, err := s.service.Ask(r.Context(), id, req.Question)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, turn)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id, err := parseReportID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	rep, err := s.service.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="report.txt"`)
	_, _ = io.WriteString(w, export.Text(rep))
}

type componentStatus struct {
	Status         string `json:"status"`
	ResponseTimeMs int64  `json:"response_time_ms"`
	Error          string `json:"error,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	out := map[string]componentStatus{
		"backend": {Status: "up", ResponseTimeMs: 1},
	}

	start := time.Now()
	if err := s.service.PingStore(r.Context()); err != nil {
		out["store"] = componentStatus{Status: "down", Error: "storage unavailable"}
	} else {
		out["store"] = componentStatus{Status: "up", ResponseTimeMs: max64(1, time.Since(start).Milliseconds())}
	}

	if s.llm == nil {
		out["llm"] = componentStatus{Status: "down", Error: "generation service not configured"}
	} else if rtt, err := s.llm.Ping(r.Context()); err != nil {
		out["llm"] = componentStatus{Status: "down", Error: "generation service unreachable"}
	} else {
		out["llm"] = componentStatus{Status: "up", ResponseTimeMs: max64(1, rtt.Milliseconds())}
	}

	respondJSON(w, http.StatusOK, out)
}

func parseReportID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "reportID"))
	if err != nil {
		return uuid.Nil, report.ErrNotFound
	}
	return id, nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
