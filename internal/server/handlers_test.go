package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Saai416/CSV-Insights-dashboard/internal/digest"
	"github.com/Saai416/CSV-Insights-dashboard/internal/insight"
	"github.com/Saai416/CSV-Insights-dashboard/internal/report"
	"github.com/Saai416/CSV-Insights-dashboard/internal/store"
)

type stubGenerator struct {
	insightsErr error
	answerErr   error
}

func (s *stubGenerator) GenerateInsights(_ context.Context, _ *digest.Digest) (*insight.Result, error) {
	if s.insightsErr != nil {
		return nil, s.insightsErr
	}
	return &insight.Result{
		Summary:         "stub summary",
		Trends:          []string{"trend"},
		Outliers:        []string{},
		Risks:           []string{},
		Recommendations: []string{},
	}, nil
}

func (s *stubGenerator) Answer(_ context.Context, question, _ string) (string, error) {
	if s.answerErr != nil {
		return "", s.answerErr
	}
	return "answer to: " + question, nil
}

type stubPinger struct{ err error }

func (p *stubPinger) Ping(_ context.Context) (time.Duration, error) {
	if p.err != nil {
		return 0, p.err
	}
	return 12 * time.Millisecond, nil
}

func newTestServer(t *testing.T, gen *stubGenerator, llm Pinger) *Server {
	t.Helper()
	svc := report.NewService(store.NewMemory(), gen, report.DefaultConfig(), nil)
	return New(svc, llm, ":0")
}

func multipartCSV(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func doUpload(t *testing.T, srv *Server, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartCSV(t, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

const sampleCSV = "value,category\n10,A\n20,B\n30,A\n"

func uploadReportID(t *testing.T, srv *Server) uuid.UUID {
	t.Helper()
	rec := doUpload(t, srv, "sales.csv", sampleCSV)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		ReportID uuid.UUID `json:"report_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.ReportID
}

func TestHandleUpload(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{}, nil)
	rec := doUpload(t, srv, "sales.csv", sampleCSV)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.NotEmpty(t, resp["report_id"])
	assert.Equal(t, "sales.csv", resp["filename"])
	assert.NotNil(t, resp["insights"])
	assert.NotNil(t, resp["summary"])
	assert.NotNil(t, resp["chart_data"])
}

func TestHandleUploadDegraded(t *testing.T) {
	gen := &stubGenerator{insightsErr: &insight.GenerationUnavailableError{}}
	srv := newTestServer(t, gen, nil)
	rec := doUpload(t, srv, "sales.csv", sampleCSV)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["insights_unavailable"])
	assert.Equal(t, report.InsightsUnavailableMessage, resp["insights_message"])
	assert.Nil(t, resp["insights"])
	assert.NotNil(t, resp["summary"])
}

func TestHandleUploadNoFile(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{}, nil)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no file provided")
}

func TestHandleUploadBadExtension(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{}, nil)
	rec := doUpload(t, srv, "data.xlsx", sampleCSV)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "only .csv and .tsv")
}

func TestHandleUploadHeaderOnly(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{}, nil)
	rec := doUpload(t, srv, "empty.csv", "a,b,c\n")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleAsk(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{}, nil)
	id := uploadReportID(t, srv)

	body, _ := json.Marshal(map[string]string{
		"report_id": id.String(),
		"question":  "what is the top category?",
	})
	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "answer to: what is the top category?", resp["answer"])
}

func TestHandleAskShortQuestion(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{}, nil)
	id := uploadReportID(t, srv)

	body, _ := json.Marshal(map[string]string{"report_id": id.String(), "question": "ab"})
	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "at least 3 characters")
}

func TestHandleAskUnknownReport(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{}, nil)

	body, _ := json.Marshal(map[string]string{
		"report_id": uuid.NewString(),
		"question":  "a valid question?",
	})
	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleAskGenerationDown(t *testing.T) {
	gen := &stubGenerator{answerErr: &insight.GenerationUnavailableError{Err: errors.New("boom")}}
	srv := newTestServer(t, gen, nil)
	id := uploadReportID(t, srv)

	body, _ := json.Marshal(map[string]string{"report_id": id.String(), "question": "a valid question?"})
	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom", "internals must not leak to clients")
}

func TestHandleListReports(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{}, nil)
	uploadReportID(t, srv)
	uploadReportID(t, srv)

	req := httptest.NewRequest(http.MethodGet, "/reports", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Count   int              `json:"count"`
		Reports []report.Listing `json:"reports"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Len(t, resp.Reports, 2)
}

func TestHandleGetReport(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{}, nil)
	id := uploadReportID(t, srv)

	req := httptest.NewRequest(http.MethodGet, "/reports/"+id.String(), nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), id.String())
	assert.Contains(t, rec.Body.String(), "stub summary")
}

func TestHandleGetReportBadID(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{}, nil)

	for _, path := range []string{"/reports/not-a-uuid", "/reports/" + uuid.NewString()} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestHandleQuestionsFlow(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{}, nil)
	id := uploadReportID(t, srv)

	// Empty log serializes as a JSON array, not null.
	req := httptest.NewRequest(http.MethodGet, "/api/questions/"+id.String(), nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	body, _ := json.Marshal(map[string]string{"question": "what stands out?"})
	req = httptest.NewRequest(http.MethodPost, "/api/questions/"+id.String(), bytes.NewReader(body))
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "what stands out?")

	req = httptest.NewRequest(http.MethodGet, "/api/questions/"+id.String(), nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var turns []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &turns))
	require.Len(t, turns, 1)
	assert.Equal(t, "answer to: what stands out?", turns[0]["answer"])
}

func TestHandleExport(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{}, nil)
	id := uploadReportID(t, srv)

	req := httptest.NewRequest(http.MethodGet, "/export/"+id.String(), nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rec.Body.String(), "CSV INSIGHTS REPORT")
	assert.Contains(t, rec.Body.String(), "File: sales.csv")
}

func TestHandleStatus(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{}, &stubPinger{})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]componentStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "up", resp["backend"].Status)
	assert.Equal(t, "up", resp["store"].Status)
	assert.Equal(t, "up", resp["llm"].Status)
}

func TestHandleStatusLLMDown(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{}, &stubPinger{err: errors.New("unreachable")})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var resp map[string]componentStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "down", resp["llm"].Status)
}

func TestHandleStatusNoLLMConfigured(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var resp map[string]componentStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "down", resp["llm"].Status)
	assert.Equal(t, "generation service not configured", resp["llm"].Error)
}
