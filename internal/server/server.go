// Package server exposes the ingestion-to-insight pipeline over HTTP.
// The handlers are thin orchestration: parsing requests, invoking the
// report service, and mapping typed errors to stable responses.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Saai416/CSV-Insights-dashboard/internal/report"
)

// Pinger checks generation-service reachability; satisfied by ai.Client.
type Pinger interface {
	Ping(ctx context.Context) (time.Duration, error)
}

// Server is the HTTP front for the report service.
type Server struct {
	service *report.Service
	llm     Pinger
	router  *chi.Mux
	http    *http.Server
}

// New builds the server. llm may be nil when no generation service is
// configured; /status then reports it as unconfigured.
func New(service *report.Service, llm Pinger, addr string) *Server {
	s := &Server{
		service: service,
		llm:     llm,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Post("/upload", s.handleUpload)
	s.router.Post("/ask", s.handleAsk)
	s.router.Get("/reports", s.handleListReports)
	s.router.Get("/reports/{reportID}", s.handleGetReport)
	s.router.Get("/export/{reportID}", s.handleExport)
	s.router.Get("/status", s.handleStatus)
	s.router.Route("/api/questions", func(r chi.Router) {
		r.Get("/{reportID}", s.handleListQuestions)
		r.Post("/{reportID}", s.handleAskQuestion)
	})
}

// Handler returns the router, used directly in tests.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe blocks serving requests until Shutdown.
func (s *Server) ListenAndServe() error { return s.http.ListenAndServe() }

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error { return s.http.Shutdown(ctx) }
