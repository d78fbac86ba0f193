package report

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Saai416/CSV-Insights-dashboard/internal/chart"
	"github.com/Saai416/CSV-Insights-dashboard/internal/convo"
	"github.com/Saai416/CSV-Insights-dashboard/internal/digest"
	"github.com/Saai416/CSV-Insights-dashboard/internal/ingest"
	"github.com/Saai416/CSV-Insights-dashboard/internal/insight"
)

// ErrNotFound is returned by stores and the service for unknown report
// identifiers.
var ErrNotFound = errors.New("report not found")

// Store persists reports and their Q&A turns. Implementations live in
// internal/store; the interface is defined here, on the consumer side.
type Store interface {
	SaveReport(ctx context.Context, r *Report) error
	GetReport(ctx context.Context, id uuid.UUID) (*Report, error)
	ListReports(ctx context.Context) ([]Listing, error)
	// DeleteOldest removes reports beyond keep, newest retained.
	DeleteOldest(ctx context.Context, keep int) (int, error)
	AppendTurn(ctx context.Context, id uuid.UUID, t convo.Turn) error
	ListTurns(ctx context.Context, id uuid.UUID) ([]convo.Turn, error)
	Ping(ctx context.Context) error
}

// Generator produces insights and follow-up answers; satisfied by
// insight.Client.
type Generator interface {
	GenerateInsights(ctx context.Context, d *digest.Digest) (*insight.Result, error)
	Answer(ctx context.Context, question, contextBlock string) (string, error)
}

// Config bounds the pipeline.
type Config struct {
	MaxUploadBytes     int
	MaxStoredReports   int
	DigestOptions      digest.Options
	ContextTokenBudget int
}

// DefaultConfig mirrors the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxUploadBytes:     5 << 20,
		MaxStoredReports:   5,
		DigestOptions:      digest.DefaultOptions(),
		ContextTokenBudget: convo.DefaultTokenBudget,
	}
}

// Service runs the ingestion-to-insight pipeline and the follow-up Q&A
// flow. Uploads targeting different reports are independent; question
// submissions against the same report are serialized by a per-report
// mutex so turn history is always read in order.
type Service struct {
	store  Store
	gen    Generator
	cfg    Config
	logger *slog.Logger
	locks  sync.Map // uuid.UUID -> *sync.Mutex
}

// NewService wires the pipeline. logger may be nil.
func NewService(store Store, gen Generator, cfg Config, logger *slog.Logger) *Service {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultConfig().MaxUploadBytes
	}
	if cfg.MaxStoredReports <= 0 {
		cfg.MaxStoredReports = DefaultConfig().MaxStoredReports
	}
	if cfg.ContextTokenBudget <= 0 {
		cfg.ContextTokenBudget = convo.DefaultTokenBudget
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, gen: gen, cfg: cfg, logger: logger}
}

// Upload runs ingest -> summarize -> chart -> insights and persists the
// resulting report. Ingestion errors abort before any digest exists.
// Generation errors degrade: the report is still created and saved with
// an explicit insights-unavailable signal.
func (s *Service) Upload(ctx context.Context, filename string, content []byte) (*Report, error) {
	ds, err := ingest.Parse(content, filename, s.cfg.MaxUploadBytes)
	if err != nil {
		return nil, err
	}
	d := digest.Summarize(ds, s.cfg.DigestOptions)
	spec := chart.Build(ds)

	r := &Report{
		ID:        uuid.New(),
		Filename:  filename,
		Digest:    d,
		Chart:     spec,
		CreatedAt: time.Now().UTC(),
	}

	res, err := s.gen.GenerateInsights(ctx, d)
	if err != nil {
		// Digest and chart stay deliverable; only the narrative is lost.
		r.InsightsUnavailable = true
		r.InsightsMessage = InsightsUnavailableMessage
		s.logger.Warn("insight generation failed, degrading to digest and chart",
			"report_id", r.ID, "filename", filename, "error", err)
	} else {
		r.Insights = res
	}

	if err := s.store.SaveReport(ctx, r); err != nil {
		return nil, err
	}
	if n, err := s.store.DeleteOldest(ctx, s.cfg.MaxStoredReports); err != nil {
		s.logger.Warn("report retention cleanup failed", "error", err)
	} else if n > 0 {
		s.logger.Info("removed old reports", "count", n)
	}
	return r, nil
}

// Ask validates and answers a follow-up question about a report. A turn
// is appended only after a successful answer: a failed generation call
// never creates a turn.
func (s *Service) Ask(ctx context.Context, id uuid.UUID, question string) (*convo.Turn, error) {
	if err := convo.ValidateQuestion(question); err != nil {
		return nil, err
	}

	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()

	r, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	turns, err := s.store.ListTurns(ctx, id)
	if err != nil {
		return nil, err
	}

	builder := convo.ContextBuilder{TokenBudget: s.cfg.ContextTokenBudget}
	contextBlock := builder.Build(r.Digest, r.Insights, turns)

	answer, err := s.gen.Answer(ctx, question, contextBlock)
	if err != nil {
		return nil, err
	}

	turn := convo.Turn{Question: question, Answer: answer, CreatedAt: time.Now().UTC()}
	if err := s.store.AppendTurn(ctx, id, turn); err != nil {
		return nil, err
	}
	return &turn, nil
}

// Get returns one report with its turns loaded.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Report, error) {
	r, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	turns, err := s.store.ListTurns(ctx, id)
	if err != nil {
		return nil, err
	}
	r.Turns = turns
	return r, nil
}

// List returns report listings, newest first.
func (s *Service) List(ctx context.Context) ([]Listing, error) {
	return s.store.ListReports(ctx)
}

// Turns returns a report's Q&A log in chronological order.
func (s *Service) Turns(ctx context.Context, id uuid.UUID) ([]convo.Turn, error) {
	if _, err := s.store.GetReport(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListTurns(ctx, id)
}

// PingStore reports storage health.
func (s *Service) PingStore(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) lock(id uuid.UUID) *sync.Mutex {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return v.(*sync.Mutex)
}
