package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Saai416/CSV-Insights-dashboard/internal/chart"
	"github.com/Saai416/CSV-Insights-dashboard/internal/convo"
	"github.com/Saai416/CSV-Insights-dashboard/internal/digest"
	"github.com/Saai416/CSV-Insights-dashboard/internal/insight"
	"github.com/Saai416/CSV-Insights-dashboard/internal/report"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS reports (
    id                   UUID PRIMARY KEY,
    filename             TEXT NOT NULL,
    digest               JSONB NOT NULL,
    insights             JSONB,
    insights_unavailable BOOLEAN NOT NULL DEFAULT FALSE,
    insights_message     TEXT NOT NULL DEFAULT '',
    chart                JSONB,
    created_at           TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS reports_created_at_idx ON reports (created_at);

CREATE TABLE IF NOT EXISTS report_questions (
    id         BIGSERIAL PRIMARY KEY,
    report_id  UUID NOT NULL REFERENCES reports (id) ON DELETE CASCADE,
    question   TEXT NOT NULL,
    answer     TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS report_questions_report_idx ON report_questions (report_id, created_at);
`

// Postgres persists reports in PostgreSQL via pgx.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects, verifies the connection, and creates the schema
// if it does not exist yet.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() { p.pool.Close() }

func (p *Postgres) SaveReport(ctx context.Context, r *report.Report) error {
	digestJSON, err := json.Marshal(r.Digest)
	if err != nil {
		return fmt.Errorf("marshal digest: %w", err)
	}
	var insightsJSON []byte
	if r.Insights != nil {
		if insightsJSON, err = json.Marshal(r.Insights); err != nil {
			return fmt.Errorf("marshal insights: %w", err)
		}
	}
	chartJSON, err := json.Marshal(r.Chart)
	if err != nil {
		return fmt.Errorf("marshal chart: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO reports (id, filename, digest, insights, insights_unavailable, insights_message, chart, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID, r.Filename, digestJSON, insightsJSON, r.InsightsUnavailable, r.InsightsMessage, chartJSON, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (p *Postgres) GetReport(ctx context.Context, id uuid.UUID) (*report.Report, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, filename, digest, insights, insights_unavailable, insights_message, chart, created_at
		FROM reports WHERE id = $1`, id)

	var (
		r            report.Report
		digestJSON   []byte
		insightsJSON []byte
		chartJSON    []byte
	)
	err := row.Scan(&r.ID, &r.Filename, &digestJSON, &insightsJSON, &r.InsightsUnavailable, &r.InsightsMessage, &chartJSON, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, report.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select report: %w", err)
	}
	r.Digest = &digest.Digest{}
	if err := json.Unmarshal(digestJSON, r.Digest); err != nil {
		return nil, fmt.Errorf("unmarshal digest: %w", err)
	}
	if len(insightsJSON) > 0 {
		r.Insights = &insight.Result{}
		if err := json.Unmarshal(insightsJSON, r.Insights); err != nil {
			return nil, fmt.Errorf("unmarshal insights: %w", err)
		}
	}
	if len(chartJSON) > 0 {
		r.Chart = &chart.Spec{}
		if err := json.Unmarshal(chartJSON, r.Chart); err != nil {
			return nil, fmt.Errorf("unmarshal chart: %w", err)
		}
	}
	return &r, nil
}

func (p *Postgres) ListReports(ctx context.Context) ([]report.Listing, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, filename, created_at FROM reports ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()
	var out []report.Listing
	for rows.Next() {
		var l report.Listing
		if err := rows.Scan(&l.ID, &l.Filename, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (p *Postgres) DeleteOldest(ctx context.Context, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	tag, err := p.pool.Exec(ctx, `
		DELETE FROM reports WHERE id NOT IN (
			SELECT id FROM reports ORDER BY created_at DESC, id LIMIT $1
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("delete oldest: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (p *Postgres) AppendTurn(ctx context.Context, id uuid.UUID, t convo.Turn) error {
	tag, err := p.pool.Exec(ctx, `
		INSERT INTO report_questions (report_id, question, answer, created_at)
		SELECT $1, $2, $3, $4 WHERE EXISTS (SELECT 1 FROM reports WHERE id = $1)`,
		id, t.Question, t.Answer, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return report.ErrNotFound
	}
	return nil
}

func (p *Postgres) ListTurns(ctx context.Context, id uuid.UUID) ([]convo.Turn, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT question, answer, created_at FROM report_questions
		WHERE report_id = $1 ORDER BY created_at, id`, id)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()
	var out []convo.Turn
	for rows.Next() {
		var t convo.Turn
		if err := rows.Scan(&t.Question, &t.Answer, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (p *Postgres) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.pool.Ping(ctx)
}
