// Package store provides report.Store implementations: an in-memory
// store used by default and in tests, and a Postgres store selected
// when a database URL is configured.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/Saai416/CSV-Insights-dashboard/internal/convo"
	"github.com/Saai416/CSV-Insights-dashboard/internal/report"
)

// Memory keeps reports and turns in process memory. GetReport returns a
// shallow copy so callers can attach turns without racing each other on
// the stored record.
type Memory struct {
	mu      sync.RWMutex
	reports map[uuid.UUID]*report.Report
	turns   map[uuid.UUID][]convo.Turn
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		reports: make(map[uuid.UUID]*report.Report),
		turns:   make(map[uuid.UUID][]convo.Turn),
	}
}

func (m *Memory) SaveReport(_ context.Context, r *report.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[r.ID] = r
	return nil
}

func (m *Memory) GetReport(_ context.Context, id uuid.UUID) (*report.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, report.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *Memory) ListReports(_ context.Context) ([]report.Listing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]report.Listing, 0, len(m.reports))
	for _, r := range m.reports {
		out = append(out, report.Listing{ID: r.ID, Filename: r.Filename, CreatedAt: r.CreatedAt})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() > out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) DeleteOldest(_ context.Context, keep int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if keep <= 0 || len(m.reports) <= keep {
		return 0, nil
	}
	all := make([]*report.Report, 0, len(m.reports))
	for _, r := range m.reports {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID.String() < all[j].ID.String()
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	deleted := 0
	for _, r := range all[:len(all)-keep] {
		delete(m.reports, r.ID)
		delete(m.turns, r.ID)
		deleted++
	}
	return deleted, nil
}

func (m *Memory) AppendTurn(_ context.Context, id uuid.UUID, t convo.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reports[id]; !ok {
		return report.ErrNotFound
	}
	m.turns[id] = append(m.turns[id], t)
	return nil
}

func (m *Memory) ListTurns(_ context.Context, id uuid.UUID) ([]convo.Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	turns := m.turns[id]
	out := make([]convo.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (m *Memory) Ping(_ context.Context) error { return nil }
