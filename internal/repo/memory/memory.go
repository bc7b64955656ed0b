package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hamed0406/uptimechecker/internal/domain"
	"github.com/hamed0406/uptimechecker/internal/repo"
)

var _ repo.HistoryStore = (*Store)(nil)

// Store keeps history in process memory. It backs the "memory" engine
// (dry runs, single long-lived processes) and tests.
type Store struct {
	mu     sync.RWMutex
	events []domain.HealthEvent
	alerts []domain.AlertRecord
	nextID int64
}

func New() *Store {
	return &Store{
		events: make([]domain.HealthEvent, 0, 128),
	}
}

func (m *Store) Provision(ctx context.Context) error { return nil }

func (m *Store) Close() error { return nil }

func (m *Store) Record(ctx context.Context, ev domain.HealthEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	ev.AcceptableStatusCodes = append([]int(nil), ev.AcceptableStatusCodes...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *Store) CountRecent(ctx context.Context, url string, c domain.Classification, since time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, ev := range m.events {
		if ev.EndpointURL == url && ev.Classification == c && ev.CreatedAt.After(since) {
			n++
		}
	}
	return n, nil
}

func (m *Store) RecordAlert(ctx context.Context, a *domain.AlertRecord) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	a.ID = m.nextID
	m.alerts = append(m.alerts, *a)
	return nil
}

func (m *Store) LastAlertAt(ctx context.Context, url string, issue domain.IssueType) (time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var last time.Time
	found := false
	for _, a := range m.alerts {
		if a.EndpointURL == url && a.IssueType == issue && (!found || a.CreatedAt.After(last)) {
			last = a.CreatedAt
			found = true
		}
	}
	return last, found, nil
}

func (m *Store) RecentEvents(ctx context.Context, url string, limit int) ([]domain.HealthEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.HealthEvent, 0)
	for i := len(m.events) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if url == "" || m.events[i].EndpointURL == url {
			out = append(out, m.events[i])
		}
	}
	return out, nil
}

func (m *Store) RecentAlerts(ctx context.Context, limit int) ([]domain.AlertRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.AlertRecord, 0)
	for i := len(m.alerts) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, m.alerts[i])
	}
	return out, nil
}
