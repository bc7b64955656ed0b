package repo

import (
	"context"
	"time"

	"github.com/hamed0406/uptimechecker/internal/domain"
)

// Ports (interfaces): one HistoryStore per storage engine.

// EventLog is the write-then-count side used on every probe.
type EventLog interface {
	// Record appends one health event. It returns only after the write is durable.
	Record(ctx context.Context, ev domain.HealthEvent) error
	// CountRecent counts events for url with the given classification created after since.
	CountRecent(ctx context.Context, url string, c domain.Classification, since time.Time) (int, error)
}

// AlertLog stores fired alerts. The newest alert for a pair is the dedup signal.
type AlertLog interface {
	// RecordAlert appends a; a.ID is set when the engine reports it.
	RecordAlert(ctx context.Context, a *domain.AlertRecord) error
	// LastAlertAt returns ok=false when the pair has never alerted.
	LastAlertAt(ctx context.Context, url string, issue domain.IssueType) (at time.Time, ok bool, err error)
}

// Reader is the read side served by the HTTP API.
type Reader interface {
	// RecentEvents returns newest first. An empty url means every endpoint.
	RecentEvents(ctx context.Context, url string, limit int) ([]domain.HealthEvent, error)
	RecentAlerts(ctx context.Context, limit int) ([]domain.AlertRecord, error)
}

type HistoryStore interface {
	EventLog
	AlertLog
	Reader
	// Provision creates missing tables; existing ones are left alone.
	Provision(ctx context.Context) error
	Close() error
}

// Opener connects to storage. A failure means storage is unreachable.
type Opener func(ctx context.Context) (HistoryStore, error)

// Shared returns an Opener that hands out s on every call without ever
// closing it, for long-lived processes that own the connection pool.
func Shared(s HistoryStore) Opener {
	return func(context.Context) (HistoryStore, error) {
		return nopCloser{s}, nil
	}
}

type nopCloser struct{ HistoryStore }

func (nopCloser) Close() error { return nil }
