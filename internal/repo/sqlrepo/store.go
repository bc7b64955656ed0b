package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/multierr"

	"github.com/hamed0406/uptimechecker/internal/domain"
	"github.com/hamed0406/uptimechecker/internal/repo"
)

var _ repo.HistoryStore = (*Store)(nil)

const (
	insertEventSQL = `INSERT INTO health_events
		(endpoint_url, status_code, classification, response_time, max_response_time,
		 acceptable_status_codes, partition_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	countRecentSQL = `SELECT COUNT(*) FROM health_events
		WHERE endpoint_url = ? AND classification = ? AND created_at > ?`

	eventColumns = `endpoint_url, status_code, classification, response_time,
		max_response_time, acceptable_status_codes, created_at`

	alertColumns = `alert_id, created_at, endpoint_url, issue_type, alert_message`
)

// Store is the database/sql history store shared by every relational engine.
type Store struct {
	db      *sql.DB
	dialect Dialect
	onClose func()
}

// New wraps an open *sql.DB. The store owns db and closes it on Close.
func New(db *sql.DB, d Dialect) *Store {
	return &Store{db: db, dialect: d}
}

func (s *Store) Dialect() Dialect { return s.dialect }

func (s *Store) Close() error {
	err := s.db.Close()
	if s.onClose != nil {
		s.onClose()
	}
	return err
}

// Provision runs every schema statement, even after a failure, and
// reports all failures together.
func (s *Store) Provision(ctx context.Context) error {
	var errs error
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil {
		return fmt.Errorf("provision %s schema: %w", s.dialect.Name, errs)
	}
	return nil
}

func (s *Store) Record(ctx context.Context, ev domain.HealthEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	codes, err := json.Marshal(ev.AcceptableStatusCodes)
	if err != nil {
		return fmt.Errorf("encode status codes: %w", err)
	}
	created := ev.CreatedAt.UTC()
	_, err = s.db.ExecContext(ctx, s.dialect.Rebind(insertEventSQL),
		ev.EndpointURL,
		ev.StatusCode,
		string(ev.Classification),
		domain.FormatSeconds(ev.ResponseTime),
		ev.MaxResponseTime.Seconds(),
		string(codes),
		domain.PartitionKey(created),
		created,
	)
	if err != nil {
		return fmt.Errorf("insert health event: %w", err)
	}
	return nil
}

func (s *Store) CountRecent(ctx context.Context, url string, c domain.Classification, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.dialect.Rebind(countRecentSQL), url, string(c), since.UTC()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count recent %s events: %w", c, err)
	}
	return n, nil
}

func (s *Store) RecordAlert(ctx context.Context, a *domain.AlertRecord) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	a.CreatedAt = a.CreatedAt.UTC()
	args := []any{a.CreatedAt, a.EndpointURL, string(a.IssueType), a.Message}

	switch s.dialect.ids {
	case idReturning, idOutput:
		q := `INSERT INTO alerts (created_at, endpoint_url, issue_type, alert_message)`
		if s.dialect.ids == idOutput {
			q += ` OUTPUT INSERTED.alert_id VALUES (?, ?, ?, ?)`
		} else {
			q += ` VALUES (?, ?, ?, ?) RETURNING alert_id`
		}
		if err := s.db.QueryRowContext(ctx, s.dialect.Rebind(q), args...).Scan(&a.ID); err != nil {
			return fmt.Errorf("insert alert: %w", err)
		}
	default:
		q := `INSERT INTO alerts (created_at, endpoint_url, issue_type, alert_message) VALUES (?, ?, ?, ?)`
		res, err := s.db.ExecContext(ctx, s.dialect.Rebind(q), args...)
		if err != nil {
			return fmt.Errorf("insert alert: %w", err)
		}
		if id, err := res.LastInsertId(); err == nil {
			a.ID = id
		}
	}
	return nil
}

func (s *Store) LastAlertAt(ctx context.Context, url string, issue domain.IssueType) (time.Time, bool, error) {
	q := `SELECT created_at FROM alerts WHERE endpoint_url = ? AND issue_type = ?
		ORDER BY created_at DESC` + s.dialect.Limit(1)
	var at time.Time
	err := s.db.QueryRowContext(ctx, s.dialect.Rebind(q), url, string(issue)).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("last alert: %w", err)
	}
	return at, true, nil
}

func (s *Store) RecentEvents(ctx context.Context, url string, limit int) ([]domain.HealthEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + eventColumns + ` FROM health_events`
	var args []any
	if url != "" {
		q += ` WHERE endpoint_url = ?`
		args = append(args, url)
	}
	q += ` ORDER BY created_at DESC` + s.dialect.Limit(limit)

	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	defer rows.Close()

	out := make([]domain.HealthEvent, 0, limit)
	for rows.Next() {
		var (
			ev       domain.HealthEvent
			cls      string
			respTime string
			maxSecs  float64
			codes    string
		)
		if err := rows.Scan(&ev.EndpointURL, &ev.StatusCode, &cls, &respTime, &maxSecs, &codes, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Classification = domain.Classification(cls)
		d, err := time.ParseDuration(respTime)
		if err != nil {
			return nil, fmt.Errorf("decode response time: %w", err)
		}
		ev.ResponseTime = d
		ev.MaxResponseTime = time.Duration(math.Round(maxSecs * float64(time.Second)))
		if err := json.Unmarshal([]byte(codes), &ev.AcceptableStatusCodes); err != nil {
			return nil, fmt.Errorf("decode status codes: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *Store) RecentAlerts(ctx context.Context, limit int) ([]domain.AlertRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + alertColumns + ` FROM alerts ORDER BY created_at DESC` + s.dialect.Limit(limit)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("recent alerts: %w", err)
	}
	defer rows.Close()

	out := make([]domain.AlertRecord, 0, limit)
	for rows.Next() {
		var (
			a     domain.AlertRecord
			issue string
		)
		if err := rows.Scan(&a.ID, &a.CreatedAt, &a.EndpointURL, &issue, &a.Message); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.IssueType = domain.IssueType(issue)
		out = append(out, a)
	}
	return out, rows.Err()
}
