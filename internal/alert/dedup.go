package alert

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/hamed0406/uptimechecker/internal/domain"
	"github.com/hamed0406/uptimechecker/internal/repo"
)

type Config struct {
	Threshold int           // same-classification events needed to fire
	Window    time.Duration // lookback for the count
	// Cooldown suppresses a repeat alert for the same endpoint and issue while
	// the previous one is younger than this. Zero fires on every cycle the
	// threshold is met.
	Cooldown time.Duration
}

// Decision is the outcome of evaluating one health event.
type Decision struct {
	Fire        bool
	Suppressed  bool // threshold met but inside the cooldown
	Count       int
	EndpointURL string
	IssueType   domain.IssueType
	Message     string
}

type Deduplicator struct {
	events repo.EventLog
	alerts repo.AlertLog
	cfg    Config
	now    func() time.Time
}

func New(events repo.EventLog, alerts repo.AlertLog, cfg Config, now func() time.Time) *Deduplicator {
	if cfg.Threshold < 1 {
		cfg.Threshold = 3
	}
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &Deduplicator{events: events, alerts: alerts, cfg: cfg, now: now}
}

// Evaluate decides whether ev should raise an alert. The event must already
// be recorded so that it is part of the count. Healthy events never fire.
func (d *Deduplicator) Evaluate(ctx context.Context, ev domain.HealthEvent) (Decision, error) {
	issue, ok := domain.IssueFor(ev.Classification)
	if !ok {
		return Decision{EndpointURL: ev.EndpointURL}, nil
	}

	now := d.now()
	count, err := d.events.CountRecent(ctx, ev.EndpointURL, ev.Classification, now.Add(-d.cfg.Window))
	if err != nil {
		return Decision{}, err
	}
	dec := Decision{Count: count, EndpointURL: ev.EndpointURL, IssueType: issue}
	if count < d.cfg.Threshold {
		return dec, nil
	}

	if d.cfg.Cooldown > 0 {
		last, ok, err := d.alerts.LastAlertAt(ctx, ev.EndpointURL, issue)
		if err != nil {
			return Decision{}, err
		}
		if ok && now.Sub(last) < d.cfg.Cooldown {
			dec.Suppressed = true
			return dec, nil
		}
	}

	dec.Fire = true
	dec.Message = d.message(ev)
	return dec, nil
}

func (d *Deduplicator) message(ev domain.HealthEvent) string {
	if ev.Classification == domain.Slow {
		return fmt.Sprintf("The URL %s has been slow %d times consecutively.\nRecent Response Time: %s, Max Allowed: %s",
			ev.EndpointURL, d.cfg.Threshold, domain.FormatSeconds(ev.ResponseTime), formatMax(ev.MaxResponseTime))
	}
	return fmt.Sprintf("The URL %s has been marked as Unhealthy %d times consecutively.", ev.EndpointURL, d.cfg.Threshold)
}

// formatMax prints the configured limit as it was written, e.g. "0.5s".
func formatMax(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64) + "s"
}

var ErrNotFiring = errors.New("decision does not fire")

// Record writes the alert record for a firing decision. It is called once
// per decision; the returned record carries the stored id.
func (d *Deduplicator) Record(ctx context.Context, dec Decision) (domain.AlertRecord, error) {
	if !dec.Fire {
		return domain.AlertRecord{}, ErrNotFiring
	}
	rec := domain.AlertRecord{
		CreatedAt:   d.now().UTC(),
		EndpointURL: dec.EndpointURL,
		IssueType:   dec.IssueType,
		Message:     dec.Message,
	}
	if err := d.alerts.RecordAlert(ctx, &rec); err != nil {
		return domain.AlertRecord{}, err
	}
	return rec, nil
}
