package memory

import (
	"context"
	"testing"
	"time"

	"github.com/hamed0406/uptimechecker/internal/domain"
)

func event(url string, c domain.Classification, at time.Time) domain.HealthEvent {
	return domain.HealthEvent{
		EndpointURL:           url,
		StatusCode:            200,
		Classification:        c,
		ResponseTime:          100 * time.Millisecond,
		MaxResponseTime:       500 * time.Millisecond,
		AcceptableStatusCodes: []int{200},
		CreatedAt:             at,
	}
}

func TestMemoryStore_CountRecentWindowAndFilters(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	_ = s.Record(ctx, event("https://a", domain.Unhealthy, now.Add(-20*time.Minute))) // aged out
	_ = s.Record(ctx, event("https://a", domain.Unhealthy, now.Add(-10*time.Minute)))
	_ = s.Record(ctx, event("https://a", domain.Unhealthy, now))
	_ = s.Record(ctx, event("https://a", domain.Slow, now))
	_ = s.Record(ctx, event("https://b", domain.Unhealthy, now))

	n, err := s.CountRecent(ctx, "https://a", domain.Unhealthy, now.Add(-15*time.Minute))
	if err != nil {
		t.Fatalf("CountRecent: %v", err)
	}
	if n != 2 {
		t.Fatalf("want 2, got %d", n)
	}
}

func TestMemoryStore_RecordIsVisibleImmediately(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.Record(ctx, event("https://a", domain.Slow, time.Time{})); err != nil {
		t.Fatal(err)
	}
	n, _ := s.CountRecent(ctx, "https://a", domain.Slow, time.Now().Add(-time.Minute))
	if n != 1 {
		t.Fatalf("just-written event not counted: %d", n)
	}
}

func TestMemoryStore_AlertsAndLastAlertAt(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, ok, _ := s.LastAlertAt(ctx, "https://a", domain.IssueUnhealthy); ok {
		t.Fatalf("expected no alert yet")
	}

	t1 := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	a1 := &domain.AlertRecord{EndpointURL: "https://a", IssueType: domain.IssueUnhealthy, Message: "m1", CreatedAt: t1}
	a2 := &domain.AlertRecord{EndpointURL: "https://a", IssueType: domain.IssueUnhealthy, Message: "m2", CreatedAt: t1.Add(5 * time.Minute)}
	a3 := &domain.AlertRecord{EndpointURL: "https://a", IssueType: domain.IssueSlowResponse, Message: "m3", CreatedAt: t1.Add(10 * time.Minute)}
	for _, a := range []*domain.AlertRecord{a1, a2, a3} {
		if err := s.RecordAlert(ctx, a); err != nil {
			t.Fatal(err)
		}
	}
	if a1.ID != 1 || a3.ID != 3 {
		t.Fatalf("ids not assigned: %d %d", a1.ID, a3.ID)
	}

	at, ok, err := s.LastAlertAt(ctx, "https://a", domain.IssueUnhealthy)
	if err != nil || !ok || !at.Equal(a2.CreatedAt) {
		t.Fatalf("LastAlertAt=%v,%v,%v want %v", at, ok, err, a2.CreatedAt)
	}

	recent, _ := s.RecentAlerts(ctx, 2)
	if len(recent) != 2 || recent[0].Message != "m3" || recent[1].Message != "m2" {
		t.Fatalf("unexpected recent alerts: %+v", recent)
	}
}

func TestMemoryStore_RecentEventsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now().UTC()
	_ = s.Record(ctx, event("https://a", domain.Healthy, now.Add(-2*time.Minute)))
	_ = s.Record(ctx, event("https://b", domain.Healthy, now.Add(-time.Minute)))
	_ = s.Record(ctx, event("https://a", domain.Slow, now))

	got, _ := s.RecentEvents(ctx, "https://a", 10)
	if len(got) != 2 || got[0].Classification != domain.Slow {
		t.Fatalf("unexpected events: %+v", got)
	}
	all, _ := s.RecentEvents(ctx, "", 0)
	if len(all) != 3 {
		t.Fatalf("want 3 events, got %d", len(all))
	}
}
