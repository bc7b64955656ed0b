package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimechecker/internal/config"
	"github.com/hamed0406/uptimechecker/internal/cycle"
)

type hookSink struct {
	mu   sync.Mutex
	msgs []string
}

func (h *hookSink) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p struct {
			Content string `json:"content"`
		}
		_ = json.NewDecoder(r.Body).Decode(&p)
		h.mu.Lock()
		h.msgs = append(h.msgs, p.Content)
		h.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}
}

func testConfig(db config.Database, target, hook string) config.Config {
	return config.Config{
		Company:  "Acme",
		Database: db,
		Endpoints: []config.EndpointConfig{
			{URL: target, MaxResponseTime: 5, AcceptableStatusCodes: []int{200}},
		},
		Notifications: config.Notifications{WebhookURLs: []string{hook}},
		Alerting:      config.Alerting{Threshold: 3, Window: 15 * time.Minute},
		Probe:         config.Probe{Timeout: 2 * time.Second, Concurrency: 2},
	}
}

func runCycles(t *testing.T, o *cycle.Orchestrator, n int) cycle.Report {
	t.Helper()
	var rep cycle.Report
	for i := 0; i < n; i++ {
		var err error
		if rep, err = o.Run(context.Background()); err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
	}
	return rep
}

func TestNew_EndToEndSQLiteAcrossCycles(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer target.Close()
	sink := &hookSink{}
	hook := httptest.NewServer(sink.handler())
	defer hook.Close()

	db := config.Database{Engine: "sqlite", Name: filepath.Join(t.TempDir(), "uptime.db")}
	a, err := New(context.Background(), testConfig(db, target.URL, hook.URL), zap.NewNop(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	rep := runCycles(t, a.Orchestrator, 3)
	if !rep.Outcomes[0].Alerted {
		t.Fatalf("third unhealthy cycle should alert: %+v", rep.Outcomes[0])
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.msgs) != 1 {
		t.Fatalf("want 1 webhook message, got %d", len(sink.msgs))
	}
	want := "The URL " + target.URL + " has been marked as Unhealthy 3 times consecutively."
	if sink.msgs[0] != want {
		t.Fatalf("message = %q, want %q", sink.msgs[0], want)
	}
}

func TestNew_MemoryEngineKeepsHistory(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()
	sink := &hookSink{}
	hook := httptest.NewServer(sink.handler())
	defer hook.Close()

	a, err := New(context.Background(), testConfig(config.Database{Engine: "memory"}, target.URL, hook.URL), zap.NewNop(), Options{KeepStore: true})
	if err != nil {
		t.Fatal(err)
	}
	runCycles(t, a.Orchestrator, 2)

	events, err := a.Store.RecentEvents(context.Background(), target.URL, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("want 2 events across cycles, got %d", len(events))
	}
	if len(sink.msgs) != 0 {
		t.Fatalf("healthy endpoint must not notify")
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := config.Config{Database: config.Database{Engine: "oracle"}}
	_, err := New(context.Background(), cfg, zap.NewNop(), Options{})
	if err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Fatalf("expected invalid config error, got %v", err)
	}
}

func TestNewOpener_UnreachableDatabaseFailsAtCycle(t *testing.T) {
	db := config.Database{Engine: "postgres", Host: "127.0.0.1", Port: 1, Name: "x", Username: "u"}
	cfg := testConfig(db, "https://example.invalid", "https://hooks.example.com/x")
	a, err := New(context.Background(), cfg, zap.NewNop(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Orchestrator.Run(context.Background()); err == nil {
		t.Fatalf("expected storage error")
	}
}
