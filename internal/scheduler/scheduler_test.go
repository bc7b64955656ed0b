package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimechecker/internal/cycle"
)

// --- fakes ---

type countingRunner struct {
	mu  sync.Mutex
	n   int
	err error
	ran chan struct{}
}

func (c *countingRunner) Run(ctx context.Context) (cycle.Report, error) {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
	if c.ran != nil {
		select {
		case c.ran <- struct{}{}:
		default:
		}
	}
	return cycle.Report{CycleID: "test"}, c.err
}

func (c *countingRunner) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// --- tests ---

func TestNew_RejectsBadSchedule(t *testing.T) {
	for _, spec := range []string{"", "not a cron", "* * *"} {
		if _, err := New(zap.NewNop(), &countingRunner{}, spec); err == nil {
			t.Fatalf("expected error for %q", spec)
		}
	}
}

func TestNew_AcceptsStandardAndDescriptors(t *testing.T) {
	for _, spec := range []string{"*/5 * * * *", "@every 5m", "@hourly"} {
		if _, err := New(zap.NewNop(), &countingRunner{}, spec); err != nil {
			t.Fatalf("%q: %v", spec, err)
		}
	}
}

func TestRun_ImmediateCycleThenStopsOnCancel(t *testing.T) {
	r := &countingRunner{}
	s, err := New(zap.NewNop(), r, "@hourly")
	if err != nil {
		t.Fatal(err)
	}
	s.Immediate = true

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for r.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
	if r.count() != 1 {
		t.Fatalf("want exactly the immediate cycle, got %d", r.count())
	}
}

func TestRun_TicksAndSurvivesCycleErrors(t *testing.T) {
	r := &countingRunner{err: errors.New("storage unavailable"), ran: make(chan struct{}, 1)}
	s, err := New(zap.NewNop(), r, "@every 1s")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	for i := 0; i < 2; i++ {
		select {
		case <-r.ran:
		case <-time.After(3 * time.Second):
			t.Fatalf("tick %d never ran", i+1)
		}
	}
}
