package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimechecker/internal/cycle"
)

// Runner runs one poll cycle.
type Runner interface {
	Run(ctx context.Context) (cycle.Report, error)
}

// Scheduler triggers cycles on a cron schedule for local runs. Each cycle is
// independent; nothing is carried between them except what the store holds.
type Scheduler struct {
	Logger    *zap.Logger
	Runner    Runner
	Immediate bool // run one cycle before the first tick

	schedule cron.Schedule
	spec     string
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// New accepts standard 5-field expressions and descriptors such as
// "@every 5m" or "@hourly".
func New(logger *zap.Logger, runner Runner, spec string) (*Scheduler, error) {
	if spec == "" {
		return nil, errors.New("empty schedule")
	}
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return &Scheduler{Logger: logger, Runner: runner, schedule: sched, spec: spec}, nil
}

// Run blocks until ctx is cancelled, then waits for a running cycle to finish.
// A tick that arrives while the previous cycle is still running is skipped.
func (s *Scheduler) Run(ctx context.Context) {
	c := cron.New(cron.WithChain(
		cron.Recover(cronLogger{s.Logger}),
		cron.SkipIfStillRunning(cronLogger{s.Logger}),
	))
	c.Schedule(s.schedule, cron.FuncJob(func() { s.runOnce(ctx) }))

	if s.Immediate {
		s.runOnce(ctx)
	}
	c.Start()
	s.Logger.Info("scheduler_started",
		zap.String("schedule", s.spec),
		zap.Time("next_run", s.schedule.Next(time.Now())),
	)

	<-ctx.Done()
	<-c.Stop().Done()
	s.Logger.Info("scheduler_stopped")
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.Runner.Run(ctx); err != nil {
		s.Logger.Warn("scheduled_cycle_error", zap.Error(err))
	}
}

// cronLogger adapts zap to cron's logr-style logger.
type cronLogger struct{ l *zap.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Sugar().Debugw("cron_"+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Sugar().Errorw("cron_"+msg, append(keysAndValues, "error", err)...)
}
