// Package app wires configuration into a runnable poll cycle.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimechecker/internal/alert"
	"github.com/hamed0406/uptimechecker/internal/config"
	"github.com/hamed0406/uptimechecker/internal/cycle"
	"github.com/hamed0406/uptimechecker/internal/notify"
	"github.com/hamed0406/uptimechecker/internal/probe"
	"github.com/hamed0406/uptimechecker/internal/repo"
	"github.com/hamed0406/uptimechecker/internal/repo/memory"
	"github.com/hamed0406/uptimechecker/internal/repo/sqlrepo"
)

type App struct {
	Config       config.Config
	Logger       *zap.Logger
	Orchestrator *cycle.Orchestrator
	// Store is set only for long-lived processes (see Options.KeepStore).
	Store repo.HistoryStore
}

type Options struct {
	// KeepStore opens storage once and reuses it for every cycle. Without it
	// each cycle connects and disconnects on its own.
	KeepStore bool
}

// OpenStore connects to the configured engine.
func OpenStore(ctx context.Context, db config.Database) (repo.HistoryStore, error) {
	if db.Kind() == config.EngineMemory {
		return memory.New(), nil
	}
	s, err := sqlrepo.Open(ctx, db)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewOpener returns a per-cycle opener. The memory engine keeps one store
// for the life of the process so history survives between cycles.
func NewOpener(db config.Database) repo.Opener {
	if db.Kind() == config.EngineMemory {
		return repo.Shared(memory.New())
	}
	return func(ctx context.Context) (repo.HistoryStore, error) {
		return OpenStore(ctx, db)
	}
}

// NewNotifier builds the SNS channel (if a topic is set) and one webhook
// channel per URL.
func NewNotifier(ctx context.Context, cfg config.Config, logger *zap.Logger) (*notify.Notifier, error) {
	var channels []notify.Channel
	sns, err := notify.NewSNS(ctx, cfg.Notifications.SNSTopicARN)
	if err != nil {
		return nil, fmt.Errorf("sns: %w", err)
	}
	if sns != nil {
		channels = append(channels, sns)
	}
	for _, u := range cfg.Notifications.WebhookURLs {
		if wh := notify.NewWebhook(u); wh != nil {
			channels = append(channels, wh)
		}
	}
	if len(channels) == 0 {
		logger.Warn("notify_no_channels")
	}
	return notify.New(logger, cfg.AlertSubject(), channels...), nil
}

func NewProber(cfg config.Probe) *probe.HTTPProber {
	var dns probe.Diagnoser
	if cfg.DNSDiagnose {
		dns = probe.NewDNSDiagnoser()
	}
	return probe.NewHTTPProber(cfg.Timeout, dns)
}

// New validates cfg and assembles the orchestrator.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	n, err := NewNotifier(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger}
	opener := NewOpener(cfg.Database)
	if opts.KeepStore {
		s, err := opener(ctx)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		a.Store = s
		opener = repo.Shared(s)
	}

	a.Orchestrator = &cycle.Orchestrator{
		Logger:    logger,
		Endpoints: cfg.EndpointList(),
		Prober:    NewProber(cfg.Probe),
		Open:      opener,
		Notifier:  n,
		Alerting: alert.Config{
			Threshold: cfg.Alerting.Threshold,
			Window:    cfg.Alerting.Window,
			Cooldown:  cfg.Alerting.Cooldown,
		},
		Concurrency: cfg.Probe.Concurrency,
	}
	return a, nil
}

// Close releases a kept store.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}
