package main

import (
	"context"
	"encoding/json"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimechecker/internal/app"
	"github.com/hamed0406/uptimechecker/internal/config"
	"github.com/hamed0406/uptimechecker/internal/logging"
)

type handler struct {
	cfg    config.Config
	logger *zap.Logger
}

// Handle runs one cycle per invocation, whatever the trigger event. It
// always returns nil; outcomes go to logs and stored rows.
func (h *handler) Handle(ctx context.Context, _ json.RawMessage) error {
	a, err := app.New(ctx, h.cfg, h.logger, app.Options{})
	if err != nil {
		h.logger.Error("startup_error", zap.Error(err))
		return nil
	}
	defer a.Close()
	_, _ = a.Orchestrator.Run(ctx)
	return nil
}

// warnEphemeralStore flags the memory engine: each invocation starts with an
// empty history, so the alert threshold can never be reached.
func warnEphemeralStore(cfg config.Config, logger *zap.Logger) bool {
	if cfg.Database.Kind() != config.EngineMemory {
		return false
	}
	logger.Warn("lambda_memory_engine",
		zap.String("engine", cfg.Database.Engine),
		zap.String("hint", "set DB_ENGINE; history is lost between invocations and alerts never fire"),
	)
	return true
}

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.NewLogger(cfg.LogDir)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	warnEphemeralStore(cfg, logger)
	h := &handler{cfg: cfg, logger: logger}
	lambda.Start(h.Handle)
}
