package main

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hamed0406/uptimechecker/internal/config"
)

func TestWarnEphemeralStore(t *testing.T) {
	cases := []struct {
		engine string
		warn   bool
	}{
		{"memory", true},
		{"MEMORY", true},
		{"postgres", false},
		{"sqlite", false},
	}
	for _, c := range cases {
		core, logs := observer.New(zapcore.WarnLevel)
		cfg := config.Config{Database: config.Database{Engine: c.engine}}

		if got := warnEphemeralStore(cfg, zap.New(core)); got != c.warn {
			t.Fatalf("%s: got %v want %v", c.engine, got, c.warn)
		}
		n := logs.FilterMessage("lambda_memory_engine").Len()
		if (n == 1) != c.warn {
			t.Fatalf("%s: %d warnings logged", c.engine, n)
		}
	}
}
