package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimechecker/internal/app"
	"github.com/hamed0406/uptimechecker/internal/config"
	"github.com/hamed0406/uptimechecker/internal/logging"
	"github.com/hamed0406/uptimechecker/internal/scheduler"
)

type options struct {
	ConfigPath string
	Schedule   string
	Immediate  bool
	PrintJSON  bool
	ShowHelp   bool
}

func parseArgs(args []string, stderr io.Writer) (options, int) {
	var o options
	flags := pflag.NewFlagSet("uptimectl", pflag.ContinueOnError)
	flags.SetOutput(stderr)

	defaultConfig := os.Getenv("UPTIME_CONFIG")
	if defaultConfig == "" {
		defaultConfig = "uptime.yaml"
	}
	flags.StringVarP(&o.ConfigPath, "config", "c", defaultConfig, "Path to the YAML config file")
	flags.StringVarP(&o.Schedule, "schedule", "s", "", `Run cycles on a cron schedule, e.g. "*/5 * * * *" or "@every 5m"`)
	flags.BoolVar(&o.Immediate, "immediate", true, "With --schedule, run one cycle before the first tick")
	flags.BoolVar(&o.PrintJSON, "json", false, "Print the cycle report as JSON (single run only)")
	flags.BoolVarP(&o.ShowHelp, "help", "h", false, "Show help message")

	if err := flags.Parse(args[1:]); err != nil {
		fmt.Fprintf(stderr, "\nPlease see `%s -h` for more information.\n", args[0])
		return o, 2
	}
	if o.ShowHelp {
		fmt.Fprintf(stderr, "Usage: %s [flags]\n\nRuns one uptime poll cycle, or keeps running them on a schedule.\n\n", args[0])
		flags.PrintDefaults()
		return o, 0
	}
	if flags.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %v\n", flags.Args())
		return o, 2
	}
	if o.Schedule != "" && o.PrintJSON {
		fmt.Fprintln(stderr, "warning: --json is ignored with --schedule.")
	}
	return o, -1
}

func main() {
	opts, code := parseArgs(os.Args, os.Stderr)
	if code >= 0 {
		os.Exit(code)
	}
	os.Exit(run(opts))
}

func run(opts options) int {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	logger, err := logging.NewLogger(cfg.LogDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, app.Options{})
	if err != nil {
		logger.Error("startup_error", zap.Error(err))
		return 1
	}
	defer a.Close()

	if opts.Schedule == "" {
		rep, err := a.Orchestrator.Run(ctx)
		if opts.PrintJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(rep)
		}
		if err != nil {
			return 1
		}
		return 0
	}

	s, err := scheduler.New(logger, a.Orchestrator, opts.Schedule)
	if err != nil {
		logger.Error("startup_error", zap.Error(err))
		return 2
	}
	s.Immediate = opts.Immediate
	s.Run(ctx)
	return 0
}
