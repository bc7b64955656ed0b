// cmd/preflight/main.go
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/multierr"

	"github.com/hamed0406/uptimechecker/internal/config"
)

type printer struct {
	out, errOut io.Writer
	failed      bool
}

func (p *printer) fail(msg string) { fmt.Fprintln(p.errOut, "✖", msg); p.failed = true }
func (p *printer) warn(msg string) { fmt.Fprintln(p.errOut, "⚠", msg) }
func (p *printer) ok(msg string)   { fmt.Fprintln(p.out, "✔", msg) }

// check prints one line per finding and reports whether the config is usable.
func check(cfg config.Config, p *printer) bool {
	for _, err := range multierr.Errors(cfg.Validate()) {
		p.fail(err.Error())
	}

	engine := cfg.Database.Kind()
	switch engine {
	case "":
		// already reported by Validate
	case config.EngineMemory:
		p.warn("database engine is memory; history is lost when the process exits.")
	default:
		p.ok("database engine " + string(engine))
	}

	if cfg.Company == "" {
		p.warn("company is empty; alert subject will be \"" + cfg.AlertSubject() + "\".")
	}
	if cfg.Notifications.SNSTopicARN == "" && len(cfg.Notifications.WebhookURLs) == 0 {
		p.warn("no SNS topic or webhook URLs; alerts will be recorded but not delivered.")
	} else {
		if cfg.Notifications.SNSTopicARN != "" {
			p.ok("SNS topic " + cfg.Notifications.SNSTopicARN)
		}
		if n := len(cfg.Notifications.WebhookURLs); n > 0 {
			p.ok(fmt.Sprintf("%d webhook URL(s)", n))
		}
	}

	if len(cfg.API.AdminKeys) == 0 {
		p.warn("ADMIN_API_KEYS is empty; POST /api/cycles is open to anyone.")
	}
	if len(cfg.API.PublicKeys) == 0 && len(cfg.API.AdminKeys) == 0 {
		p.warn("PUBLIC_API_KEYS is empty; read routes are open to anyone.")
	}
	for name, keys := range map[string][]string{"ADMIN_API_KEYS": cfg.API.AdminKeys, "PUBLIC_API_KEYS": cfg.API.PublicKeys} {
		for _, k := range keys {
			if strings.ContainsAny(k, " \t") {
				p.warn(name + " contains spaces; use comma-separated with no spaces, e.g. key1,key2")
				break
			}
		}
	}
	if len(cfg.API.AllowedOrigins) == 0 {
		p.warn("ALLOWED_ORIGINS empty; the API allows any origin.")
	} else {
		p.ok("ALLOWED_ORIGINS=" + strings.Join(cfg.API.AllowedOrigins, ","))
	}

	if !p.failed {
		p.ok(fmt.Sprintf("%d endpoint(s), alert after %d events in %s", len(cfg.Endpoints), cfg.Alerting.Threshold, cfg.Alerting.Window))
	}
	return !p.failed
}

func main() {
	p := &printer{out: os.Stdout, errOut: os.Stderr}
	cfg, err := config.FromEnv()
	if err != nil {
		p.fail(err.Error())
		os.Exit(1)
	}
	if !check(cfg, p) {
		os.Exit(1)
	}
	p.ok("preflight passed")
}
