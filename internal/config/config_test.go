package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/multierr"

	"github.com/hamed0406/uptimechecker/internal/domain"
)

const sampleYAML = `
company: Acme
database:
  engine: postgresql
  host: db.internal
  name: uptime
  username: monitor
notifications:
  sns_topic_arn: arn:aws:sns:eu-west-1:123456789012:alerts
  webhook_urls:
    - https://discord.example/hook/1
endpoints:
  - url: https://a.example
    max_response_time: 0.5
    acceptable_status_codes: [200, 201]
  - url: https://b.example/health
    max_response_time: 0.75
    acceptable_status_codes: [200]
alerting:
  window: 10m
  cooldown: 30m
`

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "uptime.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_ParsesFileAndDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Database.Kind() != EnginePostgres || cfg.Database.Port != 5432 {
		t.Fatalf("database wrong: %+v", cfg.Database)
	}
	if cfg.Alerting.Threshold != 3 || cfg.Alerting.Window != 10*time.Minute || cfg.Alerting.Cooldown != 30*time.Minute {
		t.Fatalf("alerting wrong: %+v", cfg.Alerting)
	}
	if cfg.Probe.Timeout != 30*time.Second || cfg.Probe.Concurrency != 4 {
		t.Fatalf("probe defaults wrong: %+v", cfg.Probe)
	}
	if cfg.AlertSubject() != "Acme_Alert Notification" {
		t.Fatalf("subject wrong: %q", cfg.AlertSubject())
	}

	want := []domain.Endpoint{
		{URL: "https://a.example", MaxResponseTime: 500 * time.Millisecond, AcceptableStatusCodes: []int{200, 201}},
		{URL: "https://b.example/health", MaxResponseTime: 750 * time.Millisecond, AcceptableStatusCodes: []int{200}},
	}
	if diff := cmp.Diff(want, cfg.EndpointList()); diff != "" {
		t.Fatalf("endpoints mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_ENGINE", "mysql")
	t.Setenv("DB_HOST", "rds.internal")
	t.Setenv("DB_PORT", "3307")
	t.Setenv("DB_PASSWORD", "s3cret")
	t.Setenv("COMPANY_NAME", "Globex")
	t.Setenv("WEBHOOK_URLS", "https://h1.example, https://h2.example")
	t.Setenv("ADMIN_API_KEYS", "adm_x")
	t.Setenv("PROBE_TIMEOUT_MS", "1500")
	t.Setenv("MAX_CONCURRENT_CHECKS", "7")

	cfg, err := Load(writeFile(t, sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Database.Kind() != EngineMySQL || cfg.Database.Host != "rds.internal" || cfg.Database.Port != 3307 {
		t.Fatalf("db overrides not applied: %+v", cfg.Database)
	}
	if cfg.Database.Password != "s3cret" || cfg.Company != "Globex" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if diff := cmp.Diff([]string{"https://h1.example", "https://h2.example"}, cfg.Notifications.WebhookURLs); diff != "" {
		t.Fatalf("webhooks (-want +got):\n%s", diff)
	}
	if len(cfg.API.AdminKeys) != 1 || cfg.API.AdminKeys[0] != "adm_x" {
		t.Fatalf("admin keys wrong: %v", cfg.API.AdminKeys)
	}
	if cfg.Probe.Timeout != 1500*time.Millisecond || cfg.Probe.Concurrency != 7 {
		t.Fatalf("probe overrides wrong: %+v", cfg.Probe)
	}
}

func TestLoad_MissingFileFallsBackToEnv(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.Database.Kind() != EngineMemory {
		t.Fatalf("want memory engine by default, got %q", cfg.Database.Engine)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	if _, err := Load(writeFile(t, "endpoints: [")); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := Config{
		Database: Database{Engine: "oracle"},
		Endpoints: []EndpointConfig{
			{URL: "ftp://x", MaxResponseTime: 0, AcceptableStatusCodes: nil},
		},
		Notifications: Notifications{WebhookURLs: []string{""}},
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	errs := multierr.Errors(err)
	if len(errs) != 5 {
		t.Fatalf("want 5 errors, got %d: %v", len(errs), err)
	}
	if !strings.Contains(err.Error(), "unsupported database engine") {
		t.Fatalf("engine error missing: %v", err)
	}
}

func TestParseEngine_Aliases(t *testing.T) {
	cases := map[string]Engine{
		"mysql":      EngineMySQL,
		"PostgreSQL": EnginePostgres,
		"psycopg2":   EnginePostgres,
		"mssql":      EngineMSSQL,
		"sqlite":     EngineSQLite,
		"memory":     EngineMemory,
	}
	for in, want := range cases {
		got, err := ParseEngine(in)
		if err != nil || got != want {
			t.Fatalf("ParseEngine(%q)=%q,%v want %q", in, got, err, want)
		}
	}
	if _, err := ParseEngine(""); err == nil {
		t.Fatalf("empty engine should fail")
	}
}

func TestEndpointList_RoundsSecondsToNanoseconds(t *testing.T) {
	cases := map[float64]time.Duration{
		1.001:  1001 * time.Millisecond,
		0.5:    500 * time.Millisecond,
		0.29:   290 * time.Millisecond,
		2.675:  2675 * time.Millisecond,
		99.999: 99999 * time.Millisecond,
	}
	for secs, want := range cases {
		cfg := Config{Endpoints: []EndpointConfig{{URL: "https://a", MaxResponseTime: secs, AcceptableStatusCodes: []int{200}}}}
		got := cfg.EndpointList()[0].MaxResponseTime
		if got != want {
			t.Fatalf("max_response_time %v: got %v want %v", secs, got, want)
		}
		// a response that takes exactly the limit is not slow
		if c := domain.Classify(200, want, cfg.EndpointList()[0]); c != domain.Healthy {
			t.Fatalf("max_response_time %v: elapsed == max classified %s", secs, c)
		}
	}
}
