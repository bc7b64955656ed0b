package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/hamed0406/uptimechecker/internal/domain"
)

type Engine string

const (
	EngineMySQL    Engine = "mysql"
	EnginePostgres Engine = "postgres"
	EngineMSSQL    Engine = "mssql"
	EngineSQLite   Engine = "sqlite"
	EngineMemory   Engine = "memory"
)

// ParseEngine accepts the canonical names plus the driver names older
// deployments used ("postgresql", "psycopg2").
func ParseEngine(s string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mysql":
		return EngineMySQL, nil
	case "postgres", "postgresql", "psycopg2":
		return EnginePostgres, nil
	case "mssql", "sqlserver":
		return EngineMSSQL, nil
	case "sqlite", "sqlite3":
		return EngineSQLite, nil
	case "memory":
		return EngineMemory, nil
	}
	return "", fmt.Errorf("unsupported database engine %q", s)
}

type Database struct {
	Engine   string `yaml:"engine"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"` // file path for sqlite
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"` // postgres only
}

func (d Database) Kind() Engine {
	e, _ := ParseEngine(d.Engine)
	return e
}

type Notifications struct {
	SNSTopicARN string   `yaml:"sns_topic_arn"`
	WebhookURLs []string `yaml:"webhook_urls"`
}

type EndpointConfig struct {
	URL                   string  `yaml:"url"`
	MaxResponseTime       float64 `yaml:"max_response_time"` // seconds
	AcceptableStatusCodes []int   `yaml:"acceptable_status_codes"`
}

type Alerting struct {
	Threshold int           `yaml:"threshold"`
	Window    time.Duration `yaml:"window"`
	Cooldown  time.Duration `yaml:"cooldown"` // 0 re-alerts on every cycle
}

type Probe struct {
	Timeout     time.Duration `yaml:"timeout"`
	Concurrency int           `yaml:"concurrency"`
	DNSDiagnose bool          `yaml:"dns_diagnose"`
}

type API struct {
	Addr       string   `yaml:"addr"`
	PublicKeys []string `yaml:"public_keys"`
	AdminKeys  []string `yaml:"admin_keys"`

	// AllowedOrigins for CORS; empty allows any origin.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Config struct {
	Company       string           `yaml:"company"`
	LogDir        string           `yaml:"log_dir"` // empty logs to stdout only
	Database      Database         `yaml:"database"`
	Notifications Notifications    `yaml:"notifications"`
	Endpoints     []EndpointConfig `yaml:"endpoints"`
	Alerting      Alerting         `yaml:"alerting"`
	Probe         Probe            `yaml:"probe"`
	API           API              `yaml:"api"`
}

// Load reads the YAML file at path (if it exists), applies environment
// overrides and fills defaults. It does not validate; call Validate.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			// env-only configuration
		default:
			return Config{}, fmt.Errorf("read %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	return cfg, nil
}

// FromEnv loads the file named by UPTIME_CONFIG (default uptime.yaml).
func FromEnv() (Config, error) {
	path := os.Getenv("UPTIME_CONFIG")
	if path == "" {
		path = "uptime.yaml"
	}
	return Load(path)
}

func applyEnv(c *Config) {
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setString(&c.Company, "COMPANY_NAME")
	setString(&c.LogDir, "LOG_DIR")
	setString(&c.Database.Engine, "DB_ENGINE")
	setString(&c.Database.Host, "DB_HOST")
	setString(&c.Database.Name, "DB_NAME")
	setString(&c.Database.Username, "DB_USER")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Notifications.SNSTopicARN, "SNS_TOPIC_ARN")
	setString(&c.API.Addr, "API_ADDR")

	if v := os.Getenv("DB_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Database.Port = n
		}
	}
	if v := os.Getenv("PROBE_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			c.Probe.Timeout = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("MAX_CONCURRENT_CHECKS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Probe.Concurrency = n
		}
	}
	if v := os.Getenv("WEBHOOK_URLS"); v != "" {
		c.Notifications.WebhookURLs = splitList(v)
	}
	if v := os.Getenv("PUBLIC_API_KEYS"); v != "" {
		c.API.PublicKeys = splitList(v)
	}
	if v := os.Getenv("ADMIN_API_KEYS"); v != "" {
		c.API.AdminKeys = splitList(v)
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.API.AllowedOrigins = splitList(v)
	}
}

func applyDefaults(c *Config) {
	if c.Database.Engine == "" {
		c.Database.Engine = string(EngineMemory)
	}
	if c.Database.Port == 0 {
		switch c.Database.Kind() {
		case EngineMySQL:
			c.Database.Port = 3306
		case EnginePostgres:
			c.Database.Port = 5432
		case EngineMSSQL:
			c.Database.Port = 1433
		}
	}
	if c.Alerting.Threshold <= 0 {
		c.Alerting.Threshold = 3
	}
	if c.Alerting.Window <= 0 {
		c.Alerting.Window = 15 * time.Minute
	}
	if c.Probe.Timeout <= 0 {
		c.Probe.Timeout = 30 * time.Second
	}
	if c.Probe.Concurrency < 1 {
		c.Probe.Concurrency = 4
	}
	if c.API.Addr == "" {
		c.API.Addr = "127.0.0.1:8080"
	}
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate reports every configuration problem at once.
func (c Config) Validate() error {
	var errs error
	if _, err := ParseEngine(c.Database.Engine); err != nil {
		errs = multierr.Append(errs, err)
	}
	switch c.Database.Kind() {
	case EngineMySQL, EnginePostgres, EngineMSSQL:
		if c.Database.Host == "" {
			errs = multierr.Append(errs, errors.New("database.host is required"))
		}
		if c.Database.Name == "" {
			errs = multierr.Append(errs, errors.New("database.name is required"))
		}
	case EngineSQLite:
		if c.Database.Name == "" {
			errs = multierr.Append(errs, errors.New("database.name (sqlite file) is required"))
		}
	}
	if len(c.Endpoints) == 0 {
		errs = multierr.Append(errs, errors.New("at least one endpoint is required"))
	}
	for i, ep := range c.Endpoints {
		if !isHTTPURL(ep.URL) {
			errs = multierr.Append(errs, fmt.Errorf("endpoints[%d]: invalid url %q", i, ep.URL))
		}
		if ep.MaxResponseTime <= 0 {
			errs = multierr.Append(errs, fmt.Errorf("endpoints[%d]: max_response_time must be > 0", i))
		}
		if len(ep.AcceptableStatusCodes) == 0 {
			errs = multierr.Append(errs, fmt.Errorf("endpoints[%d]: acceptable_status_codes is empty", i))
		}
		for _, code := range ep.AcceptableStatusCodes {
			if code < 100 || code > 599 {
				errs = multierr.Append(errs, fmt.Errorf("endpoints[%d]: invalid status code %d", i, code))
			}
		}
	}
	for i, u := range c.Notifications.WebhookURLs {
		if !isHTTPURL(u) {
			errs = multierr.Append(errs, fmt.Errorf("notifications.webhook_urls[%d]: invalid url %q", i, u))
		}
	}
	if c.Alerting.Cooldown < 0 {
		errs = multierr.Append(errs, errors.New("alerting.cooldown must be >= 0"))
	}
	return errs
}

// EndpointList converts the configured endpoints to their domain form.
func (c Config) EndpointList() []domain.Endpoint {
	out := make([]domain.Endpoint, 0, len(c.Endpoints))
	for _, ep := range c.Endpoints {
		codes := make([]int, len(ep.AcceptableStatusCodes))
		copy(codes, ep.AcceptableStatusCodes)
		out = append(out, domain.Endpoint{
			URL:                   ep.URL,
			MaxResponseTime:       time.Duration(math.Round(ep.MaxResponseTime * float64(time.Second))),
			AcceptableStatusCodes: codes,
		})
	}
	return out
}

// AlertSubject is the subject line used for pub/sub alerts.
func (c Config) AlertSubject() string {
	return c.Company + "_Alert Notification"
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
