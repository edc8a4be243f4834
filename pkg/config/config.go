package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/prerender-tools/cachectl/pkg/logger"
	"github.com/prerender-tools/cachectl/pkg/models"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CACHECTL_"

// Default identity strings sent with recache requests. The store keys its
// desktop and mobile renders off the User-Agent.
const (
	DefaultDesktopUA = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) HeadlessChrome/89.0.4389.82 Safari/537.36 Prerender (+https://github.com/prerender/prerender)"
	DefaultMobileUA  = "Mozilla/5.0 (Linux; Android 11; Pixel 5) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/89.0.4389.72 Mobile Safari/537.36 Prerender (+https://github.com/prerender/prerender)"
)

// Config holds all cachectl configuration.
type Config struct {
	BaseURL    string               `yaml:"base_url" env:"BASE_URL"`
	APIBase    string               `yaml:"api_base" env:"API_BASE"`
	UserAgents UserAgentConfig      `yaml:"user_agents" envPrefix:"UA_"`
	HTTP       HTTPConfig           `yaml:"http" envPrefix:"HTTP_"`
	Batch      BatchConfig          `yaml:"batch" envPrefix:"BATCH_"`
	Journal    models.JournalConfig `yaml:"journal"`
	Metrics    MetricsConfig        `yaml:"metrics" envPrefix:"METRICS_"`
	Log        LogConfig            `yaml:"log" envPrefix:"LOG_"`
	Telemetry  TelemetryConfig      `yaml:"telemetry" envPrefix:"OTEL_"`
}

// UserAgentConfig holds the identity string for each variant.
type UserAgentConfig struct {
	Desktop string `yaml:"desktop" env:"DESKTOP"`
	Mobile  string `yaml:"mobile" env:"MOBILE"`
}

// For returns the identity string for v.
func (u UserAgentConfig) For(v models.Variant) (string, bool) {
	switch v {
	case models.VariantDesktop:
		return u.Desktop, true
	case models.VariantMobile:
		return u.Mobile, true
	}
	return "", false
}

// HTTPConfig bounds every call made to the store and the sitemap host.
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" env:"TIMEOUT"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" env:"MAX_BODY_BYTES"`
}

// BatchConfig controls how many URLs are submitted at once.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" env:"CONCURRENCY"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" env:"TEXTFILE"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// TelemetryConfig controls optional OTLP tracing.
type TelemetryConfig struct {
	Endpoint    string `yaml:"endpoint" env:"ENDPOINT"`
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		BaseURL: "https://service.pbarmyff.com",
		UserAgents: UserAgentConfig{
			Desktop: DefaultDesktopUA,
			Mobile:  DefaultMobileUA,
		},
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			MaxBodyBytes: 4096,
		},
		Batch: BatchConfig{
			Concurrency: 4,
		},
		Journal: models.JournalConfig{
			Enabled:       false,
			DBPath:        "cachectl.db",
			RetentionDays: 30,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "cachectl",
		},
	}
}

// Load reads a YAML config file, expands environment variables, applies
// CACHECTL_* overrides and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path when set. With an empty path it reads
// cachectl.yaml from the working directory if present, otherwise it starts
// from defaults. Env overrides and validation apply in every case.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	if _, err := os.Stat("cachectl.yaml"); err == nil {
		return Load("cachectl.yaml")
	}
	cfg := Default()
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) finish() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.APIBase == "" {
		c.APIBase = c.BaseURL + "/api/cache"
	}
	return c.Validate()
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if err := validateHTTPURL("base_url", c.BaseURL); err != nil {
		return err
	}
	if err := validateHTTPURL("api_base", c.APIBase); err != nil {
		return err
	}
	if strings.TrimSpace(c.UserAgents.Desktop) == "" {
		return errors.New("user_agents.desktop is required")
	}
	if strings.TrimSpace(c.UserAgents.Mobile) == "" {
		return errors.New("user_agents.mobile is required")
	}
	if c.UserAgents.Desktop == c.UserAgents.Mobile {
		return errors.New("user_agents.desktop and user_agents.mobile must differ")
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be positive, got %s", c.HTTP.Timeout)
	}
	if c.Batch.Concurrency < 1 {
		return fmt.Errorf("batch.concurrency must be at least 1, got %d", c.Batch.Concurrency)
	}
	if c.Journal.Enabled && c.Journal.DBPath == "" {
		return errors.New("journal.db_path is required when the journal is enabled")
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

func validateHTTPURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", field, raw)
	}
	return nil
}
