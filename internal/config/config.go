// Package config provides configuration management for the health monitor.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix is stripped from environment variables before they are mapped
// onto config keys, e.g. VLLM_MONITOR_API_ENDPOINT -> api.endpoint.
const envPrefix = "VLLM_MONITOR_"

// Config is the full monitor configuration. It is loaded once at startup,
// validated, and shared read-only for the process lifetime.
type Config struct {
	Monitoring MonitoringConfig `koanf:"monitoring"`
	API        APIConfig        `koanf:"api"`
	Thresholds ThresholdConfig  `koanf:"thresholds"`
	Alerts     AlertsConfig     `koanf:"alerts"`
	Server     ServerConfig     `koanf:"server"`
	SQLite     SQLiteConfig     `koanf:"sqlite"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// MonitoringConfig holds scheduler settings.
type MonitoringConfig struct {
	// Root is the directory under which data/ and logs/ are created.
	Root string `koanf:"root"`
	// Interval is the pause between the end of one cycle and the start
	// of the next.
	Interval time.Duration `koanf:"interval"`
	// ProcessName is matched against process names and command lines to
	// find the serving runtime.
	ProcessName string `koanf:"process_name"`
	// HistorySize bounds the in-memory ring of recent composite records.
	HistorySize int `koanf:"history_size"`
}

// APIConfig holds serving endpoint settings for the API probe.
type APIConfig struct {
	Endpoint          string        `koanf:"endpoint"`
	Key               string        `koanf:"key"`
	Model             string        `koanf:"model"`
	RequestTimeout    time.Duration `koanf:"request_timeout"`
	GenerationTimeout time.Duration `koanf:"generation_timeout"`
}

// ThresholdConfig holds per-metric alert limits. All limits use the
// exceeds-limit comparison.
type ThresholdConfig struct {
	GPUMemoryPercent  float64 `koanf:"gpu_memory_percent"`
	GPUTemperature    float64 `koanf:"gpu_temperature"`
	CPUPercent        float64 `koanf:"cpu_percent"`
	MemoryPercent     float64 `koanf:"memory_percent"`
	DiskPercent       float64 `koanf:"disk_percent"`
	APIResponseSecs   float64 `koanf:"api_response_seconds"`
	GenerationSecs    float64 `koanf:"generation_seconds"`
}

// AlertsConfig holds dispatcher and channel settings.
type AlertsConfig struct {
	// SuppressionWindow is how long an already-dispatched alert identity
	// stays muted.
	SuppressionWindow time.Duration `koanf:"suppression_window"`
	HistoryLimit      int           `koanf:"history_limit"`
	Webhook           WebhookConfig `koanf:"webhook"`
	Mail              MailConfig    `koanf:"mail"`
}

// WebhookConfig configures the chat webhook notification channel.
type WebhookConfig struct {
	Enabled       bool          `koanf:"enabled"`
	URL           string        `koanf:"url"`
	Timeout       time.Duration `koanf:"timeout"`
	SkipTLSVerify bool          `koanf:"tls_insecure_skip_verify"`
}

// MailConfig configures the system mail notification channel.
type MailConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Recipients string        `koanf:"recipients"`
	Command    string        `koanf:"command"`
	Timeout    time.Duration `koanf:"timeout"`
}

// ServerConfig configures the optional status/metrics HTTP endpoint.
type ServerConfig struct {
	Enabled bool   `koanf:"enabled"`
	Listen  string `koanf:"listen"`
}

// SQLiteConfig configures the alert audit history store.
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// LoggingConfig holds log verbosity.
type LoggingConfig struct {
	Level string `koanf:"level"`
}

// Default returns the built-in configuration, matching the defaults of the
// original monitoring deployment.
func Default() *Config {
	return &Config{
		Monitoring: MonitoringConfig{
			Root:        "/opt/vllm-monitoring",
			Interval:    30 * time.Second,
			ProcessName: "vllm",
			HistorySize: 120,
		},
		API: APIConfig{
			Endpoint:          "http://localhost:8000",
			Model:             "qwen3",
			RequestTimeout:    10 * time.Second,
			GenerationTimeout: 30 * time.Second,
		},
		Thresholds: ThresholdConfig{
			GPUMemoryPercent: 95,
			GPUTemperature:   85,
			CPUPercent:       90,
			MemoryPercent:    90,
			DiskPercent:      85,
			APIResponseSecs:  5.0,
			GenerationSecs:   30.0,
		},
		Alerts: AlertsConfig{
			SuppressionWindow: time.Hour,
			HistoryLimit:      500,
			Webhook: WebhookConfig{
				Timeout: 10 * time.Second,
			},
			Mail: MailConfig{
				Command: "mail",
				Timeout: 30 * time.Second,
			},
		},
		Server: ServerConfig{
			Listen: ":7070",
		},
		SQLite: SQLiteConfig{
			Path: "/opt/vllm-monitoring/monitor.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the optional TOML file at path, then from
// VLLM_MONITOR_* environment variables, layered over the defaults. The
// result is validated before being returned.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return envToKey(s[len(envPrefix):])
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded configuration for values that would only fail
// later at runtime. Parsing or range problems are startup errors, never
// silent fallbacks.
func (c *Config) Validate() error {
	if c.Monitoring.Root == "" {
		return fmt.Errorf("monitoring.root must not be empty")
	}
	if c.Monitoring.Interval <= 0 {
		return fmt.Errorf("monitoring.interval must be positive, got %s", c.Monitoring.Interval)
	}
	if c.Monitoring.ProcessName == "" {
		return fmt.Errorf("monitoring.process_name must not be empty")
	}
	if _, err := url.ParseRequestURI(c.API.Endpoint); err != nil {
		return fmt.Errorf("api.endpoint %q is not a valid URL: %w", c.API.Endpoint, err)
	}
	for name, v := range map[string]float64{
		"thresholds.gpu_memory_percent":   c.Thresholds.GPUMemoryPercent,
		"thresholds.gpu_temperature":      c.Thresholds.GPUTemperature,
		"thresholds.cpu_percent":          c.Thresholds.CPUPercent,
		"thresholds.memory_percent":       c.Thresholds.MemoryPercent,
		"thresholds.disk_percent":         c.Thresholds.DiskPercent,
		"thresholds.api_response_seconds": c.Thresholds.APIResponseSecs,
		"thresholds.generation_seconds":   c.Thresholds.GenerationSecs,
	} {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %v", name, v)
		}
	}
	if c.Alerts.SuppressionWindow <= 0 {
		return fmt.Errorf("alerts.suppression_window must be positive, got %s", c.Alerts.SuppressionWindow)
	}
	if c.Alerts.Webhook.Enabled && c.Alerts.Webhook.URL == "" {
		return fmt.Errorf("alerts.webhook.url is required when the webhook channel is enabled")
	}
	if c.Alerts.Mail.Enabled && c.Alerts.Mail.Recipients == "" {
		return fmt.Errorf("alerts.mail.recipients is required when the mail channel is enabled")
	}
	if c.Server.Enabled && c.Server.Listen == "" {
		return fmt.Errorf("server.listen is required when the status server is enabled")
	}
	return nil
}

// envToKey converts an environment variable suffix to a config key,
// e.g. API_ENDPOINT -> api.endpoint.
func envToKey(s string) string {
	result := ""
	for _, c := range s {
		if c == '_' {
			result += "."
		} else if c >= 'A' && c <= 'Z' {
			result += string(c - 'A' + 'a')
		} else {
			result += string(c)
		}
	}
	return result
}
