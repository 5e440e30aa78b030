package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Monitoring.Interval != 30*time.Second {
		t.Errorf("Default() Monitoring.Interval = %v, want %v", cfg.Monitoring.Interval, 30*time.Second)
	}
	if cfg.Monitoring.ProcessName != "vllm" {
		t.Errorf("Default() Monitoring.ProcessName = %q, want %q", cfg.Monitoring.ProcessName, "vllm")
	}
	if cfg.API.Endpoint != "http://localhost:8000" {
		t.Errorf("Default() API.Endpoint = %q, want %q", cfg.API.Endpoint, "http://localhost:8000")
	}
	if cfg.Thresholds.GPUTemperature != 85 {
		t.Errorf("Default() Thresholds.GPUTemperature = %v, want 85", cfg.Thresholds.GPUTemperature)
	}
	if cfg.Alerts.SuppressionWindow != time.Hour {
		t.Errorf("Default() Alerts.SuppressionWindow = %v, want 1h", cfg.Alerts.SuppressionWindow)
	}
	if cfg.Alerts.Webhook.Enabled || cfg.Alerts.Mail.Enabled {
		t.Error("Default() notification channels should be disabled")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default() config should validate, got %v", err)
	}
}

func TestLoadFromTOMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[monitoring]
interval = "45s"
process_name = "sglang"

[api]
endpoint = "http://10.0.0.5:8000"
key = "secret"

[thresholds]
cpu_percent = 80.0

[alerts.webhook]
enabled = true
url = "https://hooks.example.com/T000/B000"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Monitoring.Interval != 45*time.Second {
		t.Errorf("Load() Monitoring.Interval = %v, want 45s", cfg.Monitoring.Interval)
	}
	if cfg.Monitoring.ProcessName != "sglang" {
		t.Errorf("Load() Monitoring.ProcessName = %q, want %q", cfg.Monitoring.ProcessName, "sglang")
	}
	if cfg.API.Endpoint != "http://10.0.0.5:8000" {
		t.Errorf("Load() API.Endpoint = %q", cfg.API.Endpoint)
	}
	if cfg.Thresholds.CPUPercent != 80 {
		t.Errorf("Load() Thresholds.CPUPercent = %v, want 80", cfg.Thresholds.CPUPercent)
	}
	// Unset keys keep their defaults.
	if cfg.Thresholds.DiskPercent != 85 {
		t.Errorf("Load() Thresholds.DiskPercent = %v, want default 85", cfg.Thresholds.DiskPercent)
	}
	if !cfg.Alerts.Webhook.Enabled {
		t.Error("Load() Alerts.Webhook.Enabled = false, want true")
	}
}

func TestLoadMissingFileIsAnError(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.toml"); err == nil {
		t.Error("Load() with explicit missing file should error")
	}
}

func TestLoadWithEnvVars(t *testing.T) {
	t.Setenv("VLLM_MONITOR_API_ENDPOINT", "http://env.example.com:8000")
	t.Setenv("VLLM_MONITOR_API_KEY", "env-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.Endpoint != "http://env.example.com:8000" {
		t.Errorf("Load() API.Endpoint from env = %q", cfg.API.Endpoint)
	}
	if cfg.API.Key != "env-key" {
		t.Errorf("Load() API.Key from env = %q", cfg.API.Key)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"empty root", func(c *Config) { c.Monitoring.Root = "" }, true},
		{"zero interval", func(c *Config) { c.Monitoring.Interval = 0 }, true},
		{"empty process name", func(c *Config) { c.Monitoring.ProcessName = "" }, true},
		{"bad endpoint", func(c *Config) { c.API.Endpoint = "not a url" }, true},
		{"negative threshold", func(c *Config) { c.Thresholds.CPUPercent = -1 }, true},
		{"zero suppression window", func(c *Config) { c.Alerts.SuppressionWindow = 0 }, true},
		{"webhook enabled without url", func(c *Config) { c.Alerts.Webhook.Enabled = true }, true},
		{"webhook enabled with url", func(c *Config) {
			c.Alerts.Webhook.Enabled = true
			c.Alerts.Webhook.URL = "https://hooks.example.com/x"
		}, false},
		{"mail enabled without recipients", func(c *Config) { c.Alerts.Mail.Enabled = true }, true},
		{"mail enabled with recipients", func(c *Config) {
			c.Alerts.Mail.Enabled = true
			c.Alerts.Mail.Recipients = "ops@example.com"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnvToKey(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"API_ENDPOINT", "api.endpoint"},
		{"API_KEY", "api.key"},
		{"LOGGING_LEVEL", "logging.level"},
		{"SERVER_LISTEN", "server.listen"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := envToKey(tt.input); got != tt.expected {
				t.Errorf("envToKey(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
