package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != "https://gamma-api.polymarket.com" {
		t.Errorf("base url = %q", cfg.API.BaseURL)
	}
	if cfg.API.PageLimit != 100 || cfg.API.MaxPages != 50 || cfg.API.MaxAttempts != 3 {
		t.Errorf("unexpected pagination defaults: %+v", cfg.API)
	}
	if cfg.API.RequestDelay != 50*time.Millisecond || cfg.API.RequestTimeout != 15*time.Second {
		t.Errorf("unexpected timing defaults: %+v", cfg.API)
	}
	if cfg.Scheduler.Interval != 30*time.Second || cfg.Scheduler.ErrorCooldown != 5*time.Second {
		t.Errorf("unexpected scheduler defaults: %+v", cfg.Scheduler)
	}
	if len(cfg.Export.Formats) != 2 || cfg.Export.Formats[0] != "csv" || cfg.Export.Formats[1] != "json" {
		t.Errorf("export formats = %v", cfg.Export.Formats)
	}
	if cfg.Redis.TTL != 5*time.Minute {
		t.Errorf("redis ttl = %v", cfg.Redis.TTL)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte(`
api:
  page_limit: 25
  request_delay: 200ms
scheduler:
  interval: 1m
export:
  formats: csv,xlsx,png
dashboard:
  category: Crypto
`)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("POLYSCRAPER_DASHBOARD_MAX_ROWS", "7")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.PageLimit != 25 || cfg.API.RequestDelay != 200*time.Millisecond {
		t.Errorf("api overrides not applied: %+v", cfg.API)
	}
	if cfg.Scheduler.Interval != time.Minute {
		t.Errorf("interval = %v", cfg.Scheduler.Interval)
	}
	if len(cfg.Export.Formats) != 3 || cfg.Export.Formats[2] != "png" {
		t.Errorf("formats = %v", cfg.Export.Formats)
	}
	if cfg.Dashboard.Category != "Crypto" || cfg.Dashboard.MaxRows != 7 {
		t.Errorf("dashboard = %+v", cfg.Dashboard)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			API: APIConfig{
				BaseURL:     "https://gamma-api.polymarket.com",
				PageLimit:   100,
				MaxPages:    50,
				MaxAttempts: 3,
			},
			Scheduler: SchedulerConfig{Interval: time.Second},
			Export:    ExportConfig{Formats: []string{"csv"}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"relative base url", func(c *Config) { c.API.BaseURL = "gamma-api" }, true},
		{"ftp base url", func(c *Config) { c.API.BaseURL = "ftp://host" }, true},
		{"zero page limit", func(c *Config) { c.API.PageLimit = 0 }, true},
		{"zero interval", func(c *Config) { c.Scheduler.Interval = 0 }, true},
		{"unknown format", func(c *Config) { c.Export.Formats = []string{"parquet"} }, true},
		{"s3 without bucket", func(c *Config) { c.Export.S3.Enabled = true }, true},
		{"telegram without token", func(c *Config) { c.Alerting.Telegram.Enabled = true }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestResolveMaxRows(t *testing.T) {
	cfg := Config{Dashboard: DashboardConfig{MaxRows: 50}}
	if got := cfg.ResolveMaxRows(0); got != 50 {
		t.Errorf("ResolveMaxRows(0) = %d", got)
	}
	if got := cfg.ResolveMaxRows(10); got != 10 {
		t.Errorf("ResolveMaxRows(10) = %d", got)
	}
}
