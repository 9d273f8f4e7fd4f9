package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 5050 {
		t.Errorf("expected default port 5050, got %d", cfg.Server.Port)
	}
	if cfg.Codeforces.MinRequestInterval != 500*time.Millisecond {
		t.Errorf("unexpected default request interval: %v", cfg.Codeforces.MinRequestInterval)
	}
	if cfg.Sync.Workers != 4 {
		t.Errorf("expected default worker count 4, got %d", cfg.Sync.Workers)
	}
	if cfg.Sync.InactivityWindowDays != 7 {
		t.Errorf("expected default inactivity window 7, got %d", cfg.Sync.InactivityWindowDays)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "8080")
	t.Setenv("SYNC_WORKERS", "8")
	t.Setenv("SYNC_INTERVAL", "1h")
	t.Setenv("CODEFORCES_MIN_REQUEST_INTERVAL", "250ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Sync.Workers != 8 {
		t.Errorf("expected 8 workers, got %d", cfg.Sync.Workers)
	}
	if cfg.Sync.Interval != time.Hour {
		t.Errorf("expected 1h interval, got %v", cfg.Sync.Interval)
	}
	if cfg.Codeforces.MinRequestInterval != 250*time.Millisecond {
		t.Errorf("expected 250ms interval, got %v", cfg.Codeforces.MinRequestInterval)
	}
}

func TestLoadInvalidEnvFallsBack(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-number")
	t.Setenv("SYNC_INTERVAL", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 5050 {
		t.Errorf("unparseable port must fall back to default, got %d", cfg.Server.Port)
	}
	if cfg.Sync.Interval != 24*time.Hour {
		t.Errorf("unparseable duration must fall back to default, got %v", cfg.Sync.Interval)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }},
		{"zero workers", func(c *Config) { c.Sync.Workers = 0 }},
		{"zero window", func(c *Config) { c.Sync.InactivityWindowDays = 0 }},
		{"zero attempts", func(c *Config) { c.Codeforces.MaxAttempts = 0 }},
	}

	for _, tt := range tests {
		cfg := base()
		tt.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}
