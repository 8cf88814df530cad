package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := &Config{
		Version:   "1",
		Workspace: WorkspaceConfig{Root: "/workspace"},
	}
	cfg.applyDefaults()
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	t.Parallel()

	if err := Validate(validConfig()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{
			name:    "missing version",
			mutate:  func(c *Config) { c.Version = "" },
			wantMsg: "version",
		},
		{
			name:    "unsupported version",
			mutate:  func(c *Config) { c.Version = "99" },
			wantMsg: "unsupported",
		},
		{
			name:    "missing workspace root",
			mutate:  func(c *Config) { c.Workspace.Root = "" },
			wantMsg: "workspace.root",
		},
		{
			name:    "relative workspace root",
			mutate:  func(c *Config) { c.Workspace.Root = "work" },
			wantMsg: "absolute",
		},
		{
			name:    "bad listen address",
			mutate:  func(c *Config) { c.Gateway.Listen = "no-port" },
			wantMsg: "gateway.listen",
		},
		{
			name:    "negative grant ttl",
			mutate:  func(c *Config) { c.Grants.TTL = -1 },
			wantMsg: "grants.ttl",
		},
		{
			name:    "bad cron expression",
			mutate:  func(c *Config) { c.Schedule.GrantSweep = "not a cron" },
			wantMsg: "schedule.grant_sweep",
		},
		{
			name:    "telemetry without endpoint",
			mutate:  func(c *Config) { c.Telemetry.Enabled = true },
			wantMsg: "telemetry",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Logging.Level = "loud" },
			wantMsg: "logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error should mention %q: %v", tt.wantMsg, err)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Version = ""
	cfg.Workspace.Root = ""
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "version") || !strings.Contains(err.Error(), "workspace.root") {
		t.Errorf("error should mention both problems: %v", err)
	}
}
