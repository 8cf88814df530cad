// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for toolgate.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// Workspace holds the trust boundary settings.
	Workspace WorkspaceConfig `yaml:"workspace"`

	// Gateway configures the HTTP boundary for humans and UIs.
	Gateway GatewayConfig `yaml:"gateway,omitempty"`

	// Grants configures authorization grant lifetimes.
	Grants GrantConfig `yaml:"grants,omitempty"`

	// Terminal configures PTY session behavior.
	Terminal TerminalConfig `yaml:"terminal,omitempty"`

	// Audit configures the execution history trail.
	Audit AuditConfig `yaml:"audit,omitempty"`

	// Schedule holds cron expressions for background maintenance.
	Schedule ScheduleConfig `yaml:"schedule,omitempty"`

	// Telemetry configures trace export.
	Telemetry TelemetryConfig `yaml:"telemetry,omitempty"`

	// Logging configures the slog handler.
	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// WorkspaceConfig names the working directory that acts as the
// authorization boundary for write operations.
type WorkspaceConfig struct {
	// Root is the default working directory for sessions that do not
	// specify one. Must be an absolute path.
	Root string `yaml:"root"`
}

// GatewayConfig configures the HTTP gateway.
type GatewayConfig struct {
	// Listen is the host:port the gateway binds to.
	Listen string `yaml:"listen,omitempty"`
}

// GrantConfig configures the grant store.
type GrantConfig struct {
	// TTL is how long an approval stays valid. Zero uses the built-in
	// default of five minutes.
	TTL Duration `yaml:"ttl,omitempty"`
}

// TerminalConfig configures PTY sessions.
type TerminalConfig struct {
	// Shell overrides the shell binary. Empty falls back to $SHELL, then
	// /bin/bash, then /bin/sh.
	Shell string `yaml:"shell,omitempty"`

	// IdleTimeout closes sessions with no activity for this long. Zero
	// disables idle reaping.
	IdleTimeout Duration `yaml:"idle_timeout,omitempty"`
}

// AuditConfig configures the audit trail.
type AuditConfig struct {
	// LogPath is the JSONL audit log file. Empty disables the file log.
	LogPath string `yaml:"log_path,omitempty"`

	// DatabasePath is the SQLite execution-history database. Empty
	// disables persistent history.
	DatabasePath string `yaml:"database_path,omitempty"`
}

// ScheduleConfig holds cron expressions (standard five-field syntax) for
// the background maintenance jobs.
type ScheduleConfig struct {
	// GrantSweep removes expired grants. Empty uses the built-in default.
	GrantSweep string `yaml:"grant_sweep,omitempty"`

	// SessionReap closes idle PTY sessions. Empty uses the built-in
	// default.
	SessionReap string `yaml:"session_reap,omitempty"`
}

// TelemetryConfig configures OTLP trace export.
type TelemetryConfig struct {
	// Enabled turns on span export. Spans are always recorded in-process;
	// this controls whether they leave the process.
	Enabled bool `yaml:"enabled,omitempty"`

	// Endpoint is the OTLP/HTTP collector endpoint (host:port).
	Endpoint string `yaml:"endpoint,omitempty"`
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string `yaml:"level,omitempty"`
}

// Duration wraps time.Duration with YAML support for values like "5m".
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration in Go syntax.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default configuration values.
const (
	DefaultListen      = "127.0.0.1:8811"
	DefaultGrantSweep  = "* * * * *"
	DefaultSessionReap = "*/5 * * * *"
)

// applyDefaults fills unset fields with their defaults.
func (c *Config) applyDefaults() {
	if c.Gateway.Listen == "" {
		c.Gateway.Listen = DefaultListen
	}
	if c.Schedule.GrantSweep == "" {
		c.Schedule.GrantSweep = DefaultGrantSweep
	}
	if c.Schedule.SessionReap == "" {
		c.Schedule.SessionReap = DefaultSessionReap
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}
