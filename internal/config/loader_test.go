package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "toolgate.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
version: "1"
workspace:
  root: /workspace/proj
gateway:
  listen: 0.0.0.0:9000
grants:
  ttl: 10m
terminal:
  shell: /bin/zsh
  idle_timeout: 30m
audit:
  log_path: /var/log/toolgate/audit.jsonl
  database_path: /var/lib/toolgate/history.db
telemetry:
  enabled: true
  endpoint: localhost:4318
logging:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workspace.Root != "/workspace/proj" {
		t.Errorf("workspace.root: got %q", cfg.Workspace.Root)
	}
	if cfg.Gateway.Listen != "0.0.0.0:9000" {
		t.Errorf("gateway.listen: got %q", cfg.Gateway.Listen)
	}
	if cfg.Grants.TTL.Std() != 10*time.Minute {
		t.Errorf("grants.ttl: got %v, want 10m", cfg.Grants.TTL.Std())
	}
	if cfg.Terminal.IdleTimeout.Std() != 30*time.Minute {
		t.Errorf("terminal.idle_timeout: got %v, want 30m", cfg.Terminal.IdleTimeout.Std())
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
version: "1"
workspace:
  root: /workspace
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Gateway.Listen != DefaultListen {
		t.Errorf("gateway.listen default: got %q, want %q", cfg.Gateway.Listen, DefaultListen)
	}
	if cfg.Schedule.GrantSweep != DefaultGrantSweep {
		t.Errorf("schedule.grant_sweep default: got %q", cfg.Schedule.GrantSweep)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("logging.level default: got %q", cfg.Logging.Level)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("TOOLGATE_TEST_ROOT", "/workspace/from-env")

	path := writeConfig(t, `
version: "1"
workspace:
  root: ${TOOLGATE_TEST_ROOT}
gateway:
  listen: "${TOOLGATE_TEST_LISTEN:-127.0.0.1:7777}"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workspace.Root != "/workspace/from-env" {
		t.Errorf("env expansion: got %q", cfg.Workspace.Root)
	}
	if cfg.Gateway.Listen != "127.0.0.1:7777" {
		t.Errorf("default expansion: got %q", cfg.Gateway.Listen)
	}
}

func TestLoad_UnresolvedVariable(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
version: "1"
workspace:
  root: ${TOOLGATE_TEST_DOES_NOT_EXIST}
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unresolved variable")
	}
	if !strings.Contains(err.Error(), "TOOLGATE_TEST_DOES_NOT_EXIST") {
		t.Errorf("error should name the variable: %v", err)
	}
}

func TestLoad_BadDuration(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
version: "1"
workspace:
  root: /workspace
grants:
  ttl: soon
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for bad duration")
	}
	if !strings.Contains(err.Error(), "duration") {
		t.Errorf("error should mention duration: %v", err)
	}
}
