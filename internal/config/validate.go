package config

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"

	"github.com/robfig/cron/v3"
)

// Validate checks the structural validity of a Config. It verifies the
// version field, the workspace root, the gateway listen address, the cron
// expressions, and the telemetry and logging settings. All problems are
// reported together.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if cfg.Workspace.Root == "" {
		errs = append(errs, errors.New("config: workspace.root is required"))
	} else if !filepath.IsAbs(cfg.Workspace.Root) {
		errs = append(errs, fmt.Errorf("config: workspace.root %q must be an absolute path", cfg.Workspace.Root))
	}

	if cfg.Gateway.Listen != "" {
		if _, _, err := net.SplitHostPort(cfg.Gateway.Listen); err != nil {
			errs = append(errs, fmt.Errorf("config: gateway.listen %q is not host:port: %w", cfg.Gateway.Listen, err))
		}
	}

	if cfg.Grants.TTL < 0 {
		errs = append(errs, errors.New("config: grants.ttl must not be negative"))
	}
	if cfg.Terminal.IdleTimeout < 0 {
		errs = append(errs, errors.New("config: terminal.idle_timeout must not be negative"))
	}

	errs = append(errs, validateCron("schedule.grant_sweep", cfg.Schedule.GrantSweep)...)
	errs = append(errs, validateCron("schedule.session_reap", cfg.Schedule.SessionReap)...)

	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		errs = append(errs, errors.New("config: telemetry.enabled is true but no endpoint provided"))
	}

	switch cfg.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("config: logging.level %q is not one of debug, info, warn, error", cfg.Logging.Level))
	}

	return errors.Join(errs...)
}

func validateCron(field, spec string) []error {
	if spec == "" {
		return nil
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return []error{fmt.Errorf("config: %s %q: %w", field, spec, err)}
	}
	return nil
}
