// Package config validates the effective configuration after defaults are
// applied.
package config

import (
	"fmt"

	"github.com/doeshing/cmdgate/internal/domain"
)

// Validate rejects configurations the pipeline cannot act on safely. It runs
// after hydration, so empty fields have already been defaulted; anything
// still wrong here was set explicitly.
func Validate(cfg domain.Config) error {
	switch cfg.Policy.Mode {
	case string(domain.ModeStrict), string(domain.ModePermissive):
	default:
		return fmt.Errorf("policy.mode must be strict or permissive, got %q", cfg.Policy.Mode)
	}

	switch cfg.Execution.DefaultIsolation {
	case string(domain.IsolationNone), string(domain.IsolationRestricted), string(domain.IsolationContainer):
	default:
		return fmt.Errorf("execution.default_isolation must be none, restricted or container, got %q", cfg.Execution.DefaultIsolation)
	}
	if cfg.Execution.DefaultIsolation == string(domain.IsolationNone) && !cfg.Execution.AllowDirect {
		return fmt.Errorf("execution.default_isolation none requires execution.allow_direct")
	}

	switch cfg.Execution.ContainerRuntime {
	case "docker", "podman":
	default:
		return fmt.Errorf("execution.container_runtime must be docker or podman, got %q", cfg.Execution.ContainerRuntime)
	}

	switch cfg.Audit.Backend {
	case "sqlite", "file":
	default:
		return fmt.Errorf("audit.backend must be sqlite or file, got %q", cfg.Audit.Backend)
	}
	if cfg.Audit.OutputCapBytes < 0 {
		return fmt.Errorf("audit.output_cap_bytes must be >= 0")
	}

	if cfg.Session.ElevationTTLSeconds <= 0 {
		return fmt.Errorf("session.elevation_ttl_seconds must be > 0")
	}
	if cfg.Session.TokenTTLSeconds <= 0 {
		return fmt.Errorf("session.token_ttl_seconds must be > 0")
	}
	if cfg.Session.HistoryLimit <= 0 {
		return fmt.Errorf("session.history_limit must be > 0")
	}

	return validateLimits(cfg.Limits)
}

func validateLimits(l domain.LimitSettings) error {
	named := []struct {
		name   string
		limits domain.SeverityLimits
	}{
		{"safe", l.Safe},
		{"low", l.Low},
		{"medium", l.Medium},
		{"high", l.High},
		{"critical", l.Critical},
	}
	for _, entry := range named {
		if entry.limits.TimeoutSeconds <= 0 {
			return fmt.Errorf("limits.%s.timeout_seconds must be > 0", entry.name)
		}
		if entry.limits.CPUSeconds < 0 || entry.limits.MemoryMB < 0 {
			return fmt.Errorf("limits.%s resource values must be >= 0", entry.name)
		}
	}
	return nil
}
