package doctor

import (
	"context"
	"fmt"

	"github.com/doeshing/cmdgate/internal/domain"
	"github.com/doeshing/cmdgate/internal/ports"
)

// Service runs environment diagnostics over the pipeline's moving parts.
type Service struct {
	ConfigProvider ports.ConfigProvider
	Classifier     ports.Classifier
	Backends       ports.BackendSelector
	Audit          ports.AuditLog
}

// Run executes checks and returns a report.
func (s *Service) Run(ctx context.Context) (domain.HealthReport, error) {
	var checks []domain.HealthCheck

	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		checks = append(checks, fail("Config file", fmt.Sprintf("load failed: %v", err)))
		return domain.HealthReport{Checks: checks}, err
	}
	checks = append(checks, ok("Config file", fmt.Sprintf("format version %s, policy mode %s", cfg.ConfigFormatVersion, cfg.Policy.Mode)))

	if s.Classifier != nil {
		checks = append(checks, ok("Rule table", fmt.Sprintf("%d rules loaded", len(s.Classifier.Rules()))))
	} else {
		checks = append(checks, fail("Rule table", "classifier not initialized"))
	}

	if s.Audit != nil {
		if last, err := s.Audit.LastSequence(); err != nil {
			checks = append(checks, fail("Audit log", err.Error()))
		} else {
			checks = append(checks, ok("Audit log", fmt.Sprintf("reachable, last sequence %d", last)))
		}
	} else {
		checks = append(checks, fail("Audit log", "store not initialized"))
	}

	checks = append(checks, s.backendCheck(domain.IsolationRestricted))
	checks = append(checks, s.backendCheck(domain.IsolationContainer))

	return domain.HealthReport{Checks: checks}, nil
}

func (s *Service) backendCheck(mode domain.IsolationMode) domain.HealthCheck {
	name := fmt.Sprintf("Sandbox (%s)", mode)
	if s.Backends == nil {
		return fail(name, "backend selector not initialized")
	}
	if _, err := s.Backends.For(mode); err != nil {
		// Container runtime absence is common and survivable; the executor
		// will refuse rather than downgrade.
		return warn(name, err.Error())
	}
	return ok(name, "available")
}

func ok(name, msg string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Message: msg}
}

func warn(name, msg string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthWarn, Message: msg}
}

func fail(name, msg string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthFail, Message: msg}
}
