// Package policy maps classification results onto gate decisions.
package policy

import (
	"fmt"
	"strings"

	"github.com/doeshing/cmdgate/internal/domain"
	"github.com/doeshing/cmdgate/internal/ports"
)

// Gate is the stateless decision function between classifier and executor.
// All per-call context arrives through the arguments; configuration is fixed
// at construction.
type Gate struct {
	mode          domain.PolicyMode
	adminOverride bool
}

// NewGate builds a Gate from the policy settings.
func NewGate(settings domain.PolicySettings) *Gate {
	mode := domain.ModeStrict
	if settings.Mode == string(domain.ModePermissive) {
		mode = domain.ModePermissive
	}
	return &Gate{
		mode:          mode,
		adminOverride: settings.AdminOverride,
	}
}

// Decide maps (severity, session context) onto a policy action.
//
// Transitions: safe/low allow (strict mode: confirm), medium confirm, high
// confirm or elevate when the command itself needs elevated rights, critical
// deny. The critical deny is only softened by a prior elevation grant in a
// permissive deployment or by the administrator override flag, and both of
// those paths still require confirmation downstream and are marked in the
// decision.
func (g *Gate) Decide(c domain.ClassificationResult, s domain.SessionSnapshot) domain.PolicyDecision {
	if strings.TrimSpace(c.Normalized) == "" {
		return domain.PolicyDecision{
			Action:   domain.ActionDeny,
			Severity: c.Severity,
			Reason:   "empty command",
		}
	}

	decision := domain.PolicyDecision{
		Severity: c.Severity,
		RuleID:   c.PrimaryRule,
		Reason:   reasonFor(c),
	}

	switch c.Severity {
	case domain.RiskSafe, domain.RiskLow:
		decision.Action = domain.ActionAllow
		if g.mode == domain.ModeStrict && c.Severity == domain.RiskLow {
			decision.Action = domain.ActionConfirm
		}
	case domain.RiskMedium:
		decision.Action = domain.ActionConfirm
	case domain.RiskHigh:
		decision.Action = domain.ActionConfirm
		if needsElevation(c) {
			decision.Action = domain.ActionElevate
		}
	case domain.RiskCritical:
		decision.Action = domain.ActionDeny
		switch {
		case g.adminOverride:
			decision.Action = domain.ActionElevate
			decision.OverrideUsed = true
			decision.Reason = decision.Reason + " (override-used)"
		case g.mode == domain.ModePermissive && s.Elevated:
			decision.Action = domain.ActionElevate
		}
	}
	return decision
}

// needsElevation reports whether the matched categories imply the command
// itself requires elevated rights to do its damage.
func needsElevation(c domain.ClassificationResult) bool {
	return c.HasCategory(domain.CategoryPrivilegeEscalation) ||
		c.HasCategory(domain.CategorySystemPath) ||
		c.HasCategory(domain.CategorySystemShutdown)
}

// reasonFor phrases the matched category and severity in plain terms, so
// every deny or confirm outcome is explainable to the user.
func reasonFor(c domain.ClassificationResult) string {
	if !c.Matched() || len(c.Categories) == 0 {
		return fmt.Sprintf("no rule matched; severity %s", c.Severity)
	}
	return fmt.Sprintf("matched %s rule (%s severity)", c.Categories[0], c.Severity)
}

var _ ports.PolicyGate = (*Gate)(nil)
