package domain

// PolicyAction is the gate's decision for a classified command.
type PolicyAction string

const (
	// ActionAllow permits execution without further interaction.
	ActionAllow PolicyAction = "allow"
	// ActionConfirm requires an explicit user approval before execution.
	ActionConfirm PolicyAction = "confirm"
	// ActionElevate requires an elevation grant in the session; elevated
	// execution always also requires confirmation.
	ActionElevate PolicyAction = "elevate"
	// ActionDeny refuses execution outright.
	ActionDeny PolicyAction = "deny"
)

// PolicyMode toggles the gate between its two deployment postures.
type PolicyMode string

const (
	ModeStrict     PolicyMode = "strict"
	ModePermissive PolicyMode = "permissive"
)

// PolicyDecision is the outcome of gating one ClassificationResult.
type PolicyDecision struct {
	Action   PolicyAction `json:"action"`
	Severity RiskLevel    `json:"severity"`

	// Reason names the rule category and severity in plain terms so deny
	// and confirm outcomes are explainable to the user.
	Reason string `json:"reason"`

	// RuleID cites the rule that drove the decision, when one matched.
	RuleID string `json:"rule_id,omitempty"`

	// OverrideUsed marks decisions that only passed because the
	// administrator override flag is set in configuration.
	OverrideUsed bool `json:"override_used,omitempty"`
}

// SessionSnapshot is the read-only view of session state the gate consults.
type SessionSnapshot struct {
	ID       string
	Elevated bool
}
