// Package domain defines core business entities and value objects for cmdgate.
//
// The domain layer is independent of infrastructure concerns and represents
// pure data structures flowing through the classification and execution
// pipeline.
package domain

import "strings"

// RiskLevel is the ordinal classification of a command's potential harm.
type RiskLevel string

const (
	RiskSafe     RiskLevel = "safe"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

var riskOrder = map[RiskLevel]int{
	RiskSafe:     0,
	RiskLow:      1,
	RiskMedium:   2,
	RiskHigh:     3,
	RiskCritical: 4,
}

// MoreSevere reports whether next outranks current.
func MoreSevere(next, current RiskLevel) bool {
	return riskOrder[next] > riskOrder[current]
}

// ParseRiskLevel maps a string onto a RiskLevel, defaulting to safe. Matching
// is case-insensitive since rule tables are user-authored.
func ParseRiskLevel(value string) RiskLevel {
	switch strings.ToLower(value) {
	case "low":
		return RiskLow
	case "medium":
		return RiskMedium
	case "high":
		return RiskHigh
	case "critical":
		return RiskCritical
	default:
		return RiskSafe
	}
}

// RuleKind selects the matching strategy for a rule pattern.
type RuleKind string

const (
	RuleLiteral RuleKind = "literal"
	RuleGlob    RuleKind = "glob"
	RuleRegex   RuleKind = "regex"
)

// Rule categories shipped in the default table. The set is open; deployments
// may define their own category strings in the rules file.
const (
	CategoryDestructiveDelete   = "destructive-delete"
	CategoryDiskFormat          = "disk-format"
	CategorySystemShutdown      = "system-shutdown"
	CategorySystemPath          = "system-path"
	CategoryPrivilegeEscalation = "privilege-escalation"
	CategoryObfuscatedPayload   = "obfuscated-payload"
	CategoryForkBomb            = "fork-bomb"
	CategoryPermissionChange    = "permission-change"
	CategoryRemoteScriptPipe    = "remote-script-pipe"
	CategoryWhitelist           = "whitelist"
)

// Rule is a single entry of the loaded rule table. Rules are data, not code:
// the classifier evaluates them in specificity order.
type Rule struct {
	ID       string   `yaml:"id"`
	Pattern  string   `yaml:"pattern"`
	Kind     RuleKind `yaml:"kind"`
	Category string   `yaml:"category"`
	Severity string   `yaml:"severity"`
	Message  string   `yaml:"message"`
}

// ClassificationResult aggregates every rule match for one command.
type ClassificationResult struct {
	// Normalized is the canonical form the rules were matched against.
	Normalized string `json:"normalized"`

	// Severity is the maximum severity over all matched rules.
	Severity RiskLevel `json:"severity"`

	// RuleIDs cites every matched rule, most specific first.
	RuleIDs []string `json:"rule_ids,omitempty"`

	// PrimaryRule is the most specific rule at the reported severity.
	PrimaryRule string `json:"primary_rule,omitempty"`

	// Categories collects the categories of matched rules (deduplicated).
	Categories []string `json:"categories,omitempty"`

	// Reasons holds the human-readable messages of matched rules.
	Reasons []string `json:"reasons,omitempty"`
}

// Matched reports whether any rule matched.
func (c ClassificationResult) Matched() bool {
	return len(c.RuleIDs) > 0
}

// HasCategory reports whether a matched rule carries the given category.
func (c ClassificationResult) HasCategory(category string) bool {
	for _, cat := range c.Categories {
		if cat == category {
			return true
		}
	}
	return false
}
