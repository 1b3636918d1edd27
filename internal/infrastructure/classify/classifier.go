// Package classify implements the rule-driven risk classifier.
//
// Rules are data, not code: the table is loaded once at startup, compiled,
// ordered by specificity and then shared read-only across all concurrent
// classifications.
package classify

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/doeshing/cmdgate/internal/domain"
	"github.com/doeshing/cmdgate/internal/ports"
)

type compiledRule struct {
	rule     domain.Rule
	severity domain.RiskLevel
	re       *regexp.Regexp

	// specificity orders rule citation: longer patterns win ties.
	specificity int
}

// Classifier evaluates the compiled rule set against normalized commands.
// Immutable after construction and safe for concurrent use.
type Classifier struct {
	rules     []compiledRule
	whitelist []string
}

// NewClassifier compiles a rule table loaded from path (or the embedded
// defaults when path is empty).
func NewClassifier(path string) (*Classifier, error) {
	doc, err := LoadRules(path)
	if err != nil {
		return nil, err
	}
	return NewClassifierFromDocument(doc)
}

// NewClassifierFromDocument compiles an already-parsed rule table.
func NewClassifierFromDocument(doc RulesDocument) (*Classifier, error) {
	compiled := make([]compiledRule, 0, len(doc.Rules.Patterns))
	for _, rule := range doc.Rules.Patterns {
		cr := compiledRule{
			rule:        rule,
			severity:    domain.ParseRiskLevel(rule.Severity),
			specificity: len(rule.Pattern),
		}
		switch rule.Kind {
		case domain.RuleRegex, "":
			re, err := regexp.Compile(rule.Pattern)
			if err != nil {
				return nil, fmt.Errorf("rule %q: %w", rule.ID, err)
			}
			cr.re = re
		case domain.RuleLiteral, domain.RuleGlob:
			// matched without compilation
		default:
			return nil, fmt.Errorf("rule %q: unknown kind %q", rule.ID, rule.Kind)
		}
		compiled = append(compiled, cr)
	}

	// Specificity order, not insertion order. Stable so equally specific
	// rules keep their file order.
	sort.SliceStable(compiled, func(i, j int) bool {
		return compiled[i].specificity > compiled[j].specificity
	})

	return &Classifier{
		rules:     compiled,
		whitelist: doc.Rules.Whitelist,
	}, nil
}

// Classify evaluates every rule against the normalized command and reports
// the maximum severity over all matches. A critical match short-circuits
// further evaluation since severity cannot increase past critical. Commands
// matching no rule default to safe.
func (c *Classifier) Classify(normalized string) (domain.ClassificationResult, error) {
	result := domain.ClassificationResult{
		Normalized: normalized,
		Severity:   domain.RiskSafe,
	}
	if strings.TrimSpace(normalized) == "" {
		return result, nil
	}

	if id, ok := c.whitelisted(normalized); ok {
		result.RuleIDs = []string{id}
		result.PrimaryRule = id
		result.Categories = []string{domain.CategoryWhitelist}
		return result, nil
	}

	seen := map[string]bool{}
	for _, cr := range c.rules {
		if !cr.matches(normalized) {
			continue
		}
		result.RuleIDs = append(result.RuleIDs, cr.rule.ID)
		if cr.rule.Message != "" {
			result.Reasons = append(result.Reasons, cr.rule.Message)
		}
		if !seen[cr.rule.Category] {
			seen[cr.rule.Category] = true
			result.Categories = append(result.Categories, cr.rule.Category)
		}
		if domain.MoreSevere(cr.severity, result.Severity) {
			result.Severity = cr.severity
			// Rules are specificity-ordered, so the first rule observed at
			// the winning severity is the one cited.
			result.PrimaryRule = cr.rule.ID
		}
		if result.Severity == domain.RiskCritical {
			break
		}
	}
	return result, nil
}

// Rules returns the effective rule table in evaluation order.
func (c *Classifier) Rules() []domain.Rule {
	out := make([]domain.Rule, len(c.rules))
	for i, cr := range c.rules {
		out[i] = cr.rule
	}
	return out
}

func (cr compiledRule) matches(command string) bool {
	switch cr.rule.Kind {
	case domain.RuleLiteral:
		return strings.Contains(command, cr.rule.Pattern)
	case domain.RuleGlob:
		ok, err := path.Match(cr.rule.Pattern, command)
		return err == nil && ok
	default:
		return cr.re.MatchString(command)
	}
}

func (c *Classifier) whitelisted(command string) (string, bool) {
	// Shell metacharacters can chain arbitrary commands behind a safe
	// prefix, so those always go through the full rule table.
	if strings.ContainsAny(command, "|&;><`$") {
		return "", false
	}
	for _, safe := range c.whitelist {
		if safe == "" {
			continue
		}
		if command == safe || strings.HasPrefix(command, safe+" ") {
			return "whitelist:" + safe, true
		}
	}
	return "", false
}

var _ ports.Classifier = (*Classifier)(nil)
