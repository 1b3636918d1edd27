package classify

import (
	"testing"

	"github.com/doeshing/cmdgate/internal/domain"
	"github.com/doeshing/cmdgate/internal/infrastructure/normalize"
)

func newDefaultClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := NewClassifier("")
	if err != nil {
		t.Fatalf("NewClassifier error: %v", err)
	}
	return c
}

func TestClassifyCriticalRootDeletion(t *testing.T) {
	c := newDefaultClassifier(t)
	result, err := c.Classify("rm -rf /")
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	if result.Severity != domain.RiskCritical {
		t.Fatalf("expected critical, got %+v", result)
	}
	if result.PrimaryRule != "rm-root" {
		t.Fatalf("expected rm-root cited, got %q", result.PrimaryRule)
	}
	if !result.HasCategory(domain.CategoryDestructiveDelete) {
		t.Fatalf("expected destructive-delete category, got %v", result.Categories)
	}
}

func TestClassifyWhitelistedCommand(t *testing.T) {
	c := newDefaultClassifier(t)
	for _, cmd := range []string{"date", "ps aux", "git status", "ls -la /tmp"} {
		result, err := c.Classify(cmd)
		if err != nil {
			t.Fatalf("Classify(%q) error: %v", cmd, err)
		}
		if result.Severity != domain.RiskSafe {
			t.Fatalf("Classify(%q) = %s, want safe", cmd, result.Severity)
		}
		if !result.HasCategory(domain.CategoryWhitelist) {
			t.Fatalf("Classify(%q) missing whitelist category: %+v", cmd, result)
		}
	}
}

func TestClassifyWhitelistRejectsMetacharacters(t *testing.T) {
	c := newDefaultClassifier(t)
	// A safe prefix must not smuggle a chained command past the rule table.
	result, err := c.Classify("cat /dev/urandom > /dev/sda")
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	if result.HasCategory(domain.CategoryWhitelist) {
		t.Fatalf("metacharacter command treated as whitelisted: %+v", result)
	}
	if result.Severity != domain.RiskCritical {
		t.Fatalf("expected critical for block device redirect, got %+v", result)
	}
}

func TestClassifyUnmatchedDefaultsSafe(t *testing.T) {
	c := newDefaultClassifier(t)
	result, err := c.Classify("make build")
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	if result.Severity != domain.RiskSafe || result.Matched() {
		t.Fatalf("expected unmatched safe, got %+v", result)
	}
}

func TestClassifyMaxSeverityWins(t *testing.T) {
	c := newDefaultClassifier(t)
	// Matches both the medium sudo rule and the high system-directory rule;
	// the reported severity is the maximum over all matches.
	result, err := c.Classify("sudo rm -rf /etc")
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	if result.Severity != domain.RiskHigh {
		t.Fatalf("expected high severity, got %+v", result)
	}
	if result.PrimaryRule != "rm-system-dir" {
		t.Fatalf("expected rm-system-dir cited, got %q", result.PrimaryRule)
	}
	if len(result.RuleIDs) < 2 {
		t.Fatalf("expected multiple matched rules, got %v", result.RuleIDs)
	}
}

func TestClassifyEmptyCommand(t *testing.T) {
	c := newDefaultClassifier(t)
	result, err := c.Classify("")
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	if result.Severity != domain.RiskSafe || result.Matched() {
		t.Fatalf("expected empty safe, got %+v", result)
	}
}

func TestClassifyObfuscatedMatchesLiteral(t *testing.T) {
	c := newDefaultClassifier(t)
	n := normalize.New()

	literal, err := c.Classify(n.Normalize("rm -rf /"))
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}

	variants := []string{
		"rm   -rf　/",   // excess and ideographic whitespace
		"ｒｍ －ｒｆ ／",     // fullwidth characters
		"rm%20-rf%20/", // url encoded
		"cm0gLXJmIC8=", // base64 encoded
		"del -rf /",    // alias
		"rm ​-rf　 /",   // zero-width insertion
		"RM -rf /",     // uppercase verb
	}
	for _, v := range variants {
		got, err := c.Classify(n.Normalize(v))
		if err != nil {
			t.Fatalf("Classify(%q) error: %v", v, err)
		}
		if got.Severity != literal.Severity || got.PrimaryRule != literal.PrimaryRule {
			t.Fatalf("variant %q classified %s/%s, literal %s/%s",
				v, got.Severity, got.PrimaryRule, literal.Severity, literal.PrimaryRule)
		}
	}
}

func TestClassifyWrappedVerbCaseInsensitive(t *testing.T) {
	c := newDefaultClassifier(t)
	n := normalize.New()

	literal, err := c.Classify(n.Normalize("sudo rm -rf /"))
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	upper, err := c.Classify(n.Normalize("sudo RM -rf /"))
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	if upper.Severity != literal.Severity || upper.PrimaryRule != literal.PrimaryRule {
		t.Fatalf("uppercase wrapped verb classified %s/%s, literal %s/%s",
			upper.Severity, upper.PrimaryRule, literal.Severity, literal.PrimaryRule)
	}
	if literal.Severity != domain.RiskCritical {
		t.Fatalf("sudo rm -rf / should be critical, got %s", literal.Severity)
	}
}

func TestClassifierRulesExposed(t *testing.T) {
	c := newDefaultClassifier(t)
	rules := c.Rules()
	if len(rules) == 0 {
		t.Fatal("expected embedded default rules")
	}
	for _, r := range rules {
		if r.ID == "" || r.Pattern == "" {
			t.Fatalf("incomplete rule in table: %+v", r)
		}
	}
}

func TestClassifierRejectsBadRule(t *testing.T) {
	doc := RulesDocument{}
	doc.Rules.Patterns = []domain.Rule{
		{ID: "broken", Pattern: "([unclosed", Kind: domain.RuleRegex, Severity: "high"},
	}
	if _, err := NewClassifierFromDocument(doc); err == nil {
		t.Fatal("expected error for invalid regex pattern")
	}
}
