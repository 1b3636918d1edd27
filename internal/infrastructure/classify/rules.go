package classify

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/cmdgate/assets"
	"github.com/doeshing/cmdgate/internal/domain"
	"github.com/doeshing/cmdgate/internal/pkg/filesystem"
)

// RulesDocument is the YAML schema root of a rule table file.
type RulesDocument struct {
	Rules struct {
		Patterns  []domain.Rule `yaml:"patterns"`
		Whitelist []string      `yaml:"whitelist"`
	} `yaml:"rules"`
}

// LoadRules reads the rule table from disk, falling back to the embedded
// defaults when the path is empty or the file is missing.
func LoadRules(path string) (RulesDocument, error) {
	if path == "" {
		return parseRules(assets.DefaultRulesYAML)
	}
	data, err := os.ReadFile(filesystem.ExpandPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return parseRules(assets.DefaultRulesYAML)
		}
		return RulesDocument{}, fmt.Errorf("read rules file: %w", err)
	}
	return parseRules(data)
}

func parseRules(data []byte) (RulesDocument, error) {
	var doc RulesDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return RulesDocument{}, fmt.Errorf("parse rules file: %w", err)
	}
	if len(doc.Rules.Patterns) == 0 {
		return RulesDocument{}, fmt.Errorf("rules file declares no patterns")
	}
	for i, rule := range doc.Rules.Patterns {
		if rule.ID == "" {
			return RulesDocument{}, fmt.Errorf("rule %d has no id", i)
		}
		if rule.Pattern == "" {
			return RulesDocument{}, fmt.Errorf("rule %q has no pattern", rule.ID)
		}
	}
	return doc, nil
}
