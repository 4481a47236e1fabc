package command

import (
	"fmt"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

type rulesDocument struct {
	Rules []struct {
		Pattern string `yaml:"pattern"`
		Command string `yaml:"command"`
	} `yaml:"rules"`
}

// LoadRulesFile reads an ordered rule table from YAML:
//
//	rules:
//	  - pattern: power
//	    command: power
//	  - pattern: halt
//	    command: stop
func LoadRulesFile(fs afero.Fs, path string) ([]Rule, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read rules file %q: %w", path, err)
	}
	return ParseRules(data)
}

// ParseRules decodes a YAML rule document.
func ParseRules(data []byte) ([]Rule, error) {
	var doc rulesDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	if len(doc.Rules) == 0 {
		return nil, fmt.Errorf("rules document has no rules")
	}

	rules := make([]Rule, 0, len(doc.Rules))
	for i, raw := range doc.Rules {
		cmd, err := Parse(raw.Command)
		if err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
		rules = append(rules, Rule{Pattern: raw.Pattern, Command: cmd})
	}
	return rules, nil
}
