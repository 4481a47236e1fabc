package command

import (
	"fmt"

	"github.com/spf13/afero"

	"github.com/rbright/saytap/internal/config"
)

// FromConfig builds the classifier described by cfg. A rules file, when
// set, replaces the inline rules entirely.
func FromConfig(fs afero.Fs, cfg config.CommandsConfig) (*Classifier, error) {
	if cfg.RulesFile != "" {
		rules, err := LoadRulesFile(fs, cfg.RulesFile)
		if err != nil {
			return nil, err
		}
		return NewClassifier(rules)
	}

	rules := make([]Rule, 0, len(cfg.Rules))
	for i, raw := range cfg.Rules {
		cmd, err := Parse(raw.Command)
		if err != nil {
			return nil, fmt.Errorf("commands.rules[%d]: %w", i, err)
		}
		rules = append(rules, Rule{Pattern: raw.Pattern, Command: cmd})
	}
	return NewClassifier(rules)
}
