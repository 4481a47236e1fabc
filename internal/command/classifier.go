package command

import (
	"errors"
	"fmt"
	"strings"
)

// Rule maps a lowercase substring to a command.
type Rule struct {
	Pattern string
	Command Command
}

// DefaultRules returns the stock rule table in priority order.
func DefaultRules() []Rule {
	return []Rule{
		{Pattern: "power", Command: Power},
		{Pattern: "stop", Command: Stop},
		{Pattern: "start", Command: Start},
		{Pattern: "go", Command: Start},
	}
}

// Classifier applies rules in declaration order; the first match wins.
type Classifier struct {
	rules []Rule
}

// NewClassifier validates rules and lowercases their patterns.
func NewClassifier(rules []Rule) (*Classifier, error) {
	if len(rules) == 0 {
		return nil, errors.New("classifier needs at least one rule")
	}
	normalized := make([]Rule, 0, len(rules))
	for i, rule := range rules {
		pattern := strings.ToLower(strings.TrimSpace(rule.Pattern))
		if pattern == "" {
			return nil, fmt.Errorf("rule %d: empty pattern", i)
		}
		if !rule.Command.Valid() {
			return nil, fmt.Errorf("rule %d (%q): unknown command %q", i, pattern, rule.Command)
		}
		normalized = append(normalized, Rule{Pattern: pattern, Command: rule.Command})
	}
	return &Classifier{rules: normalized}, nil
}

// Rules returns a copy of the active rule table.
func (c *Classifier) Rules() []Rule {
	return append([]Rule(nil), c.rules...)
}

// Classify returns the command for text, or false when no rule matches.
// Matching is a case-insensitive substring test, so "go" also fires inside
// words like "good".
func (c *Classifier) Classify(text string) (Command, bool) {
	lowered := strings.ToLower(text)
	if strings.TrimSpace(lowered) == "" {
		return "", false
	}
	for _, rule := range c.rules {
		if strings.Contains(lowered, rule.Pattern) {
			return rule.Command, true
		}
	}
	return "", false
}

// Phrases returns the distinct rule patterns in priority order, suitable for
// restricting a recognizer grammar.
func (c *Classifier) Phrases() []string {
	seen := make(map[string]struct{}, len(c.rules))
	out := make([]string, 0, len(c.rules))
	for _, rule := range c.rules {
		if _, ok := seen[rule.Pattern]; ok {
			continue
		}
		seen[rule.Pattern] = struct{}{}
		out = append(out, rule.Pattern)
	}
	return out
}
