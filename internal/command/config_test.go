package command

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/rbright/saytap/internal/config"
)

func TestFromConfigPrefersRulesFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/rules.yaml", []byte("rules:\n  - pattern: halt\n    command: stop\n"), 0o600))

	classifier, err := FromConfig(fs, config.CommandsConfig{
		Rules:     []config.RuleConfig{{Pattern: "power", Command: "power"}},
		RulesFile: "/rules.yaml",
	})
	require.NoError(t, err)

	cmd, ok := classifier.Classify("please halt")
	require.True(t, ok)
	require.Equal(t, Stop, cmd)

	_, ok = classifier.Classify("power")
	require.False(t, ok)
}

func TestFromConfigUsesInlineRulesInOrder(t *testing.T) {
	classifier, err := FromConfig(afero.NewMemMapFs(), config.CommandsConfig{Rules: config.Default().Commands.Rules})
	require.NoError(t, err)

	cmd, ok := classifier.Classify("power stop")
	require.True(t, ok)
	require.Equal(t, Power, cmd)
}

func TestFromConfigRejectsUnknownCommand(t *testing.T) {
	_, err := FromConfig(afero.NewMemMapFs(), config.CommandsConfig{
		Rules: []config.RuleConfig{{Pattern: "launch", Command: "launch"}},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "commands.rules[0]")
}

func TestFromConfigMissingRulesFile(t *testing.T) {
	_, err := FromConfig(afero.NewMemMapFs(), config.CommandsConfig{RulesFile: "/nope.yaml"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "/nope.yaml")
}
