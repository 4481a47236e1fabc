package command

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newDefaultClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := NewClassifier(DefaultRules())
	require.NoError(t, err)
	return c
}

func TestClassifyDefaultRules(t *testing.T) {
	c := newDefaultClassifier(t)

	tests := []struct {
		text string
		want Command
		ok   bool
	}{
		{text: "please start now", want: Start, ok: true},
		{text: "START", want: Start, ok: true},
		{text: "let's go", want: Start, ok: true},
		{text: "power", want: Power, ok: true},
		{text: "Power On", want: Power, ok: true},
		{text: "stop it", want: Stop, ok: true},
		{text: "stop and then start", want: Stop, ok: true},
		{text: "start the power", want: Power, ok: true},
		{text: "good morning", want: Start, ok: true},
		{text: "", ok: false},
		{text: "   ", ok: false},
		{text: "hello there", ok: false},
	}

	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			got, ok := c.Classify(tc.text)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestClassifyOutputAlwaysInVocabulary(t *testing.T) {
	c := newDefaultClassifier(t)
	for _, text := range []string{"power", "go", "stop", "start", "gopher", "stopwatch"} {
		got, ok := c.Classify(text)
		require.True(t, ok)
		require.True(t, got.Valid())
	}
}

func TestCustomRuleOrderIsPriority(t *testing.T) {
	c, err := NewClassifier([]Rule{
		{Pattern: "Halt", Command: Stop},
		{Pattern: "begin", Command: Start},
	})
	require.NoError(t, err)

	got, ok := c.Classify("begin then halt")
	require.True(t, ok)
	require.Equal(t, Stop, got)

	_, ok = c.Classify("stop")
	require.False(t, ok)
	require.Equal(t, "halt", c.Rules()[0].Pattern)
}

func TestNewClassifierRejectsBadRules(t *testing.T) {
	_, err := NewClassifier(nil)
	require.Error(t, err)

	_, err = NewClassifier([]Rule{{Pattern: " ", Command: Stop}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty pattern")

	_, err = NewClassifier([]Rule{{Pattern: "exit", Command: Command("exit")}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown command")
}

func TestPhrasesDeduplicates(t *testing.T) {
	c, err := NewClassifier([]Rule{
		{Pattern: "go", Command: Start},
		{Pattern: "start", Command: Start},
		{Pattern: "GO", Command: Stop},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"go", "start"}, c.Phrases())
}

func TestParseCommand(t *testing.T) {
	got, err := Parse(" Stop ")
	require.NoError(t, err)
	require.Equal(t, Stop, got)

	_, err = Parse("exit")
	require.Error(t, err)
	require.Equal(t, []Command{Power, Start, Stop}, All())
}
