//go:build integration

package vosk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/saytap/internal/errs"
	"github.com/rbright/saytap/internal/speech"
)

func TestLoadModelMissingDirectoryIsModelLoadError(t *testing.T) {
	_, err := LoadModel(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	require.True(t, errs.IsKind(err, errs.KindModelLoad))
}

func TestLoadModelRejectsPlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.bin")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	_, err := LoadModel(path)
	require.Error(t, err)
	require.True(t, errs.IsKind(err, errs.KindModelLoad))
	require.Contains(t, err.Error(), "not a directory")
}

func TestGrammarJSONAppendsUnknownToken(t *testing.T) {
	encoded, err := grammarJSON([]string{"power", "start", "stop"})
	require.NoError(t, err)
	require.Equal(t, `["power","start","stop","[unk]"]`, encoded)
}

// SAYTAP_VOSK_MODEL points at a real model directory, e.g. vosk-model-small-en-us-0.15.
func TestEngineDecodesSilence(t *testing.T) {
	path := os.Getenv("SAYTAP_VOSK_MODEL")
	if path == "" {
		t.Skip("SAYTAP_VOSK_MODEL not set")
	}

	model, err := LoadModel(path)
	require.NoError(t, err)
	defer model.Close()

	engine, err := NewEngine(model, 48000, []string{"power", "start", "stop"})
	require.NoError(t, err)
	defer engine.Close()

	decoder := speech.NewDecoder(engine)
	state := decoder.Process(make([]float32, 4800))
	require.NotEqual(t, speech.Failed, state.Kind)
}
