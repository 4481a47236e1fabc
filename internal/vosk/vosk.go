// Package vosk loads Vosk acoustic models and wraps recognizers as speech engines.
package vosk

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	vosklib "github.com/alphacep/vosk-api/go"

	"github.com/rbright/saytap/internal/errs"
	"github.com/rbright/saytap/internal/speech"
)

var _ speech.Engine = (*Engine)(nil)

var quiet atomic.Bool

// Model owns a loaded acoustic model. It is created once at startup and must
// outlive every engine built from it.
type Model struct {
	path string

	mu    sync.Mutex
	model *vosklib.VoskModel
}

// LoadModel loads the model directory at path. Failures are KindModelLoad.
func LoadModel(path string) (*Model, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errs.Wrap(errs.KindModelLoad, "vosk.load_model", fmt.Sprintf("model directory %q unavailable", path), err)
	}
	if !info.IsDir() {
		return nil, errs.New(errs.KindModelLoad, "vosk.load_model", fmt.Sprintf("model path %q is not a directory", path))
	}

	if !quiet.Swap(true) {
		vosklib.SetLogLevel(-1)
	}
	model, err := vosklib.NewModel(path)
	if err != nil {
		return nil, errs.Wrap(errs.KindModelLoad, "vosk.load_model", fmt.Sprintf("load model %q", path), err)
	}
	return &Model{path: path, model: model}, nil
}

// Path returns the directory the model was loaded from.
func (m *Model) Path() string {
	return m.path
}

// Close frees the model. Safe to call more than once.
func (m *Model) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.model != nil {
		m.model.Free()
		m.model = nil
	}
}

// Engine is a speech.Engine backed by a Vosk recognizer.
type Engine struct {
	rec *vosklib.VoskRecognizer
}

// NewEngine binds a recognizer to model at sampleRate. A non-empty grammar
// restricts decoding to those phrases plus an unknown-word token.
func NewEngine(model *Model, sampleRate float64, grammar []string) (*Engine, error) {
	model.mu.Lock()
	defer model.mu.Unlock()
	if model.model == nil {
		return nil, errs.New(errs.KindModelLoad, "vosk.new_engine", "model already closed")
	}

	var (
		rec *vosklib.VoskRecognizer
		err error
	)
	if len(grammar) > 0 {
		encoded, encErr := grammarJSON(grammar)
		if encErr != nil {
			return nil, encErr
		}
		rec, err = vosklib.NewRecognizerGrm(model.model, sampleRate, encoded)
	} else {
		rec, err = vosklib.NewRecognizer(model.model, sampleRate)
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindModelLoad, "vosk.new_engine", "create recognizer", err)
	}
	return &Engine{rec: rec}, nil
}

func grammarJSON(phrases []string) (string, error) {
	withUnknown := append(append([]string(nil), phrases...), "[unk]")
	encoded, err := json.Marshal(withUnknown)
	if err != nil {
		return "", fmt.Errorf("encode grammar: %w", err)
	}
	return string(encoded), nil
}

func (e *Engine) AcceptWaveform(pcm []byte) int { return e.rec.AcceptWaveform(pcm) }
func (e *Engine) Result() string                { return e.rec.Result() }
func (e *Engine) PartialResult() string         { return e.rec.PartialResult() }
func (e *Engine) FinalResult() string           { return e.rec.FinalResult() }

// Close frees the recognizer. The model stays loaded.
func (e *Engine) Close() {
	if e.rec != nil {
		e.rec.Free()
		e.rec = nil
	}
}
