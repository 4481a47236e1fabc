package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rbright/saytap/internal/audio"
	"github.com/rbright/saytap/internal/logging"
	"github.com/rbright/saytap/internal/speech"
)

// AudioDump records captured frames to a 16-bit WAV file.
type AudioDump struct {
	file   *os.File
	writer *audio.WAVWriter
}

// OpenAudioDump creates a timestamped WAV under the state debug directory.
func OpenAudioDump() (*AudioDump, error) {
	file, err := createDebugFile("audio", "wav")
	if err != nil {
		return nil, err
	}
	return &AudioDump{file: file, writer: audio.NewWAVWriter(file)}, nil
}

func (d *AudioDump) Path() string {
	return d.file.Name()
}

func (d *AudioDump) Write(frame audio.Frame) error {
	return d.writer.WriteSamples(speech.PCM16Samples(frame))
}

// Close finalizes the WAV header and closes the file.
func (d *AudioDump) Close() error {
	werr := d.writer.Close()
	ferr := d.file.Close()
	if werr != nil {
		return fmt.Errorf("finalize wav: %w", werr)
	}
	return ferr
}

// createDebugFile creates timestamped debug artifacts under state/saytap/debug.
func createDebugFile(prefix string, extension string) (*os.File, error) {
	stateDir, err := logging.StateDir()
	if err != nil {
		return nil, fmt.Errorf("resolve state dir: %w", err)
	}
	debugDir := filepath.Join(stateDir, "debug")
	if err := os.MkdirAll(debugDir, 0o700); err != nil {
		return nil, fmt.Errorf("create debug dir: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405.000")
	path := filepath.Join(debugDir, fmt.Sprintf("%s-%s.%s", prefix, timestamp, extension))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open debug file %q: %w", path, err)
	}
	return file, nil
}
