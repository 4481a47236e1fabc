// Package audio handles device discovery, selection, and float32 frame capture.
package audio

import "time"

// SampleRate is the fixed capture rate in Hz. Every backend produces mono
// frames at this rate; nothing downstream resamples.
const SampleRate = 48000

// Frame is one block of normalized mono samples, conceptually in [-1, 1].
type Frame []float32

// Source is a running capture stream. Frames is closed once the stream ends,
// either because Stop was called or because the backend ran dry.
type Source interface {
	Frames() <-chan Frame
	Device() Device
	Stop() error
	// Err reports the terminal backend error, if any, after Frames closes.
	Err() error
}

// FrameSamples converts a frame duration to a sample count at SampleRate.
func FrameSamples(frameMS int) int {
	if frameMS <= 0 {
		frameMS = 100
	}
	return SampleRate * frameMS / 1000
}

// FrameDuration is the wall-clock length of a frame of n samples.
func FrameDuration(n int) time.Duration {
	return time.Duration(n) * time.Second / SampleRate
}
