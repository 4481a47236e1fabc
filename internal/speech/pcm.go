package speech

import (
	"encoding/binary"
	"math"

	"github.com/rbright/saytap/internal/audio"
)

// ToPCM16 scales a normalized sample by 32768 and rounds to nearest.
// Results outside the int16 range saturate at its bounds, so -1.0 maps to
// -32768 and +1.0 to 32767. NaN maps to silence.
func ToPCM16(sample float32) int16 {
	if math.IsNaN(float64(sample)) {
		return 0
	}
	v := math.Round(float64(sample) * 32768)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

// EncodePCM16LE converts a frame to little-endian signed 16-bit PCM.
func EncodePCM16LE(frame audio.Frame) []byte {
	return appendPCM16LE(make([]byte, 0, len(frame)*2), frame)
}

func appendPCM16LE(dst []byte, frame audio.Frame) []byte {
	for _, sample := range frame {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(ToPCM16(sample)))
	}
	return dst
}

// PCM16Samples converts a frame to signed 16-bit samples.
func PCM16Samples(frame audio.Frame) []int16 {
	out := make([]int16, len(frame))
	for i, sample := range frame {
		out[i] = ToPCM16(sample)
	}
	return out
}
