// Package encoder turns captured float32 samples into upload containers.
package encoder

import (
	"fmt"
	"math"
)

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

type Format string

const (
	FormatWAV  Format = "wav"
	FormatFLAC Format = "flac"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatWAV, "":
		return FormatWAV, nil
	case FormatFLAC:
		return FormatFLAC, nil
	}
	return "", fmt.Errorf("unknown upload format %q", s)
}

// Encode serializes mono samples in the given container.
func Encode(f Format, samples []float32, sampleRate int) ([]byte, error) {
	switch f {
	case FormatFLAC:
		return FLAC(samples, sampleRate)
	default:
		return WAV(samples, sampleRate)
	}
}

// ToPCM16 scales samples in [-1,1] to signed 16-bit, clamping anything outside.
func ToPCM16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		v := math.Round(float64(s) * 32767)
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < -math.MaxInt16 {
			v = -math.MaxInt16
		}
		out[i] = int16(v)
	}
	return out
}
