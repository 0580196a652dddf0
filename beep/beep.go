// Package beep plays short chimes when the pipeline changes state.
package beep

import (
	"math"
	"sync/atomic"
)

type Sound int

const (
	Start Sound = iota
	End
	Error
)

var disabled atomic.Bool

// Disable silences every later Play call.
func Disable() { disabled.Store(true) }

const sampleRate = 44100

type tone struct {
	freq   float64
	volume float64
	decay  float64
	dur    float64
	double bool
}

// Start is a high short tick, End slightly lower, Error a low double beep.
var tones = map[Sound]tone{
	Start: {freq: 1200, volume: 0.5, decay: 60, dur: startDur},
	End:   {freq: 900, volume: 0.5, decay: 40, dur: endDur},
	Error: {freq: 350, volume: 0.6, decay: 30, dur: 0.08, double: true},
}

const doubleGap = 0.05

func generateTick(freq, dur, volume, decay float64) []int16 {
	n := int(sampleRate * dur)
	out := make([]int16, n)
	for i := range out {
		t := float64(i) / sampleRate
		envelope := math.Exp(-t * decay)
		out[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return out
}

// samples returns mono PCM for s.
func samples(s Sound) []int16 {
	tn, ok := tones[s]
	if !ok {
		return nil
	}
	tick := generateTick(tn.freq, tn.dur, tn.volume, tn.decay)
	if !tn.double {
		return tick
	}
	gap := make([]int16, int(sampleRate*doubleGap))
	out := make([]int16, 0, 2*len(tick)+len(gap))
	out = append(out, tick...)
	out = append(out, gap...)
	return append(out, tick...)
}

// Play starts s in the background.
func Play(s Sound) {
	if disabled.Load() {
		return
	}
	play(s)
}
