package beep

import (
	"testing"

	"dictate/pipeline"
)

func TestSamples(t *testing.T) {
	start := samples(Start)
	if want := int(sampleRate * startDur); len(start) != want {
		t.Fatalf("start length = %d, want %d", len(start), want)
	}
	if start[0] != 0 {
		t.Errorf("tick should start at zero phase, got %d", start[0])
	}

	tick := int(sampleRate * tones[Error].dur)
	gap := int(sampleRate * doubleGap)
	errSamples := samples(Error)
	if len(errSamples) != 2*tick+gap {
		t.Fatalf("error length = %d, want %d", len(errSamples), 2*tick+gap)
	}
	for i := tick; i < tick+gap; i++ {
		if errSamples[i] != 0 {
			t.Fatalf("gap not silent at %d", i)
		}
	}

	if samples(Sound(99)) != nil {
		t.Error("unknown sound should have no samples")
	}
}

func TestChime(t *testing.T) {
	var got []Sound
	c := &Chime{play: func(s Sound) { got = append(got, s) }}

	for _, s := range []pipeline.State{
		pipeline.Recording, pipeline.Processing, pipeline.Done,
		pipeline.Recording, pipeline.Idle,
		pipeline.Recording, pipeline.Processing, pipeline.Idle,
	} {
		c.StateChanged(s)
	}

	want := []Sound{Start, End, Start, Start, End, Error}
	if len(got) != len(want) {
		t.Fatalf("sounds = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sounds = %v, want %v", got, want)
		}
	}
}
