package encoder

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-audio/wav"
)

func sine(n int, freq float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/SampleRate))
	}
	return out
}

func TestWAVHeader(t *testing.T) {
	samples := sine(1600, 440)
	data, err := WAV(samples, SampleRate)
	if err != nil {
		t.Fatalf("WAV: %v", err)
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatalf("bad magic: %q %q", data[0:4], data[8:12])
	}
	if got := binary.LittleEndian.Uint32(data[4:8]); int(got) != len(data)-8 {
		t.Errorf("RIFF size = %d, want %d", got, len(data)-8)
	}
	if want := 44 + len(samples)*2; len(data) != want {
		t.Errorf("len = %d, want %d", len(data), want)
	}
}

func TestWAVDecodesBack(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1, -1}
	data, err := WAV(samples, SampleRate)
	if err != nil {
		t.Fatalf("WAV: %v", err)
	}

	d := wav.NewDecoder(bytes.NewReader(data))
	buf, err := d.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.SampleRate != SampleRate || d.NumChans != Channels || d.BitDepth != BitsPerSample {
		t.Errorf("format = %d Hz %d ch %d bit", d.SampleRate, d.NumChans, d.BitDepth)
	}
	want := []int{0, 16384, -16384, 32767, -32767}
	if len(buf.Data) != len(want) {
		t.Fatalf("decoded %d samples, want %d", len(buf.Data), len(want))
	}
	for i := range want {
		if buf.Data[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, buf.Data[i], want[i])
		}
	}
}

func TestToPCM16Clamps(t *testing.T) {
	got := ToPCM16([]float32{2, -2, 0.25})
	want := []int16{32767, -32767, 8192}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"wav", FormatWAV, false},
		{"", FormatWAV, false},
		{"flac", FormatFLAC, false},
		{"mp3", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}
