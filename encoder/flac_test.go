package encoder

import "testing"

func TestFlacEncoderEmpty(t *testing.T) {
	enc, err := NewFlac(SampleRate)
	if err != nil {
		t.Fatalf("NewFlac: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close on empty encoder: %v", err)
	}
	if enc.TotalFrames() != 0 {
		t.Errorf("TotalFrames = %d, want 0", enc.TotalFrames())
	}
	if len(enc.Bytes()) == 0 {
		t.Error("expected non-empty FLAC output (at least header)")
	}
}

func TestFlacEncoderPartialBlock(t *testing.T) {
	enc, err := NewFlac(SampleRate)
	if err != nil {
		t.Fatalf("NewFlac: %v", err)
	}

	partial := make([]int16, BlockSize/4)
	for i := range partial {
		partial[i] = int16(i % 1000)
	}

	if err := enc.EncodeBlock(partial); err != nil {
		t.Fatalf("EncodeBlock partial: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if enc.TotalFrames() != uint64(len(partial)) {
		t.Errorf("TotalFrames = %d, want %d", enc.TotalFrames(), len(partial))
	}
}

func TestFlacEncoderRejectsOversizedBlock(t *testing.T) {
	enc, err := NewFlac(SampleRate)
	if err != nil {
		t.Fatalf("NewFlac: %v", err)
	}
	if err := enc.EncodeBlock(make([]int16, BlockSize+1)); err == nil {
		t.Fatal("expected error for oversized block")
	}
}

func TestFLACMagic(t *testing.T) {
	samples := sine(SampleRate, 440)
	data, err := FLAC(samples, SampleRate)
	if err != nil {
		t.Fatalf("FLAC: %v", err)
	}
	if len(data) < 4 || string(data[:4]) != "fLaC" {
		t.Fatal("output does not start with FLAC magic")
	}
	t.Logf("Raw: %d bytes, FLAC: %d bytes", len(samples)*2, len(data))
}
