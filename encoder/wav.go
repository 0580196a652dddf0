package encoder

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteWAV writes a 16-bit mono PCM WAV to w.
func WriteWAV(w io.WriteSeeker, samples []float32, sampleRate int) error {
	pcm := ToPCM16(samples)
	data := make([]int, len(pcm))
	for i, s := range pcm {
		data[i] = int(s)
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: Channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: BitsPerSample,
	}

	enc := wav.NewEncoder(w, sampleRate, BitsPerSample, Channels, 1)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}

// WAV returns the WAV encoding of samples held in memory.
func WAV(samples []float32, sampleRate int) ([]byte, error) {
	var f memFile
	if err := WriteWAV(&f, samples, sampleRate); err != nil {
		return nil, err
	}
	return f.buf, nil
}

// memFile is an in-memory io.WriteSeeker; the wav encoder seeks back to
// patch chunk sizes on Close.
type memFile struct {
	buf []byte
	pos int
}

func (m *memFile) Write(p []byte) (int, error) {
	if end := m.pos + len(p); end > len(m.buf) {
		if end > cap(m.buf) {
			grown := make([]byte, end, 2*end)
			copy(grown, m.buf)
			m.buf = grown
		} else {
			m.buf = m.buf[:end]
		}
	}
	n := copy(m.buf[m.pos:], p)
	m.pos += n
	return n, nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(m.pos) + offset
	case io.SeekEnd:
		abs = int64(len(m.buf)) + offset
	default:
		return 0, errors.New("memFile: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("memFile: negative position")
	}
	m.pos = int(abs)
	return abs, nil
}
