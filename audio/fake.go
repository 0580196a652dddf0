package audio

import (
	"os"
	"sync"
	"time"
)

const (
	fakeFrameSize     = 1024
	fakeBytesPerFrame = 2 // 16-bit mono
)

// FakeContext replays a fixed PCM payload into every capture it opens.
type FakeContext struct {
	pcm      []byte
	realtime bool

	// OpenErr and StartErr make NewCapture and Start fail.
	OpenErr  error
	StartErr error

	mu       sync.Mutex
	captures []*FakeCapture
}

func NewFakeContext(pcm []byte, realtime bool) *FakeContext {
	return &FakeContext{pcm: pcm, realtime: realtime}
}

// NewFakeContextFromWAV strips the canonical 44-byte header and replays the
// rest of the file.
func NewFakeContextFromWAV(wavPath string, realtime bool) (*FakeContext, error) {
	data, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, err
	}
	if len(data) > WAVHeaderSize {
		data = data[WAVHeaderSize:]
	} else {
		data = nil
	}
	return NewFakeContext(data, realtime), nil
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "Fake Microphone"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	c := &FakeCapture{pcm: f.pcm, realtime: f.realtime, startErr: f.StartErr, audioDone: make(chan struct{})}
	f.mu.Lock()
	f.captures = append(f.captures, c)
	f.mu.Unlock()
	return c, nil
}

// Last returns the most recently opened capture, or nil.
func (f *FakeContext) Last() *FakeCapture {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.captures) == 0 {
		return nil
	}
	return f.captures[len(f.captures)-1]
}

type FakeCapture struct {
	pcm       []byte
	realtime  bool
	startErr  error
	audioDone chan struct{}

	mu       sync.Mutex
	cb       DataCallback
	status   StatusCallback
	running  bool
	closed   bool
	stopCh   chan struct{}
	feedDone chan struct{}
}

// AudioDone is closed once the whole payload has been delivered.
func (f *FakeCapture) AudioDone() <-chan struct{} { return f.audioDone }

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) SetStatusCallback(cb StatusCallback) {
	f.mu.Lock()
	f.status = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.status = nil
	f.mu.Unlock()
}

// Emit delivers data as if the device produced it.
func (f *FakeCapture) Emit(data []byte) {
	f.mu.Lock()
	cb := f.cb
	f.mu.Unlock()
	if cb != nil {
		cb(data, uint32(len(data)/fakeBytesPerFrame))
	}
}

// Warn reports a status message as if the device raised it.
func (f *FakeCapture) Warn(msg string) {
	f.mu.Lock()
	cb := f.status
	f.mu.Unlock()
	if cb != nil {
		cb(msg)
	}
}

func (f *FakeCapture) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *FakeCapture) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *FakeCapture) feedChunk(pos, chunkBytes int) int {
	end := min(pos+chunkBytes, len(f.pcm))
	chunk := make([]byte, end-pos)
	copy(chunk, f.pcm[pos:end])
	f.Emit(chunk)
	return end
}

func (f *FakeCapture) Start() error {
	if f.startErr != nil {
		return f.startErr
	}
	f.mu.Lock()
	f.running = true
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})
	f.mu.Unlock()

	chunkBytes := fakeFrameSize * fakeBytesPerFrame

	if !f.realtime {
		for pos := 0; pos < len(f.pcm); {
			pos = f.feedChunk(pos, chunkBytes)
		}
		close(f.audioDone)
		close(f.feedDone)
		return nil
	}

	interval := time.Duration(fakeFrameSize) * time.Second / 16000
	go func() {
		defer close(f.feedDone)
		defer close(f.audioDone)
		for pos := 0; pos < len(f.pcm); {
			pos = f.feedChunk(pos, chunkBytes)
			select {
			case <-f.stopCh:
				return
			case <-time.After(interval):
			}
		}
	}()
	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}
	f.running = false
	stopCh, feedDone := f.stopCh, f.feedDone
	f.mu.Unlock()

	close(stopCh)
	<-feedDone
}

func (f *FakeCapture) Close() {
	f.Stop()
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}
