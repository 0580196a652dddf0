package audio

import (
	"encoding/binary"
	"sync"

	"dictate/log"
)

// Buffer owns one input stream and accumulates samples between Start and
// Stop. At most one stream is open at a time.
type Buffer struct {
	ctx    Context
	config CaptureConfig

	// stateMu serializes Start, Stop and device changes.
	stateMu sync.Mutex
	device  *DeviceInfo
	capture CaptureDevice
	active  bool

	// blockMu guards blocks only; the capture callback holds it briefly.
	blockMu sync.Mutex
	blocks  [][]float32
}

func NewBuffer(ctx Context, config CaptureConfig) *Buffer {
	return &Buffer{ctx: ctx, config: config}
}

func (b *Buffer) SampleRate() int { return int(b.config.SampleRate) }

// SetDevice selects the input used by the next Start. nil means the
// system default.
func (b *Buffer) SetDevice(d *DeviceInfo) {
	b.stateMu.Lock()
	b.device = d
	b.stateMu.Unlock()
}

func (b *Buffer) Active() bool {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	return b.active
}

// Start opens the stream and begins accumulating. It is a no-op while a
// recording is already active.
func (b *Buffer) Start() error {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	if b.active {
		return nil
	}

	capture, err := b.ctx.NewCapture(b.device, b.config)
	if err != nil {
		return &DeviceError{Op: "open", Err: err}
	}

	b.blockMu.Lock()
	b.blocks = nil
	b.blockMu.Unlock()

	capture.SetCallback(b.onData)
	capture.SetStatusCallback(func(msg string) {
		log.Warnf("audio: %s", msg)
	})
	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		capture.Close()
		return &DeviceError{Op: "start", Err: err}
	}

	b.capture = capture
	b.active = true
	return nil
}

func (b *Buffer) onData(data []byte, _ uint32) {
	n := len(data) / 2
	if n == 0 {
		return
	}
	block := make([]float32, n)
	for i := range block {
		block[i] = float32(int16(binary.LittleEndian.Uint16(data[i*2:]))) / 32768
	}
	b.blockMu.Lock()
	b.blocks = append(b.blocks, block)
	b.blockMu.Unlock()
}

// Stop closes the stream and returns everything captured since Start, in
// delivery order. It returns nil when no recording is active and an empty
// slice when the recording captured nothing.
func (b *Buffer) Stop() []float32 {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	if !b.active {
		return nil
	}

	b.capture.Stop()
	b.capture.ClearCallback()
	b.capture.Close()
	b.capture = nil
	b.active = false

	b.blockMu.Lock()
	blocks := b.blocks
	b.blocks = nil
	b.blockMu.Unlock()

	total := 0
	for _, blk := range blocks {
		total += len(blk)
	}
	out := make([]float32, 0, total)
	for _, blk := range blocks {
		out = append(out, blk...)
	}
	return out
}
