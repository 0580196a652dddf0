//go:build !linux

package beep

import (
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"dictate/log"
)

const (
	startDur = 0.03
	endDur   = 0.05
)

var (
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	pcm      map[Sound][]byte
	initOnce sync.Once

	// read from the device callback
	current atomic.Pointer[[]byte]
	pos     atomic.Uint32
	playMu  sync.Mutex
)

func initDevice() error {
	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.SampleRate = sampleRate

	var err error
	device, err = malgo.InitDevice(malgoCtx.Context, config, malgo.DeviceCallbacks{Data: onData})
	return err
}

func initSounds() {
	pcm = map[Sound][]byte{}
	for s := range tones {
		mono := samples(s)
		buf := make([]byte, len(mono)*2)
		for i, v := range mono {
			buf[i*2] = byte(v)
			buf[i*2+1] = byte(v >> 8)
		}
		pcm[s] = buf
	}

	var err error
	malgoCtx, err = malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		log.Warnf("malgo playback: %v", err)
		return
	}
	if err := initDevice(); err != nil {
		log.Warnf("malgo playback: %v", err)
		malgoCtx.Uninit()
		malgoCtx = nil
	}
}

func onData(out, _ []byte, frameCount uint32) {
	clear(out)
	buf := current.Load()
	if buf == nil {
		return
	}
	p := pos.Load()
	remaining := uint32(len(*buf)) - p
	if remaining == 0 {
		current.Store(nil)
		return
	}
	n := min(frameCount*2, remaining)
	copy(out[:n], (*buf)[p:p+n])
	pos.Store(p + n)
}

func play(s Sound) {
	initOnce.Do(initSounds)
	if malgoCtx == nil {
		return
	}
	buf := pcm[s]
	if len(buf) == 0 {
		return
	}

	playMu.Lock()
	defer playMu.Unlock()
	if device == nil {
		return
	}
	device.Stop()
	pos.Store(0)
	current.Store(&buf)

	if err := device.Start(); err != nil {
		// The device goes stale across sleep/wake; recreate it once.
		device.Uninit()
		if err := initDevice(); err != nil {
			current.Store(nil)
			device = nil
			return
		}
		if err := device.Start(); err != nil {
			current.Store(nil)
		}
	}
}
