//go:build linux

package beep

import (
	"sync"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"

	"dictate/log"
)

// The pulse server needs a long enough tail to fill its buffer before the
// stream drains.
const (
	startDur = 0.2
	endDur   = 0.2
)

var (
	stereo   map[Sound][]int16
	initOnce sync.Once
)

func initSounds() {
	stereo = map[Sound][]int16{}
	for s := range tones {
		mono := samples(s)
		out := make([]int16, len(mono)*2)
		for i, v := range mono {
			out[i*2] = v
			out[i*2+1] = v
		}
		stereo[s] = out
	}
}

func play(s Sound) {
	initOnce.Do(initSounds)
	go playSamples(stereo[s])
}

func playSamples(buf []int16) {
	if len(buf) == 0 {
		return
	}
	c, err := pulse.NewClient(pulse.ClientApplicationName("dictate"))
	if err != nil {
		log.Warnf("pulse playback: %v", err)
		return
	}
	defer c.Close()

	pos := 0
	reader := pulse.Int16Reader(func(out []int16) (int, error) {
		if pos >= len(buf) {
			return 0, pulse.EndOfData
		}
		n := copy(out, buf[pos:])
		pos += n
		return n, nil
	})
	stream, err := c.NewPlayback(reader,
		pulse.PlaybackStereo,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackRawOption(func(p *proto.CreatePlaybackStream) {
			p.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm), uint32(proto.VolumeNorm)}
		}),
	)
	if err != nil {
		log.Warnf("pulse playback: %v", err)
		return
	}
	stream.Start()
	stream.Drain()
	stream.Stop()
	stream.Close()
}
