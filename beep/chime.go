package beep

import (
	"sync"

	"dictate/pipeline"
)

// Chime maps pipeline transitions to sounds.
type Chime struct {
	mu   sync.Mutex
	last pipeline.State
	play func(Sound)
}

func NewChime() *Chime {
	return &Chime{play: Play}
}

func (c *Chime) StateChanged(s pipeline.State) {
	c.mu.Lock()
	prev := c.last
	c.last = s
	c.mu.Unlock()

	switch {
	case s == pipeline.Recording:
		c.play(Start)
	case s == pipeline.Processing:
		c.play(End)
	case s == pipeline.Idle && prev == pipeline.Processing:
		c.play(Error)
	}
}
