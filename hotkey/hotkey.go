// Package hotkey turns a global key-event stream into start/stop edges for
// hold-to-record and toggle recording.
package hotkey

import "fmt"

type EventType int

const (
	KeyDown EventType = iota
	KeyUp
)

func (t EventType) String() string {
	if t == KeyUp {
		return "up"
	}
	return "down"
}

// Event names keys in canonical combo form, e.g. "right ctrl" or
// "ctrl+shift+space".
type Event struct {
	Name string
	Type EventType
}

// Handler receives every event from a Source and reports whether it was
// consumed.
type Handler func(Event) bool

// Source is an installed global key listener. Events arriving after Stop
// returns are discarded by the Machine.
type Source interface {
	Start(h Handler) error
	Stop()
}

// Opener installs a listener able to observe the given key.
type Opener func(key string) (Source, error)

type Mode int

const (
	Hold Mode = iota
	Toggle
)

func (m Mode) String() string {
	if m == Toggle {
		return "toggle"
	}
	return "hold"
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "hold", "Hold", "HOLD", "":
		return Hold, nil
	case "toggle", "Toggle", "TOGGLE":
		return Toggle, nil
	}
	return Hold, fmt.Errorf("unknown recording mode %q", s)
}

// Binding is replaced wholesale on reconfiguration.
type Binding struct {
	Key  string
	Mode Mode
}

func (b Binding) String() string {
	return fmt.Sprintf("%s (%s)", b.Key, b.Mode)
}
