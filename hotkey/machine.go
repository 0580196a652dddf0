package hotkey

import (
	"fmt"
	"sync"

	"dictate/log"
)

// Machine derives start/stop edges from the bound key. onStart and onStop
// are called with the machine's lock held, so they never overlap and a stop
// always follows its start. They must not call back into the Machine.
// onStart reports whether recording actually began; a refused start leaves
// the machine idle so the next press starts again.
type Machine struct {
	open    Opener
	onStart func() bool
	onStop  func()

	mu        sync.Mutex
	binding   Binding
	bound     bool
	gen       uint64
	src       Source
	recording bool
}

func NewMachine(open Opener, onStart func() bool, onStop func()) *Machine {
	return &Machine{open: open, onStart: onStart, onStop: onStop}
}

// Rebind removes the current listener and installs one for b. If the new
// listener cannot be installed the error is returned and the machine stays
// unbound until the next successful Rebind.
func (m *Machine) Rebind(b Binding) error {
	key, err := Normalize(b.Key)
	if err != nil {
		m.teardown()
		return err
	}
	b.Key = key

	m.teardown()

	src, err := m.open(b.Key)
	if err != nil {
		return fmt.Errorf("install hotkey %s: %w", b.Key, err)
	}

	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.binding = b
	m.bound = true
	m.src = src
	m.mu.Unlock()

	if err := src.Start(func(ev Event) bool { return m.handle(gen, ev) }); err != nil {
		m.mu.Lock()
		if m.gen == gen {
			m.bound = false
			m.src = nil
		}
		m.mu.Unlock()
		return fmt.Errorf("install hotkey %s: %w", b.Key, err)
	}
	log.Infof("hotkey bound: %s", b)
	return nil
}

// teardown invalidates the current generation before stopping the old
// source, so nothing it still delivers can reach a later binding.
func (m *Machine) teardown() {
	m.mu.Lock()
	old := m.src
	m.src = nil
	m.bound = false
	m.gen++
	if m.recording {
		m.recording = false
		m.onStop()
	}
	m.mu.Unlock()

	if old != nil {
		old.Stop()
	}
}

func (m *Machine) handle(gen uint64, ev Event) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen || !m.bound || ev.Name != m.binding.Key {
		return false
	}

	switch m.binding.Mode {
	case Hold:
		if ev.Type == KeyDown && !m.recording {
			m.recording = m.onStart()
		} else if ev.Type == KeyUp && m.recording {
			m.recording = false
			m.onStop()
		}
	case Toggle:
		if ev.Type != KeyDown {
			break
		}
		if m.recording {
			m.recording = false
			m.onStop()
		} else {
			m.recording = m.onStart()
		}
	}
	return true
}

func (m *Machine) Binding() (Binding, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.binding, m.bound
}

func (m *Machine) Recording() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recording
}

// Close removes the listener, stopping an active recording first.
func (m *Machine) Close() {
	m.teardown()
}
