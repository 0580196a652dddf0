package hotkey

import "sync"

// FakeKeyboard stands in for the OS key-event stream. Every source it opens
// sees the events pressed on it until that source is stopped.
type FakeKeyboard struct {
	// OpenErr makes the next Open fail.
	OpenErr error

	mu      sync.Mutex
	sources []*FakeSource
	opened  []string
}

func NewFakeKeyboard() *FakeKeyboard {
	return &FakeKeyboard{}
}

func (k *FakeKeyboard) Open(key string) (Source, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.OpenErr; err != nil {
		k.OpenErr = nil
		return nil, err
	}
	s := &FakeSource{}
	k.sources = append(k.sources, s)
	k.opened = append(k.opened, key)
	return s, nil
}

// Opened lists the keys passed to Open, in order.
func (k *FakeKeyboard) Opened() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]string(nil), k.opened...)
}

// Live counts started sources that have not been stopped.
func (k *FakeKeyboard) Live() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	n := 0
	for _, s := range k.sources {
		if s.live() {
			n++
		}
	}
	return n
}

// Send delivers ev to every live source and reports whether any consumed it.
func (k *FakeKeyboard) Send(ev Event) bool {
	k.mu.Lock()
	sources := append([]*FakeSource(nil), k.sources...)
	k.mu.Unlock()
	consumed := false
	for _, s := range sources {
		if s.deliver(ev) {
			consumed = true
		}
	}
	return consumed
}

func (k *FakeKeyboard) Press(name string) bool   { return k.Send(Event{Name: name, Type: KeyDown}) }
func (k *FakeKeyboard) Release(name string) bool { return k.Send(Event{Name: name, Type: KeyUp}) }

// Tap presses and releases name.
func (k *FakeKeyboard) Tap(name string) {
	k.Press(name)
	k.Release(name)
}

type FakeSource struct {
	mu      sync.Mutex
	handler Handler
	stopped bool

	// StartErr makes Start fail.
	StartErr error
}

func (s *FakeSource) Start(h Handler) error {
	if s.StartErr != nil {
		return s.StartErr
	}
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
	return nil
}

func (s *FakeSource) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.handler = nil
	s.mu.Unlock()
}

func (s *FakeSource) live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handler != nil && !s.stopped
}

func (s *FakeSource) deliver(ev Event) bool {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	if h == nil {
		return false
	}
	return h(ev)
}
