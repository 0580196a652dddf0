package hotkey

import (
	"errors"
	"strings"
	"sync"
	"testing"
)

type edgeRecorder struct {
	mu     sync.Mutex
	edges  []string
	refuse bool
}

func (r *edgeRecorder) start() bool {
	r.mu.Lock()
	refuse := r.refuse
	r.mu.Unlock()
	if refuse {
		r.add("refused")
		return false
	}
	r.add("start")
	return true
}

func (r *edgeRecorder) setRefuse(v bool) {
	r.mu.Lock()
	r.refuse = v
	r.mu.Unlock()
}

func (r *edgeRecorder) stop()  { r.add("stop") }

func (r *edgeRecorder) add(e string) {
	r.mu.Lock()
	r.edges = append(r.edges, e)
	r.mu.Unlock()
}

func (r *edgeRecorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.Join(r.edges, ",")
}

func newTestMachine(t *testing.T, b Binding) (*Machine, *FakeKeyboard, *edgeRecorder) {
	t.Helper()
	kb := NewFakeKeyboard()
	rec := &edgeRecorder{}
	m := NewMachine(kb.Open, rec.start, rec.stop)
	if err := m.Rebind(b); err != nil {
		t.Fatalf("Rebind: %v", err)
	}
	return m, kb, rec
}

func TestHoldPressRelease(t *testing.T) {
	m, kb, rec := newTestMachine(t, Binding{Key: "right ctrl", Mode: Hold})

	if !kb.Press("right ctrl") {
		t.Error("matching key-down not consumed")
	}
	if !m.Recording() {
		t.Fatal("not recording after key-down")
	}
	kb.Release("right ctrl")
	if got := rec.String(); got != "start,stop" {
		t.Fatalf("edges = %q, want start,stop", got)
	}
}

func TestHoldIgnoresRepeats(t *testing.T) {
	_, kb, rec := newTestMachine(t, Binding{Key: "f9", Mode: Hold})

	kb.Press("f9")
	kb.Press("f9")
	kb.Press("f9")
	kb.Release("f9")
	kb.Release("f9")
	if got := rec.String(); got != "start,stop" {
		t.Fatalf("edges = %q, want start,stop", got)
	}
}

func TestHoldEdgesAlternate(t *testing.T) {
	_, kb, rec := newTestMachine(t, Binding{Key: "f9", Mode: Hold})

	seq := []EventType{KeyDown, KeyUp, KeyUp, KeyDown, KeyDown, KeyUp, KeyDown, KeyUp, KeyUp}
	for _, typ := range seq {
		kb.Send(Event{Name: "f9", Type: typ})
	}
	got := strings.Split(rec.String(), ",")
	if len(got)%2 != 0 {
		t.Fatalf("unbalanced edges: %v", got)
	}
	for i, e := range got {
		want := "start"
		if i%2 == 1 {
			want = "stop"
		}
		if e != want {
			t.Fatalf("edge %d = %s, want %s (all: %v)", i, e, want, got)
		}
	}
	if len(got) != 6 {
		t.Errorf("got %d edges, want 6", len(got))
	}
}

func TestNonMatchingPassesThrough(t *testing.T) {
	_, kb, rec := newTestMachine(t, Binding{Key: "right ctrl", Mode: Hold})

	if kb.Press("left ctrl") {
		t.Error("non-matching key consumed")
	}
	if kb.Press("ctrl+right ctrl") {
		t.Error("chord consumed for bare key binding")
	}
	if got := rec.String(); got != "" {
		t.Fatalf("edges = %q, want none", got)
	}
}

func TestToggleParity(t *testing.T) {
	for n := 1; n <= 5; n++ {
		m, kb, rec := newTestMachine(t, Binding{Key: "f9", Mode: Toggle})
		for i := 0; i < n; i++ {
			kb.Press("f9")
			kb.Release("f9")
		}
		edges := strings.Split(rec.String(), ",")
		if len(edges) != n {
			t.Fatalf("n=%d: %d edges", n, len(edges))
		}
		for i, e := range edges {
			if (i%2 == 0) != (e == "start") {
				t.Fatalf("n=%d: edges out of order: %v", n, edges)
			}
		}
		if m.Recording() != (n%2 == 1) {
			t.Errorf("n=%d: recording = %v", n, m.Recording())
		}
	}
}

func TestToggleIgnoresKeyUp(t *testing.T) {
	m, kb, rec := newTestMachine(t, Binding{Key: "f9", Mode: Toggle})
	kb.Press("f9")
	kb.Release("f9")
	kb.Release("f9")
	if !m.Recording() || rec.String() != "start" {
		t.Fatalf("recording=%v edges=%q", m.Recording(), rec.String())
	}
}

func TestToggleRefusedStartStaysIdle(t *testing.T) {
	m, kb, rec := newTestMachine(t, Binding{Key: "f9", Mode: Toggle})
	rec.setRefuse(true)
	kb.Tap("f9")
	if m.Recording() {
		t.Fatal("refused start left the machine recording")
	}
	rec.setRefuse(false)
	kb.Tap("f9")
	if !m.Recording() {
		t.Fatal("press after a refused start did not start")
	}
	if got := rec.String(); got != "refused,start" {
		t.Fatalf("edges = %q, want refused,start", got)
	}
}

func TestHoldRefusedStartSkipsStop(t *testing.T) {
	m, kb, rec := newTestMachine(t, Binding{Key: "f9", Mode: Hold})
	rec.setRefuse(true)
	kb.Press("f9")
	kb.Release("f9")
	if m.Recording() {
		t.Fatal("refused start left the machine recording")
	}
	if got := rec.String(); got != "refused" {
		t.Fatalf("edges = %q, want refused", got)
	}
}

func TestRebindSwitchesBinding(t *testing.T) {
	m, kb, rec := newTestMachine(t, Binding{Key: "f9", Mode: Hold})

	if err := m.Rebind(Binding{Key: "ctrl+shift+space", Mode: Toggle}); err != nil {
		t.Fatal(err)
	}
	if kb.Live() != 1 {
		t.Fatalf("live sources = %d, want 1", kb.Live())
	}

	kb.Press("f9")
	kb.Release("f9")
	if got := rec.String(); got != "" {
		t.Fatalf("old binding still active: %q", got)
	}

	kb.Press("ctrl+shift+space")
	kb.Release("ctrl+shift+space")
	kb.Press("ctrl+shift+space")
	if got := rec.String(); got != "start,stop" {
		t.Fatalf("edges = %q, want start,stop", got)
	}
}

func TestRebindStaleSourceIgnored(t *testing.T) {
	kb := NewFakeKeyboard()
	rec := &edgeRecorder{}
	var first Handler
	open := func(key string) (Source, error) {
		src, err := kb.Open(key)
		return &capturingSource{Source: src, capture: &first}, err
	}
	m := NewMachine(open, rec.start, rec.stop)
	if err := m.Rebind(Binding{Key: "f9"}); err != nil {
		t.Fatal(err)
	}
	stale := first
	if err := m.Rebind(Binding{Key: "f9"}); err != nil {
		t.Fatal(err)
	}

	// A listener that delivers after being replaced must not reach the new binding.
	if stale(Event{Name: "f9", Type: KeyDown}) {
		t.Error("stale handler consumed event")
	}
	if got := rec.String(); got != "" {
		t.Fatalf("edges = %q, want none", got)
	}
}

type capturingSource struct {
	Source
	capture *Handler
}

func (c *capturingSource) Start(h Handler) error {
	*c.capture = h
	return c.Source.Start(h)
}

func TestRebindWhileRecordingStops(t *testing.T) {
	m, kb, rec := newTestMachine(t, Binding{Key: "f9", Mode: Hold})
	kb.Press("f9")
	if err := m.Rebind(Binding{Key: "f10", Mode: Hold}); err != nil {
		t.Fatal(err)
	}
	if m.Recording() {
		t.Error("still recording after rebind")
	}
	if got := rec.String(); got != "start,stop" {
		t.Fatalf("edges = %q, want start,stop", got)
	}
}

func TestRebindUnsupportedKey(t *testing.T) {
	m, kb, _ := newTestMachine(t, Binding{Key: "f9", Mode: Hold})

	err := m.Rebind(Binding{Key: "hyper"})
	if !errors.Is(err, ErrUnsupportedKey) {
		t.Fatalf("err = %v, want ErrUnsupportedKey", err)
	}
	if _, bound := m.Binding(); bound {
		t.Error("machine still bound after failed rebind")
	}
	if kb.Press("f9") {
		t.Error("old binding survived failed rebind")
	}
}

func TestRebindOpenFailure(t *testing.T) {
	kb := NewFakeKeyboard()
	kb.OpenErr = errors.New("permission denied")
	rec := &edgeRecorder{}
	m := NewMachine(kb.Open, rec.start, rec.stop)

	if err := m.Rebind(Binding{Key: "f9"}); err == nil {
		t.Fatal("expected install error")
	}
	kb.Press("f9")
	if rec.String() != "" {
		t.Fatal("edges fired without a binding")
	}

	if err := m.Rebind(Binding{Key: "f9"}); err != nil {
		t.Fatalf("retry Rebind: %v", err)
	}
	kb.Press("f9")
	if rec.String() != "start" {
		t.Fatalf("edges = %q, want start", rec.String())
	}
}

func TestRebindNormalizesKey(t *testing.T) {
	m, kb, rec := newTestMachine(t, Binding{Key: "Ctrl_R"})
	kb.Press("right ctrl")
	if rec.String() != "start" {
		t.Fatalf("edges = %q, want start", rec.String())
	}
	if b, _ := m.Binding(); b.Key != "right ctrl" {
		t.Errorf("binding key = %q", b.Key)
	}
	if got := kb.Opened(); len(got) != 1 || got[0] != "right ctrl" {
		t.Errorf("opened = %v", got)
	}
}

func TestCloseStopsListener(t *testing.T) {
	m, kb, rec := newTestMachine(t, Binding{Key: "f9"})
	m.Close()
	if kb.Live() != 0 {
		t.Fatalf("live sources = %d after Close", kb.Live())
	}
	kb.Press("f9")
	if rec.String() != "" {
		t.Fatal("event delivered after Close")
	}
}

func TestConcurrentEventsStayBalanced(t *testing.T) {
	_, kb, rec := newTestMachine(t, Binding{Key: "f9", Mode: Hold})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				kb.Tap("f9")
			}
		}()
	}
	wg.Wait()
	kb.Release("f9")

	edges := strings.Split(rec.String(), ",")
	for i, e := range edges {
		if (i%2 == 0) != (e == "start") {
			t.Fatalf("edge %d out of order: %s", i, e)
		}
	}
	if len(edges)%2 != 0 {
		t.Fatalf("unbalanced: %d edges", len(edges))
	}
}
