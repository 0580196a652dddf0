package inject

import (
	"errors"
	"strings"
	"testing"
)

type tap struct {
	code  int
	shift bool
}

type fakeKeys struct {
	taps   []tap
	pastes int
	enters int
	err    error
	clip   *fakeClip
	pasted []string
}

func (k *fakeKeys) Tap(code int, shift bool) error {
	if k.err != nil {
		return k.err
	}
	k.taps = append(k.taps, tap{code, shift})
	return nil
}

func (k *fakeKeys) Paste() error {
	k.pastes++
	if k.clip != nil {
		k.pasted = append(k.pasted, k.clip.text)
	}
	return k.err
}

func (k *fakeKeys) Enter() error {
	k.enters++
	return k.err
}

type fakeClip struct {
	text    string
	readErr error
	writes  int
}

func (c *fakeClip) Read() (string, error) { return c.text, c.readErr }
func (c *fakeClip) Write(s string) error {
	c.writes++
	c.text = s
	return nil
}

func newTest(mode Mode) (*Injector, *fakeKeys, *fakeClip) {
	clip := &fakeClip{text: "previous"}
	keys := &fakeKeys{clip: clip}
	in := New(mode, keys, clip)
	in.restoreDelay = 0
	return in, keys, clip
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeAuto, "AUTO": ModeAuto, "type": ModeType, " paste ": ModePaste} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseMode("shout"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestInjectTrimsAndTypes(t *testing.T) {
	in, keys, clip := newTest(ModeAuto)
	if err := in.Inject("  Hi 2  "); err != nil {
		t.Fatal(err)
	}
	if len(keys.taps) != 4 {
		t.Fatalf("expected 4 taps, got %d", len(keys.taps))
	}
	h, _, _ := keyFor('h')
	if keys.taps[0] != (tap{h, true}) {
		t.Errorf("first tap = %+v, want shifted h", keys.taps[0])
	}
	if keys.taps[1].shift {
		t.Error("lowercase i should not be shifted")
	}
	if keys.pastes != 0 || clip.writes != 0 {
		t.Error("plain text should not touch the clipboard")
	}
}

func TestInjectEmptyIsNoop(t *testing.T) {
	in, keys, clip := newTest(ModeAuto)
	for _, s := range []string{"", "   ", "\n\t"} {
		if err := in.Inject(s); err != nil {
			t.Fatal(err)
		}
	}
	if len(keys.taps) != 0 || keys.pastes != 0 || clip.writes != 0 {
		t.Error("empty text should not be injected")
	}
}

func TestAutoPastesPunctuation(t *testing.T) {
	in, keys, clip := newTest(ModeAuto)
	if err := in.Inject("Hello, world!"); err != nil {
		t.Fatal(err)
	}
	if len(keys.taps) != 0 {
		t.Errorf("expected no taps, got %d", len(keys.taps))
	}
	if keys.pastes != 1 || keys.pasted[0] != "Hello, world!" {
		t.Fatalf("paste = %d %v", keys.pastes, keys.pasted)
	}
	if clip.text != "previous" {
		t.Errorf("clipboard not restored: %q", clip.text)
	}
}

func TestPasteWithoutRestore(t *testing.T) {
	in, keys, clip := newTest(ModePaste)
	clip.readErr = errors.New("empty clipboard")
	if err := in.Inject("abc"); err != nil {
		t.Fatal(err)
	}
	if keys.pastes != 1 {
		t.Fatal("expected a paste")
	}
	if clip.text != "abc" || clip.writes != 1 {
		t.Errorf("clipboard should keep pasted text when the old value was unreadable, got %q", clip.text)
	}
}

func TestTypeModeSkipsUnmapped(t *testing.T) {
	in, keys, _ := newTest(ModeType)
	if err := in.Inject("a-b"); err != nil {
		t.Fatal(err)
	}
	if len(keys.taps) != 2 || keys.pastes != 0 {
		t.Errorf("taps=%d pastes=%d", len(keys.taps), keys.pastes)
	}
}

func TestKeyErrorsPropagate(t *testing.T) {
	in, keys, _ := newTest(ModeType)
	keys.err = errors.New("no uinput")
	err := in.Inject("a")
	if err == nil || !strings.Contains(err.Error(), "no uinput") {
		t.Fatalf("expected key error, got %v", err)
	}
	if err := in.InjectEnter(); err == nil {
		t.Error("expected enter error")
	}
}

func TestInjectEnter(t *testing.T) {
	in, keys, _ := newTest(ModeAuto)
	if err := in.InjectEnter(); err != nil {
		t.Fatal(err)
	}
	if keys.enters != 1 {
		t.Errorf("enters = %d", keys.enters)
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	r.Inject("one")
	r.Err = errors.New("boom")
	if err := r.Inject("two"); err == nil {
		t.Error("expected configured error")
	}
	r.InjectEnter()
	if got := r.Texts(); len(got) != 2 || got[1] != "two" {
		t.Errorf("Texts = %v", got)
	}
	if r.Enters() != 1 {
		t.Errorf("Enters = %d", r.Enters())
	}
}

func TestSetModeSwitchesDelivery(t *testing.T) {
	in, keys, clip := newTest(ModeType)
	in.SetMode(ModePaste)
	if in.Mode() != ModePaste {
		t.Fatalf("Mode() = %q", in.Mode())
	}
	if err := in.Inject("abc"); err != nil {
		t.Fatal(err)
	}
	if keys.pastes != 1 || clip.writes == 0 || len(keys.taps) != 0 {
		t.Errorf("pastes=%d writes=%d taps=%d", keys.pastes, clip.writes, len(keys.taps))
	}
}
