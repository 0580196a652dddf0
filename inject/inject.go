// Package inject delivers transcribed text to the focused application,
// either as synthetic keystrokes or through a clipboard paste.
package inject

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

type Mode string

const (
	ModeAuto  Mode = "auto"
	ModeType  Mode = "type"
	ModePaste Mode = "paste"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeType:
		return ModeType, nil
	case ModePaste:
		return ModePaste, nil
	}
	return "", fmt.Errorf("unknown inject mode %q (want auto, type or paste)", s)
}

// Keys is the synthetic keyboard. Codes come from keyFor.
type Keys interface {
	Tap(code int, shift bool) error
	Paste() error
	Enter() error
}

type Clipboard interface {
	Read() (string, error)
	Write(string) error
}

// restoreDelay is how long the pasted text stays on the clipboard. The
// target application reads it asynchronously after the paste chord.
const restoreDelay = 600 * time.Millisecond

type Injector struct {
	mu           sync.Mutex
	mode         Mode
	keys         Keys
	clip         Clipboard
	restoreDelay time.Duration
}

func New(mode Mode, keys Keys, clip Clipboard) *Injector {
	return &Injector{mode: mode, keys: keys, clip: clip, restoreDelay: restoreDelay}
}

func (in *Injector) Mode() Mode {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.mode
}

// SetMode takes effect from the next Inject.
func (in *Injector) SetMode(m Mode) {
	in.mu.Lock()
	in.mode = m
	in.mu.Unlock()
}

// Inject trims text and delivers it. Whitespace-only text is a no-op.
func (in *Injector) Inject(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	switch in.Mode() {
	case ModeType:
		return in.typeText(text)
	case ModePaste:
		return in.paste(text)
	}
	if typeable(text) {
		return in.typeText(text)
	}
	return in.paste(text)
}

func (in *Injector) InjectEnter() error {
	return in.keys.Enter()
}

func typeable(text string) bool {
	for _, r := range text {
		if _, _, ok := keyFor(r); !ok {
			return false
		}
	}
	return true
}

// typeText skips characters with no key mapping.
func (in *Injector) typeText(text string) error {
	for _, r := range text {
		code, shift, ok := keyFor(r)
		if !ok {
			continue
		}
		if err := in.keys.Tap(code, shift); err != nil {
			return fmt.Errorf("type %q: %w", r, err)
		}
	}
	return nil
}

func (in *Injector) paste(text string) error {
	if in.clip == nil {
		return fmt.Errorf("paste: no clipboard available")
	}
	prev, readErr := in.clip.Read()
	if err := in.clip.Write(text); err != nil {
		return fmt.Errorf("paste: write clipboard: %w", err)
	}
	if err := in.keys.Paste(); err != nil {
		return fmt.Errorf("paste: send chord: %w", err)
	}
	if readErr == nil {
		time.Sleep(in.restoreDelay)
		if err := in.clip.Write(prev); err != nil {
			return fmt.Errorf("paste: restore clipboard: %w", err)
		}
	}
	return nil
}
