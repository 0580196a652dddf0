//go:build !linux

package hotkey

import (
	"fmt"
	"sync"

	"golang.design/x/hotkey"
)

var keyCodes = map[string]hotkey.Key{
	"space": hotkey.KeySpace, "enter": hotkey.KeyReturn, "esc": hotkey.KeyEscape,
	"tab": hotkey.KeyTab, "delete": hotkey.KeyDelete,
	"left": hotkey.KeyLeft, "right": hotkey.KeyRight, "up": hotkey.KeyUp, "down": hotkey.KeyDown,
	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3, "4": hotkey.Key4,
	"5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7, "8": hotkey.Key8, "9": hotkey.Key9,
	"a": hotkey.KeyA, "b": hotkey.KeyB, "c": hotkey.KeyC, "d": hotkey.KeyD, "e": hotkey.KeyE,
	"f": hotkey.KeyF, "g": hotkey.KeyG, "h": hotkey.KeyH, "i": hotkey.KeyI, "j": hotkey.KeyJ,
	"k": hotkey.KeyK, "l": hotkey.KeyL, "m": hotkey.KeyM, "n": hotkey.KeyN, "o": hotkey.KeyO,
	"p": hotkey.KeyP, "q": hotkey.KeyQ, "r": hotkey.KeyR, "s": hotkey.KeyS, "t": hotkey.KeyT,
	"u": hotkey.KeyU, "v": hotkey.KeyV, "w": hotkey.KeyW, "x": hotkey.KeyX, "y": hotkey.KeyY,
	"z": hotkey.KeyZ,
	"f1": hotkey.KeyF1, "f2": hotkey.KeyF2, "f3": hotkey.KeyF3, "f4": hotkey.KeyF4,
	"f5": hotkey.KeyF5, "f6": hotkey.KeyF6, "f7": hotkey.KeyF7, "f8": hotkey.KeyF8,
	"f9": hotkey.KeyF9, "f10": hotkey.KeyF10, "f11": hotkey.KeyF11, "f12": hotkey.KeyF12,
	"f13": hotkey.KeyF13, "f14": hotkey.KeyF14, "f15": hotkey.KeyF15, "f16": hotkey.KeyF16,
	"f17": hotkey.KeyF17, "f18": hotkey.KeyF18, "f19": hotkey.KeyF19, "f20": hotkey.KeyF20,
}

// Open registers key with the OS. The OS delivers only the registered chord
// and keeps it from reaching other applications. A bare modifier such as
// "right ctrl" cannot be registered this way.
func Open(key string) (Source, error) {
	c, err := ParseCombo(key)
	if err != nil {
		return nil, err
	}
	code, ok := keyCodes[c.Key]
	if !ok {
		return nil, fmt.Errorf("%w: %q cannot be registered as a global hotkey on this OS", ErrUnsupportedKey, c.Key)
	}
	var mods []hotkey.Modifier
	for _, m := range c.Mods {
		mod, ok := platformModifiers[m]
		if !ok {
			return nil, fmt.Errorf("%w: modifier %q", ErrUnsupportedKey, m)
		}
		mods = append(mods, mod)
	}
	return &registeredSource{name: c.String(), hk: hotkey.New(mods, code)}, nil
}

type registeredSource struct {
	name string
	hk   *hotkey.Hotkey
	stop chan struct{}
	once sync.Once
}

func (s *registeredSource) Start(h Handler) error {
	if err := s.hk.Register(); err != nil {
		return err
	}
	s.stop = make(chan struct{})
	go func() {
		for {
			select {
			case <-s.stop:
				return
			case <-s.hk.Keydown():
				h(Event{Name: s.name, Type: KeyDown})
			}
		}
	}()
	go func() {
		for {
			select {
			case <-s.stop:
				return
			case <-s.hk.Keyup():
				h(Event{Name: s.name, Type: KeyUp})
			}
		}
	}()
	return nil
}

func (s *registeredSource) Stop() {
	s.once.Do(func() {
		if s.stop != nil {
			close(s.stop)
			s.hk.Unregister()
		}
	})
}

// Suppressed reports whether the bound key is withheld from the focused
// application. An OS-registered hotkey is consumed by the registration.
const Suppressed = true

func Diagnose() (string, error) {
	return "global hotkeys available via OS registration (chords such as ctrl+shift+space, or f-keys)", nil
}
