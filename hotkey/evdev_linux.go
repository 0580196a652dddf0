//go:build linux

package hotkey

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	evKey          = 1
	keyRelease     = 0
	keyPress       = 1
	keyRepeat      = 2
	inputEventSize = 24
)

// evdevNames maps linux input event codes to key names.
var evdevNames = map[uint16]string{
	1: "esc", 14: "backspace", 15: "tab", 28: "enter", 57: "space", 58: "caps lock",
	29: "left ctrl", 97: "right ctrl", 42: "left shift", 54: "right shift",
	56: "left alt", 100: "right alt", 125: "left super", 126: "right super",
	102: "home", 103: "up", 104: "page up", 105: "left", 106: "right",
	107: "end", 108: "down", 109: "page down", 110: "insert", 111: "delete",
	119: "pause", 70: "scroll lock", 99: "print screen", 127: "menu",
	2: "1", 3: "2", 4: "3", 5: "4", 6: "5", 7: "6", 8: "7", 9: "8", 10: "9", 11: "0",
	16: "q", 17: "w", 18: "e", 19: "r", 20: "t", 21: "y", 22: "u", 23: "i", 24: "o", 25: "p",
	30: "a", 31: "s", 32: "d", 33: "f", 34: "g", 35: "h", 36: "j", 37: "k", 38: "l",
	44: "z", 45: "x", 46: "c", 47: "v", 48: "b", 49: "n", 50: "m",
	59: "f1", 60: "f2", 61: "f3", 62: "f4", 63: "f5", 64: "f6", 65: "f7", 66: "f8",
	67: "f9", 68: "f10", 87: "f11", 88: "f12",
	183: "f13", 184: "f14", 185: "f15", 186: "f16", 187: "f17", 188: "f18",
	189: "f19", 190: "f20", 191: "f21", 192: "f22", 193: "f23", 194: "f24",
}

func evdevSupports(key string) bool {
	for _, n := range evdevNames {
		if n == key {
			return true
		}
	}
	return false
}

// Suppressed reports whether the bound key is withheld from the focused
// application. evdev is read-only, so on linux it is not.
const Suppressed = false

// Open reads every keyboard under /dev/input. Matching events still reach
// other applications.
func Open(key string) (Source, error) {
	c, err := ParseCombo(key)
	if err != nil {
		return nil, err
	}
	if !evdevSupports(c.Key) {
		return nil, fmt.Errorf("%w: %q has no evdev code", ErrUnsupportedKey, c.Key)
	}
	return &evdevSource{}, nil
}

type evdevSource struct {
	files   []*os.File
	stop    chan struct{}
	once    sync.Once
	handler Handler
}

func (s *evdevSource) Start(h Handler) error {
	keyboards, err := findKeyboards()
	if err != nil {
		return fmt.Errorf("finding keyboards: %w", err)
	}
	if len(keyboards) == 0 {
		return fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}

	s.handler = h
	s.stop = make(chan struct{})
	for _, path := range keyboards {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		s.files = append(s.files, f)
	}
	if len(s.files) == 0 {
		return fmt.Errorf("could not open any keyboard device (run: sudo usermod -aG input $USER, then re-login)")
	}
	for _, f := range s.files {
		go s.readEvents(f)
	}
	return nil
}

// readEvents keeps modifier state per device and names each key edge with
// the modifiers held when it went down.
func (s *evdevSource) readEvents(f *os.File) {
	buf := make([]byte, inputEventSize*16)
	held := map[string]bool{}
	downName := map[uint16]string{}

	for {
		n, err := f.Read(buf)
		if err != nil {
			return
		}
		for i := 0; i+inputEventSize <= n; i += inputEventSize {
			evType := binary.LittleEndian.Uint16(buf[i+16:])
			evCode := binary.LittleEndian.Uint16(buf[i+18:])
			evValue := int32(binary.LittleEndian.Uint32(buf[i+20:]))
			if evType != evKey || evValue == keyRepeat {
				continue
			}
			key, ok := evdevNames[evCode]
			if !ok {
				continue
			}
			mod := modifierOf(key)

			var ev Event
			switch evValue {
			case keyPress:
				name := chordName(held, mod, key)
				downName[evCode] = name
				ev = Event{Name: name, Type: KeyDown}
				if mod != "" {
					held[key] = true
				}
			case keyRelease:
				name, ok := downName[evCode]
				if !ok {
					name = key
				}
				delete(downName, evCode)
				delete(held, key)
				ev = Event{Name: name, Type: KeyUp}
			default:
				continue
			}

			select {
			case <-s.stop:
				return
			default:
			}
			s.handler(ev)
		}
	}
}

func chordName(held map[string]bool, ownMod, key string) string {
	var mods []string
	seen := map[string]bool{}
	for k := range held {
		m := modifierOf(k)
		if m == "" || m == ownMod || seen[m] {
			continue
		}
		seen[m] = true
		mods = append(mods, m)
	}
	sortMods(mods)
	return Combo{Mods: mods, Key: key}.String()
}

func (s *evdevSource) Stop() {
	s.once.Do(func() {
		if s.stop != nil {
			close(s.stop)
		}
		for _, f := range s.files {
			f.Close()
		}
	})
}

func findKeyboards() ([]string, error) {
	entries, err := os.ReadDir("/dev/input")
	if err != nil {
		return nil, err
	}

	var keyboards []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "event") {
			continue
		}
		if isKeyboard(e.Name()) {
			keyboards = append(keyboards, filepath.Join("/dev/input", e.Name()))
		}
	}
	return keyboards, nil
}

func isKeyboard(eventName string) bool {
	capsPath := filepath.Join("/sys/class/input", eventName, "device", "capabilities", "key")
	data, err := os.ReadFile(capsPath)
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(data))) > 10
}

func Diagnose() (string, error) {
	keyboards, err := findKeyboards()
	if err != nil {
		return "", fmt.Errorf("cannot scan input devices: %w", err)
	}
	if len(keyboards) == 0 {
		return "", fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}
	for _, path := range keyboards {
		if f, err := os.Open(path); err == nil {
			f.Close()
			return fmt.Sprintf("%d keyboard(s) found, opened %s", len(keyboards), path), nil
		}
	}
	return "", fmt.Errorf("found %d keyboard(s) but cannot open any (run: sudo usermod -aG input $USER)", len(keyboards))
}
