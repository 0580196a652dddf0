package hotkey

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrUnsupportedKey = errors.New("unsupported key")

// Modifier names used inside chords.
const (
	modCtrl  = "ctrl"
	modShift = "shift"
	modAlt   = "alt"
	modSuper = "super"
)

var modOrder = map[string]int{modCtrl: 0, modShift: 1, modAlt: 2, modSuper: 3}

var aliases = map[string]string{
	"ctrl_r": "right ctrl", "rctrl": "right ctrl", "right control": "right ctrl",
	"ctrl_l": "left ctrl", "lctrl": "left ctrl", "left control": "left ctrl",
	"shift_r": "right shift", "rshift": "right shift",
	"shift_l": "left shift", "lshift": "left shift",
	"alt_r": "right alt", "ralt": "right alt", "alt gr": "right alt", "altgr": "right alt",
	"alt_l": "left alt", "lalt": "left alt",
	"cmd_r": "right super", "right cmd": "right super", "right win": "right super",
	"cmd_l": "left super", "left cmd": "left super", "left win": "left super",
	"control": modCtrl, "option": modAlt, "opt": modAlt,
	"cmd": modSuper, "command": modSuper, "win": modSuper, "meta": modSuper,
	"return": "enter", "escape": "esc", "spacebar": "space",
	"pgup": "page up", "pgdn": "page down", "del": "delete", "ins": "insert",
	"capslock": "caps lock", "scrolllock": "scroll lock",
}

func canonical(tok string) string {
	tok = strings.Join(strings.Fields(strings.ToLower(tok)), " ")
	if a, ok := aliases[tok]; ok {
		return a
	}
	return tok
}

func isModifier(s string) bool {
	_, ok := modOrder[s]
	return ok
}

// modifierOf maps a physical modifier key to its chord modifier.
func modifierOf(key string) string {
	for _, m := range []string{modCtrl, modShift, modAlt, modSuper} {
		if key == "left "+m || key == "right "+m {
			return m
		}
	}
	return ""
}

func knownKey(k string) bool {
	if len(k) == 1 && (k[0] >= 'a' && k[0] <= 'z' || k[0] >= '0' && k[0] <= '9') {
		return true
	}
	if modifierOf(k) != "" {
		return true
	}
	var n int
	if _, err := fmt.Sscanf(k, "f%d", &n); err == nil && fmt.Sprintf("f%d", n) == k {
		return n >= 1 && n <= 24
	}
	switch k {
	case "space", "enter", "tab", "esc", "backspace", "caps lock", "insert", "delete",
		"home", "end", "page up", "page down", "up", "down", "left", "right",
		"pause", "scroll lock", "print screen", "menu":
		return true
	}
	return false
}

// Combo is a parsed key specification.
type Combo struct {
	Mods []string
	Key  string
}

func (c Combo) String() string {
	if len(c.Mods) == 0 {
		return c.Key
	}
	return strings.Join(c.Mods, "+") + "+" + c.Key
}

// ParseCombo accepts a single key ("right ctrl", "f9") or a chord
// ("ctrl+shift+space") and returns it in canonical form.
func ParseCombo(spec string) (Combo, error) {
	parts := strings.Split(spec, "+")
	var c Combo
	seen := map[string]bool{}
	for i, p := range parts {
		tok := canonical(p)
		if tok == "" {
			return Combo{}, fmt.Errorf("%w: %q", ErrUnsupportedKey, spec)
		}
		if i < len(parts)-1 {
			if !isModifier(tok) {
				return Combo{}, fmt.Errorf("%w: %q is not a modifier in %q", ErrUnsupportedKey, tok, spec)
			}
			if !seen[tok] {
				seen[tok] = true
				c.Mods = append(c.Mods, tok)
			}
			continue
		}
		if !knownKey(tok) {
			return Combo{}, fmt.Errorf("%w: %q", ErrUnsupportedKey, tok)
		}
		c.Key = tok
	}
	sortMods(c.Mods)
	return c, nil
}

func sortMods(mods []string) {
	sort.Slice(mods, func(i, j int) bool { return modOrder[mods[i]] < modOrder[mods[j]] })
}

// Normalize returns the canonical spelling of spec.
func Normalize(spec string) (string, error) {
	c, err := ParseCombo(spec)
	if err != nil {
		return "", err
	}
	return c.String(), nil
}
