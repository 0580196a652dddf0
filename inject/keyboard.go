package inject

import (
	"sync"
	"time"

	cb "github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"
)

var keymap = map[rune]int{
	'a': keybd_event.VK_A, 'b': keybd_event.VK_B, 'c': keybd_event.VK_C, 'd': keybd_event.VK_D,
	'e': keybd_event.VK_E, 'f': keybd_event.VK_F, 'g': keybd_event.VK_G, 'h': keybd_event.VK_H,
	'i': keybd_event.VK_I, 'j': keybd_event.VK_J, 'k': keybd_event.VK_K, 'l': keybd_event.VK_L,
	'm': keybd_event.VK_M, 'n': keybd_event.VK_N, 'o': keybd_event.VK_O, 'p': keybd_event.VK_P,
	'q': keybd_event.VK_Q, 'r': keybd_event.VK_R, 's': keybd_event.VK_S, 't': keybd_event.VK_T,
	'u': keybd_event.VK_U, 'v': keybd_event.VK_V, 'w': keybd_event.VK_W, 'x': keybd_event.VK_X,
	'y': keybd_event.VK_Y, 'z': keybd_event.VK_Z,
	'0': keybd_event.VK_0, '1': keybd_event.VK_1, '2': keybd_event.VK_2, '3': keybd_event.VK_3,
	'4': keybd_event.VK_4, '5': keybd_event.VK_5, '6': keybd_event.VK_6, '7': keybd_event.VK_7,
	'8': keybd_event.VK_8, '9': keybd_event.VK_9,
	' ': keybd_event.VK_SPACE,
}

func keyFor(r rune) (code int, shift bool, ok bool) {
	if r >= 'A' && r <= 'Z' {
		code, ok = keymap[r-'A'+'a']
		return code, true, ok
	}
	code, ok = keymap[r]
	return code, false, ok
}

type keyboard struct {
	once sync.Once
	kb   keybd_event.KeyBonding
	err  error
}

// init is lazy so that a headless run never touches the input subsystem.
func (k *keyboard) init() error {
	k.once.Do(func() {
		k.kb, k.err = keybd_event.NewKeyBonding()
		if k.err == nil && settleTime > 0 {
			time.Sleep(settleTime)
		}
	})
	return k.err
}

func (k *keyboard) press(code int, shift, chord bool) error {
	if err := k.init(); err != nil {
		return err
	}
	k.kb.Clear()
	k.kb.SetKeys(code)
	k.kb.HasSHIFT(shift)
	if chord {
		pasteModifier(&k.kb)
	}
	return k.kb.Launching()
}

func (k *keyboard) Tap(code int, shift bool) error { return k.press(code, shift, false) }

func (k *keyboard) Paste() error { return k.press(keybd_event.VK_V, false, true) }

func (k *keyboard) Enter() error { return k.press(keybd_event.VK_ENTER, false, false) }

// Verify creates the key binding and reports whether it works.
func (k *keyboard) Verify() error { return k.init() }

type systemClipboard struct{}

func (systemClipboard) Read() (string, error) { return cb.ReadAll() }
func (systemClipboard) Write(s string) error  { return cb.WriteAll(s) }

// NewSystem returns an injector backed by the OS keyboard and clipboard.
func NewSystem(mode Mode) *Injector {
	return New(mode, &keyboard{}, systemClipboard{})
}

// Verify checks that synthetic key events can be sent.
func Verify() error {
	return (&keyboard{}).Verify()
}
