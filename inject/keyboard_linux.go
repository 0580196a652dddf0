//go:build linux

package inject

import (
	"time"

	"github.com/micmonay/keybd_event"
)

// The uinput device must be registered by the desktop before its first
// events are delivered.
const settleTime = 2 * time.Second

func pasteModifier(kb *keybd_event.KeyBonding) { kb.HasCTRL(true) }
