//go:build windows

package inject

import "github.com/micmonay/keybd_event"

const settleTime = 0

func pasteModifier(kb *keybd_event.KeyBonding) { kb.HasCTRL(true) }
