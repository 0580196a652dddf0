package hotkey

import "golang.design/x/hotkey"

var platformModifiers = map[string]hotkey.Modifier{
	modCtrl:  hotkey.ModCtrl,
	modShift: hotkey.ModShift,
	modAlt:   hotkey.ModOption,
	modSuper: hotkey.ModCmd,
}
