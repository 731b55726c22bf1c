//go:build linux

package input

// evdevToHIDTable maps the native Linux key scancodes (linux/input-event-codes.h
// KEY_* constants) this backend reads off /dev/input/eventN to the HID
// keycodes used everywhere else in this package and on the wire. hidToEvdev
// is built from the same table so the two directions never drift apart.
var evdevToHIDTable = map[uint16]Keycode{
	30: KeyA, 48: KeyB, 46: KeyC, 32: KeyD, 18: KeyE, 33: KeyF, 34: KeyG,
	35: KeyH, 23: KeyI, 36: KeyJ, 37: KeyK, 38: KeyL, 50: KeyM, 49: KeyN,
	24: KeyO, 25: KeyP, 16: KeyQ, 19: KeyR, 31: KeyS, 20: KeyT, 22: KeyU,
	47: KeyV, 17: KeyW, 45: KeyX, 21: KeyY, 44: KeyZ,

	2: Key1, 3: Key2, 4: Key3, 5: Key4, 6: Key5,
	7: Key6, 8: Key7, 9: Key8, 10: Key9, 11: Key0,

	28: KeyEnter, 1: KeyEscape, 14: KeyBackspace, 15: KeyTab, 57: KeySpace,
	12: KeyMinus, 13: KeyEquals, 26: KeyLeftBrace, 27: KeyRightBrace,
	43: KeyBackslash, 39: KeySemicolon, 40: KeyApostrophe, 41: KeyGrave,
	51: KeyComma, 52: KeyPeriod, 53: KeySlash, 58: KeyCapsLock,

	59: KeyF1, 60: KeyF2, 61: KeyF3, 62: KeyF4, 63: KeyF5, 64: KeyF6,
	65: KeyF7, 66: KeyF8, 67: KeyF9, 68: KeyF10, 87: KeyF11, 88: KeyF12,

	99: KeyPrintScreen, 70: KeyScrollLock, 119: KeyPause,
	110: KeyInsert, 102: KeyHome, 104: KeyPageUp, 111: KeyDelete,
	107: KeyEnd, 109: KeyPageDown,

	106: KeyRight, 105: KeyLeft, 108: KeyDown, 103: KeyUp,

	29: KeyLeftCtrl, 42: KeyLeftShift, 56: KeyLeftAlt, 125: KeyLeftMeta,
	97: KeyRightCtrl, 54: KeyRightShift, 100: KeyRightAlt, 126: KeyRightMeta,
}

var hidToEvdevTable = func() map[Keycode]uint16 {
	t := make(map[Keycode]uint16, len(evdevToHIDTable))
	for native, hid := range evdevToHIDTable {
		t[hid] = native
	}
	return t
}()

// evdevToHID translates a raw KEY_* scancode into its HID keycode. ok is
// false for scancodes this table doesn't carry (mouse buttons and keys
// outside the mapped set), which the caller should not forward.
func evdevToHID(code uint16) (Keycode, bool) {
	hid, ok := evdevToHIDTable[code]
	return hid, ok
}

// hidToEvdev is the inverse of evdevToHID, used when injecting a keycode
// that arrived over the wire back onto the uinput virtual keyboard.
func hidToEvdev(code Keycode) (uint16, bool) {
	native, ok := hidToEvdevTable[code]
	return native, ok
}
