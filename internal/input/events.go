package input

import (
	"time"

	"github.com/kstaniek/go-corenet/internal/protocol"
)

// Event is the sealed set of raw samples an InputCapture backend emits.
// The control layer is the only consumer that interprets these; to a
// capture backend they are opaque values to produce, not act on.
type Event interface {
	isEvent()
	Timestamp() time.Time
}

type baseEvent struct{ At time.Time }

func (b baseEvent) Timestamp() time.Time { return b.At }

// MouseMoveEvent carries both the relative delta (always present, and
// authoritative on the wire) and the absolute position if the backend can
// report one (evdev mice generally cannot; a platform backend that
// composites multiple devices or reads from an absolute pointer can set
// HasAbsolute).
type MouseMoveEvent struct {
	baseEvent
	DX, DY      int32
	X, Y        int32
	HasAbsolute bool
}

func (MouseMoveEvent) isEvent() {}

// MouseButtonEvent carries a single button's press/release transition
// plus the cursor position at the time of the click.
type MouseButtonEvent struct {
	baseEvent
	Button  protocol.MouseButton
	Pressed bool
	X, Y    int32
}

func (MouseButtonEvent) isEvent() {}

// MouseScrollEvent carries a wheel delta.
type MouseScrollEvent struct {
	baseEvent
	DX, DY int32
}

func (MouseScrollEvent) isEvent() {}

// KeyboardEvent carries a single key's press/release transition plus the
// modifier state in effect when it occurred, so a capture backend never
// has to be consulted twice for the same physical keystroke.
type KeyboardEvent struct {
	baseEvent
	Keycode   Keycode
	Pressed   bool
	Character rune // 0 if the key has no printable character
	Modifiers protocol.Modifiers
}

func (KeyboardEvent) isEvent() {}

// NewMouseMoveEvent, NewMouseButtonEvent, NewMouseScrollEvent, and
// NewKeyboardEvent stamp an event with the given time, so capture
// backends don't each need to build baseEvent by hand.

func NewMouseMoveEvent(at time.Time, dx, dy int32) MouseMoveEvent {
	return MouseMoveEvent{baseEvent: baseEvent{at}, DX: dx, DY: dy}
}

// NewMouseMoveEventAbsolute is NewMouseMoveEvent plus a reported absolute
// position.
func NewMouseMoveEventAbsolute(at time.Time, dx, dy, x, y int32) MouseMoveEvent {
	return MouseMoveEvent{baseEvent: baseEvent{at}, DX: dx, DY: dy, X: x, Y: y, HasAbsolute: true}
}

func NewMouseButtonEvent(at time.Time, button protocol.MouseButton, pressed bool, x, y int32) MouseButtonEvent {
	return MouseButtonEvent{baseEvent: baseEvent{at}, Button: button, Pressed: pressed, X: x, Y: y}
}

func NewMouseScrollEvent(at time.Time, dx, dy int32) MouseScrollEvent {
	return MouseScrollEvent{baseEvent{at}, dx, dy}
}

func NewKeyboardEvent(at time.Time, keycode Keycode, pressed bool, character rune, mods protocol.Modifiers) KeyboardEvent {
	return KeyboardEvent{baseEvent{at}, keycode, pressed, character, mods}
}

// MouseState tracks which mouse buttons are currently held, so a backend
// or the control layer can answer "is button X down" without replaying
// history.
type MouseState struct {
	buttons map[protocol.MouseButton]bool
}

// NewMouseState returns an empty MouseState.
func NewMouseState() *MouseState {
	return &MouseState{buttons: make(map[protocol.MouseButton]bool)}
}

func (s *MouseState) SetButton(button protocol.MouseButton, pressed bool) {
	if pressed {
		s.buttons[button] = true
	} else {
		delete(s.buttons, button)
	}
}

func (s *MouseState) IsButtonPressed(button protocol.MouseButton) bool {
	return s.buttons[button]
}

// KeyboardState tracks which keys are currently held.
type KeyboardState struct {
	keys map[Keycode]bool
}

// NewKeyboardState returns an empty KeyboardState.
func NewKeyboardState() *KeyboardState {
	return &KeyboardState{keys: make(map[Keycode]bool)}
}

func (s *KeyboardState) KeyDown(code Keycode) { s.keys[code] = true }
func (s *KeyboardState) KeyUp(code Keycode)   { delete(s.keys, code) }

func (s *KeyboardState) IsKeyPressed(code Keycode) bool { return s.keys[code] }

// AnyPressed reports whether at least one key is currently held.
func (s *KeyboardState) AnyPressed() bool { return len(s.keys) > 0 }

// Modifiers snapshots which of the eight modifier keys are currently held.
// CapsLock reflects the physical key being held, not lock-toggle state,
// since no backend in this package tracks LED/toggle state. NumLock is
// always false: this package defines no NumLock keycode to track.
func (s *KeyboardState) Modifiers() protocol.Modifiers {
	return protocol.Modifiers{
		Shift:    s.IsKeyPressed(KeyLeftShift) || s.IsKeyPressed(KeyRightShift),
		Ctrl:     s.IsKeyPressed(KeyLeftCtrl) || s.IsKeyPressed(KeyRightCtrl),
		Alt:      s.IsKeyPressed(KeyLeftAlt) || s.IsKeyPressed(KeyRightAlt),
		Meta:     s.IsKeyPressed(KeyLeftMeta) || s.IsKeyPressed(KeyRightMeta),
		CapsLock: s.IsKeyPressed(KeyCapsLock),
	}
}
