package input

import "github.com/kstaniek/go-corenet/internal/protocol"

// Injector synthesizes local input device activity on behalf of a remote
// peer. Every method is expected to be safe to call from the connection's
// pump goroutine, so implementations must serialize access to any shared
// device handle internally.
type Injector interface {
	Init() error
	Shutdown() error

	MouseMoveRelative(dx, dy int32) error
	MouseMoveAbsolute(x, y int32) error
	MouseButton(button protocol.MouseButton, pressed bool) error
	MouseScroll(dx, dy int32) error

	KeyDown(code Keycode, mods protocol.Modifiers) error
	KeyUp(code Keycode, mods protocol.Modifiers) error
	// TypeChar synthesizes a full keydown/keyup for a single printable
	// character, resolving it to a keycode (plus shift, where needed)
	// itself rather than requiring the caller to know the layout.
	TypeChar(r rune) error
	// TypeString is a convenience wrapper calling TypeChar for every rune
	// in s, stopping at the first error.
	TypeString(s string) error

	MouseState() *MouseState
	KeyboardState() *KeyboardState
}
