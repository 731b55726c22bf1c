//go:build !linux

package input

import (
	"context"
	"errors"

	"github.com/kstaniek/go-corenet/internal/protocol"
)

// errUnsupportedPlatform is returned by the non-Linux capture/inject
// backends; CoreNet's native platform backend is evdev/uinput-based today.
var errUnsupportedPlatform = errors.New("input: no capture/injection backend for this platform")

// UnsupportedCapture satisfies Capture on platforms without a native
// backend, so the rest of the module still links. Init, Start, Stop and
// SetSuppress fail; the state getters return empty state and Shutdown
// returns nil.
type UnsupportedCapture struct{}

// NewPlatformCapture returns the native backend for the current platform.
func NewPlatformCapture() Capture { return &UnsupportedCapture{} }

func (*UnsupportedCapture) Init() error { return errUnsupportedPlatform }
func (*UnsupportedCapture) Start(_ context.Context) (<-chan Event, error) {
	return nil, errUnsupportedPlatform
}
func (*UnsupportedCapture) Stop() error                   { return errUnsupportedPlatform }
func (*UnsupportedCapture) SetSuppress(bool) error        { return errUnsupportedPlatform }
func (*UnsupportedCapture) MouseState() *MouseState       { return NewMouseState() }
func (*UnsupportedCapture) KeyboardState() *KeyboardState { return NewKeyboardState() }
func (*UnsupportedCapture) Shutdown() error               { return nil }

var _ Capture = (*UnsupportedCapture)(nil)

// UnsupportedInjector satisfies Injector on platforms without a native
// backend. Init and every injection call fail; the state getters return
// empty state and Shutdown returns nil.
type UnsupportedInjector struct{}

// NewPlatformInjector returns the native backend for the current platform.
func NewPlatformInjector() Injector { return &UnsupportedInjector{} }

func (*UnsupportedInjector) Init() error                                 { return errUnsupportedPlatform }
func (*UnsupportedInjector) Shutdown() error                             { return nil }
func (*UnsupportedInjector) MouseMoveRelative(dx, dy int32) error        { return errUnsupportedPlatform }
func (*UnsupportedInjector) MouseMoveAbsolute(x, y int32) error          { return errUnsupportedPlatform }
func (*UnsupportedInjector) MouseButton(_ protocol.MouseButton, _ bool) error {
	return errUnsupportedPlatform
}
func (*UnsupportedInjector) MouseScroll(dx, dy int32) error { return errUnsupportedPlatform }
func (*UnsupportedInjector) KeyDown(code Keycode, mods protocol.Modifiers) error {
	return errUnsupportedPlatform
}
func (*UnsupportedInjector) KeyUp(code Keycode, mods protocol.Modifiers) error {
	return errUnsupportedPlatform
}
func (*UnsupportedInjector) TypeChar(r rune) error          { return errUnsupportedPlatform }
func (*UnsupportedInjector) TypeString(s string) error      { return errUnsupportedPlatform }
func (*UnsupportedInjector) MouseState() *MouseState        { return NewMouseState() }
func (*UnsupportedInjector) KeyboardState() *KeyboardState  { return NewKeyboardState() }

var _ Injector = (*UnsupportedInjector)(nil)
