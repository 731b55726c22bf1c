//go:build linux

package input

import (
	"os"
	"sync"

	"github.com/kstaniek/go-corenet/internal/protocol"
)

// LinuxInjector synthesizes input via the kernel's uinput virtual device,
// so CoreNet appears as an ordinary mouse/keyboard to every other
// consumer on the secondary host.
type LinuxInjector struct {
	mu      sync.Mutex
	mouseFd *os.File
	kbdFd   *os.File

	mouseState *MouseState
	kbdState   *KeyboardState
}

// NewLinuxInjector returns an uninitialized injector; call Init before use.
func NewLinuxInjector() *LinuxInjector {
	return &LinuxInjector{mouseState: NewMouseState(), kbdState: NewKeyboardState()}
}

func (inj *LinuxInjector) Init() error {
	inj.mu.Lock()
	defer inj.mu.Unlock()

	mouseFd, err := openUinput("corenet-mouse", []uint16{btnLeft, btnRight, btnMiddle, btnSide, btnExtra}, []uint16{relX, relY, relWheel})
	if err != nil {
		return err
	}
	kbdFd, err := openUinput("corenet-keyboard", allKeyboardBits(), nil)
	if err != nil {
		_ = closeUinput(mouseFd)
		return err
	}
	inj.mouseFd = mouseFd
	inj.kbdFd = kbdFd
	return nil
}

func (inj *LinuxInjector) Shutdown() error {
	inj.mu.Lock()
	defer inj.mu.Unlock()
	var firstErr error
	if inj.mouseFd != nil {
		if err := closeUinput(inj.mouseFd); err != nil {
			firstErr = err
		}
		inj.mouseFd = nil
	}
	if inj.kbdFd != nil {
		if err := closeUinput(inj.kbdFd); err != nil && firstErr == nil {
			firstErr = err
		}
		inj.kbdFd = nil
	}
	return firstErr
}

func (inj *LinuxInjector) MouseMoveRelative(dx, dy int32) error {
	inj.mu.Lock()
	defer inj.mu.Unlock()
	if err := writeEvent(inj.mouseFd, evRel, relX, dx); err != nil {
		return err
	}
	if err := writeEvent(inj.mouseFd, evRel, relY, dy); err != nil {
		return err
	}
	return writeSync(inj.mouseFd)
}

// MouseMoveAbsolute is approximated with relative motion, since the virtual
// device is registered relative-only: the pointer is first pushed into the
// top-left corner by a large negative move, then moved by (x, y) from there.
// Pointer acceleration on the host can make the final position inexact.
func (inj *LinuxInjector) MouseMoveAbsolute(x, y int32) error {
	const home = 1 << 15
	if err := inj.MouseMoveRelative(-home, -home); err != nil {
		return err
	}
	return inj.MouseMoveRelative(x, y)
}

func mouseButtonCode(button protocol.MouseButton) uint16 {
	switch button {
	case protocol.MouseButtonLeft:
		return btnLeft
	case protocol.MouseButtonRight:
		return btnRight
	case protocol.MouseButtonMiddle:
		return btnMiddle
	case protocol.MouseButtonButton4:
		return btnSide
	default:
		return btnExtra
	}
}

func (inj *LinuxInjector) MouseButton(button protocol.MouseButton, pressed bool) error {
	inj.mu.Lock()
	defer inj.mu.Unlock()
	var v int32
	if pressed {
		v = 1
	}
	if err := writeEvent(inj.mouseFd, evKey, mouseButtonCode(button), v); err != nil {
		return err
	}
	if err := writeSync(inj.mouseFd); err != nil {
		return err
	}
	inj.mouseState.SetButton(button, pressed)
	return nil
}

func (inj *LinuxInjector) MouseScroll(dx, dy int32) error {
	inj.mu.Lock()
	defer inj.mu.Unlock()
	if err := writeEvent(inj.mouseFd, evRel, relWheel, dy); err != nil {
		return err
	}
	return writeSync(inj.mouseFd)
}

// setKeyLocked writes a single evKey event plus sync for code's native
// scancode; inj.mu must already be held. code outside the mapping table is
// silently dropped rather than erroring, matching the mouse-button
// translation's "unrecognized input is not this backend's problem" stance.
func (inj *LinuxInjector) setKeyLocked(code Keycode, value int32) error {
	native, ok := hidToEvdev(code)
	if !ok {
		return nil
	}
	if err := writeEvent(inj.kbdFd, evKey, native, value); err != nil {
		return err
	}
	return writeSync(inj.kbdFd)
}

// modifierKeycodes lists the held-key constants that actually need a
// synthetic keypress to make mods visible to the receiving application;
// CapsLock and NumLock are lock-toggle state on a real keyboard, not a
// key held for the chord's duration, so they're carried on the wire but
// not synthesized here.
func modifierKeycodes(mods protocol.Modifiers) []Keycode {
	var codes []Keycode
	if mods.Shift {
		codes = append(codes, KeyLeftShift)
	}
	if mods.Ctrl {
		codes = append(codes, KeyLeftCtrl)
	}
	if mods.Alt {
		codes = append(codes, KeyLeftAlt)
	}
	if mods.Meta {
		codes = append(codes, KeyLeftMeta)
	}
	return codes
}

// pressMissingModifiers presses any modifier in mods not already held
// (inj.mu must be held) and returns the subset it actually pressed, so the
// matching KeyUp can release only what it synthesized.
func (inj *LinuxInjector) pressMissingModifiers(mods protocol.Modifiers) []Keycode {
	var pressed []Keycode
	for _, m := range modifierKeycodes(mods) {
		if inj.kbdState.IsKeyPressed(m) {
			continue
		}
		if err := inj.setKeyLocked(m, 1); err != nil {
			continue
		}
		inj.kbdState.KeyDown(m)
		pressed = append(pressed, m)
	}
	return pressed
}

func (inj *LinuxInjector) releaseModifiers(codes []Keycode) {
	for _, m := range codes {
		_ = inj.setKeyLocked(m, 0)
		inj.kbdState.KeyUp(m)
	}
}

func (inj *LinuxInjector) KeyDown(code Keycode, mods protocol.Modifiers) error {
	inj.mu.Lock()
	defer inj.mu.Unlock()
	inj.pressMissingModifiers(mods)
	if err := inj.setKeyLocked(code, 1); err != nil {
		return err
	}
	inj.kbdState.KeyDown(code)
	return nil
}

func (inj *LinuxInjector) KeyUp(code Keycode, mods protocol.Modifiers) error {
	inj.mu.Lock()
	defer inj.mu.Unlock()
	if err := inj.setKeyLocked(code, 0); err != nil {
		return err
	}
	inj.kbdState.KeyUp(code)
	inj.releaseModifiers(modifierKeycodes(mods))
	return nil
}

func (inj *LinuxInjector) TypeChar(r rune) error {
	code, shifted, ok := runeToKeycode(r)
	if !ok {
		return nil // unmappable character, silently dropped
	}
	mods := protocol.Modifiers{Shift: shifted}
	if err := inj.KeyDown(code, mods); err != nil {
		return err
	}
	return inj.KeyUp(code, mods)
}

func (inj *LinuxInjector) TypeString(s string) error {
	for _, r := range s {
		if err := inj.TypeChar(r); err != nil {
			return err
		}
	}
	return nil
}

func (inj *LinuxInjector) MouseState() *MouseState       { return inj.mouseState }
func (inj *LinuxInjector) KeyboardState() *KeyboardState { return inj.kbdState }

// allKeyboardBits lists every native scancode the virtual keyboard should
// advertise support for, so the kernel accepts EV_KEY writes for any key
// this backend's HID↔native table knows how to translate.
func allKeyboardBits() []uint16 {
	bits := make([]uint16, 0, len(hidToEvdevTable))
	for _, native := range hidToEvdevTable {
		bits = append(bits, native)
	}
	return bits
}
