package input

import (
	"context"
	"sync"
	"time"

	"github.com/kstaniek/go-corenet/internal/protocol"
)

// FakeCapture is an in-memory Capture backend: tests call Inject to push an
// Event as though a device had produced it.
type FakeCapture struct {
	mu         sync.Mutex
	ch         chan Event
	started    bool
	suppressed bool

	mouseState *MouseState
	kbdState   *KeyboardState
}

// NewFakeCapture returns a ready-to-use FakeCapture.
func NewFakeCapture() *FakeCapture {
	return &FakeCapture{mouseState: NewMouseState(), kbdState: NewKeyboardState()}
}

var (
	_ Capture  = (*FakeCapture)(nil)
	_ Injector = (*FakeInjector)(nil)
)

func (f *FakeCapture) Init() error { return nil }

func (f *FakeCapture) Start(ctx context.Context) (<-chan Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		return nil, ErrAlreadyStarted
	}
	f.started = true
	f.ch = make(chan Event, 256)
	go func() {
		<-ctx.Done()
		f.mu.Lock()
		if f.ch != nil {
			close(f.ch)
			f.ch = nil
		}
		f.started = false
		f.mu.Unlock()
	}()
	return f.ch, nil
}

func (f *FakeCapture) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ch != nil {
		close(f.ch)
		f.ch = nil
	}
	f.started = false
	return nil
}

func (f *FakeCapture) SetSuppress(suppressed bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.suppressed = suppressed
	return nil
}

func (f *FakeCapture) IsSuppressed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.suppressed
}

func (f *FakeCapture) MouseState() *MouseState       { return f.mouseState }
func (f *FakeCapture) KeyboardState() *KeyboardState { return f.kbdState }

func (f *FakeCapture) Shutdown() error { return f.Stop() }

// Inject delivers ev on the capture channel as though a device produced
// it. It blocks briefly if the channel is full; callers are expected to
// be tests driving a handful of events, not a production load generator.
func (f *FakeCapture) Inject(ev Event) bool {
	f.mu.Lock()
	ch := f.ch
	f.mu.Unlock()
	if ch == nil {
		return false
	}
	select {
	case ch <- ev:
		return true
	case <-time.After(time.Second):
		return false
	}
}

// FakeInjector records every call it receives instead of touching any
// real device, so control-layer tests can assert on exactly what was
// injected.
type FakeInjector struct {
	mu    sync.Mutex
	Calls []string

	mouseState *MouseState
	kbdState   *KeyboardState
}

// NewFakeInjector returns a ready-to-use FakeInjector.
func NewFakeInjector() *FakeInjector {
	return &FakeInjector{mouseState: NewMouseState(), kbdState: NewKeyboardState()}
}

func (f *FakeInjector) record(call string) {
	f.mu.Lock()
	f.Calls = append(f.Calls, call)
	f.mu.Unlock()
}

func (f *FakeInjector) Init() error     { f.record("init"); return nil }
func (f *FakeInjector) Shutdown() error { f.record("shutdown"); return nil }

func (f *FakeInjector) MouseMoveRelative(dx, dy int32) error {
	f.record("move_relative")
	return nil
}

func (f *FakeInjector) MouseMoveAbsolute(x, y int32) error {
	f.record("move_absolute")
	return nil
}

func (f *FakeInjector) MouseButton(button protocol.MouseButton, pressed bool) error {
	f.record("mouse_button")
	f.mouseState.SetButton(button, pressed)
	return nil
}

func (f *FakeInjector) MouseScroll(dx, dy int32) error {
	f.record("mouse_scroll")
	return nil
}

func (f *FakeInjector) KeyDown(code Keycode, mods protocol.Modifiers) error {
	f.record("key_down")
	f.kbdState.KeyDown(code)
	return nil
}

func (f *FakeInjector) KeyUp(code Keycode, mods protocol.Modifiers) error {
	f.record("key_up")
	f.kbdState.KeyUp(code)
	return nil
}

func (f *FakeInjector) TypeChar(r rune) error {
	f.record("type_char")
	return nil
}

func (f *FakeInjector) TypeString(s string) error {
	f.record("type_string")
	return nil
}

func (f *FakeInjector) MouseState() *MouseState       { return f.mouseState }
func (f *FakeInjector) KeyboardState() *KeyboardState { return f.kbdState }
