//go:build linux

package input

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/kstaniek/go-corenet/internal/protocol"
)

const eviocgrab = 0x40044590

var (
	_ Capture  = (*LinuxCapture)(nil)
	_ Injector = (*LinuxInjector)(nil)
)

// LinuxCapture reads raw input_event records off every /dev/input/eventN
// device it can open, the same way it would see them if no software KVM
// were involved, and can EVIOCGRAB them to stop the local desktop from
// also seeing the activity while a remote peer is driving the cursor.
type LinuxCapture struct {
	mu        sync.Mutex
	devices   []*os.File
	cancel    context.CancelFunc
	suppressed atomic.Bool
	started   atomic.Bool

	mouseState *MouseState
	kbdState   *KeyboardState

	cursorX atomic.Int32
	cursorY atomic.Int32
}

// NewLinuxCapture returns an uninitialized capture backend.
func NewLinuxCapture() *LinuxCapture {
	return &LinuxCapture{mouseState: NewMouseState(), kbdState: NewKeyboardState()}
}

func (c *LinuxCapture) Init() error {
	matches, err := filepath.Glob("/dev/input/event*")
	if err != nil {
		return fmt.Errorf("glob /dev/input: %w", err)
	}
	if len(matches) == 0 {
		return ErrDeviceNotFound
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, path := range matches {
		f, err := os.OpenFile(path, os.O_RDWR, 0)
		if err != nil {
			continue // skip devices we can't open; not every eventN is a keyboard/mouse
		}
		c.devices = append(c.devices, f)
	}
	if len(c.devices) == 0 {
		return ErrPermissionDenied
	}
	return nil
}

func (c *LinuxCapture) Start(ctx context.Context) (<-chan Event, error) {
	if !c.started.CompareAndSwap(false, true) {
		return nil, ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	devices := append([]*os.File(nil), c.devices...)
	c.mu.Unlock()

	out := make(chan Event, 256)
	var wg sync.WaitGroup
	for _, dev := range devices {
		wg.Add(1)
		go func(f *os.File) {
			defer wg.Done()
			c.readLoop(ctx, f, out)
		}(dev)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out, nil
}

func (c *LinuxCapture) readLoop(ctx context.Context, f *os.File, out chan<- Event) {
	var buf [unsafe.Sizeof(inputEvent{})]byte
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n, err := f.Read(buf[:])
		if err != nil || n != len(buf) {
			return
		}
		ev := (*inputEvent)(unsafe.Pointer(&buf[0]))
		if e, ok := c.translate(*ev); ok {
			select {
			case out <- e:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (c *LinuxCapture) translate(ev inputEvent) (Event, bool) {
	now := time.Now()
	switch ev.Type {
	case evRel:
		switch ev.Code {
		case relX:
			x := c.cursorX.Add(ev.Value)
			return NewMouseMoveEventAbsolute(now, ev.Value, 0, x, c.cursorY.Load()), true
		case relY:
			y := c.cursorY.Add(ev.Value)
			return NewMouseMoveEventAbsolute(now, 0, ev.Value, c.cursorX.Load(), y), true
		case relWheel:
			return NewMouseScrollEvent(now, 0, ev.Value), true
		}
	case evKey:
		pressed := ev.Value != 0
		if btn, ok := mouseButtonFromCode(uint16(ev.Code)); ok {
			c.mouseState.SetButton(btn, pressed)
			return NewMouseButtonEvent(now, btn, pressed, c.cursorX.Load(), c.cursorY.Load()), true
		}
		code, ok := evdevToHID(uint16(ev.Code))
		if !ok {
			return nil, false
		}
		if pressed {
			c.kbdState.KeyDown(code)
		} else {
			c.kbdState.KeyUp(code)
		}
		return NewKeyboardEvent(now, code, pressed, 0, c.kbdState.Modifiers()), true
	}
	return nil, false
}

func mouseButtonFromCode(code uint16) (protocol.MouseButton, bool) {
	switch code {
	case btnLeft:
		return protocol.MouseButtonLeft, true
	case btnRight:
		return protocol.MouseButtonRight, true
	case btnMiddle:
		return protocol.MouseButtonMiddle, true
	case btnSide:
		return protocol.MouseButtonButton4, true
	case btnExtra:
		return protocol.MouseButtonButton5, true
	}
	return 0, false
}

func (c *LinuxCapture) Stop() error {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	c.started.Store(false)
	if c.suppressed.Load() {
		return c.SetSuppress(false)
	}
	return nil
}

func (c *LinuxCapture) SetSuppress(suppressed bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range c.devices {
		arg := 0
		if suppressed {
			arg = 1
		}
		if err := ioctl(f, eviocgrab, uintptr(arg)); err != nil {
			// Not every device grabs cleanly (pseudo-devices, etc.);
			// continue so one uncooperative device doesn't block the rest.
			continue
		}
	}
	c.suppressed.Store(suppressed)
	return nil
}

func (c *LinuxCapture) MouseState() *MouseState       { return c.mouseState }
func (c *LinuxCapture) KeyboardState() *KeyboardState { return c.kbdState }

func (c *LinuxCapture) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for _, f := range c.devices {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.devices = nil
	return firstErr
}
