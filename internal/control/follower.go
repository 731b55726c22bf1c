package control

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kstaniek/go-corenet/internal/asynctx"
	"github.com/kstaniek/go-corenet/internal/input"
	"github.com/kstaniek/go-corenet/internal/logging"
	"github.com/kstaniek/go-corenet/internal/netclient"
	"github.com/kstaniek/go-corenet/internal/protocol"
	"github.com/kstaniek/go-corenet/internal/screen"
)

// injectQueueSize bounds how many pending injector calls a Follower will
// queue before it starts dropping them; chosen generously since injection
// latency is normally microseconds and the controlling peer's message rate
// is bounded by human input speed.
const injectQueueSize = 256

// Follower composes the injector, the client, and a local edge detector
// into the secondary-host control-transfer state machine: it injects
// whatever the controlling peer sends and watches its own virtual cursor
// for the return crossing. Injector calls run on a dedicated goroutine via
// tx, so a slow or blocked platform backend never stalls the caller that
// drains client.Events() (which would otherwise delay heartbeat handling
// and the next inbound message).
type Follower struct {
	mu sync.Mutex

	injector input.Injector
	client   *netclient.Client
	detector *screen.EdgeDetector
	logger   *slog.Logger
	tx       *asynctx.AsyncTx

	hasControl bool
	entryEdge  protocol.ScreenEdge
	cursorX    int32
	cursorY    int32

	width, height uint32
}

// NewFollower constructs a Follower for a screen of the given dimensions.
func NewFollower(injector input.Injector, client *netclient.Client, width, height uint32) *Follower {
	logger := logging.L()
	f := &Follower{
		injector: injector,
		client:   client,
		detector: screen.New(screen.DefaultConfig(), width, height),
		logger:   logger,
		width:    width,
		height:   height,
	}
	f.tx = asynctx.New(context.Background(), injectQueueSize, asynctx.Hooks{
		OnError: func(err error) { logger.Warn("inject_failed", "error", err) },
		OnDrop:  func() error { logger.Warn("inject_queue_full"); return nil },
	})
	return f
}

// Close stops the injector dispatch goroutine. Safe to call once, after the
// client connection has been torn down.
func (f *Follower) Close() { f.tx.Close() }

// HasControl reports whether this host currently has input control.
func (f *Follower) HasControl() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hasControl
}

// HandleClientEvent processes one inbound message from the controlling
// peer.
func (f *Follower) HandleClientEvent(ev netclient.Event) {
	mr, ok := ev.(netclient.EventMessageReceived)
	if !ok {
		return
	}
	switch m := mr.Message.(type) {
	case protocol.EnterScreen:
		f.onEnterScreen(m)
	case protocol.MouseMoveRelative:
		f.onMouseMoveRelative(m)
	case protocol.MouseMoveAbsolute:
		f.forwardIfControlled(func() error { return f.injector.MouseMoveAbsolute(m.X, m.Y) })
	case protocol.MouseButtonMsg:
		f.forwardIfControlled(func() error { return f.injector.MouseButton(m.Button, m.Pressed) })
	case protocol.MouseScroll:
		f.forwardIfControlled(func() error { return f.injector.MouseScroll(m.DX, m.DY) })
	case protocol.KeyDown:
		f.forwardIfControlled(func() error { return f.injector.KeyDown(input.Keycode(m.Keycode), m.Modifiers) })
	case protocol.KeyUp:
		f.forwardIfControlled(func() error { return f.injector.KeyUp(input.Keycode(m.Keycode), m.Modifiers) })
	}
}

func (f *Follower) onEnterScreen(m protocol.EnterScreen) {
	x, y := screen.Denormalize(m.Edge, m.Position, f.width, f.height)
	if err := f.injector.MouseMoveAbsolute(x, y); err != nil {
		f.logger.Warn("enter_screen_inject_failed", "error", err)
	}

	f.mu.Lock()
	f.hasControl = true
	f.entryEdge = m.Edge
	f.cursorX = x
	f.cursorY = y
	f.mu.Unlock()
	f.detector.Reset()

	f.logger.Info("control_received", "edge", m.Edge, "x", x, "y", y)
}

func (f *Follower) onMouseMoveRelative(m protocol.MouseMoveRelative) {
	f.mu.Lock()
	if !f.hasControl {
		f.mu.Unlock()
		return
	}
	x := clamp(f.cursorX+m.DX, 0, int32(f.width)-1)
	y := clamp(f.cursorY+m.DY, 0, int32(f.height)-1)
	f.cursorX = x
	f.cursorY = y
	entryEdge := f.entryEdge
	f.mu.Unlock()

	dx, dy := m.DX, m.DY
	_ = f.tx.Submit(func() error { return f.injector.MouseMoveRelative(dx, dy) })

	result := f.detector.Check(x, y, time.Now())
	tr, ok := result.(screen.Transition)
	if !ok || tr.Edge != entryEdge {
		return
	}

	f.mu.Lock()
	f.hasControl = false
	f.mu.Unlock()

	if err := f.client.Send(protocol.LeaveScreen{Edge: tr.Edge, Position: tr.Position}); err != nil {
		f.logger.Warn("leave_screen_send_failed", "error", err)
	}
	f.detector.Reset()
	f.logger.Info("control_returned", "edge", tr.Edge, "position", tr.Position)
}

// forwardIfControlled submits fn to the injector dispatch goroutine only
// while this host has control, silently dropping the message otherwise.
func (f *Follower) forwardIfControlled(fn func() error) {
	if !f.HasControl() {
		return
	}
	_ = f.tx.Submit(fn)
}

func clamp(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
