// Package control implements the two roles that wire every other package
// together: Controller drives a primary host (owns the server, the local
// edge detector, and the capture device), Follower drives a secondary
// host (owns the client and the injector). Both are plain structs with no
// exported concurrency of their own — callers pump capture/server/client
// events into them from whatever goroutine already owns those channels.
package control

import (
	"log/slog"
	"net"
	"sync"

	"github.com/kstaniek/go-corenet/internal/input"
	"github.com/kstaniek/go-corenet/internal/logging"
	"github.com/kstaniek/go-corenet/internal/netserver"
	"github.com/kstaniek/go-corenet/internal/protocol"
	"github.com/kstaniek/go-corenet/internal/registry"
	"github.com/kstaniek/go-corenet/internal/screen"
)

// ControlOwner identifies who currently receives captured input.
type ControlOwner int

const (
	// OwnerLocal means the primary's own desktop receives input.
	OwnerLocal ControlOwner = iota
	// OwnerRemote means a peer, identified by Controller.remotePeer, does.
	OwnerRemote
)

// Controller composes capture, the server, the screen layout, and the
// local edge detector into the primary-host control-transfer state
// machine described by the project's control-transfer design.
type Controller struct {
	mu sync.Mutex

	capture  input.Capture
	injector input.Injector
	server   *netserver.Server
	layout   *screen.Layout
	detector *screen.EdgeDetector
	logger   *slog.Logger

	owner      ControlOwner
	remoteAddr net.Addr

	width, height uint32
}

// New constructs a Controller. capture and injector may be platform
// backends or input.FakeCapture/FakeInjector in tests. The injector is
// used only to reposition the local cursor when a peer hands control
// back; normal operation while OwnerLocal never touches it.
func New(capture input.Capture, injector input.Injector, server *netserver.Server, layout *screen.Layout, width, height uint32) *Controller {
	return &Controller{
		capture:  capture,
		injector: injector,
		server:   server,
		layout:   layout,
		detector: screen.New(screen.DefaultConfig(), width, height),
		logger:   logging.L(),
		owner:    OwnerLocal,
		width:    width,
		height:   height,
	}
}

// Owner reports who currently owns captured input.
func (c *Controller) Owner() ControlOwner {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owner
}

// HandleCaptureEvent processes one locally captured input event: while
// OwnerLocal it watches for an edge transition that hands control away;
// while OwnerRemote it forwards the event to the current peer. It is
// meant to be called, in order, for every input.Event the capture backend
// produces.
func (c *Controller) HandleCaptureEvent(ev input.Event) {
	c.mu.Lock()
	owner := c.owner
	remoteAddr := c.remoteAddr
	c.mu.Unlock()

	if owner == OwnerLocal {
		mv, ok := ev.(input.MouseMoveEvent)
		if !ok || !mv.HasAbsolute {
			return // local continues to receive everything else naturally
		}
		c.handleLocalMouseMove(mv)
		return
	}

	// OwnerRemote: translate and forward.
	msg := eventToMessage(ev)
	if msg == nil {
		return
	}
	if err := c.server.SendTo(remoteAddr, msg); err != nil {
		c.logger.Warn("remote_peer_vanished", "addr", remoteAddr, "error", err)
		c.revertToLocal()
	}
}

// handleLocalMouseMove feeds the current absolute position through the
// edge detector and, on a Transition, hands control to the neighboring
// peer.
func (c *Controller) handleLocalMouseMove(mv input.MouseMoveEvent) {
	result := c.detector.Check(mv.X, mv.Y, mv.Timestamp())
	tr, ok := result.(screen.Transition)
	if !ok {
		return
	}

	peer, found := c.findPeerOnEdge(tr.Edge)
	if !found {
		return
	}

	if err := c.server.SendTo(peer.Addr, protocol.EnterScreen{Edge: tr.Edge.Opposite(), Position: tr.Position}); err != nil {
		c.logger.Warn("enter_screen_send_failed", "addr", peer.Addr, "error", err)
		return
	}
	if err := c.capture.SetSuppress(true); err != nil {
		c.logger.Warn("suppress_failed", "error", err)
	}

	c.mu.Lock()
	c.owner = OwnerRemote
	c.remoteAddr = peer.Addr
	c.mu.Unlock()
	c.detector.Reset()

	c.logger.Info("cursor_moved_to_peer", "host_id", peer.ScreenInfo.HostID, "addr", peer.Addr)
}

// findPeerOnEdge looks up the layout neighbor on edge, falling back to
// registry.FirstOnEdge (any one registered peer; the only one in the
// two-host case) if the layout has no configured neighbor.
func (c *Controller) findPeerOnEdge(edge protocol.ScreenEdge) (*registry.Peer, bool) {
	local, ok := c.layout.LocalHost()
	if ok {
		if node, ok := c.layout.GetNeighbor(local.HostID, edge); ok {
			if peer, ok := c.server.Registry.Get(peerAddrForHost(c.server, node.HostID)); ok {
				return peer, true
			}
		}
	}
	return c.server.Registry.FirstOnEdge()
}

func peerAddrForHost(server *netserver.Server, hostID string) net.Addr {
	for _, p := range server.Registry.Snapshot() {
		if p.ScreenInfo.HostID == hostID {
			return p.Addr
		}
	}
	return nil
}

// HandleServerEvent reacts to a LeaveScreen arriving from the peer
// currently in control, handing control back to the local desktop.
// Every other message is out of scope for the controller (clipboard and
// similar concerns handle themselves).
func (c *Controller) HandleServerEvent(ev netserver.Event) {
	mr, ok := ev.(netserver.EventMessageReceived)
	if !ok {
		return
	}
	leave, ok := mr.Message.(protocol.LeaveScreen)
	if !ok {
		return // clipboard and other out-of-scope messages ignored here
	}

	c.mu.Lock()
	if c.owner != OwnerRemote || mr.Addr != c.remoteAddr {
		c.mu.Unlock()
		return
	}
	c.owner = OwnerLocal
	c.remoteAddr = nil
	c.mu.Unlock()

	if err := c.capture.SetSuppress(false); err != nil {
		c.logger.Warn("unsuppress_failed", "error", err)
	}

	// The cursor re-enters the primary from the edge mirror-opposite of
	// the one the peer left.
	x, y := screen.Denormalize(leave.Edge.Opposite(), leave.Position, c.width, c.height)
	if err := c.injector.MouseMoveAbsolute(x, y); err != nil {
		c.logger.Warn("cursor_reposition_failed", "error", err)
	}
	c.detector.Reset()
	c.logger.Info("cursor_returned_to_local", "x", x, "y", y)
}

func (c *Controller) revertToLocal() {
	c.mu.Lock()
	c.owner = OwnerLocal
	c.remoteAddr = nil
	c.mu.Unlock()
	if err := c.capture.SetSuppress(false); err != nil {
		c.logger.Warn("unsuppress_failed", "error", err)
	}
}

// eventToMessage translates a captured local event into the wire message
// forwarded to whichever peer currently has control.
func eventToMessage(ev input.Event) protocol.Message {
	switch e := ev.(type) {
	case input.MouseMoveEvent:
		return protocol.MouseMoveRelative{DX: e.DX, DY: e.DY}
	case input.MouseButtonEvent:
		return protocol.MouseButtonMsg{Button: e.Button, Pressed: e.Pressed}
	case input.MouseScrollEvent:
		return protocol.MouseScroll{DX: e.DX, DY: e.DY}
	case input.KeyboardEvent:
		if e.Pressed {
			return protocol.KeyDown{Keycode: uint32(e.Keycode), Character: e.Character, Modifiers: e.Modifiers}
		}
		return protocol.KeyUp{Keycode: uint32(e.Keycode), Modifiers: e.Modifiers}
	default:
		return nil
	}
}
