// Package screen implements the pure cursor/time state machine that turns
// raw (x, y) samples into edge-dwell and edge-crossing events, plus the
// directed-graph layout that maps a crossing to the neighboring host.
package screen

import (
	"time"

	"github.com/kstaniek/go-corenet/internal/protocol"
)

// EdgeMask is a bitmask of enabled screen edges.
type EdgeMask uint8

const (
	EdgeMaskNone   EdgeMask = 0
	EdgeMaskLeft   EdgeMask = 1 << 0
	EdgeMaskRight  EdgeMask = 1 << 1
	EdgeMaskTop    EdgeMask = 1 << 2
	EdgeMaskBottom EdgeMask = 1 << 3
	EdgeMaskAll    EdgeMask = EdgeMaskLeft | EdgeMaskRight | EdgeMaskTop | EdgeMaskBottom
)

func edgeBit(e protocol.ScreenEdge) EdgeMask {
	switch e {
	case protocol.EdgeLeft:
		return EdgeMaskLeft
	case protocol.EdgeRight:
		return EdgeMaskRight
	case protocol.EdgeTop:
		return EdgeMaskTop
	default:
		return EdgeMaskBottom
	}
}

func (m EdgeMask) Enabled(e protocol.ScreenEdge) bool     { return m&edgeBit(e) != 0 }
func (m EdgeMask) With(e protocol.ScreenEdge) EdgeMask    { return m | edgeBit(e) }
func (m EdgeMask) Without(e protocol.ScreenEdge) EdgeMask { return m &^ edgeBit(e) }

// Config parameterizes an EdgeDetector.
type Config struct {
	EdgeMargin        uint32
	DwellTimeMs       uint64
	RequireDoubleTap  bool
	DoubleTapWindowMs uint64
	EnabledEdges      EdgeMask
}

// DefaultConfig matches the instant-transition, all-edges default.
func DefaultConfig() Config {
	return Config{
		EdgeMargin:        1,
		DwellTimeMs:       0,
		RequireDoubleTap:  false,
		DoubleTapWindowMs: 500,
		EnabledEdges:      EdgeMaskAll,
	}
}

// Result is the sealed outcome of a single check() call.
type Result interface{ isResult() }

type NotAtEdge struct{}
type Dwelling struct {
	Edge        protocol.ScreenEdge
	RemainingMs uint64
}
type Transition struct {
	Edge     protocol.ScreenEdge
	Position float32
}

func (NotAtEdge) isResult()  {}
func (Dwelling) isResult()   {}
func (Transition) isResult() {}

type edgeState struct {
	touchStart time.Time
	lastTap    time.Time
}

// EdgeDetector is a pure, time-aware state machine: feed it cursor samples,
// it tells you when to hand off control. It carries no knowledge of input
// devices or the network.
type EdgeDetector struct {
	config Config
	width  uint32
	height uint32

	states      [4]edgeState
	hasCurrent  bool
	currentEdge protocol.ScreenEdge
}

// New constructs an EdgeDetector for a screen of the given dimensions.
func New(config Config, width, height uint32) *EdgeDetector {
	return &EdgeDetector{config: config, width: width, height: height}
}

// SetScreenSize updates the dimensions used for position normalization.
func (d *EdgeDetector) SetScreenSize(width, height uint32) {
	d.width = width
	d.height = height
}

func idx(e protocol.ScreenEdge) int { return int(e) }

// Check classifies the current cursor position and advances the state
// machine. See package screen's edge detector design for the exact
// classification and transition rules.
func (d *EdgeDetector) Check(x, y int32, now time.Time) Result {
	detected, ok := d.classify(x, y)

	switch {
	case d.hasCurrent && !ok:
		// Left the edge.
		i := idx(d.currentEdge)
		if d.config.RequireDoubleTap {
			d.states[i].lastTap = d.states[i].touchStart
		}
		d.states[i].touchStart = time.Time{}
		d.hasCurrent = false
		return NotAtEdge{}

	case !d.hasCurrent && ok:
		return d.onArrive(detected, x, y, now)

	case d.hasCurrent && ok && detected == d.currentEdge:
		return d.onDwell(detected, x, y, now)

	case d.hasCurrent && ok && detected != d.currentEdge:
		// Moved directly from one edge to another (corner case): start fresh.
		d.states = [4]edgeState{}
		d.hasCurrent = true
		d.currentEdge = detected
		d.states[idx(detected)].touchStart = now
		if d.config.DwellTimeMs == 0 {
			return Transition{Edge: detected, Position: d.position(detected, x, y)}
		}
		return Dwelling{Edge: detected, RemainingMs: d.config.DwellTimeMs}

	default: // !hasCurrent && !ok
		return NotAtEdge{}
	}
}

func (d *EdgeDetector) onArrive(edge protocol.ScreenEdge, x, y int32, now time.Time) Result {
	i := idx(edge)
	d.hasCurrent = true
	d.currentEdge = edge

	if d.config.RequireDoubleTap && !d.states[i].lastTap.IsZero() {
		elapsedMs := uint64(now.Sub(d.states[i].lastTap).Milliseconds())
		if elapsedMs > d.config.DoubleTapWindowMs {
			d.states[i].touchStart = now
			d.states[i].lastTap = time.Time{}
			return Dwelling{Edge: edge, RemainingMs: d.config.DwellTimeMs}
		}
		d.states[i].lastTap = time.Time{}
		return Transition{Edge: edge, Position: d.position(edge, x, y)}
	}

	d.states[i].touchStart = now
	if d.config.DwellTimeMs == 0 && !d.config.RequireDoubleTap {
		return Transition{Edge: edge, Position: d.position(edge, x, y)}
	}
	return Dwelling{Edge: edge, RemainingMs: d.config.DwellTimeMs}
}

func (d *EdgeDetector) onDwell(edge protocol.ScreenEdge, x, y int32, now time.Time) Result {
	i := idx(edge)
	if d.states[i].touchStart.IsZero() {
		return NotAtEdge{}
	}
	elapsedMs := uint64(now.Sub(d.states[i].touchStart).Milliseconds())
	if elapsedMs >= d.config.DwellTimeMs {
		return Transition{Edge: edge, Position: d.position(edge, x, y)}
	}
	return Dwelling{Edge: edge, RemainingMs: d.config.DwellTimeMs - elapsedMs}
}

func (d *EdgeDetector) classify(x, y int32) (protocol.ScreenEdge, bool) {
	margin := int32(d.config.EdgeMargin)
	w := int32(d.width)
	h := int32(d.height)

	switch {
	case x <= margin && d.config.EnabledEdges.Enabled(protocol.EdgeLeft):
		return protocol.EdgeLeft, true
	case x >= w-margin-1 && d.config.EnabledEdges.Enabled(protocol.EdgeRight):
		return protocol.EdgeRight, true
	case y <= margin && d.config.EnabledEdges.Enabled(protocol.EdgeTop):
		return protocol.EdgeTop, true
	case y >= h-margin-1 && d.config.EnabledEdges.Enabled(protocol.EdgeBottom):
		return protocol.EdgeBottom, true
	default:
		return 0, false
	}
}

func (d *EdgeDetector) position(edge protocol.ScreenEdge, x, y int32) float32 {
	var p float32
	switch edge {
	case protocol.EdgeLeft, protocol.EdgeRight:
		p = float32(y) / float32(d.height)
	default:
		p = float32(x) / float32(d.width)
	}
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// Denormalize maps an edge and a normalized position back to a pixel
// coordinate on a screen of the given dimensions — the inverse of
// position(), used by the receiving side of a transition.
func Denormalize(edge protocol.ScreenEdge, position float32, width, height uint32) (x, y int32) {
	switch edge {
	case protocol.EdgeLeft:
		return 0, int32(position * float32(height))
	case protocol.EdgeRight:
		return int32(width) - 1, int32(position * float32(height))
	case protocol.EdgeTop:
		return int32(position * float32(width)), 0
	default: // EdgeBottom
		return int32(position * float32(width)), int32(height) - 1
	}
}

// Reset clears all per-edge state and the current edge, so the next sample
// at an edge is treated as a fresh arrival (with the default config, an
// immediate Transition again). Callers call it after acting on a
// Transition.
func (d *EdgeDetector) Reset() {
	d.states = [4]edgeState{}
	d.hasCurrent = false
}

// CurrentEdge returns the edge the cursor currently occupies, if any.
func (d *EdgeDetector) CurrentEdge() (protocol.ScreenEdge, bool) {
	return d.currentEdge, d.hasCurrent
}
