package screen

import (
	"testing"
	"time"

	"github.com/kstaniek/go-corenet/internal/protocol"
)

// TestEdgeDetector_DwellThenTransition verifies that with a 100ms dwell
// configured, the first touch dwells and a touch after the dwell elapses
// transitions.
func TestEdgeDetector_DwellThenTransition(t *testing.T) {
	cfg := Config{EdgeMargin: 1, DwellTimeMs: 100, EnabledEdges: EdgeMaskAll}
	d := New(cfg, 1920, 1080)

	now := time.Now()
	r1 := d.Check(0, 500, now)
	dw, ok := r1.(Dwelling)
	if !ok || dw.Edge != protocol.EdgeLeft {
		t.Fatalf("expected Dwelling{Left,...}, got %#v", r1)
	}

	r2 := d.Check(0, 500, now.Add(150*time.Millisecond))
	tr, ok := r2.(Transition)
	if !ok || tr.Edge != protocol.EdgeLeft {
		t.Fatalf("expected Transition{Left,...}, got %#v", r2)
	}
	if tr.Position < 0.45 || tr.Position > 0.47 {
		t.Fatalf("unexpected position %v, want ~0.463", tr.Position)
	}
}

// TestEdgeDetector_DoubleTap verifies that a touch, a departure, then a
// re-touch within the double-tap window transitions immediately.
func TestEdgeDetector_DoubleTap(t *testing.T) {
	cfg := Config{EdgeMargin: 1, DwellTimeMs: 0, RequireDoubleTap: true, DoubleTapWindowMs: 500, EnabledEdges: EdgeMaskAll}
	d := New(cfg, 1920, 1080)

	now := time.Now()
	r1 := d.Check(0, 540, now)
	if _, ok := r1.(Dwelling); !ok {
		t.Fatalf("expected Dwelling, got %#v", r1)
	}

	r2 := d.Check(500, 540, now.Add(10*time.Millisecond))
	if _, ok := r2.(NotAtEdge); !ok {
		t.Fatalf("expected NotAtEdge, got %#v", r2)
	}

	r3 := d.Check(0, 540, now.Add(100*time.Millisecond))
	tr, ok := r3.(Transition)
	if !ok || tr.Edge != protocol.EdgeLeft {
		t.Fatalf("expected Transition{Left,...}, got %#v", r3)
	}
	if tr.Position != 0.5 {
		t.Fatalf("expected position 0.5, got %v", tr.Position)
	}
}

// TestEdgeDetector_DoubleTapTooSlowRestartsDwell verifies a re-touch outside
// the double-tap window starts a fresh dwell instead of transitioning.
func TestEdgeDetector_DoubleTapTooSlowRestartsDwell(t *testing.T) {
	cfg := Config{EdgeMargin: 1, DwellTimeMs: 0, RequireDoubleTap: true, DoubleTapWindowMs: 500, EnabledEdges: EdgeMaskAll}
	d := New(cfg, 1920, 1080)

	now := time.Now()
	d.Check(0, 540, now)
	d.Check(500, 540, now.Add(10*time.Millisecond))

	r3 := d.Check(0, 540, now.Add(600*time.Millisecond))
	if _, ok := r3.(Dwelling); !ok {
		t.Fatalf("expected Dwelling after slow re-touch, got %#v", r3)
	}
}

// TestEdgeDetector_ResetReArmsTransition verifies that Reset re-arms
// detection: with the instant-transition default, the next sample at the
// same edge after Reset is a fresh arrival and transitions again, and
// moving off the edge then reports NotAtEdge.
func TestEdgeDetector_ResetReArmsTransition(t *testing.T) {
	cfg := DefaultConfig()
	d := New(cfg, 1920, 1080)

	now := time.Now()
	r1 := d.Check(0, 500, now)
	if _, ok := r1.(Transition); !ok {
		t.Fatalf("expected instant Transition, got %#v", r1)
	}
	d.Reset()

	r2 := d.Check(0, 500, now.Add(time.Millisecond))
	if _, ok := r2.(Transition); !ok {
		t.Fatalf("expected Transition again after Reset, got %#v", r2)
	}

	r3 := d.Check(500, 500, now.Add(2*time.Millisecond))
	if _, ok := r3.(NotAtEdge); !ok {
		t.Fatalf("expected NotAtEdge after leaving, got %#v", r3)
	}
}

// TestEdgeDetector_CornerResetsToNewEdge verifies moving directly between
// two edges (a corner) restarts detection cleanly at the new edge.
func TestEdgeDetector_CornerResetsToNewEdge(t *testing.T) {
	cfg := Config{EdgeMargin: 1, DwellTimeMs: 50, EnabledEdges: EdgeMaskAll}
	d := New(cfg, 1920, 1080)

	now := time.Now()
	r1 := d.Check(0, 0, now) // Left wins priority at the corner
	if dw, ok := r1.(Dwelling); !ok || dw.Edge != protocol.EdgeLeft {
		t.Fatalf("expected Dwelling{Left,...}, got %#v", r1)
	}

	r2 := d.Check(960, 0, now.Add(time.Millisecond))
	if dw, ok := r2.(Dwelling); !ok || dw.Edge != protocol.EdgeTop {
		t.Fatalf("expected Dwelling{Top,...} after moving to the Top edge, got %#v", r2)
	}
}

// TestEdgeDetector_DisabledEdgeNeverFires verifies a disabled edge is
// treated as not-at-edge even when geometrically crossed.
func TestEdgeDetector_DisabledEdgeNeverFires(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnabledEdges = cfg.EnabledEdges.Without(protocol.EdgeLeft)
	d := New(cfg, 1920, 1080)

	if _, ok := d.Check(0, 500, time.Now()).(NotAtEdge); !ok {
		t.Fatalf("expected NotAtEdge for disabled Left edge")
	}
	if _, ok := d.Check(1919, 500, time.Now()).(Transition); !ok {
		t.Fatalf("expected Right edge to still fire")
	}
}

// TestDenormalizeRoundTrip is invariant 5: denormalize(position(x,y)) lies
// within 1 pixel of the original coordinate on the edge's varying axis.
func TestDenormalizeRoundTrip(t *testing.T) {
	d := New(DefaultConfig(), 1920, 1080)
	cases := []struct {
		edge protocol.ScreenEdge
		x, y int32
	}{
		{protocol.EdgeLeft, 0, 540},
		{protocol.EdgeRight, 1919, 270},
		{protocol.EdgeTop, 960, 0},
		{protocol.EdgeBottom, 480, 1079},
	}
	for _, c := range cases {
		pos := d.position(c.edge, c.x, c.y)
		rx, ry := Denormalize(c.edge, pos, 1920, 1080)
		switch c.edge {
		case protocol.EdgeLeft, protocol.EdgeRight:
			if abs32(ry-c.y) > 1 {
				t.Fatalf("edge %v: y round-trip off by >1px: got %d want %d", c.edge, ry, c.y)
			}
		default:
			if abs32(rx-c.x) > 1 {
				t.Fatalf("edge %v: x round-trip off by >1px: got %d want %d", c.edge, rx, c.x)
			}
		}
	}
}

func abs32(n int32) int32 {
	if n < 0 {
		return -n
	}
	return n
}
