package control

import (
	"testing"

	"github.com/kstaniek/go-corenet/internal/input"
	"github.com/kstaniek/go-corenet/internal/netclient"
	"github.com/kstaniek/go-corenet/internal/protocol"
)

// TestFollower_EnterScreenMovesCursorAndGrantsControl verifies EnterScreen
// places the virtual cursor and marks this host as controlled.
func TestFollower_EnterScreenMovesCursorAndGrantsControl(t *testing.T) {
	injector := input.NewFakeInjector()
	follower := NewFollower(injector, netclient.New(protocol.NewScreenInfo("secondary", "Secondary", 1920, 1080)), 1920, 1080)
	t.Cleanup(follower.Close)

	follower.HandleClientEvent(netclient.EventMessageReceived{
		Message: protocol.EnterScreen{Edge: protocol.EdgeLeft, Position: 0.5},
	})

	if !follower.HasControl() {
		t.Fatalf("expected HasControl after EnterScreen")
	}
	if follower.entryEdge != protocol.EdgeLeft {
		t.Fatalf("expected entryEdge Left, got %v", follower.entryEdge)
	}
	if follower.cursorX != 0 || follower.cursorY != 540 {
		t.Fatalf("expected cursor at (0,540), got (%d,%d)", follower.cursorX, follower.cursorY)
	}
	found := false
	for _, c := range injector.Calls {
		if c == "move_absolute" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected MouseMoveAbsolute call, got %v", injector.Calls)
	}
}

// TestFollower_DropsInputWhileNotControlled verifies input-class messages
// are ignored until EnterScreen grants control.
func TestFollower_DropsInputWhileNotControlled(t *testing.T) {
	injector := input.NewFakeInjector()
	follower := NewFollower(injector, netclient.New(protocol.NewScreenInfo("secondary", "Secondary", 1920, 1080)), 1920, 1080)
	t.Cleanup(follower.Close)

	follower.HandleClientEvent(netclient.EventMessageReceived{
		Message: protocol.MouseButtonMsg{Button: protocol.MouseButtonLeft, Pressed: true},
	})
	for _, c := range injector.Calls {
		if c == "mouse_button" {
			t.Fatalf("expected mouse button to be dropped while not controlled")
		}
	}
}

// TestFollower_ReturnCrossingReleasesControl verifies relative motion back
// to the entry edge releases control. The follower also attempts to send
// LeaveScreen, but this client is not connected, so only the release is
// checked here.
func TestFollower_ReturnCrossingReleasesControl(t *testing.T) {
	injector := input.NewFakeInjector()
	follower := NewFollower(injector, netclient.New(protocol.NewScreenInfo("secondary", "Secondary", 1920, 1080)), 1920, 1080)
	t.Cleanup(follower.Close)

	follower.HandleClientEvent(netclient.EventMessageReceived{
		Message: protocol.EnterScreen{Edge: protocol.EdgeLeft, Position: 0.5},
	})
	if !follower.HasControl() {
		t.Fatalf("expected control granted")
	}

	// Cursor is already at x=0 (the Left edge); any further leftward
	// motion keeps it clamped at 0, which the edge detector's default
	// (instant-transition) config reports as an immediate Transition.
	follower.HandleClientEvent(netclient.EventMessageReceived{
		Message: protocol.MouseMoveRelative{DX: -5, DY: 0},
	})

	if follower.HasControl() {
		t.Fatalf("expected control released after return crossing")
	}
}
