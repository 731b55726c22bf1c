package input

import (
	"context"
	"testing"
	"time"

	"github.com/kstaniek/go-corenet/internal/protocol"
)

func TestFakeCapture_StartStopLifecycle(t *testing.T) {
	c := NewFakeCapture()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := c.Start(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := c.Start(ctx); err != ErrAlreadyStarted {
		t.Fatalf("expected ErrAlreadyStarted on second Start, got %v", err)
	}

	ev := NewMouseMoveEvent(time.Now(), 5, -3)
	if !c.Inject(ev) {
		t.Fatalf("expected Inject to deliver event")
	}
	select {
	case got := <-ch:
		mv, ok := got.(MouseMoveEvent)
		if !ok || mv.DX != 5 || mv.DY != -3 {
			t.Fatalf("unexpected event %#v", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for injected event")
	}

	if err := c.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestFakeCapture_SuppressToggle(t *testing.T) {
	c := NewFakeCapture()
	if c.IsSuppressed() {
		t.Fatalf("expected not suppressed initially")
	}
	if err := c.SetSuppress(true); err != nil {
		t.Fatalf("set suppress: %v", err)
	}
	if !c.IsSuppressed() {
		t.Fatalf("expected suppressed after SetSuppress(true)")
	}
}

func TestMouseState_TracksPressedButtons(t *testing.T) {
	s := NewMouseState()
	if s.IsButtonPressed(protocol.MouseButtonLeft) {
		t.Fatalf("expected left button not pressed initially")
	}
	s.SetButton(protocol.MouseButtonLeft, true)
	if !s.IsButtonPressed(protocol.MouseButtonLeft) {
		t.Fatalf("expected left button pressed")
	}
	s.SetButton(protocol.MouseButtonLeft, false)
	if s.IsButtonPressed(protocol.MouseButtonLeft) {
		t.Fatalf("expected left button released")
	}
}

func TestKeyboardState_AnyPressed(t *testing.T) {
	s := NewKeyboardState()
	if s.AnyPressed() {
		t.Fatalf("expected no keys pressed initially")
	}
	s.KeyDown(KeyA)
	if !s.AnyPressed() || !s.IsKeyPressed(KeyA) {
		t.Fatalf("expected KeyA pressed")
	}
	s.KeyUp(KeyA)
	if s.AnyPressed() {
		t.Fatalf("expected no keys pressed after release")
	}
}

func TestFakeInjector_RecordsCallsAndState(t *testing.T) {
	inj := NewFakeInjector()
	_ = inj.Init()
	_ = inj.MouseMoveRelative(1, 2)
	_ = inj.MouseButton(protocol.MouseButtonLeft, true)
	_ = inj.KeyDown(KeyA, protocol.Modifiers{})
	_ = inj.KeyUp(KeyA, protocol.Modifiers{})
	_ = inj.TypeString("hi")
	_ = inj.Shutdown()

	want := []string{"init", "move_relative", "mouse_button", "key_down", "key_up", "type_string", "shutdown"}
	if len(inj.Calls) != len(want) {
		t.Fatalf("expected %d calls, got %d: %v", len(want), len(inj.Calls), inj.Calls)
	}
	for i, c := range want {
		if inj.Calls[i] != c {
			t.Fatalf("call %d: expected %q, got %q", i, c, inj.Calls[i])
		}
	}
	if !inj.MouseState().IsButtonPressed(protocol.MouseButtonLeft) {
		t.Fatalf("expected left button tracked as pressed")
	}
}
