package protocol

import (
	"errors"
	"reflect"
	"testing"
)

func roundTrip(t *testing.T, msg Message) Message {
	t.Helper()
	enc := NewEncoder()
	wire, err := enc.Encode(msg)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	dec := NewDecoder()
	dec.Feed(wire)
	fr, err := dec.Next()
	if err != nil {
		t.Fatalf("Next error: %v", err)
	}
	return fr.Message
}

func TestCodec_RoundTripAllVariants(t *testing.T) {
	cases := []Message{
		Hello{ProtocolVersion: 1, ScreenInfo: NewScreenInfo("a", "Host A", 1920, 1080)},
		HelloAck{ProtocolVersion: 1, ScreenInfo: NewScreenInfo("b", "Host B", 2560, 1600), Accepted: true},
		HelloAck{ProtocolVersion: 2, ScreenInfo: NewScreenInfo("b", "Host B", 1, 1), Accepted: false, Reason: "version mismatch"},
		MouseMoveRelative{DX: -5, DY: 12},
		MouseMoveAbsolute{X: 0, Y: 540},
		MouseButtonMsg{Button: MouseButtonLeft, Pressed: true},
		MouseScroll{DX: 0, DY: -3},
		KeyDown{Keycode: 0x04, Character: 'a', Modifiers: Modifiers{Shift: true}},
		KeyDown{Keycode: 0x04, Modifiers: Modifiers{}},
		KeyUp{Keycode: 0x04, Modifiers: Modifiers{Ctrl: true, Alt: true}},
		EnterScreen{Edge: EdgeLeft, Position: 0.5},
		LeaveScreen{Edge: EdgeBottom, Position: 0.125},
		ClipboardData{MimeType: "text/plain", Data: []byte("hello")},
		ClipboardRequest{},
		GrabKeyboard{},
		ReleaseKeyboard{},
		Heartbeat{TimestampUs: 12345},
		HeartbeatAck{TimestampUs: 12345},
		Disconnect{Reason: "bye"},
		ErrorMsg{Code: ErrCodeProtocolMismatch, Message: "nope"},
	}
	for _, c := range cases {
		got := roundTrip(t, c)
		if !reflect.DeepEqual(got, c) {
			t.Fatalf("round trip mismatch for %T: got %#v want %#v", c, got, c)
		}
		if got.TypeID() != c.TypeID() {
			t.Fatalf("type id mismatch for %T", c)
		}
	}
}

func TestCodec_SequenceIsMonotonic(t *testing.T) {
	enc := NewEncoder()
	var last uint32
	for i := 0; i < 5; i++ {
		wire, err := enc.Encode(Heartbeat{TimestampUs: uint64(i)})
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		dec := NewDecoder()
		dec.Feed(wire)
		fr, err := dec.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if i > 0 && fr.Sequence != last+1 {
			t.Fatalf("sequence not monotonic: got %d after %d", fr.Sequence, last)
		}
		last = fr.Sequence
	}
}

// Encodes three frames, feeds the decoder one byte at a time, and expects
// three frames back with sequence numbers 0,1,2.
func TestCodec_ChunkedOneByteAtATime(t *testing.T) {
	in := []Message{
		Heartbeat{TimestampUs: 12345},
		MouseButtonMsg{Button: MouseButtonLeft, Pressed: true},
		KeyDown{Keycode: 0x04, Character: 'a', Modifiers: Modifiers{Shift: true}},
	}
	enc := NewEncoder()
	var wire []byte
	for _, m := range in {
		b, err := enc.Encode(m)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		wire = append(wire, b...)
	}

	dec := NewDecoder()
	var got []*Frame
	for _, b := range wire {
		dec.Feed([]byte{b})
		for {
			fr, err := dec.Next()
			if errors.Is(err, ErrIncomplete) {
				break
			}
			if err != nil {
				t.Fatalf("Next: %v", err)
			}
			got = append(got, fr)
		}
	}
	if len(got) != len(in) {
		t.Fatalf("got %d frames, want %d", len(got), len(in))
	}
	for i, fr := range got {
		if fr.Sequence != uint32(i) {
			t.Fatalf("frame %d: sequence %d, want %d", i, fr.Sequence, i)
		}
		if !reflect.DeepEqual(fr.Message, in[i]) {
			t.Fatalf("frame %d: message mismatch: got %#v want %#v", i, fr.Message, in[i])
		}
	}
}

func TestCodec_InvalidMagic(t *testing.T) {
	dec := NewDecoder()
	dec.Feed([]byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0})
	if _, err := dec.Next(); !errors.Is(err, ErrInvalidMagic) {
		t.Fatalf("expected ErrInvalidMagic, got %v", err)
	}
}

func TestCodec_MessageTooLarge(t *testing.T) {
	dec := NewDecoder()
	header := make([]byte, HeaderSize)
	copy(header[0:4], Magic[:])
	header[4] = TypeHeartbeat
	header[5], header[6], header[7], header[8] = 0xFF, 0xFF, 0xFF, 0xFF // huge length
	dec.Feed(header)
	if _, err := dec.Next(); !errors.Is(err, ErrMessageTooLarge) {
		t.Fatalf("expected ErrMessageTooLarge, got %v", err)
	}
}

func TestCodec_IncompleteDoesNotConsume(t *testing.T) {
	enc := NewEncoder()
	wire, _ := enc.Encode(Heartbeat{TimestampUs: 1})
	dec := NewDecoder()
	dec.Feed(wire[:HeaderSize-1])
	if _, err := dec.Next(); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}
	dec.Feed(wire[HeaderSize-1:])
	fr, err := dec.Next()
	if err != nil {
		t.Fatalf("Next after completing buffer: %v", err)
	}
	if fr.Message.(Heartbeat).TimestampUs != 1 {
		t.Fatalf("unexpected message: %#v", fr.Message)
	}
}
