package registry

import (
	"testing"

	"github.com/kstaniek/go-corenet/internal/connection"
	"github.com/kstaniek/go-corenet/internal/protocol"
)

func testPeer(addr string, hostID string) *Peer {
	h, ch := connection.NewHandle(8)
	outboundChans[h] = ch
	return &Peer{
		Addr:       mockAddr(addr),
		ScreenInfo: protocol.NewScreenInfo(hostID, hostID, 1920, 1080),
		Handle:     h,
	}
}

type mockAddr string

func (m mockAddr) Network() string { return "tcp" }
func (m mockAddr) String() string  { return string(m) }

func TestRegistry_AddGetRemove(t *testing.T) {
	r := New()
	p := testPeer("10.0.0.1:1234", "host-a")
	r.Add(p)

	got, ok := r.Get(p.Addr)
	if !ok || got != p {
		t.Fatalf("expected to find added peer")
	}
	if r.Count() != 1 {
		t.Fatalf("expected count 1, got %d", r.Count())
	}

	r.Remove(p.Addr)
	if _, ok := r.Get(p.Addr); ok {
		t.Fatalf("expected peer removed")
	}
	if r.Count() != 0 {
		t.Fatalf("expected count 0 after remove, got %d", r.Count())
	}
	if p.Handle.IsConnected() {
		t.Fatalf("expected handle marked disconnected on removal")
	}
}

func TestRegistry_RemoveUnknownIsNoop(t *testing.T) {
	r := New()
	r.Remove(mockAddr("nowhere:0")) // must not panic
}

func TestRegistry_Snapshot(t *testing.T) {
	r := New()
	r.Add(testPeer("10.0.0.1:1", "a"))
	r.Add(testPeer("10.0.0.2:2", "b"))

	snap := r.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 peers, got %d", len(snap))
	}
}

func TestRegistry_Broadcast(t *testing.T) {
	r := New()
	p1 := testPeer("10.0.0.1:1", "a")
	p2 := testPeer("10.0.0.2:2", "b")
	r.Add(p1)
	r.Add(p2)

	r.Broadcast(protocol.Heartbeat{TimestampUs: 42})

	for _, p := range []*Peer{p1, p2} {
		select {
		case msg := <-mustOutbound(t, p):
			if _, ok := msg.(protocol.Heartbeat); !ok {
				t.Fatalf("expected Heartbeat, got %#v", msg)
			}
		default:
			t.Fatalf("expected broadcast to reach peer %s", p.Addr)
		}
	}
}

func TestRegistry_SendToUnknownAddrErrors(t *testing.T) {
	r := New()
	if err := r.SendTo(mockAddr("nope:0"), protocol.Heartbeat{}); err == nil {
		t.Fatalf("expected error sending to unregistered address")
	}
}

func TestRegistry_FirstOnEdge(t *testing.T) {
	r := New()
	if _, ok := r.FirstOnEdge(); ok {
		t.Fatalf("expected no peer on empty registry")
	}
	p := testPeer("10.0.0.1:1", "a")
	r.Add(p)
	got, ok := r.FirstOnEdge()
	if !ok || got != p {
		t.Fatalf("expected FirstOnEdge to return the only registered peer")
	}
}

// mustOutbound exposes the channel backing a test peer's Handle so
// Broadcast's effect can be observed without exporting Handle internals.
func mustOutbound(t *testing.T, p *Peer) <-chan protocol.Message {
	t.Helper()
	ch, ok := outboundChans[p.Handle]
	if !ok {
		t.Fatalf("no outbound channel recorded for handle")
	}
	return ch
}

var outboundChans = map[*connection.Handle]<-chan protocol.Message{}
