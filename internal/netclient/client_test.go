package netclient

import (
	"context"
	"testing"
	"time"

	"github.com/kstaniek/go-corenet/internal/netserver"
	"github.com/kstaniek/go-corenet/internal/protocol"
)

func testScreenInfo(hostID string) protocol.ScreenInfo {
	return protocol.NewScreenInfo(hostID, hostID, 1920, 1080)
}

func startTestServer(t *testing.T) *netserver.Server {
	t.Helper()
	srv := netserver.New(testScreenInfo("primary"), netserver.WithListenAddr(":0"))
	ctx, cancel := context.WithCancel(context.Background())
	go srv.Start(ctx)
	t.Cleanup(cancel)
	select {
	case <-srv.Ready():
	case <-time.After(1 * time.Second):
		t.Fatalf("server did not become ready")
	}
	return srv
}

// TestClientConnectAndHandshake verifies Connect dials, handshakes, and
// populates the server's screen info.
func TestClientConnectAndHandshake(t *testing.T) {
	srv := startTestServer(t)
	c := New(testScreenInfo("secondary"), WithConnectTimeout(time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := c.Connect(ctx, srv.Addr()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if !c.IsConnected() {
		t.Fatalf("expected connected state")
	}
	info, ok := c.ServerScreenInfo()
	if !ok || info.HostID != "primary" {
		t.Fatalf("unexpected server screen info: %+v ok=%v", info, ok)
	}
	_ = c.Disconnect()
}

// TestClientConnectTimeout verifies that dialing an address nothing listens
// on, with a short connect timeout, returns an error.
func TestClientConnectTimeout(t *testing.T) {
	c := New(testScreenInfo("secondary"), WithConnectTimeout(50*time.Millisecond))
	ctx := context.Background()
	// 10.255.255.1 is a non-routable address chosen to force a dial stall
	// rather than an immediate refusal.
	err := c.Connect(ctx, "10.255.255.1:24800")
	if err == nil {
		t.Fatalf("expected connect error")
	}
}

// TestClientSendReachesServer verifies a client-sent message is observable
// as an EventMessageReceived on the server side.
func TestClientSendReachesServer(t *testing.T) {
	srv := startTestServer(t)
	c := New(testScreenInfo("secondary"))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Connect(ctx, srv.Addr()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Disconnect()

	if err := c.Send(protocol.ClipboardRequest{}); err != nil {
		t.Fatalf("send: %v", err)
	}

	// The server reports EventStarted and EventClientConnected before any
	// message from the client.
	for i := 0; i < 2; i++ {
		select {
		case ev := <-srv.Events():
			switch ev.(type) {
			case netserver.EventStarted, netserver.EventClientConnected:
			default:
				t.Fatalf("expected EventStarted/EventClientConnected first, got %T", ev)
			}
		case <-time.After(1 * time.Second):
			t.Fatalf("server did not report start and connection")
		}
	}

	select {
	case ev := <-srv.Events():
		mr, ok := ev.(netserver.EventMessageReceived)
		if !ok {
			t.Fatalf("expected EventMessageReceived, got %T", ev)
		}
		if _, ok := mr.Message.(protocol.ClipboardRequest); !ok {
			t.Fatalf("expected ClipboardRequest, got %T", mr.Message)
		}
	case <-time.After(1 * time.Second):
		t.Fatalf("server did not observe message")
	}
}

// TestClientDisconnectClean verifies Disconnect reports a disconnected
// state and stops the pump goroutine.
func TestClientDisconnectClean(t *testing.T) {
	srv := startTestServer(t)
	c := New(testScreenInfo("secondary"))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Connect(ctx, srv.Addr()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := c.Disconnect(); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if c.IsConnected() {
		t.Fatalf("expected disconnected after Disconnect")
	}
	if err := c.Disconnect(); err == nil {
		t.Fatalf("expected error disconnecting twice")
	}
}
