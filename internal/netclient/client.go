// Package netclient dials a CoreNet server and runs the secondary-side pump:
// handshake, periodic heartbeats, and message exchange. It mirrors
// netserver's accept-loop-plus-pump shape from the dialer's side, since
// this codebase has no existing client/dialer role for a TCP peer to
// adapt from.
package netclient

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/kstaniek/go-corenet/internal/connection"
	"github.com/kstaniek/go-corenet/internal/logging"
	"github.com/kstaniek/go-corenet/internal/metrics"
	"github.com/kstaniek/go-corenet/internal/protocol"
)

const (
	defaultConnectTimeout  = 5 * time.Second
	defaultHeartbeatPeriod = 1 * time.Second
	defaultOutboundBuf     = 256
	defaultEventBuf        = 256
)

// State is the client's connection lifecycle.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Client dials a single CoreNet server and runs its message pump.
type Client struct {
	mu           sync.RWMutex
	screenInfo   protocol.ScreenInfo
	state        State
	serverScreen *protocol.ScreenInfo

	connectTimeout  time.Duration
	heartbeatPeriod time.Duration
	logger          *slog.Logger

	events chan Event

	handle     *connection.Handle
	shutdownCh chan struct{}
	wg         sync.WaitGroup
}

// Option configures a Client at construction time.
type Option func(*Client)

// New constructs a Client that will advertise local as its ScreenInfo.
func New(local protocol.ScreenInfo, opts ...Option) *Client {
	c := &Client{
		screenInfo:      local,
		connectTimeout:  defaultConnectTimeout,
		heartbeatPeriod: defaultHeartbeatPeriod,
		logger:          logging.L(),
		events:          make(chan Event, defaultEventBuf),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func WithConnectTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.connectTimeout = d
		}
	}
}
func WithHeartbeatPeriod(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.heartbeatPeriod = d
		}
	}
}
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Events returns the channel of client events.
func (c *Client) Events() <-chan Event { return c.events }

func (c *Client) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.logger.Warn("event_dropped", "type", fmt.Sprintf("%T", ev))
	}
}

// State returns the client's current lifecycle state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsConnected reports whether the client currently has an established
// connection to a server.
func (c *Client) IsConnected() bool { return c.State() == StateConnected }

// ServerScreenInfo returns the remote server's advertised screen info, once
// a successful handshake has populated it.
func (c *Client) ServerScreenInfo() (protocol.ScreenInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.serverScreen == nil {
		return protocol.ScreenInfo{}, false
	}
	return *c.serverScreen, true
}

// Connect dials addr, performs the client handshake, and starts the
// background message pump. It blocks until the handshake completes or fails.
func (c *Client) Connect(ctx context.Context, addr string) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.state = StateConnecting
	c.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	defer cancel()

	d := net.Dialer{}
	conn, err := d.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		if dialCtx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrConnectTimeout, err)
		}
		return err
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
		_ = tcp.SetKeepAlive(true)
	}

	conn2 := connection.New(conn)
	if err := conn2.HandshakeClient(c.screenInfo); err != nil {
		_ = conn.Close()
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		metrics.IncHandshakeFailure()
		return err
	}
	serverScreen, _ := conn2.RemoteScreenInfo()

	handle, outCh := connection.NewHandle(defaultOutboundBuf)

	c.mu.Lock()
	c.serverScreen = &serverScreen
	c.handle = handle
	c.state = StateConnected
	c.shutdownCh = make(chan struct{})
	c.mu.Unlock()

	c.logger.Info("connected", "server", addr, "host_id", serverScreen.HostID)
	c.emit(EventConnected{ServerAddr: addr, ServerScreen: serverScreen})

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.pump(conn2, outCh)
	}()
	return nil
}

// ConnectHostname resolves hostname and dials it on port, then behaves as
// Connect. It is the counterpart to mDNS-discovered peers, which are named
// by hostname rather than a fixed address.
func (c *Client) ConnectHostname(ctx context.Context, hostname string, port uint16) error {
	addrs, err := net.DefaultResolver.LookupHost(ctx, hostname)
	if err != nil {
		return fmt.Errorf("resolve %q: %w", hostname, err)
	}
	if len(addrs) == 0 {
		return fmt.Errorf("resolve %q: no addresses found", hostname)
	}
	return c.Connect(ctx, net.JoinHostPort(addrs[0], fmt.Sprintf("%d", port)))
}

// Send enqueues a message for delivery to the server.
func (c *Client) Send(msg protocol.Message) error {
	c.mu.RLock()
	h := c.handle
	c.mu.RUnlock()
	if h == nil {
		return ErrNotConnected
	}
	return h.Send(msg)
}

// Disconnect sends a best-effort Disconnect and stops the pump. It blocks
// until the pump has fully exited.
func (c *Client) Disconnect() error {
	c.mu.RLock()
	h := c.handle
	shutdownCh := c.shutdownCh
	c.mu.RUnlock()
	if h == nil {
		return ErrNotConnected
	}
	_ = h.Send(protocol.Disconnect{Reason: "Client disconnecting"})
	close(shutdownCh)
	c.wg.Wait()
	return nil
}

func (c *Client) pump(conn *connection.Connection, outCh <-chan protocol.Message) {
	inCh := make(chan readerResult, 1)
	go func() {
		for {
			fr, err := conn.Recv()
			inCh <- readerResult{frame: fr, err: err}
			if err != nil || fr == nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(c.heartbeatPeriod)
	defer ticker.Stop()

	reason := c.pumpLoop(conn, inCh, outCh, ticker)

	c.mu.Lock()
	c.state = StateDisconnected
	c.handle.MarkDisconnected()
	c.handle = nil
	c.mu.Unlock()

	_ = conn.Close(reason)
	c.logger.Info("disconnected", "reason", reason)
	c.emit(EventDisconnected{Reason: reason})
}

type readerResult struct {
	frame *protocol.Frame
	err   error
}

func (c *Client) pumpLoop(conn *connection.Connection, inCh <-chan readerResult, outCh <-chan protocol.Message, ticker *time.Ticker) string {
	for {
		select {
		case res := <-inCh:
			if res.err != nil {
				return res.err.Error()
			}
			if res.frame == nil {
				return "connection closed"
			}
			metrics.IncMessageReceived(protocol.TypeName(res.frame.Message.TypeID()))
			switch m := res.frame.Message.(type) {
			case protocol.Disconnect:
				return m.Reason
			case protocol.Heartbeat:
				if err := conn.Send(protocol.HeartbeatAck{TimestampUs: m.TimestampUs}); err != nil {
					return "heartbeat send error: " + err.Error()
				}
				metrics.IncMessageSent(protocol.TypeName(protocol.TypeHeartbeatAck))
			case protocol.HeartbeatAck:
				rtt := uint64(time.Now().UnixMicro()) - m.TimestampUs
				c.handle.UpdateRTT(rtt)
				metrics.SetRTTMicros(conn.RemoteAddr().String(), rtt)
			default:
				c.emit(EventMessageReceived{Message: m})
			}
		case msg := <-outCh:
			if err := conn.Send(msg); err != nil {
				metrics.IncError(metrics.ErrConnWrite)
				return "send error: " + err.Error()
			}
			metrics.IncMessageSent(protocol.TypeName(msg.TypeID()))
		case <-ticker.C:
			ts := uint64(time.Now().UnixMicro())
			if err := conn.Send(protocol.Heartbeat{TimestampUs: ts}); err != nil {
				return "heartbeat error: " + err.Error()
			}
			metrics.IncMessageSent(protocol.TypeName(protocol.TypeHeartbeat))
		case <-c.shutdownChSafe():
			return "client shutdown requested"
		}
	}
}

// shutdownChSafe reads c.shutdownCh under the lock; pumpLoop only calls it
// after Connect has initialized the field, so this is always non-nil there.
func (c *Client) shutdownChSafe() <-chan struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.shutdownCh
}
