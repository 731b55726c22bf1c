// Package connection owns a single peer socket: the handshake, the
// send/recv loop, heartbeat/RTT bookkeeping, and the ConnectionHandle
// façade other components use to enqueue outbound messages without
// touching the socket directly.
package connection

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kstaniek/go-corenet/internal/protocol"
)

// State is the lifecycle of a Connection.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Stats are updated only from the owning pump goroutine.
type Stats struct {
	MessagesSent     uint64
	MessagesReceived uint64
	BytesSent        uint64
	BytesReceived    uint64
	RTTMicros        uint64
}

// Connection owns one peer TCP stream plus the codec pair needed to turn
// it into a Message stream in either direction.
type Connection struct {
	remoteAddr net.Addr
	conn       net.Conn
	enc        *protocol.Encoder
	dec        *protocol.Decoder

	remoteScreen   *protocol.ScreenInfo
	state          State
	lastActivity   time.Time
	stats          Stats

	readBuf [4096]byte
}

// New wraps an already-established stream. The connection starts in
// StateConnecting until a handshake completes it.
func New(conn net.Conn) *Connection {
	return &Connection{
		remoteAddr:   conn.RemoteAddr(),
		conn:         conn,
		enc:          protocol.NewEncoder(),
		dec:          protocol.NewDecoder(),
		state:        StateConnecting,
		lastActivity: time.Now(),
	}
}

func (c *Connection) RemoteAddr() net.Addr { return c.remoteAddr }
func (c *Connection) State() State         { return c.state }
func (c *Connection) Stats() Stats         { return c.stats }
func (c *Connection) IdleTime() time.Duration { return time.Since(c.lastActivity) }
func (c *Connection) IsActive() bool       { return c.state == StateConnected }

// RemoteScreenInfo returns the peer's screen info once the handshake has
// populated it.
func (c *Connection) RemoteScreenInfo() (protocol.ScreenInfo, bool) {
	if c.remoteScreen == nil {
		return protocol.ScreenInfo{}, false
	}
	return *c.remoteScreen, true
}

// HandshakeServer waits for exactly one Hello and answers with HelloAck.
func (c *Connection) HandshakeServer(local protocol.ScreenInfo) error {
	fr, err := c.Recv()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}
	if fr == nil {
		return fmt.Errorf("%w: connection closed during handshake", ErrHandshakeFailed)
	}
	hello, ok := fr.Message.(protocol.Hello)
	if !ok {
		return fmt.Errorf("%w: expected Hello", ErrHandshakeFailed)
	}
	if hello.ProtocolVersion != protocol.ProtocolVersion {
		_ = c.Send(protocol.HelloAck{
			ProtocolVersion: protocol.ProtocolVersion,
			ScreenInfo:      local,
			Accepted:        false,
			Reason: fmt.Sprintf("protocol version mismatch: expected %d, got %d",
				protocol.ProtocolVersion, hello.ProtocolVersion),
		})
		return &VersionMismatchError{Local: protocol.ProtocolVersion, Remote: hello.ProtocolVersion}
	}
	if err := c.Send(protocol.HelloAck{
		ProtocolVersion: protocol.ProtocolVersion,
		ScreenInfo:      local,
		Accepted:        true,
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}
	remote := hello.ScreenInfo
	c.remoteScreen = &remote
	c.state = StateConnected
	return nil
}

// HandshakeClient sends Hello and waits for HelloAck.
func (c *Connection) HandshakeClient(local protocol.ScreenInfo) error {
	if err := c.Send(protocol.Hello{ProtocolVersion: protocol.ProtocolVersion, ScreenInfo: local}); err != nil {
		return fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}
	fr, err := c.Recv()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}
	if fr == nil {
		return fmt.Errorf("%w: connection closed during handshake", ErrHandshakeFailed)
	}
	ack, ok := fr.Message.(protocol.HelloAck)
	if !ok {
		return fmt.Errorf("%w: expected HelloAck", ErrHandshakeFailed)
	}
	if ack.ProtocolVersion != protocol.ProtocolVersion {
		return &VersionMismatchError{Local: protocol.ProtocolVersion, Remote: ack.ProtocolVersion}
	}
	if !ack.Accepted {
		reason := ack.Reason
		if reason == "" {
			reason = "connection rejected"
		}
		return fmt.Errorf("%w: %s", ErrHandshakeFailed, reason)
	}
	remote := ack.ScreenInfo
	c.remoteScreen = &remote
	c.state = StateConnected
	return nil
}

// Send encodes and flushes msg in one logical write.
func (c *Connection) Send(msg protocol.Message) error {
	wire, err := c.enc.Encode(msg)
	if err != nil {
		return err
	}
	if _, err := c.conn.Write(wire); err != nil {
		return err
	}
	c.stats.MessagesSent++
	c.stats.BytesSent += uint64(len(wire))
	c.lastActivity = time.Now()
	return nil
}

// Recv returns the next complete frame, reading more bytes as needed. It
// returns (nil, nil) once the stream reaches EOF with no further bytes to
// read. This is the same whether EOF falls between frames or partway
// through one: bytes of an unfinished frame are dropped, and ErrClosed is
// not returned for them.
func (c *Connection) Recv() (*protocol.Frame, error) {
	for {
		fr, err := c.dec.Next()
		if err == nil {
			c.stats.MessagesReceived++
			c.lastActivity = time.Now()
			return fr, nil
		}
		if !isIncomplete(err) {
			return nil, err
		}
		n, rerr := c.conn.Read(c.readBuf[:])
		if n > 0 {
			c.dec.Feed(c.readBuf[:n])
			c.stats.BytesReceived += uint64(n)
		}
		if rerr != nil {
			if rerr == io.EOF {
				if n == 0 {
					return nil, nil
				}
				continue
			}
			return nil, rerr
		}
	}
}

func isIncomplete(err error) bool {
	return errors.Is(err, protocol.ErrIncomplete)
}

// RecvTimeout is Recv bounded by a deadline.
func (c *Connection) RecvTimeout(d time.Duration) (*protocol.Frame, error) {
	_ = c.conn.SetReadDeadline(time.Now().Add(d))
	defer func() { _ = c.conn.SetReadDeadline(time.Time{}) }()
	fr, err := c.Recv()
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, ErrTimeout
		}
		return nil, err
	}
	return fr, nil
}

// Ping sends a Heartbeat and blocks for the matching HeartbeatAck, updating
// stats.RTTMicros on success.
func (c *Connection) Ping() (time.Duration, error) {
	ts := uint64(time.Now().UnixMicro())
	start := time.Now()
	if err := c.Send(protocol.Heartbeat{TimestampUs: ts}); err != nil {
		return 0, err
	}
	fr, err := c.RecvTimeout(5 * time.Second)
	if err != nil {
		return 0, err
	}
	if fr == nil {
		return 0, ErrClosed
	}
	ack, ok := fr.Message.(protocol.HeartbeatAck)
	if !ok || ack.TimestampUs != ts {
		return 0, ErrHandshakeFailed
	}
	rtt := time.Since(start)
	c.stats.RTTMicros = uint64(rtt.Microseconds())
	return rtt, nil
}

// Close sends a best-effort Disconnect and shuts down the stream.
func (c *Connection) Close(reason string) error {
	c.state = StateClosing
	_ = c.Send(protocol.Disconnect{Reason: reason})
	err := c.conn.Close()
	c.state = StateClosed
	return err
}

// Handle is a cheaply-clonable façade over a bounded outbound queue. It is
// the only way other components enqueue outbound messages; the owning pump
// goroutine drains the queue and writes to the socket, so frame bytes from
// distinct senders never interleave.
type Handle struct {
	out       chan protocol.Message
	connected *atomic.Bool
	rttMicros *atomic.Uint64
	closeOnce *sync.Once
}

// NewHandle wraps an outbound channel of the given capacity in a Handle.
func NewHandle(bufSize int) (*Handle, <-chan protocol.Message) {
	ch := make(chan protocol.Message, bufSize)
	h := &Handle{
		out:       ch,
		connected: &atomic.Bool{},
		rttMicros: &atomic.Uint64{},
		closeOnce: &sync.Once{},
	}
	h.connected.Store(true)
	return h, ch
}

// Send enqueues msg for the owning pump to write. Returns ErrClosed if the
// handle has been marked disconnected, ErrSendChannelClosed if the outbound
// queue is full (the message is dropped).
func (h *Handle) Send(msg protocol.Message) error {
	if !h.connected.Load() {
		return ErrClosed
	}
	select {
	case h.out <- msg:
		return nil
	default:
		return ErrSendChannelClosed
	}
}

func (h *Handle) IsConnected() bool      { return h.connected.Load() }
func (h *Handle) RTTMicros() uint64      { return h.rttMicros.Load() }
func (h *Handle) MarkDisconnected()      { h.connected.Store(false) }
func (h *Handle) UpdateRTT(micros uint64) { h.rttMicros.Store(micros) }
