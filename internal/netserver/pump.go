package netserver

import (
	"context"
	"net"
	"time"

	"github.com/kstaniek/go-corenet/internal/connection"
	"github.com/kstaniek/go-corenet/internal/metrics"
	"github.com/kstaniek/go-corenet/internal/protocol"
	"github.com/kstaniek/go-corenet/internal/registry"
)

// readerResult wraps either a decoded frame or a terminal read error so the
// pump goroutine can select over a single channel.
type readerResult struct {
	frame *protocol.Frame
	err   error
}

// handleClient performs the handshake, registers the peer, and runs its
// message pump until Disconnect, a socket error, or shutdown.
func (s *Server) handleClient(ctx context.Context, conn net.Conn) {
	c := connection.New(conn)
	defer func() { _ = conn.Close() }()

	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
		_ = tcp.SetKeepAlive(true)
	}

	_ = conn.SetDeadline(time.Now().Add(s.handshakeTimeout))
	if err := c.HandshakeServer(s.screenInfo); err != nil {
		s.logger.Warn("handshake_failed", "remote", conn.RemoteAddr(), "error", err)
		metrics.IncError(metrics.ErrHandshake)
		return
	}
	_ = conn.SetDeadline(time.Time{})
	remoteScreen, _ := c.RemoteScreenInfo()
	addr := conn.RemoteAddr()

	handle, outCh := connection.NewHandle(defaultHandleBuf)
	peer := &registry.Peer{Addr: addr, ScreenInfo: remoteScreen, Handle: handle}
	s.Registry.Add(peer)
	metrics.SetConnectionsActive(s.Registry.Count())
	s.logger.Info("client_connected", "remote", addr, "host_id", remoteScreen.HostID)
	s.emit(EventClientConnected{Addr: addr, ScreenInfo: remoteScreen})

	inCh := make(chan readerResult, 1)
	go func() {
		for {
			fr, err := c.Recv()
			inCh <- readerResult{frame: fr, err: err}
			if err != nil || fr == nil {
				return
			}
		}
	}()

	reason := s.pumpLoop(ctx, c, inCh, outCh, addr)

	handle.MarkDisconnected()
	s.Registry.Remove(addr)
	metrics.SetConnectionsActive(s.Registry.Count())
	s.logger.Info("client_disconnected", "remote", addr, "reason", reason)
	s.emit(EventClientDisconnected{Addr: addr, Reason: reason})
	_ = c.Close("session ended")
}

func (s *Server) pumpLoop(ctx context.Context, c *connection.Connection, inCh <-chan readerResult, outCh <-chan protocol.Message, addr net.Addr) string {
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
				if err := c.Send(protocol.HeartbeatAck{TimestampUs: m.TimestampUs}); err != nil {
					return "heartbeat send error: " + err.Error()
				}
				metrics.IncMessageSent(protocol.TypeName(protocol.TypeHeartbeatAck))
			default:
				s.emit(EventMessageReceived{Addr: addr, Message: m})
			}
		case msg := <-outCh:
			if err := c.Send(msg); err != nil {
				metrics.IncError(metrics.ErrConnWrite)
				return "send error: " + err.Error()
			}
			metrics.IncMessageSent(protocol.TypeName(msg.TypeID()))
		case <-s.shutdownCh:
			return "server shutting down"
		case <-ctx.Done():
			return "context canceled"
		}
	}
}
