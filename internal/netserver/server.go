// Package netserver accepts CoreNet peer connections and coordinates their
// per-connection message pumps. It follows the same accept-loop-plus-
// per-connection-goroutines shape this codebase always uses for TCP
// servers, generalized from raw frames to protocol.Message and from a
// broadcast hub to a ScreenInfo-aware peer registry.
package netserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/kstaniek/go-corenet/internal/logging"
	"github.com/kstaniek/go-corenet/internal/protocol"
	"github.com/kstaniek/go-corenet/internal/registry"
)

const (
	defaultHandshakeTimeout = 3 * time.Second
	defaultHandleBuf        = 256
	defaultEventBuf         = 256
)

// Server binds a TCP listener and spawns one pump per accepted connection.
type Server struct {
	mu         sync.RWMutex
	addr       string
	screenInfo protocol.ScreenInfo
	Registry   *registry.Registry

	handshakeTimeout time.Duration
	maxClients       int
	logger           *slog.Logger

	events    chan Event
	readyCh   chan struct{}
	readyOnce sync.Once

	listener   net.Listener
	running    bool
	shutdownCh chan struct{}
	wg         sync.WaitGroup
}

// Option configures a Server at construction time.
type Option func(*Server)

// New constructs a Server advertising local as its ScreenInfo on handshake.
func New(local protocol.ScreenInfo, opts ...Option) *Server {
	s := &Server{
		screenInfo:       local,
		Registry:         registry.New(),
		handshakeTimeout: defaultHandshakeTimeout,
		logger:           logging.L(),
		events:           make(chan Event, defaultEventBuf),
		readyCh:          make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	if s.addr == "" {
		s.addr = fmt.Sprintf(":%d", protocol.DefaultPort)
	}
	return s
}

func WithListenAddr(addr string) Option { return func(s *Server) { s.addr = addr } }
func WithRegistry(r *registry.Registry) Option {
	return func(s *Server) { s.Registry = r }
}
func WithHandshakeTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.handshakeTimeout = d
		}
	}
}
func WithMaxClients(n int) Option { return func(s *Server) { s.maxClients = n } }
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Events returns the channel of ServerEvent values.
func (s *Server) Events() <-chan Event { return s.events }

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} { return s.readyCh }

// Addr returns the bound address (valid after Start).
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

func (s *Server) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.logger.Warn("event_dropped", "type", fmt.Sprintf("%T", ev))
	}
}

// Start binds the listener and runs the accept loop until ctx is canceled
// or Stop is called. It returns ErrAlreadyRunning if called twice.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.shutdownCh = make(chan struct{})
	addr := s.addr
	s.mu.Unlock()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		wrap := fmt.Errorf("%w: %v", ErrBindFailed, err)
		s.emit(EventError{Message: wrap.Error()})
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return wrap
	}
	s.mu.Lock()
	s.listener = ln
	s.addr = ln.Addr().String()
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.readyCh) })
	s.logger.Info("tcp_listen", "addr", s.Addr())
	s.emit(EventStarted{BindAddr: s.Addr()})

	go func() {
		select {
		case <-ctx.Done():
		case <-s.shutdownCh:
		}
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				s.finishStop()
				return nil
			case <-s.shutdownCh:
				s.finishStop()
				return nil
			default:
			}
			s.emit(EventError{Message: err.Error()})
			continue
		}
		if s.maxClients > 0 && s.Registry.Count() >= s.maxClients {
			s.logger.Warn("client_reject_max", "max_clients", s.maxClients)
			_ = conn.Close()
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleClient(ctx, conn)
		}()
	}
}

func (s *Server) finishStop() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	s.emit(EventStopped{})
}

// Stop signals the accept loop and all pumps to exit, and disconnects every
// registered peer with a best-effort Disconnect message.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	shutdownCh := s.shutdownCh
	s.mu.Unlock()

	close(shutdownCh)
	s.Registry.Broadcast(protocol.Disconnect{Reason: "server shutting down"})

	done := make(chan struct{})
	go func() { s.wg.Wait(); close(done) }()
	select {
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout: %w", ctx.Err())
	case <-done:
		return nil
	}
}

// SendTo enqueues msg for delivery to the peer at addr.
func (s *Server) SendTo(addr net.Addr, msg protocol.Message) error {
	if err := s.Registry.SendTo(addr, msg); err != nil {
		return err
	}
	return nil
}

// Broadcast enqueues msg for delivery to every registered peer.
func (s *Server) Broadcast(msg protocol.Message) { s.Registry.Broadcast(msg) }

// IsRunning reports whether Start has bound a listener and not yet Stopped.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
