package netserver

import (
	"net"

	"github.com/kstaniek/go-corenet/internal/protocol"
)

// Event is the sealed union of events the server surfaces to its consumer.
type Event interface{ isEvent() }

type EventStarted struct{ BindAddr string }
type EventStopped struct{}
type EventClientConnected struct {
	Addr       net.Addr
	ScreenInfo protocol.ScreenInfo
}
type EventClientDisconnected struct {
	Addr   net.Addr
	Reason string
}
type EventMessageReceived struct {
	Addr    net.Addr
	Message protocol.Message
}
type EventError struct{ Message string }

func (EventStarted) isEvent()            {}
func (EventStopped) isEvent()            {}
func (EventClientConnected) isEvent()    {}
func (EventClientDisconnected) isEvent() {}
func (EventMessageReceived) isEvent()    {}
func (EventError) isEvent()              {}
