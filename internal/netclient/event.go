package netclient

import "github.com/kstaniek/go-corenet/internal/protocol"

// Event is the sealed union of events the client surfaces to its consumer,
// mirroring netserver.Event on the dialer side.
type Event interface{ isEvent() }

type EventConnected struct {
	ServerAddr   string
	ServerScreen protocol.ScreenInfo
}
type EventDisconnected struct{ Reason string }
type EventMessageReceived struct{ Message protocol.Message }
type EventError struct{ Message string }

func (EventConnected) isEvent()       {}
func (EventDisconnected) isEvent()    {}
func (EventMessageReceived) isEvent() {}
func (EventError) isEvent()           {}
