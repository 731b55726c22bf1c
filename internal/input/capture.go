// Package input defines the capture/injection contracts the control layer
// drives: a Capture backend turns raw device activity into Events, an
// Injector backend turns Messages back into device activity. Platform
// backends live in capture_linux.go/inject_linux.go (behind a linux build
// tag); other platforms get fallback_other.go's unsupported backends, whose
// Init/Start and inject calls fail. fake.go holds in-memory test doubles.
package input

import "context"

// Capture reads local input device activity and emits it as Events. A
// backend must keep producing events even while suppressed, so the
// control layer can still observe a physical keypress (e.g. an
// emergency-release hotkey) while local injection is blocked.
type Capture interface {
	// Init prepares the backend (opening devices) but does not yet start
	// delivering events. Device grabs are taken by SetSuppress(true).
	Init() error
	// Start begins delivering events on the returned channel. Returns
	// ErrAlreadyStarted if called twice without an intervening Stop.
	Start(ctx context.Context) (<-chan Event, error)
	// Stop halts delivery and releases any device grab.
	Stop() error
	// SetSuppress controls whether captured input also reaches the local
	// desktop. When true (the primary is driving a remote secondary),
	// local cursor/keyboard effects are suppressed at the device level;
	// events still flow on the Start channel.
	SetSuppress(suppressed bool) error
	// MouseState and KeyboardState expose the backend's live view of
	// which buttons/keys are currently held, for reconciling state across
	// a control handoff.
	MouseState() *MouseState
	KeyboardState() *KeyboardState
	// Shutdown releases all backend resources. The backend is unusable
	// after this returns.
	Shutdown() error
}
