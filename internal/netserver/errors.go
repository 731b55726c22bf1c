package netserver

import "errors"

// Sentinel errors, classified by callers via errors.Is.
var (
	ErrAlreadyRunning = errors.New("netserver: already running")
	ErrNotRunning     = errors.New("netserver: not running")
	ErrBindFailed     = errors.New("netserver: bind failed")
	ErrNoSuchPeer     = errors.New("netserver: no such peer")
)
