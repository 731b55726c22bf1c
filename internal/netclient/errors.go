package netclient

import "errors"

// Sentinel errors, classified by callers via errors.Is.
var (
	ErrAlreadyConnected = errors.New("netclient: already connected")
	ErrNotConnected     = errors.New("netclient: not connected")
	ErrConnectTimeout   = errors.New("netclient: connect timeout")
)
