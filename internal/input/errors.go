package input

import "errors"

var (
	// ErrAlreadyStarted is returned by Capture.Start when the backend is
	// already capturing.
	ErrAlreadyStarted = errors.New("input: capture already started")
	// ErrPermissionDenied is returned when the backend lacks the OS
	// privileges to open an input device (e.g. missing access to
	// /dev/input or the uinput node).
	ErrPermissionDenied = errors.New("input: permission denied")
	// ErrDeviceNotFound is returned when no suitable input device exists.
	ErrDeviceNotFound = errors.New("input: device not found")
	// ErrNotStarted is returned by operations that require Start to have
	// been called first.
	ErrNotStarted = errors.New("input: not started")
)
