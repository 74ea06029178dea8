package projector

import "errors"

// Domain errors for the projector package.
var (
	// ErrNoHost is returned when an operation requires a configured host
	// but none is set.
	ErrNoHost = errors.New("projector: no host configured")

	// ErrConnectionFailed is returned when the TCP connection to the
	// projector cannot be established.
	ErrConnectionFailed = errors.New("projector: connection failed")

	// ErrSessionClosed is returned when an operation is attempted on a
	// session that has already been closed.
	ErrSessionClosed = errors.New("projector: session closed")

	// ErrProtocolError is returned when the device's reply cannot be
	// parsed (e.g. a status query returned no recognisable token).
	ErrProtocolError = errors.New("projector: protocol error")

	// ErrNotInitialized reports use of an instance before Initialize has
	// been called or after Teardown.
	ErrNotInitialized = errors.New("projector: instance not initialized")
)
