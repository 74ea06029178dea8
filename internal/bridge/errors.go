package bridge

import "errors"

// Sentinel errors for bridge operations.
var (
	// ErrNoController indicates the bridge was started before a
	// controller was attached.
	ErrNoController = errors.New("bridge: no controller attached")

	// ErrInvalidCommand indicates an inbound command payload could not
	// be parsed or named no action.
	ErrInvalidCommand = errors.New("bridge: invalid command payload")
)
