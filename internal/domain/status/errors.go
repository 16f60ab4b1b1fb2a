package status

import "errors"

// Sentinel kinds for classification errors.
var (
	ErrBadCapacity  = errors.New("capacity must be positive")
	ErrBadCount     = errors.New("count must be non-negative")
	ErrUnknownLabel = errors.New("unrecognized fatigue label")
)
