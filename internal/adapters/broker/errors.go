package broker

import "errors"

// Sentinel kinds for gateway errors.
var (
	ErrUnavailable     = errors.New("broker unavailable")
	ErrBadSubscription = errors.New("invalid subscription")
)
