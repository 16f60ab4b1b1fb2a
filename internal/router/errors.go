package router

import "errors"

// Sentinel kinds for routing errors.
var (
	ErrBadFrame       = errors.New("invalid frame event")
	ErrUnknownSubject = errors.New("unknown subject")
)
