// Package ws implements the client-facing WebSocket transport.
package ws

import "github.com/ndiyar/vigil/pkg/logger"

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithReadLimit bounds the size of a single inbound client message.
func WithReadLimit(limit int64) Option {
	return func(h *Hub) {
		if limit > 0 {
			h.readLimit = limit
		}
	}
}

// WithLogger sets a custom logger for the hub.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}
