// Package router implements the real-time correlation layer.
package router

import (
	"github.com/ndiyar/vigil/internal/domain/status"
	"github.com/ndiyar/vigil/pkg/logger"
)

// Option applies a configuration option to the Router.
type Option func(*Router)

// WithQueueCapacity bounds each per-topic result queue.
func WithQueueCapacity(capacity int) Option {
	return func(r *Router) {
		if capacity > 0 {
			r.queueCapacity = capacity
		}
	}
}

// WithClassifier sets the status classifier.
func WithClassifier(c *status.Classifier) Option {
	return func(r *Router) {
		if c != nil {
			r.classifier = c
		}
	}
}

// WithLogger sets a custom logger for the router.
func WithLogger(l logger.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}
