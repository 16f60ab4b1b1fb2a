// Package queue defines the contract for buffering inbound bus messages.
package queue

// Option applies a configuration option to the InMemoryQueue.
type Option func(*InMemoryQueue)

// WithName sets the queue name used in metrics labels, typically the topic.
func WithName(name string) Option {
	return func(q *InMemoryQueue) {
		if name != "" {
			q.name = name
		}
	}
}

// WithCapacity sets the maximum number of buffered messages.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}
