// Package queue defines the contract for buffering inbound bus messages
// between the broker gateway and the router dispatch loops.
//
// One queue is created per subscribed topic so that arrival order is
// preserved per topic while topics never block each other.
package queue

import (
	"context"
	"sync"

	"github.com/ndiyar/vigil/internal/domain/model"
	"github.com/ndiyar/vigil/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultCapacity = 1024
)

// Message represents the payload type flowing through the queue.
// Using the model.BusMessage type for type safety.
type Message = model.BusMessage

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a message to the queue.
	// Returns false if the queue is full or closed and the message was dropped.
	Enqueue(ctx context.Context, m Message) bool

	// Dequeue returns a channel that receives messages in arrival order.
	// The channel is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Message

	// Len returns the current number of queued messages.
	Len(ctx context.Context) int

	// Close gracefully shuts down the queue. After closing, no new messages
	// can be enqueued and the dequeue channel will be closed.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	name     string
	messages chan Message
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		name:     "queue",
		capacity: defaultCapacity,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.messages = make(chan Message, q.capacity)

	metrics.UpdateQueueDepth(q.name, 0)

	return q
}

// Enqueue adds a message to the queue. It never blocks: when the queue is
// full the message is dropped, which bounds memory under backpressure from a
// worker that outpaces the dispatch loop.
func (q *InMemoryQueue) Enqueue(ctx context.Context, m Message) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueDrop(q.name, "closed")
		return false
	}

	select {
	case q.messages <- m:
		metrics.UpdateQueueDepth(q.name, len(q.messages))
		return true
	case <-ctx.Done():
		metrics.RecordQueueDrop(q.name, "context_cancelled")
		return false
	default:
		metrics.RecordQueueDrop(q.name, "queue_full")
		return false
	}
}

// Dequeue returns a channel that receives messages as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Message {
	out := make(chan Message)
	go func() {
		defer close(out)
		for m := range q.messages {
			select {
			case out <- m:
				metrics.UpdateQueueDepth(q.name, len(q.messages))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued messages.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	return len(q.messages)
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.messages)
	q.closed = true

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
