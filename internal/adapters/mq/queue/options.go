package queue

import "github.com/okian/vists/pkg/logger"

// Option configures NewInMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity bounds how many runs may wait; further submissions get ErrFull.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// WithLogger reports rejected requests to l.
func WithLogger(l logger.Logger) Option {
	return func(q *InMemoryQueue) {
		q.logger = l
	}
}
