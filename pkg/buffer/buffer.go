// Package buffer provides a generic, thread-safe ring buffer with
// configurable overflow policies. The verifier uses it to decouple the
// transport's delivery callback from its synchronous work loop.
package buffer

import (
	"errors"
	"sync"
)

// ErrClosed is returned by Write after the buffer has been closed.
var ErrClosed = errors.New("buffer closed")

// OverflowPolicy defines how the buffer behaves when it reaches capacity.
type OverflowPolicy int

const (
	// DropOldest removes the oldest item to make room for new items.
	DropOldest OverflowPolicy = iota

	// DropNewest drops new items when the buffer is full.
	DropNewest
)

// String returns a human-readable representation of the overflow policy.
func (p OverflowPolicy) String() string {
	switch p {
	case DropOldest:
		return "DropOldest"
	case DropNewest:
		return "DropNewest"
	default:
		return "Unknown"
	}
}

// Statistics tracks buffer activity for observability.
type Statistics struct {
	Written uint64 // items accepted by Write
	Read    uint64 // items handed out by Read/ReadBatch
	Dropped uint64 // items lost to the overflow policy
}

// Ring is a fixed-capacity circular buffer.
// All methods are safe for concurrent use.
type Ring[T any] struct {
	mu       sync.Mutex
	items    []T
	head     int // next read position
	size     int
	policy   OverflowPolicy
	stats    Statistics
	onDrop   func(T)
	closed   bool
}

// Option configures a Ring.
type Option[T any] func(*Ring[T])

// WithOverflowPolicy sets the behavior when the buffer is full.
func WithOverflowPolicy[T any](p OverflowPolicy) Option[T] {
	return func(r *Ring[T]) {
		r.policy = p
	}
}

// WithDropCallback registers a callback invoked with each item lost to
// the overflow policy. Called with the buffer lock held; keep it cheap.
func WithDropCallback[T any](fn func(T)) Option[T] {
	return func(r *Ring[T]) {
		r.onDrop = fn
	}
}

// NewRing creates a ring buffer with the given capacity.
func NewRing[T any](capacity int, opts ...Option[T]) (*Ring[T], error) {
	if capacity < 1 {
		return nil, errors.New("buffer capacity must be at least 1")
	}
	r := &Ring[T]{
		items:  make([]T, capacity),
		policy: DropOldest,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Write adds an item to the buffer. When the buffer is full the overflow
// policy decides which item is lost; Write itself never blocks.
func (r *Ring[T]) Write(item T) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	if r.size == len(r.items) {
		switch r.policy {
		case DropOldest:
			if r.onDrop != nil {
				r.onDrop(r.items[r.head])
			}
			r.items[r.head] = item
			r.head = (r.head + 1) % len(r.items)
			r.stats.Written++
			r.stats.Dropped++
			return nil
		case DropNewest:
			if r.onDrop != nil {
				r.onDrop(item)
			}
			r.stats.Dropped++
			return nil
		}
	}

	r.items[(r.head+r.size)%len(r.items)] = item
	r.size++
	r.stats.Written++
	return nil
}

// Read retrieves and removes one item from the buffer.
func (r *Ring[T]) Read() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	if r.size == 0 {
		return zero, false
	}

	item := r.items[r.head]
	r.items[r.head] = zero
	r.head = (r.head + 1) % len(r.items)
	r.size--
	r.stats.Read++
	return item, true
}

// ReadBatch retrieves and removes up to max items from the buffer.
// The returned slice may be shorter than max, or nil when empty.
func (r *Ring[T]) ReadBatch(max int) []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size == 0 || max < 1 {
		return nil
	}

	n := max
	if n > r.size {
		n = r.size
	}

	var zero T
	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = r.items[r.head]
		r.items[r.head] = zero
		r.head = (r.head + 1) % len(r.items)
	}
	r.size -= n
	r.stats.Read += uint64(n)
	return out
}

// Size returns the current number of items in the buffer.
func (r *Ring[T]) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Capacity returns the maximum number of items the buffer can hold.
func (r *Ring[T]) Capacity() int {
	return len(r.items)
}

// Stats returns a snapshot of buffer statistics.
func (r *Ring[T]) Stats() Statistics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Clear removes all items from the buffer.
func (r *Ring[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	for i := range r.items {
		r.items[i] = zero
	}
	r.head = 0
	r.size = 0
}

// Close marks the buffer closed. Pending items remain readable; further
// writes fail with ErrClosed.
func (r *Ring[T]) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}
