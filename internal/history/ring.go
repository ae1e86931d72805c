// Package history provides the bounded buffers that hold recent timeline and
// feed entries.
package history

import "sync"

// Ring is a fixed-capacity FIFO buffer. Pushing into a full ring evicts the
// oldest element. It is safe for concurrent use.
type Ring[T any] struct {
	mu    sync.Mutex
	items []T
	start int
	size  int
}

// New returns an empty ring holding at most capacity elements. A capacity
// below 1 is treated as 1.
func New[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{items: make([]T, capacity)}
}

// Push appends v and returns the evicted element, if any.
func (r *Ring[T]) Push(v T) (evicted T, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size < len(r.items) {
		r.items[(r.start+r.size)%len(r.items)] = v
		r.size++
		return evicted, false
	}

	evicted = r.items[r.start]
	r.items[r.start] = v
	r.start = (r.start + 1) % len(r.items)
	return evicted, true
}

// Items returns a copy of the retained elements, oldest first.
func (r *Ring[T]) Items() []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]T, r.size)
	for i := range r.size {
		out[i] = r.items[(r.start+i)%len(r.items)]
	}
	return out
}

// Last returns the most recently pushed element.
func (r *Ring[T]) Last() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	if r.size == 0 {
		return zero, false
	}
	return r.items[(r.start+r.size-1)%len(r.items)], true
}

// Len returns the number of retained elements.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Cap returns the maximum number of retained elements.
func (r *Ring[T]) Cap() int {
	return len(r.items)
}

// Reset drops every element.
func (r *Ring[T]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.items)
	r.start, r.size = 0, 0
}
