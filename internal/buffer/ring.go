package buffer

import (
	"sync"
)

// Ring is a thread-safe fixed-capacity buffer. When full, Push overwrites
// the oldest item.
type Ring[T any] struct {
	mu       sync.Mutex
	buf      []T
	head     int // oldest item
	count    int
	capacity int

	// Stats
	totalPushed  int64
	totalEvicted int64
}

// NewRing creates a ring holding at most capacity items.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{
		buf:      make([]T, capacity),
		capacity: capacity,
	}
}

// Push appends an item, evicting the oldest one if the ring is full.
// Returns true if an item was evicted.
func (r *Ring[T]) Push(item T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.totalPushed++

	if r.count < r.capacity {
		r.buf[(r.head+r.count)%r.capacity] = item
		r.count++
		return false
	}

	// Full: overwrite oldest and advance head
	r.buf[r.head] = item
	r.head = (r.head + 1) % r.capacity
	r.totalEvicted++
	return true
}

// Snapshot returns a copy of the items, oldest first.
func (r *Ring[T]) Snapshot() []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]T, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.buf[(r.head+i)%r.capacity]
	}
	return out
}

// Last returns the newest item, or false if the ring is empty.
func (r *Ring[T]) Last() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == 0 {
		var zero T
		return zero, false
	}
	return r.buf[(r.head+r.count-1)%r.capacity], true
}

// Reset drops all items. Stats are kept.
func (r *Ring[T]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	for i := range r.buf {
		r.buf[i] = zero // Clear references for GC
	}
	r.head = 0
	r.count = 0
}

// Len returns the current number of items.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int {
	return r.capacity
}

// Stats returns ring statistics.
func (r *Ring[T]) Stats() RingStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RingStats{
		Count:        r.count,
		Capacity:     r.capacity,
		TotalPushed:  r.totalPushed,
		TotalEvicted: r.totalEvicted,
	}
}

// RingStats contains ring statistics.
type RingStats struct {
	Count        int
	Capacity     int
	TotalPushed  int64
	TotalEvicted int64
}
