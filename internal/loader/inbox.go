package loader

import (
	"sync"
)

// Inbox holds at most one undelivered value. A newer value replaces an
// older one that was never taken, and a value older than anything already
// put is refused, taken or not.
type Inbox[T any] struct {
	mu    sync.Mutex
	value T
	full  bool
	seq   uint64 // Newest sequence ever put
}

// Put stores v under seq and reports whether it was kept.
func (b *Inbox[T]) Put(seq uint64, v T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if seq <= b.seq {
		return false
	}
	b.seq = seq
	b.value, b.full = v, true
	return true
}

// Take empties the inbox. It never blocks.
func (b *Inbox[T]) Take() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var zero T
	v, ok := b.value, b.full
	b.value, b.full = zero, false
	return v, ok
}
