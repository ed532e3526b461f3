package interview

import "sync"

// handlerRegistry is an ordered callback set whose unsubscribe closures stay
// valid regardless of how many earlier subscribers have already left: each
// handler is tracked by id, not by slice position.
type handlerRegistry[T any] struct {
	mu      sync.Mutex
	nextID  int
	entries []handlerEntry[T]
}

type handlerEntry[T any] struct {
	id int
	fn func(T)
}

// add registers a handler and returns its unsubscribe function. Unsubscribing
// twice is a no-op.
func (r *handlerRegistry[T]) add(fn func(T)) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.entries = append(r.entries, handlerEntry[T]{id: id, fn: fn})
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		for i, entry := range r.entries {
			if entry.id == id {
				r.entries = append(r.entries[:i], r.entries[i+1:]...)
				break
			}
		}
		r.mu.Unlock()
	}
}

// snapshot returns the current handlers in registration order, safe to invoke
// without holding any lock.
func (r *handlerRegistry[T]) snapshot() []func(T) {
	r.mu.Lock()
	fns := make([]func(T), len(r.entries))
	for i, entry := range r.entries {
		fns[i] = entry.fn
	}
	r.mu.Unlock()
	return fns
}
