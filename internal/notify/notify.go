// Package notify implements the subscribe/publish hook shared by the client
// state stores.
//
// Delivery is serialized: while one Publish is delivering, any further
// Publish (from an observer or another goroutine) is queued and delivered by
// the same loop once the current round finishes. An observer that mutates
// the store it observes therefore never recurses into itself.
//
// PublishFunc defers building the event until each observer is called, so
// an observer that runs after a mutation made earlier in the same round
// sees the new state rather than a stale copy.
package notify

import (
	"sort"
	"sync"
)

// Hub fans events of type T out to registered observers.
// The zero value is ready to use.
type Hub[T any] struct {
	mu          sync.Mutex
	subs        map[uint64]func(T)
	next        uint64
	queue       []func() T
	dispatching bool
}

// Subscribe registers fn and returns a function that removes it.
// Calling the returned function more than once is harmless.
func (h *Hub[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs == nil {
		h.subs = make(map[uint64]func(T))
	}
	id := h.next
	h.next++
	h.subs[id] = fn
	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

// Len reports the number of registered observers.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Publish delivers ev to every observer in subscription order.
func (h *Hub[T]) Publish(ev T) {
	h.PublishFunc(func() T { return ev })
}

// PublishFunc is like Publish but calls current once per observer, right
// before that observer runs. current must not call back into the hub.
func (h *Hub[T]) PublishFunc(current func() T) {
	h.mu.Lock()
	h.queue = append(h.queue, current)
	if h.dispatching {
		h.mu.Unlock()
		return
	}
	h.dispatching = true
	h.mu.Unlock()

	defer func() {
		// A panicking observer must not wedge the hub.
		h.mu.Lock()
		h.dispatching = false
		h.queue = nil
		h.mu.Unlock()
	}()

	for {
		h.mu.Lock()
		if len(h.queue) == 0 {
			h.mu.Unlock()
			return
		}
		next := h.queue[0]
		h.queue = h.queue[1:]
		fns := h.snapshotLocked()
		h.mu.Unlock()

		for _, fn := range fns {
			fn(next())
		}
	}
}

func (h *Hub[T]) snapshotLocked() []func(T) {
	ids := make([]uint64, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]func(T), len(ids))
	for i, id := range ids {
		fns[i] = h.subs[id]
	}
	return fns
}
