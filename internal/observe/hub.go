// Package observe provides a small fan-out hub for observable values.
package observe

import "sync"

const defaultBuffer = 16

// Hub fans published values out to subscribers. Publish never blocks: a
// subscriber whose buffer is full loses its oldest queued value so the
// newest one always gets through.
type Hub[T any] struct {
	mu     sync.Mutex
	subs   map[uint64]chan T
	nextID uint64
	closed bool
}

// NewHub returns an empty hub.
func NewHub[T any]() *Hub[T] {
	return &Hub[T]{subs: make(map[uint64]chan T)}
}

// Subscribe registers a subscriber with a buffer of buf values (buf < 1
// uses a default). The returned cancel func unregisters it and closes the
// channel; it is safe to call more than once. Subscribing to a closed hub
// returns an already-closed channel.
func (h *Hub[T]) Subscribe(buf int) (<-chan T, func()) {
	if buf < 1 {
		buf = defaultBuffer
	}
	ch := make(chan T, buf)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

// Publish delivers v to every subscriber.
func (h *Hub[T]) Publish(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for _, ch := range h.subs {
		offer(ch, v)
	}
}

// offer sends v, evicting the oldest queued value when ch is full. Only
// Publish sends on ch and it holds the hub lock, so the retry cannot race
// another sender.
func offer[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Len returns the number of active subscribers.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close closes every subscriber channel. Later publishes are ignored.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
