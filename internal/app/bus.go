package app

import (
	"sync"

	"github.com/yourusername/sonic-extract-go/internal/domain"
)

// EventBus fans task lifecycle events out to subscribers. Publish never
// blocks: each subscriber owns a buffered channel and events are dropped
// for subscribers that fall behind. Per-task ordering is preserved because
// the scheduler publishes each task's events sequentially.
type EventBus struct {
	mu     sync.RWMutex
	subs   map[int]chan domain.Event
	nextID int
	closed bool
}

// NewEventBus creates an event bus with no subscribers
func NewEventBus() *EventBus {
	return &EventBus{
		subs: make(map[int]chan domain.Event),
	}
}

// Subscribe registers a subscriber with the given channel buffer and
// returns its event channel plus an unsubscribe function. The channel is
// closed on unsubscribe and on bus Close.
func (b *EventBus) Subscribe(buffer int) (<-chan domain.Event, func()) {
	if buffer < 1 {
		buffer = 1
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan domain.Event, buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[id] = ch

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, unsubscribe
}

// Publish delivers an event to every subscriber without blocking. Slow
// subscribers lose events once their buffer fills.
func (b *EventBus) Publish(e domain.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Close shuts the bus down and closes all subscriber channels
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
