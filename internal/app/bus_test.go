package app

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/sonic-extract-go/internal/domain"
)

func TestEventBus_PublishSubscribe(t *testing.T) {
	bus := NewEventBus()
	ch, unsubscribe := bus.Subscribe(8)
	defer unsubscribe()

	bus.Publish(domain.Event{Type: domain.EventAdded, TaskID: "t1"})

	select {
	case e := <-ch:
		assert.Equal(t, domain.EventAdded, e.Type)
		assert.Equal(t, "t1", e.TaskID)
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestEventBus_PerTaskOrdering(t *testing.T) {
	bus := NewEventBus()
	ch, unsubscribe := bus.Subscribe(100)
	defer unsubscribe()

	for i := 0; i < 50; i++ {
		bus.Publish(domain.Event{Type: domain.EventProgress, TaskID: "t1", Progress: i})
	}

	for i := 0; i < 50; i++ {
		select {
		case e := <-ch:
			assert.Equal(t, i, e.Progress, "events must arrive in publication order")
		case <-time.After(time.Second):
			t.Fatal("event stream ended early")
		}
	}
}

func TestEventBus_SlowSubscriberDropsEvents(t *testing.T) {
	bus := NewEventBus()
	ch, unsubscribe := bus.Subscribe(2)
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		// publish must never block on a full subscriber
		for i := 0; i < 100; i++ {
			bus.Publish(domain.Event{Type: domain.EventProgress, TaskID: fmt.Sprintf("t%d", i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	assert.Len(t, ch, 2, "overflow beyond the buffer is dropped")
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := NewEventBus()
	ch, unsubscribe := bus.Subscribe(1)

	unsubscribe()

	_, open := <-ch
	assert.False(t, open, "channel closes on unsubscribe")

	// publishing after unsubscribe must not panic
	bus.Publish(domain.Event{Type: domain.EventAdded, TaskID: "t1"})

	// double unsubscribe is a no-op
	unsubscribe()
}

func TestEventBus_Close(t *testing.T) {
	bus := NewEventBus()
	first, _ := bus.Subscribe(1)

	bus.Close()

	_, open := <-first
	require.False(t, open)

	// subscribing after close yields a closed channel
	late, _ := bus.Subscribe(1)
	_, open = <-late
	assert.False(t, open)
}
