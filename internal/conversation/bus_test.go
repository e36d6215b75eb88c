package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBusDeliversInOrderPerKind(t *testing.T) {
	bus := NewBus()
	var got []string

	bus.Subscribe(EventAssistantMessage, func(e Event) { got = append(got, "first:"+e.Entry.Content) })
	bus.Subscribe(EventAssistantMessage, func(e Event) { got = append(got, "second:"+e.Entry.Content) })
	bus.Subscribe(EventError, func(e Event) { got = append(got, "error") })

	for _, text := range []string{"a", "b"} {
		entry := entryWith(text)
		assert.True(t, bus.Publish(Event{Kind: EventAssistantMessage, Entry: &entry}))
	}

	assert.Equal(t, []string{"first:a", "second:a", "first:b", "second:b"}, got)
}

func TestBusWithoutSubscribers(t *testing.T) {
	bus := NewBus()
	assert.True(t, bus.Publish(Event{Kind: EventConnected}))
}

func TestBusDropsAfterClose(t *testing.T) {
	bus := NewBus()
	calls := 0
	bus.Subscribe(EventConnected, func(Event) { calls++ })

	bus.Close()
	assert.False(t, bus.Publish(Event{Kind: EventConnected}))
	assert.Equal(t, 0, calls)
}

func TestBusHandlerMaySubscribe(t *testing.T) {
	bus := NewBus()
	calls := 0
	bus.Subscribe(EventConnected, func(Event) {
		bus.Subscribe(EventError, func(Event) { calls++ })
	})

	bus.Publish(Event{Kind: EventConnected})
	bus.Publish(Event{Kind: EventError})
	assert.Equal(t, 1, calls)
}
