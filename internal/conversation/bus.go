package conversation

import (
	"sync"

	"aptiview/interview/internal/models"
)

type EventKind string

const (
	EventConnected         EventKind = "connected"
	EventAssistantMessage  EventKind = "assistant-message"
	EventUserMessage       EventKind = "user-message"
	EventAudioResponse     EventKind = "audio-response"
	EventInterviewComplete EventKind = "interview-complete"
	EventError             EventKind = "error"
)

// Event is a single engine notification. Only the fields relevant to Kind are set.
type Event struct {
	Kind        EventKind
	Entry       *models.TranscriptEntry
	Audio       []byte
	AudioFormat string
	Err         error
}

type Handler func(Event)

// Bus delivers events synchronously, in publish order, to handlers registered per kind.
// Events published after Close are dropped.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventKind][]Handler
	closed   bool
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[EventKind][]Handler)}
}

func (b *Bus) Subscribe(kind EventKind, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], h)
}

// Publish returns false when the event was dropped.
func (b *Bus) Publish(e Event) bool {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return false
	}
	handlers := append([]Handler(nil), b.handlers[e.Kind]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
	return true
}

func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = make(map[EventKind][]Handler)
}
