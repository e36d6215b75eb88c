package proctoring

import (
	"sync"
	"time"

	"aptiview/interview/internal/metrics"
	"aptiview/interview/internal/models"
	"aptiview/interview/internal/utils"
)

const maxKindLength = 64

// Aggregator collects client reported integrity events for one session.
// Writes after Freeze are ignored.
type Aggregator struct {
	mu     sync.Mutex
	events []models.ProctorEvent
	counts map[string]int
	frozen bool
	now    func() time.Time
}

func NewAggregator() *Aggregator {
	return &Aggregator{counts: make(map[string]int), now: time.Now}
}

// Record appends an event. Malformed or late events are dropped and false is returned.
// A zero timestamp means "now".
func (a *Aggregator) Record(kind string, occurredAtMs int64) bool {
	k := utils.NormalizeKind(kind)
	if !validKind(k) || occurredAtMs < 0 {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.frozen {
		return false
	}
	if occurredAtMs == 0 {
		occurredAtMs = a.now().UnixMilli()
	}
	a.events = append(a.events, models.ProctorEvent{Kind: k, OccurredAtMs: occurredAtMs})
	a.counts[k]++
	metrics.ProctorEvent(k)
	return true
}

// Freeze stops accepting events and returns the final event list.
func (a *Aggregator) Freeze() []models.ProctorEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.frozen = true
	return append([]models.ProctorEvent(nil), a.events...)
}

func (a *Aggregator) Events() []models.ProctorEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.ProctorEvent(nil), a.events...)
}

func (a *Aggregator) Counts() map[string]int {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]int, len(a.counts))
	for k, v := range a.counts {
		out[k] = v
	}
	return out
}

func (a *Aggregator) Total() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.events)
}

func validKind(kind string) bool {
	if kind == "" || len(kind) > maxKindLength {
		return false
	}
	for _, r := range kind {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			return false
		}
	}
	return true
}

// CountByKind tallies an event list.
func CountByKind(events []models.ProctorEvent) map[string]int {
	counts := make(map[string]int)
	for _, e := range events {
		counts[e.Kind]++
	}
	return counts
}
