package session

import (
	"sync"
	"time"
)

// Timer is the single interview countdown. When it expires onExpire runs, and onGrace runs
// grace later. Both fire at most once; Cancel stops whatever has not fired yet.
type Timer struct {
	duration time.Duration
	grace    time.Duration
	onExpire func()
	onGrace  func()

	mu        sync.Mutex
	expiry    *time.Timer
	graceT    *time.Timer
	started   bool
	fired     bool
	cancelled bool
}

func NewTimer(duration, grace time.Duration, onExpire, onGrace func()) *Timer {
	return &Timer{duration: duration, grace: grace, onExpire: onExpire, onGrace: onGrace}
}

// Start begins the countdown. It returns false if the timer was already started or cancelled.
func (t *Timer) Start() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started || t.cancelled {
		return false
	}
	t.started = true
	t.expiry = time.AfterFunc(t.duration, t.expire)
	return true
}

func (t *Timer) expire() {
	t.mu.Lock()
	if t.cancelled || t.fired {
		t.mu.Unlock()
		return
	}
	t.fired = true
	t.mu.Unlock()

	if t.onExpire != nil {
		t.onExpire()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled {
		return
	}
	t.graceT = time.AfterFunc(t.grace, func() {
		t.mu.Lock()
		cancelled := t.cancelled
		t.mu.Unlock()
		if !cancelled && t.onGrace != nil {
			t.onGrace()
		}
	})
}

// Cancel stops the countdown and any pending grace callback. It is safe to call more than once.
func (t *Timer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelled = true
	if t.expiry != nil {
		t.expiry.Stop()
	}
	if t.graceT != nil {
		t.graceT.Stop()
	}
}

func (t *Timer) Fired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fired
}
