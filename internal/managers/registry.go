package managers

import (
	"context"
	"errors"
	"time"
)

const (
	// CompletedChannel carries interview_completed events for downstream consumers.
	CompletedChannel = "interview_completed"

	DefaultLeaseTTL = 2 * time.Minute
)

var ErrLeaseLost = errors.New("session lease no longer held by this instance")

// SessionRegistry guarantees at most one live connection per interview across instances.
type SessionRegistry interface {
	// Acquire takes the lease for an interview. It returns false when another connection holds it.
	Acquire(ctx context.Context, interviewID uint) (bool, error)
	Refresh(ctx context.Context, interviewID uint) error
	Release(ctx context.Context, interviewID uint) error
	PublishCompleted(ctx context.Context, event CompletionEvent) error
	InstanceID() string
}

// CompletionEvent is published once an interview's results are persisted.
type CompletionEvent struct {
	InterviewID    uint      `json:"interviewId"`
	ApplicationID  uint      `json:"applicationId"`
	Recommendation string    `json:"recommendation"`
	ShouldProceed  bool      `json:"shouldProceed"`
	EndedAt        time.Time `json:"endedAt"`
	InstanceID     string    `json:"instanceId"`
}
