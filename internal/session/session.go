package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"aptiview/interview/internal/models"
	"aptiview/interview/internal/proctoring"
)

// Session is the live state for one connection to one interview.
type Session struct {
	ID                   string
	InterviewID          uint
	ApplicationID        uint
	CandidateDisplayName string
	JobTitle             string
	CompanyName          string
	JobDescription       string
	ResumeSummary        string
	CoverLetter          string
	ScheduledAt          time.Time
	Duration             time.Duration

	Proctor *proctoring.Aggregator

	mu         sync.Mutex
	startedAt  time.Time
	deadlineAt time.Time
	active     bool

	finalizeOnce sync.Once
	summary      *models.ScoredSummary
}

// New builds a session from a loaded interview record (application and job preloaded).
func New(interview *models.Interview, duration time.Duration) *Session {
	app := interview.Application
	return &Session{
		ID:                   uuid.NewString(),
		InterviewID:          interview.ID,
		ApplicationID:        interview.ApplicationID,
		CandidateDisplayName: app.CandidateName,
		JobTitle:             app.Job.Title,
		CompanyName:          app.Job.CompanyName,
		JobDescription:       app.Job.Description,
		ResumeSummary:        app.ResumeSummary,
		CoverLetter:          app.CoverLetter,
		ScheduledAt:          interview.ScheduledAt,
		Duration:             duration,
		Proctor:              proctoring.NewAggregator(),
	}
}

// Start marks the session active. Only the first call has an effect.
func (s *Session) Start(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.startedAt.IsZero() {
		return false
	}
	s.startedAt = now
	s.deadlineAt = now.Add(s.Duration)
	s.active = true
	return true
}

func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Session) Deactivate() {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
}

func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

func (s *Session) DeadlineAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deadlineAt
}

// SecondsRemaining is rounded down and never negative. Zero before start.
func (s *Session) SecondsRemaining(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deadlineAt.IsZero() || !now.Before(s.deadlineAt) {
		return 0
	}
	return int(s.deadlineAt.Sub(now) / time.Second)
}

// Finalize runs fn at most once per session. ran reports whether this call executed it.
func (s *Session) Finalize(fn func() *models.ScoredSummary) (summary *models.ScoredSummary, ran bool) {
	s.finalizeOnce.Do(func() {
		s.Deactivate()
		s.summary = fn()
		ran = true
	})
	return s.summary, ran
}

// Info is the metadata sent to the client; nothing sensitive.
func (s *Session) Info() *models.InterviewInfo {
	return &models.InterviewInfo{
		ID:              s.InterviewID,
		JobTitle:        s.JobTitle,
		CompanyName:     s.CompanyName,
		CandidateName:   s.CandidateDisplayName,
		ScheduledAt:     s.ScheduledAt,
		DurationSeconds: int(s.Duration / time.Second),
	}
}
