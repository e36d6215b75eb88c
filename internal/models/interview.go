package models

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Job is the posting an interview is conducted for. Managed outside this service.
type Job struct {
	gorm.Model
	Title           string `gorm:"not null" json:"title"`
	CompanyName     string `json:"companyName"`
	Description     string `gorm:"type:text" json:"description"`
	CustomQuestions string `gorm:"type:text" json:"customQuestions"` // JSON array or newline separated
}

// CustomQuestionList returns the recruiter supplied questions, skipping blanks.
func (j *Job) CustomQuestionList() []string {
	raw := strings.TrimSpace(j.CustomQuestions)
	if raw == "" {
		return nil
	}

	var parsed []string
	if strings.HasPrefix(raw, "[") && json.Unmarshal([]byte(raw), &parsed) == nil {
		return compact(parsed)
	}
	return compact(strings.Split(raw, "\n"))
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Application links a candidate to a job.
type Application struct {
	gorm.Model
	JobID          uint   `gorm:"not null;index" json:"jobId"`
	Job            Job    `json:"job"`
	CandidateName  string `json:"candidateName"`
	CandidateEmail string `json:"candidateEmail"`
	ResumeURL      string `json:"resumeUrl"`
	ResumeSummary  string `gorm:"type:text" json:"resumeSummary"`
	CoverLetter    string `gorm:"type:text" json:"coverLetter"`
}

// Interview is the persisted record for one scheduled interview.
// The session service reads eligibility fields and writes completion fields once.
type Interview struct {
	gorm.Model
	ApplicationID   uint            `gorm:"not null;index" json:"applicationId"`
	Application     Application     `json:"application"`
	SessionToken    string          `gorm:"uniqueIndex;not null" json:"-"`
	ScheduledAt     time.Time       `gorm:"not null" json:"scheduledAt"`
	IsActive        bool            `gorm:"not null;default:false;index" json:"isActive"`
	ActualStartedAt *time.Time      `json:"actualStartedAt"`
	EndedAt         *time.Time      `json:"endedAt"`
	AISummary       string          `gorm:"type:text" json:"aiSummary"`
	AITranscript    string          `gorm:"type:text" json:"aiTranscript"`
	Score           *InterviewScore `gorm:"foreignKey:InterviewID" json:"score,omitempty"`
}

// InterviewScore is written once at finalization.
type InterviewScore struct {
	gorm.Model
	InterviewID       uint    `gorm:"uniqueIndex;not null" json:"interviewId"`
	Communication     int     `json:"communication"`
	Technical         int     `json:"technical"`
	ProblemSolving    int     `json:"problemSolving"`
	CulturalFit       int     `json:"culturalFit"`
	Overall           float64 `json:"overall"`
	Strengths         string  `gorm:"type:text" json:"strengths"`  // JSON array
	Weaknesses        string  `gorm:"type:text" json:"weaknesses"` // JSON array
	Recommendation    string  `json:"recommendation"`
	ShouldProceed     bool    `gorm:"not null;default:false" json:"shouldProceed"`
	ProctorViolations int     `gorm:"not null;default:0" json:"proctorViolations"`
}

// InterviewAsset records a binary asset (screenshot, recording) captured during a session.
type InterviewAsset struct {
	gorm.Model
	InterviewID uint      `gorm:"not null;index" json:"interviewId"`
	Kind        string    `gorm:"not null" json:"kind"`
	URL         string    `gorm:"not null" json:"url"`
	CapturedAt  time.Time `json:"capturedAt"`
}

// InterviewInfo is the non-sensitive metadata sent to the client in interview-ready.
type InterviewInfo struct {
	ID              uint      `json:"id"`
	JobTitle        string    `json:"jobTitle"`
	CompanyName     string    `json:"companyName,omitempty"`
	CandidateName   string    `json:"candidateName"`
	ScheduledAt     time.Time `json:"scheduledAt"`
	DurationSeconds int       `json:"durationSeconds"`
}

// All lists the models managed by AutoMigrate.
func All() []interface{} {
	return []interface{}{&Job{}, &Application{}, &Interview{}, &InterviewScore{}, &InterviewAsset{}}
}
