package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"aptiview/interview/internal/models"
)

type InterviewRepository struct {
	DB *gorm.DB
}

// Completion is everything written when an interview finishes.
type Completion struct {
	EndedAt    time.Time
	Summary    *models.ScoredSummary
	Transcript []models.TranscriptEntry
}

// FindByToken loads the interview with its application and job.
func (r *InterviewRepository) FindByToken(token string) (*models.Interview, error) {
	var interview models.Interview
	err := r.DB.Preload("Application.Job").Where("session_token = ?", token).First(&interview).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &interview, nil
}

// Activate marks an unfinished interview active. The first activation time is kept on reconnects.
func (r *InterviewRepository) Activate(id uint, at time.Time) error {
	res := r.DB.Model(&models.Interview{}).
		Where("id = ? AND ended_at IS NULL", id).
		Updates(map[string]interface{}{
			"is_active":         true,
			"actual_started_at": gorm.Expr("COALESCE(actual_started_at, ?)", at),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyEnded
	}
	return nil
}

// Complete writes the summary, transcript and score in one transaction.
// A second call for the same interview returns ErrAlreadyEnded and writes nothing.
func (r *InterviewRepository) Complete(id uint, c Completion) error {
	if c.Summary == nil {
		return errors.New("completion requires a summary")
	}
	transcript, err := json.Marshal(c.Transcript)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	strengths, _ := json.Marshal(c.Summary.Strengths)
	weaknesses, _ := json.Marshal(c.Summary.Weaknesses)

	return r.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Interview{}).
			Where("id = ? AND ended_at IS NULL", id).
			Updates(map[string]interface{}{
				"is_active":     false,
				"ended_at":      c.EndedAt,
				"ai_summary":    c.Summary.Summary,
				"ai_transcript": string(transcript),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyEnded
		}

		score := models.InterviewScore{
			InterviewID:       id,
			Communication:     c.Summary.Scores.Communication,
			Technical:         c.Summary.Scores.Technical,
			ProblemSolving:    c.Summary.Scores.ProblemSolving,
			CulturalFit:       c.Summary.Scores.CulturalFit,
			Overall:           c.Summary.Scores.Overall(),
			Strengths:         string(strengths),
			Weaknesses:        string(weaknesses),
			Recommendation:    c.Summary.Recommendation,
			ShouldProceed:     c.Summary.ShouldProceed,
			ProctorViolations: c.Summary.ProctorViolations,
		}
		return tx.Create(&score).Error
	})
}

// ResetStaleActivations clears is_active on interviews activated before cutoff that never ended.
func (r *InterviewRepository) ResetStaleActivations(cutoff time.Time) (int64, error) {
	res := r.DB.Model(&models.Interview{}).
		Where("is_active = ? AND ended_at IS NULL AND actual_started_at < ?", true, cutoff).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}

// SaveResumeSummary caches a generated resume brief on the application.
func (r *InterviewRepository) SaveResumeSummary(applicationID uint, summary string) error {
	return r.DB.Model(&models.Application{}).
		Where("id = ?", applicationID).
		Update("resume_summary", summary).Error
}

func (r *InterviewRepository) ScoreFor(interviewID uint) (*models.InterviewScore, error) {
	var score models.InterviewScore
	if err := r.DB.Where("interview_id = ?", interviewID).First(&score).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &score, nil
}
