package handlers

import (
	"errors"
	"strconv"
	"time"

	"aptiview/interview/internal/models"
	"aptiview/interview/internal/utils"
)

const (
	expiryWindow = 24 * time.Hour
	earlyWindow  = time.Hour
)

// rejection is an eligibility failure whose text is shown to the candidate. All close with 1008.
type rejection string

func (r rejection) Error() string { return string(r) }

var (
	ErrMissingToken     error = rejection("Missing interview session token")
	ErrInvalidLink      error = rejection("Invalid interview link")
	ErrAlreadyCompleted error = rejection("This interview has already been completed")
	ErrExpired          error = rejection("This interview link has expired")
	ErrNotYetAvailable  error = rejection("This interview is not yet available")
	ErrInProgress       error = rejection("This interview is already in progress in another window")
	ErrUnauthorized     error = rejection("Invalid or missing access token")
)

func isPolicyError(err error) bool {
	var r rejection
	return errors.As(err, &r)
}

// CheckEligibility decides from the persisted record alone whether a session may open now.
func CheckEligibility(interview *models.Interview, now time.Time) error {
	switch {
	case interview.EndedAt != nil:
		return ErrAlreadyCompleted
	case now.Sub(interview.ScheduledAt) > expiryWindow:
		return ErrExpired
	case !interview.IsActive && interview.ScheduledAt.Sub(now) > earlyWindow:
		return ErrNotYetAvailable
	}
	return nil
}

// checkAuth validates the optional access token against the interview.
func checkAuth(token string, interviewID uint, secret []byte, required bool) error {
	if token == "" {
		if required {
			return ErrUnauthorized
		}
		return nil
	}
	claims, err := utils.ValidateSessionToken(token, secret)
	if err != nil {
		return ErrUnauthorized
	}
	if claims.InterviewID != strconv.FormatUint(uint64(interviewID), 10) {
		return ErrUnauthorized
	}
	return nil
}
