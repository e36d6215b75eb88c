package scoring

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"aptiview/interview/internal/llm"
	"aptiview/interview/internal/metrics"
	"aptiview/interview/internal/models"
	"aptiview/interview/internal/prompts"
)

// Input is everything needed to assess one interview.
type Input struct {
	JobTitle       string
	JobDescription string
	Transcript     []models.TranscriptEntry
	ProctorEvents  []models.ProctorEvent
}

// Scorer asks the completion service for a structured assessment.
type Scorer struct {
	provider llm.Provider
	prompts  prompts.PromptProvider
	logger   *zap.Logger
	timeout  time.Duration
}

func NewScorer(provider llm.Provider, pm prompts.PromptProvider, logger *zap.Logger, timeout time.Duration) *Scorer {
	return &Scorer{provider: provider, prompts: pm, logger: logger, timeout: timeout}
}

// Summarize never fails: service or parse errors yield the neutral fallback.
// Proctoring deductions are applied to whichever result is returned.
func (s *Scorer) Summarize(ctx context.Context, in Input) *models.ScoredSummary {
	summary := s.generate(ctx, in)
	if points := ApplyDeductions(summary, in.ProctorEvents); points > 0 {
		s.logger.Info("applied proctoring deductions", zap.Int("points", points), zap.Int("events", len(in.ProctorEvents)))
	}
	return summary
}

func (s *Scorer) generate(ctx context.Context, in Input) *models.ScoredSummary {
	if len(in.Transcript) == 0 {
		return Fallback()
	}

	prompt, err := s.prompts.BuildPrompt(prompts.Scoring, prompts.VariantDefault, prompts.ScoringData{
		JobTitle:       in.JobTitle,
		JobDescription: in.JobDescription,
		Transcript:     FormatTranscript(in.Transcript),
	})
	if err != nil {
		s.logger.Error("failed to build scoring prompt", zap.Error(err))
		return Fallback()
	}
	system, err := s.prompts.BuildSystemPrompt(prompts.Scoring, nil)
	if err != nil {
		s.logger.Error("failed to build scoring system prompt", zap.Error(err))
		return Fallback()
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := s.provider.GenerateContent(ctx, &models.GenerationRequest{
		RequestID:         uuid.NewString(),
		SystemInstruction: system,
		Prompt:            prompt,
		Temperature:       0.2,
		JSONResponse:      true,
	})
	metrics.ObserveExternalCall("completion", start, err)
	if err != nil {
		s.logger.Error("scoring completion failed", zap.Error(err))
		return Fallback()
	}

	summary, err := Parse(resp.Content)
	if err != nil {
		s.logger.Warn("could not parse scoring response", zap.Error(err), zap.Int("length", len(resp.Content)))
		return Fallback()
	}
	return summary
}

// FormatTranscript renders entries as "Interviewer:" / "Candidate:" lines.
func FormatTranscript(entries []models.TranscriptEntry) string {
	var b strings.Builder
	for _, e := range entries {
		speaker := "Candidate"
		if e.Role == models.RoleAssistant {
			speaker = "Interviewer"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, e.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}
