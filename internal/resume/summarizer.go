package resume

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"aptiview/interview/internal/llm"
	"aptiview/interview/internal/metrics"
	"aptiview/interview/internal/models"
	"aptiview/interview/internal/prompts"
)

// BriefCache stores a generated brief so later sessions skip the work.
type BriefCache interface {
	SaveResumeSummary(applicationID uint, summary string) error
}

// Summarizer turns a resume document into a short interviewer brief.
type Summarizer struct {
	provider llm.Provider
	prompts  prompts.PromptProvider
	cache    BriefCache
	http     *resty.Client
	logger   *zap.Logger
	timeout  time.Duration

	localRoot    string
	allowedHosts []string
}

func NewSummarizer(provider llm.Provider, pm prompts.PromptProvider, cache BriefCache, logger *zap.Logger, timeout time.Duration, opts ...Option) *Summarizer {
	s := &Summarizer{
		provider: provider,
		prompts:  pm,
		cache:    cache,
		logger:   logger,
		timeout:  timeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.http = s.newHTTPClient(timeout)
	return s
}

// Brief returns the cached brief or generates one. Failures are logged and yield "".
func (s *Summarizer) Brief(ctx context.Context, app *models.Application, jobTitle string) string {
	if app == nil {
		return ""
	}
	if app.ResumeSummary != "" {
		return app.ResumeSummary
	}
	if app.ResumeURL == "" {
		return ""
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	brief, err := s.generate(ctx, app, jobTitle)
	if err != nil {
		s.logger.Warn("resume brief unavailable", zap.Uint("application_id", app.ID), zap.Error(err))
		return ""
	}
	if s.cache != nil {
		if err := s.cache.SaveResumeSummary(app.ID, brief); err != nil {
			s.logger.Warn("failed to cache resume brief", zap.Uint("application_id", app.ID), zap.Error(err))
		}
	}
	return brief
}

func (s *Summarizer) generate(ctx context.Context, app *models.Application, jobTitle string) (string, error) {
	data, err := s.fetch(ctx, app.ResumeURL)
	if err != nil {
		return "", err
	}
	text, err := ExtractText(data)
	if err != nil {
		return "", err
	}

	promptData := prompts.ResumeData{CandidateName: app.CandidateName, JobTitle: jobTitle, ResumeText: text}
	prompt, err := s.prompts.BuildPrompt(prompts.Resume, prompts.VariantDefault, promptData)
	if err != nil {
		return "", fmt.Errorf("build resume prompt: %w", err)
	}
	system, err := s.prompts.BuildSystemPrompt(prompts.Resume, nil)
	if err != nil {
		return "", fmt.Errorf("build resume system prompt: %w", err)
	}

	start := time.Now()
	resp, err := s.provider.GenerateContent(ctx, &models.GenerationRequest{
		RequestID:         uuid.NewString(),
		SystemInstruction: system,
		Prompt:            prompt,
		Temperature:       0.3,
		MaxOutputTokens:   400,
	})
	metrics.ObserveExternalCall("resume", start, err)
	if err != nil {
		return "", fmt.Errorf("resume completion: %w", err)
	}
	brief := strings.TrimSpace(resp.Content)
	if brief == "" {
		return "", fmt.Errorf("empty resume brief")
	}
	return brief, nil
}
