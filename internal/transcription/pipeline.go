package transcription

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"aptiview/interview/internal/heuristics"
	"aptiview/interview/internal/metrics"
	"aptiview/interview/internal/speech/stt"
	"aptiview/interview/internal/utils"
)

// MinAudioBytes is the smallest buffer worth sending to the speech-to-text service.
const MinAudioBytes = 1000

// ScratchPrefix marks files written by the pipeline so the maintenance job can sweep leftovers.
const ScratchPrefix = "interview-audio-"

const interviewHint = "This is a candidate answering a job interview question in English."

var extensions = map[string]string{
	"audio/webm":  "webm",
	"video/webm":  "webm",
	"audio/ogg":   "ogg",
	"audio/wav":   "wav",
	"audio/x-wav": "wav",
	"audio/wave":  "wav",
	"audio/mpeg":  "mp3",
	"audio/mp3":   "mp3",
	"audio/mp4":   "m4a",
	"audio/m4a":   "m4a",
	"audio/x-m4a": "m4a",
	"audio/flac":  "flac",
}

// Pipeline turns raw audio into validated, cleaned text.
type Pipeline struct {
	provider   stt.Provider
	scratchDir string
	logger     *zap.Logger
	validator  *heuristics.Classifier[string]
	attempts   []stt.TranscribeOptions
	timeout    time.Duration
}

type Option func(*Pipeline)

// WithAttempts replaces the default strict-to-relaxed attempt ladder.
func WithAttempts(attempts ...stt.TranscribeOptions) Option {
	return func(p *Pipeline) { p.attempts = attempts }
}

// WithCallTimeout bounds each speech-to-text call.
func WithCallTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.timeout = d }
}

func NewPipeline(provider stt.Provider, scratchDir string, logger *zap.Logger, opts ...Option) *Pipeline {
	zero := 0.0
	p := &Pipeline{
		provider:   provider,
		scratchDir: scratchDir,
		logger:     logger,
		validator:  heuristics.InvalidTranscript(),
		attempts: []stt.TranscribeOptions{
			{Language: "en", Prompt: interviewHint, Temperature: &zero},
			{Language: "en"},
			{},
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ExtensionFor maps a MIME type (codec parameters ignored) to a file extension. Empty defaults to webm.
func ExtensionFor(mimeType string) (string, bool) {
	mt := utils.NormalizeMimeType(mimeType)
	if mt == "" {
		return "webm", true
	}
	ext, ok := extensions[mt]
	return ext, ok
}

// Transcribe returns cleaned text or an *Error describing why the audio is unusable.
func (p *Pipeline) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) < MinAudioBytes {
		metrics.TranscriptionResult(string(KindTooShort))
		return "", newError(KindTooShort, fmt.Errorf("%d bytes is below the %d byte minimum", len(audio), MinAudioBytes))
	}

	ext, ok := ExtensionFor(mimeType)
	if !ok {
		metrics.TranscriptionResult(string(KindFormatUnsupported))
		return "", newError(KindFormatUnsupported, fmt.Errorf("mime type %q", mimeType))
	}

	path, err := p.writeScratch(audio, ext)
	if err != nil {
		metrics.TranscriptionResult(string(KindWriteFailed))
		return "", newError(KindWriteFailed, err)
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			p.logger.Warn("failed to remove scratch audio", zap.String("path", path), zap.Error(err))
		}
	}()

	var lastErr error
	for i, opts := range p.attempts {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}

		text, err := p.attempt(ctx, path, opts)
		if err != nil {
			lastErr = err
			p.logger.Warn("transcription attempt failed", zap.Int("attempt", i+1), zap.Error(err))
			continue
		}

		if reason, invalid := p.validator.Classify(text); invalid {
			lastErr = fmt.Errorf("attempt %d rejected: %s", i+1, reason)
			p.logger.Debug("transcription rejected",
				zap.Int("attempt", i+1),
				zap.String("reason", reason),
				zap.String("text", text))
			continue
		}

		metrics.TranscriptionResult("ok")
		return Clean(text), nil
	}

	if lastErr == nil {
		lastErr = errors.New("no attempts configured")
	}
	metrics.TranscriptionResult(string(KindAllAttemptsFailed))
	return "", newError(KindAllAttemptsFailed, lastErr)
}

func (p *Pipeline) attempt(ctx context.Context, path string, opts stt.TranscribeOptions) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := p.provider.Transcribe(ctx, path, opts)
	metrics.ObserveExternalCall("stt", start, err)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

func (p *Pipeline) writeScratch(audio []byte, ext string) (string, error) {
	path := filepath.Join(p.scratchDir, ScratchPrefix+uuid.NewString()+"."+ext)
	if err := os.WriteFile(path, audio, 0o600); err != nil {
		return "", fmt.Errorf("write scratch file: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("stat scratch file: %w", err)
	}
	if info.Size() == 0 {
		os.Remove(path)
		return "", errors.New("scratch file is empty after write")
	}
	return path, nil
}

var whitespace = regexp.MustCompile(`\s+`)

// noise punctuation trimmed from both ends; terminal .?! survive on the right
const leadingNoise = `.,;:!?-–—"'()[]{}*…~ `
const trailingNoise = `,;:-–—"'([{*…~ `

// Clean normalizes an accepted transcript for display and prompting.
func Clean(text string) string {
	s := whitespace.ReplaceAllString(strings.TrimSpace(text), " ")
	s = strings.TrimLeft(s, leadingNoise)
	s = strings.TrimRight(s, trailingNoise)
	if s == "" {
		return ""
	}

	r, size := utf8.DecodeRuneInString(s)
	s = string(unicode.ToUpper(r)) + s[size:]

	switch s[len(s)-1] {
	case '.', '?', '!':
	default:
		s += "."
	}
	return s
}
