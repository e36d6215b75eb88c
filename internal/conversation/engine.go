package conversation

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"aptiview/interview/internal/heuristics"
	"aptiview/interview/internal/llm"
	"aptiview/interview/internal/metrics"
	"aptiview/interview/internal/models"
	"aptiview/interview/internal/prompts"
	"aptiview/interview/internal/scoring"
	"aptiview/interview/internal/speech/tts"
)

type State string

const (
	StateNotStarted      State = "NOT_STARTED"
	StateGreetingSent    State = "GREETING_SENT"
	StateQuestioning     State = "QUESTIONING"
	StateUnclearHandling State = "UNCLEAR_HANDLING"
	StateFollowUp        State = "FOLLOW_UP"
	StateWrapUp          State = "WRAP_UP"
	StateEnded           State = "ENDED"
)

const (
	historyTurns         = 6
	wrapUpThreshold      = 60
	prioritizeThreshold  = 180
	defaultEndDelay      = 3 * time.Second
	followUpTemperature  = 0.7
	followUpOutputTokens = 256
)

var (
	ErrAlreadyStarted = errors.New("interview already started")
	ErrNotActive      = errors.New("interview is not accepting responses")
	ErrClosed         = errors.New("engine closed")
)

// Transcriber turns audio into text; implemented by transcription.Pipeline.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Summarizer produces the final assessment; implemented by scoring.Scorer.
type Summarizer interface {
	Summarize(ctx context.Context, in scoring.Input) *models.ScoredSummary
}

type Config struct {
	Interview       prompts.InterviewContext
	CustomQuestions []string
	DurationMinutes int
	Voice           string
	CallTimeout     time.Duration
	// EndDelay is how long after a closing reply interview-complete is published.
	EndDelay time.Duration
}

type Deps struct {
	LLM         llm.Provider
	TTS         tts.Provider
	Transcriber Transcriber
	Summarizer  Summarizer
	Prompts     prompts.PromptProvider
	Logger      *zap.Logger
	Rand        *rand.Rand
}

// Engine decides what the interviewer says next. One Engine serves one connection.
// Conversation calls are expected to be serialized by the caller; Close may be called concurrently.
type Engine struct {
	cfg  Config
	deps Deps
	bus  *Bus
	plan *QuestionPlan

	unclear    *heuristics.Classifier[string]
	conclusion *heuristics.Classifier[heuristics.Reply]
	system     string

	mu                sync.Mutex
	state             State
	transcript        []models.TranscriptEntry
	nextIndex         int
	openingDone       bool
	completeScheduled bool
	closed            bool
	endTimer          *time.Timer
	now               func() time.Time
}

func NewEngine(cfg Config, deps Deps) (*Engine, error) {
	if deps.LLM == nil || deps.TTS == nil || deps.Transcriber == nil || deps.Summarizer == nil || deps.Prompts == nil {
		return nil, errors.New("conversation engine requires completion, speech, transcription, scoring and prompt dependencies")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.EndDelay <= 0 {
		cfg.EndDelay = defaultEndDelay
	}
	if cfg.DurationMinutes <= 0 {
		cfg.DurationMinutes = 10
	}

	system, err := deps.Prompts.BuildSystemPrompt(prompts.Interviewer, cfg.Interview)
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:        cfg,
		deps:       deps,
		bus:        NewBus(),
		plan:       NewQuestionPlan(cfg.Interview.CandidateName, cfg.Interview.JobTitle, cfg.DurationMinutes, cfg.CustomQuestions),
		unclear:    heuristics.UnclearResponse(),
		conclusion: heuristics.Conclusion(),
		system:     system,
		state:      StateNotStarted,
		now:        time.Now,
	}, nil
}

func (e *Engine) Subscribe(kind EventKind, h Handler) {
	e.bus.Subscribe(kind, h)
}

func (e *Engine) Plan() *QuestionPlan {
	return e.plan
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Transcript returns a copy of the conversation so far.
func (e *Engine) Transcript() []models.TranscriptEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.TranscriptEntry(nil), e.transcript...)
}

// StartInterview speaks the greeting.
func (e *Engine) StartInterview(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.state != StateNotStarted {
		e.mu.Unlock()
		return ErrAlreadyStarted
	}
	e.state = StateGreetingSent
	e.nextIndex = 1
	e.mu.Unlock()

	e.bus.Publish(Event{Kind: EventConnected})
	e.say(ctx, e.plan.At(0), true)

	e.setState(StateGreetingSent, StateQuestioning)
	return nil
}

// ProcessUserResponse records the candidate's answer and replies to it.
func (e *Engine) ProcessUserResponse(ctx context.Context, text string, secondsRemaining int) error {
	text = strings.TrimSpace(text)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.state != StateQuestioning {
		e.mu.Unlock()
		return ErrNotActive
	}
	entry := e.appendLocked(models.RoleUser, text)
	e.mu.Unlock()

	e.bus.Publish(Event{Kind: EventUserMessage, Entry: &entry})

	if reason, unclear := e.unclear.Classify(text); unclear {
		e.setState(StateQuestioning, StateUnclearHandling)
		e.deps.Logger.Debug("unclear candidate response", zap.String("reason", reason))
		e.say(ctx, e.clarification(text), true)
		e.setState(StateUnclearHandling, StateQuestioning)
		return nil
	}

	reply := e.nextReply(ctx, text, secondsRemaining)
	e.say(ctx, reply, true)
	e.setState(StateFollowUp, StateQuestioning)
	return nil
}

// TranscribeAudio delegates to the transcription pipeline.
func (e *Engine) TranscribeAudio(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if e.isClosed() {
		return "", ErrClosed
	}
	return e.deps.Transcriber.Transcribe(ctx, audio, mimeType)
}

// WrapUp speaks the fixed time-up message. Returns false when the interview is not in progress.
func (e *Engine) WrapUp(ctx context.Context) bool {
	e.mu.Lock()
	switch {
	case e.closed, e.state == StateNotStarted, e.state == StateWrapUp, e.state == StateEnded:
		e.mu.Unlock()
		return false
	}
	e.state = StateWrapUp
	e.stopEndTimerLocked()
	var unanswered *models.TranscriptEntry
	if n := len(e.transcript); n > 0 && e.transcript[n-1].Role == models.RoleAssistant {
		entry := e.appendLocked(models.RoleUser, PlaceholderNoResponse)
		unanswered = &entry
	}
	e.mu.Unlock()

	if unanswered != nil {
		e.bus.Publish(Event{Kind: EventUserMessage, Entry: unanswered})
	}
	e.say(ctx, wrapUpReply, false)
	return true
}

// GenerateFinalSummary scores the transcript with the given proctoring events.
func (e *Engine) GenerateFinalSummary(ctx context.Context, events []models.ProctorEvent) *models.ScoredSummary {
	return e.deps.Summarizer.Summarize(ctx, scoring.Input{
		JobTitle:       e.cfg.Interview.JobTitle,
		JobDescription: e.cfg.Interview.JobDescription,
		Transcript:     e.Transcript(),
		ProctorEvents:  events,
	})
}

// EndInterview stops the conversation; later responses are ignored.
func (e *Engine) EndInterview() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopEndTimerLocked()
	e.state = StateEnded
}

// Close releases timers and drops any events produced by calls still in flight.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.state = StateEnded
	e.stopEndTimerLocked()
	e.mu.Unlock()

	e.bus.Close()
}

func (e *Engine) nextReply(ctx context.Context, latest string, secondsRemaining int) string {
	e.mu.Lock()
	if secondsRemaining <= wrapUpThreshold && e.nextIndex < e.plan.ClosingIndex() {
		e.nextIndex = e.plan.ClosingIndex()
	}
	index := e.nextIndex
	opening := index == 1 && !e.openingDone
	if opening {
		e.openingDone = true
	}
	e.state = StateFollowUp
	e.mu.Unlock()

	if index < e.plan.Len() {
		if opening {
			reply, err := e.generate(ctx, prompts.VariantOpening, latest, secondsRemaining)
			if err == nil {
				return reply
			}
			e.deps.Logger.Warn("opening follow-up failed, continuing script", zap.Error(err))
		}
		e.mu.Lock()
		e.nextIndex++
		e.mu.Unlock()
		return e.plan.At(index)
	}

	reply, err := e.generate(ctx, prompts.VariantFollowUp, latest, secondsRemaining)
	if err != nil {
		e.deps.Logger.Error("follow-up generation failed", zap.Error(err))
		e.bus.Publish(Event{Kind: EventError, Err: err})
		return technicalDifficultyReply
	}
	return reply
}

func (e *Engine) generate(ctx context.Context, variant, latest string, secondsRemaining int) (string, error) {
	transcript := e.Transcript()
	if len(transcript) > historyTurns {
		transcript = transcript[len(transcript)-historyTurns:]
	}

	prompt, err := e.deps.Prompts.BuildPrompt(prompts.Interviewer, variant, prompts.FollowUpData{
		History:          scoring.FormatTranscript(transcript),
		LatestAnswer:     latest,
		SecondsRemaining: max(secondsRemaining, 0),
		TimeGuidance:     timeGuidance(secondsRemaining),
	})
	if err != nil {
		return "", err
	}

	callCtx, cancel := e.callContext(ctx)
	defer cancel()

	start := time.Now()
	resp, err := e.deps.LLM.GenerateContent(callCtx, &models.GenerationRequest{
		RequestID:         uuid.NewString(),
		SystemInstruction: e.system,
		Prompt:            prompt,
		Temperature:       followUpTemperature,
		MaxOutputTokens:   followUpOutputTokens,
	})
	metrics.ObserveExternalCall("completion", start, err)
	if err != nil {
		return "", err
	}
	reply := strings.TrimSpace(resp.Content)
	if reply == "" {
		return "", errors.New("empty follow-up")
	}
	return reply, nil
}

// say synthesizes, records and publishes an assistant utterance.
func (e *Engine) say(ctx context.Context, text string, detectConclusion bool) {
	if e.isClosed() {
		return
	}

	callCtx, cancel := e.callContext(ctx)
	start := time.Now()
	audio, err := e.deps.TTS.Synthesize(callCtx, text, tts.SynthesizeOptions{Voice: e.cfg.Voice})
	cancel()
	metrics.ObserveExternalCall("tts", start, err)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	entry := e.appendLocked(models.RoleAssistant, text)
	turns := len(e.transcript)
	e.mu.Unlock()

	e.bus.Publish(Event{Kind: EventAssistantMessage, Entry: &entry})
	if err != nil {
		e.deps.Logger.Warn("speech synthesis failed, sending text only", zap.Error(err))
		e.bus.Publish(Event{Kind: EventError, Err: err})
	} else {
		e.bus.Publish(Event{Kind: EventAudioResponse, Audio: audio.Audio, AudioFormat: audio.Format})
	}

	if detectConclusion {
		if name, done := e.conclusion.Classify(heuristics.Reply{Text: text, Turns: turns}); done {
			e.deps.Logger.Info("interview conclusion detected", zap.String("signal", name))
			e.scheduleCompletion()
		}
	}
}

func (e *Engine) scheduleCompletion() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.completeScheduled {
		return
	}
	e.completeScheduled = true
	e.state = StateWrapUp
	e.endTimer = time.AfterFunc(e.cfg.EndDelay, func() {
		e.mu.Lock()
		if e.closed || e.state != StateWrapUp {
			e.mu.Unlock()
			return
		}
		e.state = StateEnded
		e.mu.Unlock()
		e.bus.Publish(Event{Kind: EventInterviewComplete})
	})
}

func (e *Engine) clarification(text string) string {
	if reply, ok := placeholderReplies[text]; ok {
		return reply
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return clarificationReplies[e.deps.Rand.Intn(len(clarificationReplies))]
}

func (e *Engine) appendLocked(role models.Role, content string) models.TranscriptEntry {
	entry := models.TranscriptEntry{Role: role, Content: content, Timestamp: e.now()}
	e.transcript = append(e.transcript, entry)
	return entry
}

// setState moves from -> to only if the engine is still in from.
func (e *Engine) setState(from, to State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == from {
		e.state = to
	}
}

func (e *Engine) stopEndTimerLocked() {
	if e.endTimer != nil {
		e.endTimer.Stop()
		e.endTimer = nil
	}
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *Engine) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.CallTimeout > 0 {
		return context.WithTimeout(ctx, e.cfg.CallTimeout)
	}
	return context.WithCancel(ctx)
}

func timeGuidance(secondsRemaining int) string {
	switch {
	case secondsRemaining <= wrapUpThreshold:
		return "Time is almost up. Do not ask another question. Thank the candidate for their time and tell them that concludes the interview."
	case secondsRemaining <= prioritizeThreshold:
		return "Time is limited, so prioritize the single most important remaining topic and keep your question brief."
	default:
		return ""
	}
}
