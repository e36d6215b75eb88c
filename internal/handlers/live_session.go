package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"aptiview/interview/internal/conversation"
	"aptiview/interview/internal/managers"
	"aptiview/interview/internal/metrics"
	"aptiview/interview/internal/models"
	"aptiview/interview/internal/repositories"
	"aptiview/interview/internal/session"
)

type turn func(ctx context.Context)

const completionMessage = "Thank you for completing the interview. The hiring team will review your responses."

// liveSession wires one connection to its engine. Conversation work runs on a single
// worker in arrival order; the socket reader never blocks on external calls.
type liveSession struct {
	h      *InterviewHandler
	sess   *session.Session
	engine *conversation.Engine
	client *session.Client
	logger *zap.Logger
	timer  *session.Timer

	ctx    context.Context
	cancel context.CancelFunc
	turns  chan turn
	wg     sync.WaitGroup

	mu         sync.Mutex
	closeTimer *time.Timer
}

func newLiveSession(h *InterviewHandler, sess *session.Session, engine *conversation.Engine, client *session.Client, logger *zap.Logger) *liveSession {
	ctx, cancel := context.WithCancel(context.Background())
	s := &liveSession{
		h:      h,
		sess:   sess,
		engine: engine,
		client: client,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		turns:  make(chan turn, turnQueueSize),
	}
	s.timer = session.NewTimer(h.cfg.Duration, h.cfg.CompletionGrace, s.onTimeUp, s.requestFinalize)
	s.subscribe()
	return s
}

func (s *liveSession) subscribe() {
	relay := func(e conversation.Event) {
		if e.Entry != nil {
			s.send(models.ServerMessage{Type: models.MsgTranscriptUpdate, Message: *e.Entry})
		}
	}
	s.engine.Subscribe(conversation.EventAssistantMessage, relay)
	s.engine.Subscribe(conversation.EventUserMessage, relay)
	s.engine.Subscribe(conversation.EventConnected, func(conversation.Event) {
		s.send(models.ServerMessage{Type: models.MsgVoiceConnected})
	})
	s.engine.Subscribe(conversation.EventAudioResponse, func(e conversation.Event) {
		s.send(models.ServerMessage{Type: models.MsgAudioChunk, Data: base64.StdEncoding.EncodeToString(e.Audio)})
	})
	s.engine.Subscribe(conversation.EventInterviewComplete, func(conversation.Event) {
		s.send(models.ServerMessage{Type: models.MsgInterviewComplete})
		s.requestFinalize()
	})
	s.engine.Subscribe(conversation.EventError, func(e conversation.Event) {
		s.logger.Warn("conversation error", zap.Error(e.Err))
	})
}

// run sends interview-ready and reads the socket until it closes, then tears down.
func (s *liveSession) run(conn *websocket.Conn) {
	defer s.teardown()

	s.wg.Add(2)
	go s.work()
	go s.keepLease()

	s.send(models.ServerMessage{Type: models.MsgInterviewReady, Interview: s.sess.Info()})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Info("interview socket closed", zap.Error(err))
			}
			return
		}
		var msg models.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.send(models.ErrorMessage("Invalid message format"))
			continue
		}
		s.dispatch(msg)
	}
}

func (s *liveSession) dispatch(msg models.ClientMessage) {
	switch msg.Type {
	case models.MsgStartInterview:
		s.enqueue(s.start)
	case models.MsgAudioData:
		s.enqueue(func(ctx context.Context) { s.handleAudio(ctx, msg) })
	case models.MsgTextMessage:
		s.enqueue(func(ctx context.Context) { s.handleText(ctx, msg.Text) })
	case models.MsgScreenshot:
		// ordered behind start-interview; the upload itself runs off the worker
		s.enqueue(func(context.Context) {
			if s.sess.StartedAt().IsZero() {
				return
			}
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.handleScreenshot(msg.ImageData)
			}()
		})
	case models.MsgProctorEvent:
		if s.sess.Proctor.Record(msg.Event, msg.At) {
			s.logger.Debug("proctor event recorded", zap.String("kind", msg.Event))
		}
	case models.MsgEndInterview:
		s.enqueue(s.end)
	default:
		s.send(models.ErrorMessage("Unknown message type: " + msg.Type))
	}
}

func (s *liveSession) enqueue(t turn) bool {
	select {
	case s.turns <- t:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *liveSession) work() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case t := <-s.turns:
			t(s.ctx)
		}
	}
}

func (s *liveSession) keepLease() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.h.cfg.LeaseRefresh)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := s.h.deps.Registry.Refresh(s.ctx, s.sess.InterviewID); err != nil && s.ctx.Err() == nil {
				s.logger.Warn("failed to refresh session lease", zap.Error(err))
			}
		}
	}
}

func (s *liveSession) start(ctx context.Context) {
	now := s.h.now()
	if !s.sess.Start(now) {
		return
	}
	if err := s.h.deps.Store.Activate(s.sess.InterviewID, now); err != nil {
		code, message := websocket.CloseInternalServerErr, "Unable to start the interview"
		if errors.Is(err, repositories.ErrAlreadyEnded) {
			code, message = websocket.ClosePolicyViolation, ErrAlreadyCompleted.Error()
		} else {
			s.logger.Error("failed to activate interview", zap.Error(err))
		}
		s.sess.Deactivate()
		s.send(models.ErrorMessage(message))
		s.client.Close(code, message)
		return
	}

	s.timer.Start()
	s.logger.Info("interview started", zap.Time("deadline", s.sess.DeadlineAt()))
	if err := s.engine.StartInterview(ctx); err != nil {
		s.logger.Warn("engine start failed", zap.Error(err))
	}
}

func (s *liveSession) handleAudio(ctx context.Context, msg models.ClientMessage) {
	if !s.sess.Active() {
		return
	}
	var text string
	audio, mimeType, err := decodePayload(msg.AudioData)
	if msg.MimeType != "" {
		mimeType = msg.MimeType
	}
	if err != nil {
		s.logger.Warn("undecodable audio payload", zap.Error(err))
		text = conversation.PlaceholderProcessingError
	} else if text, err = s.engine.TranscribeAudio(ctx, audio, mimeType); err != nil {
		s.logger.Info("transcription failed", zap.Int("bytes", len(audio)), zap.Error(err))
		text = conversation.PlaceholderFor(err)
	}
	s.respond(ctx, text)
}

func (s *liveSession) handleText(ctx context.Context, text string) {
	if !s.sess.Active() {
		return
	}
	s.respond(ctx, text)
}

func (s *liveSession) respond(ctx context.Context, text string) {
	remaining := s.sess.SecondsRemaining(s.h.now())
	if err := s.engine.ProcessUserResponse(ctx, text, remaining); err != nil {
		s.logger.Debug("response not processed", zap.Error(err))
	}
}

// end runs on the worker so it sees any start-interview queued ahead of it.
func (s *liveSession) end(ctx context.Context) {
	if s.sess.StartedAt().IsZero() {
		s.logger.Info("end-interview before start ignored")
		return
	}
	s.timer.Cancel()
	s.finalize(ctx)
}

func (s *liveSession) handleScreenshot(imageData string) {
	if s.h.deps.AssetStore == nil {
		return
	}
	data, mimeType, err := decodePayload(imageData)
	if err != nil || len(data) == 0 {
		s.logger.Debug("dropping undecodable screenshot", zap.Error(err))
		return
	}
	ext := "jpg"
	if mimeType == "image/png" {
		ext = "png"
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.h.cfg.CallTimeout)
	defer cancel()
	url, err := s.h.deps.AssetStore.Save(ctx, data, fmt.Sprintf("interviews/%d/screenshots", s.sess.InterviewID), ext)
	if err != nil {
		s.logger.Warn("failed to store screenshot", zap.Error(err))
		return
	}
	if s.h.deps.Assets == nil {
		return
	}
	asset := &models.InterviewAsset{InterviewID: s.sess.InterviewID, Kind: "screenshot", URL: url, CapturedAt: s.h.now()}
	if err := s.h.deps.Assets.Create(asset); err != nil {
		s.logger.Warn("failed to record screenshot", zap.Error(err))
	}
}

// onTimeUp runs on the timer goroutine; the wrap-up itself goes through the turn queue.
func (s *liveSession) onTimeUp() {
	s.logger.Info("interview time limit reached")
	s.enqueue(func(ctx context.Context) {
		s.engine.WrapUp(ctx)
	})
}

func (s *liveSession) requestFinalize() {
	s.timer.Cancel()
	s.enqueue(s.finalize)
}

// finalize scores and persists the interview once. It outlives the socket so a candidate
// dropping during scoring still gets a result recorded.
func (s *liveSession) finalize(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*s.h.cfg.CallTimeout+5*time.Second)
	defer cancel()

	summary, ran := s.sess.Finalize(func() *models.ScoredSummary {
		s.engine.EndInterview()
		return s.engine.GenerateFinalSummary(ctx, s.sess.Proctor.Freeze())
	})
	if !ran {
		return
	}

	endedAt := s.h.now()
	err := s.h.deps.Store.Complete(s.sess.InterviewID, repositories.Completion{
		EndedAt:    endedAt,
		Summary:    summary,
		Transcript: s.engine.Transcript(),
	})
	switch {
	case err == nil:
		metrics.SessionOutcome("completed")
		event := managers.CompletionEvent{
			InterviewID:    s.sess.InterviewID,
			ApplicationID:  s.sess.ApplicationID,
			Recommendation: summary.Recommendation,
			ShouldProceed:  summary.ShouldProceed,
			EndedAt:        endedAt,
		}
		if err := s.h.deps.Registry.PublishCompleted(ctx, event); err != nil {
			s.logger.Warn("failed to publish completion", zap.Error(err))
		}
	case errors.Is(err, repositories.ErrAlreadyEnded):
		metrics.SessionOutcome("already_completed")
		s.logger.Warn("interview was completed elsewhere")
		s.send(models.ErrorMessage(ErrAlreadyCompleted.Error()))
	default:
		metrics.SessionOutcome("persist_failed")
		s.logger.Error("failed to save interview results", zap.Error(err))
		s.send(models.ErrorMessage("Failed to save interview results"))
	}

	s.logger.Info("interview finalized",
		zap.String("recommendation", summary.Recommendation),
		zap.Int("proctor_violations", summary.ProctorViolations))
	s.send(models.ServerMessage{Type: models.MsgInterviewCompleted, Summary: &models.CompletionNotice{
		Saved:   err == nil,
		Message: completionMessage,
	}})

	s.mu.Lock()
	s.closeTimer = time.AfterFunc(s.h.cfg.EndGrace, func() {
		s.client.Close(websocket.CloseNormalClosure, "interview completed")
	})
	s.mu.Unlock()
}

// teardown runs when the socket is gone. It does not finalize.
func (s *liveSession) teardown() {
	s.cancel()
	s.timer.Cancel()
	s.engine.Close()
	s.client.MarkClosed()

	s.mu.Lock()
	if s.closeTimer != nil {
		s.closeTimer.Stop()
	}
	s.mu.Unlock()

	s.wg.Wait()
	if !s.sess.StartedAt().IsZero() && s.sess.Active() {
		metrics.SessionOutcome("dropped")
		s.logger.Info("interview connection dropped before completion")
	}
}

func (s *liveSession) send(msg models.ServerMessage) {
	if err := s.client.Send(msg); err != nil && !errors.Is(err, session.ErrClientClosed) {
		s.logger.Debug("failed to send message", zap.String("type", msg.Type), zap.Error(err))
	}
}

// decodePayload accepts raw base64 or a data URL and returns the bytes and any declared MIME type.
func decodePayload(payload string) ([]byte, string, error) {
	var mimeType string
	if strings.HasPrefix(payload, "data:") {
		header, body, ok := strings.Cut(payload, ",")
		if !ok {
			return nil, "", errors.New("malformed data url")
		}
		mimeType, _, _ = strings.Cut(strings.TrimPrefix(header, "data:"), ";")
		payload = body
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, mimeType, fmt.Errorf("decode base64: %w", err)
	}
	return data, mimeType, nil
}
