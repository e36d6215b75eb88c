package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"aptiview/interview/internal/conversation"
	"aptiview/interview/internal/managers"
	"aptiview/interview/internal/metrics"
	"aptiview/interview/internal/models"
	"aptiview/interview/internal/prompts"
	"aptiview/interview/internal/repositories"
	"aptiview/interview/internal/session"
	"aptiview/interview/internal/storage"
)

const (
	maxMessageBytes     = 16 << 20
	defaultLeaseRefresh = 30 * time.Second
	turnQueueSize       = 32
)

// InterviewStore is the slice of the interview repository the gateway needs.
type InterviewStore interface {
	FindByToken(token string) (*models.Interview, error)
	Activate(id uint, at time.Time) error
	Complete(id uint, c repositories.Completion) error
}

type AssetRecorder interface {
	Create(asset *models.InterviewAsset) error
}

type ResumeBriefer interface {
	Brief(ctx context.Context, app *models.Application, jobTitle string) string
}

// EngineFactory builds a conversation engine with the process-wide clients already bound.
type EngineFactory func(cfg conversation.Config) (*conversation.Engine, error)

type InterviewHandlerConfig struct {
	Duration        time.Duration
	CompletionGrace time.Duration // after the timer wrap-up, before finalization
	EndGrace        time.Duration // after interview-completed, before the socket closes
	CallTimeout     time.Duration
	Voice           string
	JWTSecret       string
	AuthRequired    bool
	AllowedOrigins  []string
	LeaseRefresh    time.Duration
}

type InterviewDeps struct {
	Store      InterviewStore
	Assets     AssetRecorder
	AssetStore storage.AssetStore
	Resume     ResumeBriefer
	Registry   managers.SessionRegistry
	NewEngine  EngineFactory
	Logger     *zap.Logger
}

// InterviewHandler is the websocket gateway for live interview sessions.
type InterviewHandler struct {
	deps     InterviewDeps
	cfg      InterviewHandlerConfig
	logger   *zap.Logger
	upgrader websocket.Upgrader
	now      func() time.Time
}

func NewInterviewHandler(deps InterviewDeps, cfg InterviewHandlerConfig) *InterviewHandler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.LeaseRefresh <= 0 {
		cfg.LeaseRefresh = defaultLeaseRefresh
	}
	h := &InterviewHandler{
		deps:   deps,
		cfg:    cfg,
		logger: deps.Logger,
		now:    time.Now,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *InterviewHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// ServeWS upgrades the connection and runs one interview session until the socket closes.
func (h *InterviewHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "sessionToken")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageBytes)
	client := session.NewClient(conn)

	interview, err := h.admit(r.Context(), token, r.URL.Query().Get("auth"))
	if err != nil {
		h.reject(client, err)
		return
	}
	defer h.releaseLease(interview.ID)

	logger := h.logger.With(zap.Uint("interview_id", interview.ID))
	sess := session.New(interview, h.cfg.Duration)
	if sess.ResumeSummary == "" && h.deps.Resume != nil {
		sess.ResumeSummary = h.deps.Resume.Brief(r.Context(), &interview.Application, sess.JobTitle)
	}

	engine, err := h.deps.NewEngine(conversation.Config{
		Interview: prompts.InterviewContext{
			CandidateName:  sess.CandidateDisplayName,
			JobTitle:       sess.JobTitle,
			CompanyName:    sess.CompanyName,
			JobDescription: sess.JobDescription,
			ResumeSummary:  sess.ResumeSummary,
			CoverLetter:    sess.CoverLetter,
		},
		CustomQuestions: interview.Application.Job.CustomQuestionList(),
		DurationMinutes: max(int(h.cfg.Duration/time.Minute), 1),
		Voice:           h.cfg.Voice,
		CallTimeout:     h.cfg.CallTimeout,
		EndDelay:        h.cfg.EndGrace,
	})
	if err != nil {
		logger.Error("failed to create conversation engine", zap.Error(err))
		metrics.SessionOutcome("setup_failed")
		_ = client.Send(models.ErrorMessage("Failed to set up the interview"))
		client.Close(websocket.CloseInternalServerErr, "setup failed")
		drain(conn)
		return
	}

	metrics.SessionOpened()
	defer metrics.SessionClosed()

	live := newLiveSession(h, sess, engine, client, logger)
	live.run(conn)
}

// admit runs the eligibility checks in order and takes the session lease.
func (h *InterviewHandler) admit(ctx context.Context, token, authToken string) (*models.Interview, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	interview, err := h.deps.Store.FindByToken(token)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidLink
		}
		return nil, err
	}
	if err := CheckEligibility(interview, h.now()); err != nil {
		return nil, err
	}
	if err := checkAuth(authToken, interview.ID, []byte(h.cfg.JWTSecret), h.cfg.AuthRequired); err != nil {
		return nil, err
	}
	ok, err := h.deps.Registry.Acquire(ctx, interview.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInProgress
	}
	return interview, nil
}

func (h *InterviewHandler) reject(client *session.Client, err error) {
	code, message := websocket.ClosePolicyViolation, err.Error()
	if !isPolicyError(err) {
		h.logger.Error("interview lookup failed", zap.Error(err))
		code, message = websocket.CloseInternalServerErr, "Unable to load interview"
	}
	metrics.SessionOutcome("rejected")
	_ = client.Send(models.ErrorMessage(message))
	client.Close(code, message)
	drain(client.Conn)
}

func (h *InterviewHandler) releaseLease(interviewID uint) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.deps.Registry.Release(ctx, interviewID); err != nil {
		h.logger.Warn("failed to release session lease", zap.Uint("interview_id", interviewID), zap.Error(err))
	}
}

// drain reads until the peer acknowledges the close frame or the read deadline passes.
func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}
