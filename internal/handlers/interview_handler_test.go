package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"aptiview/interview/internal/conversation"
	"aptiview/interview/internal/managers"
	"aptiview/interview/internal/models"
	"aptiview/interview/internal/prompts"
	"aptiview/interview/internal/repositories"
	"aptiview/interview/internal/scoring"
	"aptiview/interview/internal/speech/tts"
	"aptiview/interview/internal/storage"
	"aptiview/interview/internal/testhelpers"
	"aptiview/interview/internal/utils"
)

const followUpReply = "That sounds interesting. What did you learn from it?"

type fakeLLM struct{}

func (fakeLLM) GenerateContent(context.Context, *models.GenerationRequest) (*models.GenerationResponse, error) {
	return &models.GenerationResponse{Content: followUpReply}, nil
}

func (fakeLLM) GetProviderName() string { return "fake" }

type fakeTTS struct{}

func (fakeTTS) Name() string { return "fake" }

func (fakeTTS) Synthesize(context.Context, string, tts.SynthesizeOptions) (*tts.Synthesis, error) {
	return &tts.Synthesis{Audio: []byte("mp3-bytes"), Format: "mp3"}, nil
}

type fakeTranscriber struct {
	calls atomic.Int32
	text  string
	err   error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audio []byte, _ string) (string, error) {
	f.calls.Add(1)
	return f.text, f.err
}

type fakeSummarizer struct {
	mu     sync.Mutex
	calls  int
	inputs []scoring.Input
}

func (f *fakeSummarizer) Summarize(_ context.Context, in scoring.Input) *models.ScoredSummary {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.inputs = append(f.inputs, in)
	return &models.ScoredSummary{
		Summary:        "Solid interview.",
		Scores:         models.Scores{Communication: 7, Technical: 7, ProblemSolving: 7, CulturalFit: 7},
		Recommendation: models.RecommendationHire,
		ShouldProceed:  true,
	}
}

func (f *fakeSummarizer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type harness struct {
	t           *testing.T
	srv         *httptest.Server
	db          *gorm.DB
	repo        *repositories.InterviewRepository
	registry    *managers.LocalRegistry
	transcriber *fakeTranscriber
	summarizer  *fakeSummarizer
	assetDir    string
}

func newHarness(t *testing.T, tweak func(*InterviewHandlerConfig)) *harness {
	t.Helper()
	db := testhelpers.SetupTestDB(t)
	pm, err := prompts.NewPromptManager()
	require.NoError(t, err)

	h := &harness{
		t:           t,
		db:          db,
		repo:        &repositories.InterviewRepository{DB: db},
		registry:    managers.NewLocalRegistry(zap.NewNop()),
		transcriber: &fakeTranscriber{text: "I have spent five years building Go services."},
		summarizer:  &fakeSummarizer{},
		assetDir:    t.TempDir(),
	}
	assetStore, err := storage.NewLocalStore(h.assetDir, "/uploads")
	require.NoError(t, err)

	cfg := InterviewHandlerConfig{
		Duration:        10 * time.Minute,
		CompletionGrace: 50 * time.Millisecond,
		EndGrace:        20 * time.Millisecond,
		CallTimeout:     2 * time.Second,
		Voice:           "alloy",
		JWTSecret:       "test-secret",
	}
	if tweak != nil {
		tweak(&cfg)
	}

	handler := NewInterviewHandler(InterviewDeps{
		Store:      h.repo,
		Assets:     &repositories.AssetRepository{DB: db},
		AssetStore: assetStore,
		Registry:   h.registry,
		Logger:     zap.NewNop(),
		NewEngine: func(ec conversation.Config) (*conversation.Engine, error) {
			return conversation.NewEngine(ec, conversation.Deps{
				LLM:         fakeLLM{},
				TTS:         fakeTTS{},
				Transcriber: h.transcriber,
				Summarizer:  h.summarizer,
				Prompts:     pm,
				Logger:      zap.NewNop(),
			})
		},
	}, cfg)

	r := chi.NewRouter()
	r.Get("/ws/interview/{sessionToken}", handler.ServeWS)
	r.Get("/ws/no-token", handler.ServeWS)
	h.srv = httptest.NewServer(r)
	t.Cleanup(h.srv.Close)
	return h
}

func (h *harness) seed(f testhelpers.InterviewFixture) *models.Interview {
	return testhelpers.SeedInterview(h.t, h.db, f)
}

func (h *harness) dial(path string) *websocket.Conn {
	h.t.Helper()
	url := "ws" + strings.TrimPrefix(h.srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(h.t, err)
	h.t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg models.ClientMessage) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

// readUntil returns every message up to and including the first of type want.
func readUntil(t *testing.T, conn *websocket.Conn, want string) []models.ServerMessage {
	t.Helper()
	var seen []models.ServerMessage
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg models.ServerMessage
		_, data, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %s, saw %v", want, types(seen))
		require.NoError(t, json.Unmarshal(data, &msg))
		seen = append(seen, msg)
		if msg.Type == want {
			return seen
		}
	}
}

// readClose drains messages until the close frame and returns its code.
func readClose(t *testing.T, conn *websocket.Conn) (int, []models.ServerMessage) {
	t.Helper()
	var seen []models.ServerMessage
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			require.True(t, errors.As(err, &closeErr), "expected close frame, got %v", err)
			return closeErr.Code, seen
		}
		var msg models.ServerMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		seen = append(seen, msg)
	}
}

func types(msgs []models.ServerMessage) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Type
	}
	return out
}

func assistantUpdates(msgs []models.ServerMessage) []string {
	var out []string
	for _, m := range msgs {
		if m.Type != models.MsgTranscriptUpdate {
			continue
		}
		entry, ok := m.Message.(map[string]interface{})
		if ok && entry["role"] == string(models.RoleAssistant) {
			out = append(out, entry["content"].(string))
		}
	}
	return out
}

func (h *harness) scoreRows(id uint) int64 {
	var n int64
	h.db.Model(&models.InterviewScore{}).Where("interview_id = ?", id).Count(&n)
	return n
}

func (h *harness) reload(token string) *models.Interview {
	h.t.Helper()
	got, err := h.repo.FindByToken(token)
	require.NoError(h.t, err)
	return got
}

func TestRejectsIneligibleLinks(t *testing.T) {
	ended := time.Now().Add(-time.Hour)
	cases := []struct {
		name    string
		fixture *testhelpers.InterviewFixture
		path    string
		message string
	}{
		{"missing token", nil, "/ws/no-token", ErrMissingToken.Error()},
		{"unknown token", nil, "/ws/interview/nope", ErrInvalidLink.Error()},
		{"expired", &testhelpers.InterviewFixture{Token: "old", ScheduledAt: time.Now().Add(-25 * time.Hour)}, "/ws/interview/old", ErrExpired.Error()},
		{"completed", &testhelpers.InterviewFixture{Token: "done", EndedAt: &ended}, "/ws/interview/done", ErrAlreadyCompleted.Error()},
		{"too early", &testhelpers.InterviewFixture{Token: "soon", ScheduledAt: time.Now().Add(2 * time.Hour)}, "/ws/interview/soon", ErrNotYetAvailable.Error()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, nil)
			if tc.fixture != nil {
				h.seed(*tc.fixture)
			}
			conn := h.dial(tc.path)

			code, msgs := readClose(t, conn)
			assert.Equal(t, websocket.ClosePolicyViolation, code)
			require.Len(t, msgs, 1)
			assert.Equal(t, models.MsgError, msgs[0].Type)
			assert.Equal(t, tc.message, msgs[0].Message)
		})
	}
}

func TestExpiredLinkIsNotActivated(t *testing.T) {
	h := newHarness(t, nil)
	h.seed(testhelpers.InterviewFixture{Token: "old", ScheduledAt: time.Now().Add(-25 * time.Hour)})

	code, _ := readClose(t, h.dial("/ws/interview/old"))
	assert.Equal(t, websocket.ClosePolicyViolation, code)
	assert.False(t, h.reload("old").IsActive)
	assert.Nil(t, h.reload("old").ActualStartedAt)
}

func TestSecondConnectionIsRejected(t *testing.T) {
	h := newHarness(t, nil)
	h.seed(testhelpers.InterviewFixture{Token: "abc"})

	first := h.dial("/ws/interview/abc")
	readUntil(t, first, models.MsgInterviewReady)

	code, msgs := readClose(t, h.dial("/ws/interview/abc"))
	assert.Equal(t, websocket.ClosePolicyViolation, code)
	require.Len(t, msgs, 1)
	assert.Equal(t, ErrInProgress.Error(), msgs[0].Message)
}

func TestAuthToken(t *testing.T) {
	h := newHarness(t, func(c *InterviewHandlerConfig) { c.AuthRequired = true })
	seeded := h.seed(testhelpers.InterviewFixture{Token: "abc"})

	code, _ := readClose(t, h.dial("/ws/interview/abc"))
	assert.Equal(t, websocket.ClosePolicyViolation, code, "token required")

	wrong, err := utils.GenerateSessionToken(utils.SessionTokenClaims{InterviewID: "999"}, []byte("test-secret"))
	require.NoError(t, err)
	code, _ = readClose(t, h.dial("/ws/interview/abc?auth="+wrong))
	assert.Equal(t, websocket.ClosePolicyViolation, code, "token for another interview")

	good, err := utils.GenerateSessionToken(utils.SessionTokenClaims{InterviewID: itoa(seeded.ID)}, []byte("test-secret"))
	require.NoError(t, err)
	readUntil(t, h.dial("/ws/interview/abc?auth="+good), models.MsgInterviewReady)
}

func TestReadyThenStart(t *testing.T) {
	h := newHarness(t, nil)
	h.seed(testhelpers.InterviewFixture{Token: "abc", CandidateName: "Grace", JobTitle: "SRE"})
	conn := h.dial("/ws/interview/abc")

	ready := readUntil(t, conn, models.MsgInterviewReady)
	require.Len(t, ready, 1)
	require.NotNil(t, ready[0].Interview)
	assert.Equal(t, "SRE", ready[0].Interview.JobTitle)
	assert.Equal(t, "Grace", ready[0].Interview.CandidateName)
	assert.Equal(t, 600, ready[0].Interview.DurationSeconds)
	assert.False(t, h.reload("abc").IsActive, "record is not activated before start")

	send(t, conn, models.ClientMessage{Type: models.MsgStartInterview})
	msgs := readUntil(t, conn, models.MsgAudioChunk)
	assert.Equal(t, []string{models.MsgVoiceConnected, models.MsgTranscriptUpdate, models.MsgAudioChunk}, types(msgs))
	assert.Contains(t, assistantUpdates(msgs)[0], "Hello Grace")
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("mp3-bytes")), msgs[2].Data)

	got := h.reload("abc")
	assert.True(t, got.IsActive)
	assert.NotNil(t, got.ActualStartedAt)
}

func TestAudioBeforeStartIsIgnored(t *testing.T) {
	h := newHarness(t, nil)
	seeded := h.seed(testhelpers.InterviewFixture{Token: "abc"})
	conn := h.dial("/ws/interview/abc")
	readUntil(t, conn, models.MsgInterviewReady)

	audio := base64.StdEncoding.EncodeToString(make([]byte, 4000))
	send(t, conn, models.ClientMessage{Type: models.MsgAudioData, AudioData: audio, MimeType: "audio/webm"})
	send(t, conn, models.ClientMessage{Type: models.MsgTextMessage, Text: "hello there, I am ready"})
	send(t, conn, models.ClientMessage{Type: models.MsgStartInterview})
	readUntil(t, conn, models.MsgAudioChunk)

	send(t, conn, models.ClientMessage{Type: models.MsgEndInterview})
	readUntil(t, conn, models.MsgInterviewCompleted)

	assert.Equal(t, int32(0), h.transcriber.calls.Load())
	var transcript []models.TranscriptEntry
	require.NoError(t, json.Unmarshal([]byte(h.reload("abc").AITranscript), &transcript))
	require.Len(t, transcript, 1, "only the greeting")
	assert.Equal(t, models.RoleAssistant, transcript[0].Role)
	assert.Equal(t, int64(1), h.scoreRows(seeded.ID))
}

func TestAudioTurn(t *testing.T) {
	h := newHarness(t, nil)
	h.seed(testhelpers.InterviewFixture{Token: "abc"})
	conn := h.dial("/ws/interview/abc")
	readUntil(t, conn, models.MsgInterviewReady)
	send(t, conn, models.ClientMessage{Type: models.MsgStartInterview})
	readUntil(t, conn, models.MsgAudioChunk)

	audio := "data:audio/webm;base64," + base64.StdEncoding.EncodeToString(make([]byte, 4000))
	send(t, conn, models.ClientMessage{Type: models.MsgAudioData, AudioData: audio, Size: 4000})
	msgs := readUntil(t, conn, models.MsgAudioChunk)

	require.GreaterOrEqual(t, len(msgs), 2)
	user := msgs[0].Message.(map[string]interface{})
	assert.Equal(t, string(models.RoleUser), user["role"])
	assert.Equal(t, h.transcriber.text, user["content"])
	assert.Equal(t, []string{followUpReply}, assistantUpdates(msgs), "second question opens with a generated follow-up")
	assert.Equal(t, int32(1), h.transcriber.calls.Load())
}

func TestFailedTranscriptionBecomesRecoveryPrompt(t *testing.T) {
	h := newHarness(t, nil)
	h.transcriber.err = errors.New("service down")
	h.seed(testhelpers.InterviewFixture{Token: "abc"})
	conn := h.dial("/ws/interview/abc")
	readUntil(t, conn, models.MsgInterviewReady)
	send(t, conn, models.ClientMessage{Type: models.MsgStartInterview})
	readUntil(t, conn, models.MsgAudioChunk)

	send(t, conn, models.ClientMessage{Type: models.MsgAudioData, AudioData: base64.StdEncoding.EncodeToString(make([]byte, 4000)), MimeType: "audio/webm"})
	msgs := readUntil(t, conn, models.MsgAudioChunk)

	replies := assistantUpdates(msgs)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "couldn't make that out")
	for _, m := range msgs {
		assert.NotEqual(t, models.MsgError, m.Type, "raw errors never reach the client")
	}
}

func TestTimerWithZeroResponses(t *testing.T) {
	h := newHarness(t, func(c *InterviewHandlerConfig) { c.Duration = 150 * time.Millisecond })
	seeded := h.seed(testhelpers.InterviewFixture{Token: "abc"})
	conn := h.dial("/ws/interview/abc")
	readUntil(t, conn, models.MsgInterviewReady)
	send(t, conn, models.ClientMessage{Type: models.MsgStartInterview})

	msgs := readUntil(t, conn, models.MsgInterviewCompleted)
	code, rest := readClose(t, conn)
	assert.Equal(t, websocket.CloseNormalClosure, code)

	all := append(msgs, rest...)
	replies := assistantUpdates(all)
	require.Len(t, replies, 2, "greeting and exactly one wrap-up")
	assert.Contains(t, replies[1], "end of our scheduled time")

	completed := 0
	for _, m := range all {
		if m.Type == models.MsgInterviewCompleted {
			completed++
			require.NotNil(t, m.Summary)
			assert.True(t, m.Summary.Saved)
		}
	}
	assert.Equal(t, 1, completed)
	assert.Equal(t, 1, h.summarizer.count())
	assert.Equal(t, int64(1), h.scoreRows(seeded.ID))

	got := h.reload("abc")
	assert.NotNil(t, got.EndedAt)
	assert.False(t, got.IsActive)
}

func TestEndInterviewTwiceFinalizesOnce(t *testing.T) {
	h := newHarness(t, func(c *InterviewHandlerConfig) { c.EndGrace = 200 * time.Millisecond })
	seeded := h.seed(testhelpers.InterviewFixture{Token: "abc"})
	conn := h.dial("/ws/interview/abc")
	readUntil(t, conn, models.MsgInterviewReady)
	send(t, conn, models.ClientMessage{Type: models.MsgStartInterview})
	readUntil(t, conn, models.MsgAudioChunk)

	send(t, conn, models.ClientMessage{Type: models.MsgEndInterview})
	send(t, conn, models.ClientMessage{Type: models.MsgEndInterview})

	code, msgs := readClose(t, conn)
	assert.Equal(t, websocket.CloseNormalClosure, code)
	completed := 0
	for _, m := range msgs {
		if m.Type == models.MsgInterviewCompleted {
			completed++
		}
	}
	assert.Equal(t, 1, completed)
	assert.Equal(t, 1, h.summarizer.count())
	assert.Equal(t, int64(1), h.scoreRows(seeded.ID))
}

func TestEndRightAfterStartFinalizes(t *testing.T) {
	h := newHarness(t, nil)
	seeded := h.seed(testhelpers.InterviewFixture{Token: "abc"})
	conn := h.dial("/ws/interview/abc")
	readUntil(t, conn, models.MsgInterviewReady)

	send(t, conn, models.ClientMessage{Type: models.MsgStartInterview})
	send(t, conn, models.ClientMessage{Type: models.MsgEndInterview})

	code, msgs := readClose(t, conn)
	assert.Equal(t, websocket.CloseNormalClosure, code)
	assert.Contains(t, types(msgs), models.MsgInterviewCompleted)
	assert.Equal(t, 1, h.summarizer.count())
	assert.Equal(t, int64(1), h.scoreRows(seeded.ID))
	assert.NotNil(t, h.reload("abc").EndedAt)
}

func TestEndBeforeStartIsIgnored(t *testing.T) {
	h := newHarness(t, nil)
	h.seed(testhelpers.InterviewFixture{Token: "abc"})
	conn := h.dial("/ws/interview/abc")
	readUntil(t, conn, models.MsgInterviewReady)

	send(t, conn, models.ClientMessage{Type: models.MsgEndInterview})
	send(t, conn, models.ClientMessage{Type: models.MsgStartInterview})
	readUntil(t, conn, models.MsgAudioChunk)

	assert.Equal(t, 0, h.summarizer.count())
	assert.Nil(t, h.reload("abc").EndedAt)
}

func TestCompletionFrameCarriesNoScores(t *testing.T) {
	h := newHarness(t, nil)
	h.seed(testhelpers.InterviewFixture{Token: "abc"})
	conn := h.dial("/ws/interview/abc")
	readUntil(t, conn, models.MsgInterviewReady)
	send(t, conn, models.ClientMessage{Type: models.MsgStartInterview})
	readUntil(t, conn, models.MsgAudioChunk)
	send(t, conn, models.ClientMessage{Type: models.MsgEndInterview})

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var msg models.ServerMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		if msg.Type != models.MsgInterviewCompleted {
			continue
		}
		raw := string(data)
		for _, field := range []string{"recommendation", "shouldProceed", "scores", "Solid interview."} {
			assert.NotContains(t, raw, field)
		}
		require.NotNil(t, msg.Summary)
		assert.True(t, msg.Summary.Saved)
		assert.NotEmpty(t, msg.Summary.Message)
		return
	}
}

func TestProctorEventsReachScoring(t *testing.T) {
	h := newHarness(t, nil)
	h.seed(testhelpers.InterviewFixture{Token: "abc"})
	conn := h.dial("/ws/interview/abc")
	readUntil(t, conn, models.MsgInterviewReady)
	send(t, conn, models.ClientMessage{Type: models.MsgStartInterview})
	readUntil(t, conn, models.MsgAudioChunk)

	send(t, conn, models.ClientMessage{Type: models.MsgProctorEvent, Event: models.ProctorMultipleFaces, At: time.Now().UnixMilli()})
	send(t, conn, models.ClientMessage{Type: models.MsgProctorEvent, Event: "bad kind!"})
	send(t, conn, models.ClientMessage{Type: models.MsgProctorEvent, Event: models.ProctorTabSwitch})
	send(t, conn, models.ClientMessage{Type: models.MsgEndInterview})
	readUntil(t, conn, models.MsgInterviewCompleted)

	h.summarizer.mu.Lock()
	defer h.summarizer.mu.Unlock()
	require.Len(t, h.summarizer.inputs, 1)
	events := h.summarizer.inputs[0].ProctorEvents
	require.Len(t, events, 2)
	assert.Equal(t, models.ProctorMultipleFaces, events[0].Kind)
}

func TestScreenshotIsStored(t *testing.T) {
	h := newHarness(t, nil)
	seeded := h.seed(testhelpers.InterviewFixture{Token: "abc"})
	conn := h.dial("/ws/interview/abc")
	readUntil(t, conn, models.MsgInterviewReady)
	send(t, conn, models.ClientMessage{Type: models.MsgStartInterview})
	readUntil(t, conn, models.MsgAudioChunk)

	image := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	send(t, conn, models.ClientMessage{Type: models.MsgScreenshot, ImageData: image})

	assets := &repositories.AssetRepository{DB: h.db}
	require.Eventually(t, func() bool {
		list, err := assets.ListByInterview(seeded.ID)
		return err == nil && len(list) == 1
	}, 3*time.Second, 20*time.Millisecond)

	list, _ := assets.ListByInterview(seeded.ID)
	assert.Equal(t, "screenshot", list[0].Kind)
	assert.True(t, strings.HasSuffix(list[0].URL, ".png"), list[0].URL)
}

func TestScreenshotRightAfterStartIsStored(t *testing.T) {
	h := newHarness(t, nil)
	seeded := h.seed(testhelpers.InterviewFixture{Token: "abc"})
	conn := h.dial("/ws/interview/abc")
	readUntil(t, conn, models.MsgInterviewReady)

	image := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	send(t, conn, models.ClientMessage{Type: models.MsgScreenshot, ImageData: image})
	send(t, conn, models.ClientMessage{Type: models.MsgStartInterview})
	send(t, conn, models.ClientMessage{Type: models.MsgScreenshot, ImageData: image})
	readUntil(t, conn, models.MsgAudioChunk)

	assets := &repositories.AssetRepository{DB: h.db}
	require.Eventually(t, func() bool {
		list, err := assets.ListByInterview(seeded.ID)
		return err == nil && len(list) == 1
	}, 3*time.Second, 20*time.Millisecond, "only the screenshot sent after start is kept")
	time.Sleep(50 * time.Millisecond)
	list, err := assets.ListByInterview(seeded.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestDroppedConnectionDoesNotFinalize(t *testing.T) {
	h := newHarness(t, nil)
	seeded := h.seed(testhelpers.InterviewFixture{Token: "abc"})
	conn := h.dial("/ws/interview/abc")
	readUntil(t, conn, models.MsgInterviewReady)
	send(t, conn, models.ClientMessage{Type: models.MsgStartInterview})
	readUntil(t, conn, models.MsgAudioChunk)
	conn.Close()

	require.Eventually(t, func() bool {
		ok, _ := h.registry.Acquire(context.Background(), seeded.ID)
		if ok {
			_ = h.registry.Release(context.Background(), seeded.ID)
		}
		return ok
	}, 3*time.Second, 20*time.Millisecond, "lease released on disconnect")

	assert.Equal(t, 0, h.summarizer.count())
	assert.Nil(t, h.reload("abc").EndedAt)

	// a reconnect starts a fresh session while the record is still eligible
	again := h.dial("/ws/interview/abc")
	readUntil(t, again, models.MsgInterviewReady)
}

func TestUnknownAndMalformedMessages(t *testing.T) {
	h := newHarness(t, nil)
	h.seed(testhelpers.InterviewFixture{Token: "abc"})
	conn := h.dial("/ws/interview/abc")
	readUntil(t, conn, models.MsgInterviewReady)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	msgs := readUntil(t, conn, models.MsgError)
	assert.Equal(t, "Invalid message format", msgs[len(msgs)-1].Message)

	send(t, conn, models.ClientMessage{Type: "dance"})
	msgs = readUntil(t, conn, models.MsgError)
	assert.Equal(t, "Unknown message type: dance", msgs[len(msgs)-1].Message)
}

func TestEngineSetupFailureCloses1011(t *testing.T) {
	h := newHarness(t, nil)
	h.seed(testhelpers.InterviewFixture{Token: "abc"})

	handler := NewInterviewHandler(InterviewDeps{
		Store:     h.repo,
		Registry:  managers.NewLocalRegistry(zap.NewNop()),
		NewEngine: func(conversation.Config) (*conversation.Engine, error) { return nil, errors.New("no prompts") },
	}, InterviewHandlerConfig{Duration: time.Minute})
	r := chi.NewRouter()
	r.Get("/ws/interview/{sessionToken}", handler.ServeWS)
	srv := httptest.NewServer(r)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/interview/abc", nil)
	require.NoError(t, err)
	defer conn.Close()

	code, msgs := readClose(t, conn)
	assert.Equal(t, websocket.CloseInternalServerErr, code)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.MsgError, msgs[0].Type)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
