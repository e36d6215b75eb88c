package session

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aptiview/interview/internal/models"
)

func testInterview() *models.Interview {
	interview := &models.Interview{
		ApplicationID: 7,
		ScheduledAt:   time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC),
		Application: models.Application{
			CandidateName: "Ada Lovelace",
			ResumeSummary: "Mathematician",
			CoverLetter:   "Dear team",
			Job: models.Job{
				Title:       "Analyst",
				CompanyName: "Engines Ltd",
				Description: "Compute things",
			},
		},
	}
	interview.ID = 42
	return interview
}

func TestNewSessionCopiesRecord(t *testing.T) {
	s := New(testInterview(), 10*time.Minute)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, uint(42), s.InterviewID)
	assert.Equal(t, uint(7), s.ApplicationID)
	assert.Equal(t, "Ada Lovelace", s.CandidateDisplayName)
	assert.Equal(t, "Analyst", s.JobTitle)
	assert.Equal(t, "Compute things", s.JobDescription)
	assert.NotNil(t, s.Proctor)

	info := s.Info()
	assert.Equal(t, 600, info.DurationSeconds)
	assert.Equal(t, "Engines Ltd", info.CompanyName)
}

func TestSessionStartAndRemaining(t *testing.T) {
	s := New(testInterview(), 10*time.Minute)
	now := time.Now()

	assert.Equal(t, 0, s.SecondsRemaining(now))
	assert.False(t, s.Active())

	require.True(t, s.Start(now))
	assert.False(t, s.Start(now.Add(time.Minute)), "start only once")
	assert.True(t, s.Active())
	assert.Equal(t, now.Add(10*time.Minute), s.DeadlineAt())
	assert.Equal(t, now, s.StartedAt())

	assert.Equal(t, 600, s.SecondsRemaining(now))
	assert.Equal(t, 30, s.SecondsRemaining(now.Add(9*time.Minute+30*time.Second)))
	assert.Equal(t, 0, s.SecondsRemaining(now.Add(11*time.Minute)))
}

func TestSessionFinalizeOnce(t *testing.T) {
	s := New(testInterview(), time.Minute)
	s.Start(time.Now())

	var calls int32
	var wg sync.WaitGroup
	ranCount := int32(0)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			summary, ran := s.Finalize(func() *models.ScoredSummary {
				atomic.AddInt32(&calls, 1)
				return &models.ScoredSummary{Summary: "done"}
			})
			if ran {
				atomic.AddInt32(&ranCount, 1)
			}
			assert.Equal(t, "done", summary.Summary)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls)
	assert.Equal(t, int32(1), ranCount)
	assert.False(t, s.Active())
}

func TestTimerFiresOnceThenGrace(t *testing.T) {
	expired := make(chan struct{}, 2)
	graced := make(chan struct{}, 2)
	timer := NewTimer(10*time.Millisecond, 10*time.Millisecond,
		func() { expired <- struct{}{} },
		func() { graced <- struct{}{} })

	require.True(t, timer.Start())
	assert.False(t, timer.Start())

	select {
	case <-expired:
	case <-time.After(time.Second):
		t.Fatal("timer did not expire")
	}
	select {
	case <-graced:
	case <-time.After(time.Second):
		t.Fatal("grace callback did not run")
	}
	assert.True(t, timer.Fired())

	time.Sleep(30 * time.Millisecond)
	assert.Len(t, expired, 0)
	assert.Len(t, graced, 0)
}

func TestTimerCancelBeforeExpiry(t *testing.T) {
	var fired int32
	timer := NewTimer(20*time.Millisecond, 0, func() { atomic.AddInt32(&fired, 1) }, nil)
	timer.Start()
	timer.Cancel()
	timer.Cancel()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
	assert.False(t, timer.Fired())
	assert.False(t, timer.Start(), "cancelled timers do not restart")
}

func TestTimerCancelDuringGrace(t *testing.T) {
	var graced int32
	expired := make(chan struct{})
	timer := NewTimer(time.Millisecond, 30*time.Millisecond, func() { close(expired) }, func() { atomic.AddInt32(&graced, 1) })
	timer.Start()

	<-expired
	timer.Cancel()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&graced))
}

type frameCapture struct {
	mu     sync.Mutex
	frames []models.ServerMessage
}

func (c *frameCapture) hook(msg models.ServerMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, msg)
}

func TestClientSendWithHookAndClose(t *testing.T) {
	client := NewClient(nil)
	capture := &frameCapture{}
	client.SetSendHook(capture.hook)

	require.NoError(t, client.Send(models.ServerMessage{Type: models.MsgVoiceConnected}))
	client.Close(websocket.CloseNormalClosure, "done")
	assert.ErrorIs(t, client.Send(models.ServerMessage{Type: models.MsgError}), ErrClientClosed)
	assert.True(t, client.Closed())

	require.Len(t, capture.frames, 1)
	assert.Equal(t, models.MsgVoiceConnected, capture.frames[0].Type)
}

func TestClientSendWithoutConnDoesNotPanic(t *testing.T) {
	client := NewClient(nil)
	assert.NoError(t, client.Send(models.ServerMessage{Type: "noop"}))
	client.MarkClosed()
	assert.Error(t, client.Send(models.ServerMessage{Type: "noop"}))
}

func TestClientWritesAndClosesConn(t *testing.T) {
	upgrader := websocket.Upgrader{}
	serverSide := make(chan *Client, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverSide <- NewClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				conn.Close()
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	client := <-serverSide
	require.NoError(t, client.Send(models.ServerMessage{Type: models.MsgAudioChunk, Data: "AAEC"}))
	client.Close(websocket.ClosePolicyViolation, "expired")

	var msg models.ServerMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, models.MsgAudioChunk, msg.Type)
	assert.Equal(t, "AAEC", msg.Data)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)
}
