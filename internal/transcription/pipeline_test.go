package transcription

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aptiview/interview/internal/speech/stt"
)

type fakeSTT struct {
	mu       sync.Mutex
	results  []string
	errs     []error
	calls    []stt.TranscribeOptions
	paths    []string
	contents [][]byte
}

func (f *fakeSTT) Name() string { return "fake" }

func (f *fakeSTT) Transcribe(ctx context.Context, path string, opts stt.TranscribeOptions) (*stt.Transcript, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.calls)
	f.calls = append(f.calls, opts)
	f.paths = append(f.paths, path)
	data, _ := os.ReadFile(path)
	f.contents = append(f.contents, data)

	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.results) {
		return &stt.Transcript{Text: f.results[i]}, nil
	}
	return &stt.Transcript{}, nil
}

func audio(n int) []byte {
	return bytes.Repeat([]byte{0x1a}, n)
}

func TestTranscribeTooShortSkipsService(t *testing.T) {
	provider := &fakeSTT{results: []string{"hello"}}
	p := NewPipeline(provider, t.TempDir(), zap.NewNop())

	for _, n := range []int{0, 1, MinAudioBytes - 1} {
		_, err := p.Transcribe(context.Background(), audio(n), "audio/webm")
		assert.ErrorIs(t, err, ErrTooShort)
	}
	assert.Empty(t, provider.calls)
}

func TestTranscribeSuccessCleansAndRemovesScratch(t *testing.T) {
	dir := t.TempDir()
	provider := &fakeSTT{results: []string{"  i have   five years of experience with go  "}}
	p := NewPipeline(provider, dir, zap.NewNop())

	text, err := p.Transcribe(context.Background(), audio(2048), "audio/webm;codecs=opus")
	require.NoError(t, err)
	assert.Equal(t, "I have five years of experience with go.", text)

	require.Len(t, provider.calls, 1)
	assert.Equal(t, "en", provider.calls[0].Language)
	assert.NotEmpty(t, provider.calls[0].Prompt)
	require.NotNil(t, provider.calls[0].Temperature)
	assert.Equal(t, ".webm", filepath.Ext(provider.paths[0]))
	assert.Len(t, provider.contents[0], 2048)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch file should be removed")
}

func TestTranscribeRelaxesHintsUntilValid(t *testing.T) {
	dir := t.TempDir()
	provider := &fakeSTT{
		results: []string{"Thank you for watching!", "", "I enjoy debugging production issues"},
		errs:    []error{nil, errors.New("timeout"), nil},
	}
	p := NewPipeline(provider, dir, zap.NewNop())

	text, err := p.Transcribe(context.Background(), audio(4096), "audio/ogg")
	require.NoError(t, err)
	assert.Equal(t, "I enjoy debugging production issues.", text)

	require.Len(t, provider.calls, 3)
	assert.Equal(t, "en", provider.calls[1].Language)
	assert.Empty(t, provider.calls[1].Prompt)
	assert.Equal(t, stt.TranscribeOptions{}, provider.calls[2])

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestTranscribeAllAttemptsFailedWrapsLastError(t *testing.T) {
	dir := t.TempDir()
	last := errors.New("service unavailable")
	provider := &fakeSTT{
		results: []string{"www.example.com", "..."},
		errs:    []error{nil, nil, last},
	}
	p := NewPipeline(provider, dir, zap.NewNop())

	_, err := p.Transcribe(context.Background(), audio(4096), "audio/wav")
	assert.ErrorIs(t, err, ErrAllAttemptsFailed)
	assert.ErrorIs(t, err, last)
	assert.Len(t, provider.calls, 3)

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries, "scratch file should be removed on failure")
}

func TestTranscribeUnsupportedFormat(t *testing.T) {
	provider := &fakeSTT{}
	p := NewPipeline(provider, t.TempDir(), zap.NewNop())

	_, err := p.Transcribe(context.Background(), audio(4096), "video/x-matroska")
	assert.ErrorIs(t, err, ErrFormatUnsupported)
	assert.Empty(t, provider.calls)
}

func TestTranscribeWriteFailed(t *testing.T) {
	provider := &fakeSTT{}
	missing := filepath.Join(t.TempDir(), "does-not-exist")
	p := NewPipeline(provider, missing, zap.NewNop())

	_, err := p.Transcribe(context.Background(), audio(4096), "")
	assert.ErrorIs(t, err, ErrWriteFailed)
	assert.False(t, errors.Is(err, ErrAllAttemptsFailed))
	assert.Empty(t, provider.calls)
}

func TestTranscribeStopsOnCancelledContext(t *testing.T) {
	provider := &fakeSTT{}
	p := NewPipeline(provider, t.TempDir(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Transcribe(ctx, audio(4096), "audio/webm")
	assert.ErrorIs(t, err, ErrAllAttemptsFailed)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, provider.calls)
}

func TestExtensionFor(t *testing.T) {
	cases := map[string]string{
		"":                         "webm",
		"audio/webm;codecs=opus":   "webm",
		"AUDIO/MPEG":               "mp3",
		"audio/mp4":                "m4a",
		"audio/x-wav":              "wav",
		"audio/ogg; codecs=vorbis": "ogg",
	}
	for in, want := range cases {
		got, ok := ExtensionFor(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ExtensionFor("text/plain")
	assert.False(t, ok)
}

func TestClean(t *testing.T) {
	cases := map[string]string{
		"  hello   world ":       "Hello world.",
		"... so, I think -- ":    "So, I think.",
		"what do you mean?":      "What do you mean?",
		"\"quoted answer\"":      "Quoted answer.",
		"éclair is my favourite": "Éclair is my favourite.",
		" --- ":                  "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Clean(in), in)
	}
}

func TestErrorIsMatchesKindOnly(t *testing.T) {
	err := newError(KindTooShort, errors.New("12 bytes"))
	assert.ErrorIs(t, err, ErrTooShort)
	assert.NotErrorIs(t, err, ErrWriteFailed)
	assert.Contains(t, err.Error(), "too-short")
}
