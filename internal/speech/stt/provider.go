// Package stt provides speech-to-text clients.
package stt

import "context"

// Provider is the interface for speech-to-text services.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Transcribe converts the audio file at path to text. The file must stay readable until it returns.
	Transcribe(ctx context.Context, path string, opts TranscribeOptions) (*Transcript, error)
}

// TranscribeOptions configures a single transcription request. Empty fields are omitted.
type TranscribeOptions struct {
	Model       string
	Language    string   // ISO language code
	Prompt      string   // vocabulary / style hint
	Temperature *float64 // nil leaves the provider default
}

// Transcript is the result of transcription.
type Transcript struct {
	Text     string
	Language string
	Duration float64
}
