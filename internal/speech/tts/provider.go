// Package tts provides text-to-speech clients.
package tts

import "context"

// Provider is the interface for text-to-speech services.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Synthesize converts text to a complete audio clip.
	Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (*Synthesis, error)
}

type SynthesizeOptions struct {
	Voice  string
	Format string  // mp3, opus, wav, ...
	Speed  float64 // 0 leaves the provider default
}

// Synthesis is the result of synthesis.
type Synthesis struct {
	Audio  []byte
	Format string
}
