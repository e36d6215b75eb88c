package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

// OpenAI talks to an OpenAI compatible /audio/speech endpoint.
type OpenAI struct {
	http  *resty.Client
	model string
	voice string
}

func NewOpenAI(apiKey, baseURL, model, voice string) *OpenAI {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json")
	return &OpenAI{http: client, model: model, voice: voice}
}

func (c *OpenAI) Name() string {
	return "openai"
}

func (c *OpenAI) Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (*Synthesis, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("nothing to synthesize")
	}

	voice := opts.Voice
	if voice == "" {
		voice = c.voice
	}
	format := opts.Format
	if format == "" {
		format = "mp3"
	}

	body := map[string]interface{}{
		"model":           c.model,
		"input":           text,
		"voice":           voice,
		"response_format": format,
	}
	if opts.Speed > 0 {
		body["speed"] = opts.Speed
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post("/audio/speech")
	if err != nil {
		return nil, fmt.Errorf("speech request failed: %w", err)
	}
	if resp.IsError() {
		msg := gjson.Get(resp.String(), "error.message").String()
		if msg == "" {
			msg = resp.Status()
		}
		return nil, fmt.Errorf("speech service returned %d: %s", resp.StatusCode(), msg)
	}

	audio := resp.Body()
	if len(audio) == 0 {
		return nil, errors.New("speech service returned no audio")
	}
	return &Synthesis{Audio: audio, Format: format}, nil
}
