package stt

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

// OpenAI talks to an OpenAI compatible /audio/transcriptions endpoint (Whisper, Groq, local servers).
type OpenAI struct {
	http  *resty.Client
	model string
}

func NewOpenAI(apiKey, baseURL, model string) *OpenAI {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetAuthToken(apiKey)
	return &OpenAI{http: client, model: model}
}

func (c *OpenAI) Name() string {
	return "openai"
}

func (c *OpenAI) Transcribe(ctx context.Context, path string, opts TranscribeOptions) (*Transcript, error) {
	model := opts.Model
	if model == "" {
		model = c.model
	}

	form := map[string]string{
		"model":           model,
		"response_format": "verbose_json",
	}
	if opts.Language != "" {
		form["language"] = opts.Language
	}
	if opts.Prompt != "" {
		form["prompt"] = opts.Prompt
	}
	if opts.Temperature != nil {
		form["temperature"] = strconv.FormatFloat(*opts.Temperature, 'f', -1, 64)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetFile("file", path).
		SetFormData(form).
		Post("/audio/transcriptions")
	if err != nil {
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}
	if resp.IsError() {
		msg := gjson.Get(resp.String(), "error.message").String()
		if msg == "" {
			msg = resp.Status()
		}
		return nil, fmt.Errorf("transcription service returned %d: %s", resp.StatusCode(), msg)
	}

	body := resp.String()
	return &Transcript{
		Text:     gjson.Get(body, "text").String(),
		Language: gjson.Get(body, "language").String(),
		Duration: gjson.Get(body, "duration").Float(),
	}, nil
}
