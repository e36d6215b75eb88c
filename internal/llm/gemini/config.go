package gemini

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// holds Gemini-specific configuration
type Config struct {
	APIKey      string
	Model       string
	MaxRetries  int
	BaseBackoff time.Duration
}

func NewConfig() (*Config, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable is required")
	}

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = "gemini-2.5-flash" // default model
	}

	retries := 2
	if v, err := strconv.Atoi(os.Getenv("GEMINI_MAX_RETRIES")); err == nil && v >= 0 {
		retries = v
	}

	return &Config{
		APIKey:      apiKey,
		Model:       model,
		MaxRetries:  retries,
		BaseBackoff: 500 * time.Millisecond,
	}, nil
}
