package models

// GenerationRequest is a single completion call.
type GenerationRequest struct {
	RequestID         string
	SystemInstruction string
	Prompt            string
	Temperature       float32
	MaxOutputTokens   int32
	// JSONResponse asks the provider for a JSON-only response where supported
	JSONResponse bool
}

type GenerationResponse struct {
	Content   string             `json:"content"`
	RequestID string             `json:"request_id"`
	Metadata  GenerationMetadata `json:"metadata"`
}

type GenerationMetadata struct {
	ProcessingTime int    `json:"processing_time_ms"`
	Provider       string `json:"provider"`
	Model          string `json:"model"`
}

// uniform error responses
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ErrorResponse) Error() string {
	return e.Message
}
