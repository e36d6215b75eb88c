package models

// Inbound client message types
const (
	MsgStartInterview = "start-interview"
	MsgAudioData      = "audio-data"
	MsgTextMessage    = "text-message"
	MsgScreenshot     = "screenshot"
	MsgProctorEvent   = "proctor-event"
	MsgEndInterview   = "end-interview"
)

// Outbound server message types
const (
	MsgInterviewReady     = "interview-ready"
	MsgVoiceConnected     = "voice-connected"
	MsgAudioChunk         = "audio-chunk"
	MsgTranscriptUpdate   = "transcript-update"
	MsgInterviewComplete  = "interview-complete"
	MsgInterviewCompleted = "interview-completed"
	MsgError              = "error"
)

// ClientMessage is the union of all inbound frames.
type ClientMessage struct {
	Type      string `json:"type"`
	AudioData string `json:"audioData,omitempty"`
	MimeType  string `json:"mimeType,omitempty"`
	Size      int    `json:"size,omitempty"`
	Text      string `json:"text,omitempty"`
	ImageData string `json:"imageData,omitempty"`
	Event     string `json:"event,omitempty"`
	At        int64  `json:"at,omitempty"`
}

// ServerMessage is the union of all outbound frames.
type ServerMessage struct {
	Type      string            `json:"type"`
	Interview *InterviewInfo    `json:"interview,omitempty"`
	Data      string            `json:"data,omitempty"`
	Message   interface{}       `json:"message,omitempty"`
	Summary   *CompletionNotice `json:"summary,omitempty"`
}

// CompletionNotice closes the session for the candidate. Scores and the recommendation stay server side.
type CompletionNotice struct {
	Saved   bool   `json:"saved"`
	Message string `json:"message"`
}

func ErrorMessage(message string) ServerMessage {
	return ServerMessage{Type: MsgError, Message: message}
}
