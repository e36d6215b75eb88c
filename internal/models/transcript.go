package models

import "time"

type Role string

const (
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

// TranscriptEntry is one turn of the conversation.
type TranscriptEntry struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ProctorEvent is a client-reported integrity signal.
type ProctorEvent struct {
	Kind         string `json:"kind"`
	OccurredAtMs int64  `json:"occurredAtMs"`
}

const (
	ProctorMultipleFaces = "multiple-faces"
	ProctorNoFace        = "no-face"
	ProctorGazeOffScreen = "gaze-off-screen"
	ProctorTabSwitch     = "tab-switch"
)
