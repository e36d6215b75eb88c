package conversation

import (
	"errors"

	"aptiview/interview/internal/transcription"
)

// Placeholders fed to the engine instead of text when audio could not be used.
const (
	PlaceholderTooShort        = "[audio-too-short]"
	PlaceholderProcessingError = "[audio-processing-error]"
	PlaceholderUnsupported     = "[unsupported-audio]"
	PlaceholderUnclear         = "[unclear-audio]"
	PlaceholderNoResponse      = "[no response]"
)

const (
	technicalDifficultyReply = "I'm sorry, I'm having some technical difficulties. Could you please repeat that?"

	wrapUpReply = "We've reached the end of our scheduled time. Thank you for speaking with me today. " +
		"The hiring team will review your interview and be in touch about next steps."
)

var placeholderReplies = map[string]string{
	PlaceholderTooShort:        "I didn't quite catch that, it sounded like the recording cut off. Could you please say that again with a bit more detail?",
	PlaceholderProcessingError: "I'm sorry, I had trouble processing your audio. Could you please repeat your answer?",
	PlaceholderUnsupported:     "I'm having trouble with the audio from your microphone. Could you try answering again, or type your response instead?",
	PlaceholderUnclear:         "I'm sorry, I couldn't make that out clearly. Could you please repeat your answer?",
}

var clarificationReplies = []string{
	"I'm sorry, I didn't quite catch that. Could you please repeat your answer?",
	"Could you elaborate a little more on that?",
	"I want to make sure I understand you correctly. Could you say that again in a bit more detail?",
	"Sorry, that was a bit unclear. Could you rephrase your answer?",
}

// PlaceholderFor maps a transcription failure to the placeholder the engine understands.
func PlaceholderFor(err error) string {
	switch {
	case errors.Is(err, transcription.ErrTooShort):
		return PlaceholderTooShort
	case errors.Is(err, transcription.ErrWriteFailed):
		return PlaceholderProcessingError
	case errors.Is(err, transcription.ErrFormatUnsupported):
		return PlaceholderUnsupported
	default:
		return PlaceholderUnclear
	}
}
