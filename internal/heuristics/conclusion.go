package heuristics

import "strings"

// LongTranscriptTurns is the transcript length after which "final question" counts as a closing signal.
const LongTranscriptTurns = 16

// Reply is an assistant utterance together with the transcript length at the time it was produced.
type Reply struct {
	Text  string
	Turns int
}

func containsAny(text string, phrases ...string) bool {
	lower := strings.ToLower(text)
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Conclusion detects an assistant reply that closes the interview.
func Conclusion() *Classifier[Reply] {
	return NewClassifier(
		Predicate[Reply]{Name: "thanks-for-time", Match: func(r Reply) bool {
			return containsAny(r.Text, "thank you for your time", "thanks for your time")
		}},
		Predicate[Reply]{Name: "that-concludes", Match: func(r Reply) bool {
			return containsAny(r.Text, "that concludes", "this concludes", "concludes our interview")
		}},
		Predicate[Reply]{Name: "final-question", Match: func(r Reply) bool {
			return r.Turns >= LongTranscriptTurns && containsAny(r.Text, "final question", "last question")
		}},
	)
}
