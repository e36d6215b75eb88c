package heuristics

import (
	"regexp"
	"strings"
	"unicode"
)

// Links only. A domain mentioned inside an answer ("socket.io", "Booking.com") is fine.
var (
	urlPattern = regexp.MustCompile(`(?i)(https?://|\bwww\.)`)
	bareDomain = regexp.MustCompile(`(?i)^[a-z0-9-]+(\.[a-z0-9-]+)*\.(com|org|net|io)[[:punct:]]*$`)
)

// phrases transcription models hallucinate on silence or noise
var boilerplatePhrases = []string{
	"thank you for watching",
	"thanks for watching",
	"subtitles by",
	"amara.org",
	"transcribed by",
	"please subscribe",
	"like and subscribe",
}

var fillerWords = map[string]struct{}{
	"um": {}, "umm": {}, "uh": {}, "uhh": {}, "uhm": {}, "hmm": {}, "hm": {},
	"er": {}, "erm": {}, "ah": {}, "eh": {}, "mm": {}, "mhm": {}, "huh": {}, "oh": {},
}

// Unclear reasons
const (
	ReasonSentinel        = "sentinel"
	ReasonEmpty           = "empty"
	ReasonPunctuationOnly = "punctuation-only"
	ReasonTooShort        = "too-short"
	ReasonFillerOnly      = "filler-only"
	ReasonNonAlphabetic   = "non-alphabetic"
	ReasonURL             = "url-shaped"
	ReasonBoilerplate     = "boilerplate"
)

// IsSentinel reports whether text is a bracketed placeholder such as "[unclear-audio]".
func IsSentinel(text string) bool {
	t := strings.TrimSpace(text)
	return len(t) > 2 && strings.HasPrefix(t, "[") && strings.HasSuffix(t, "]")
}

func letterCount(text string) int {
	n := 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}

func hasLetterOrDigit(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
}

func isFillerOnly(text string) bool {
	ws := words(text)
	if len(ws) == 0 {
		return false
	}
	for _, w := range ws {
		if _, ok := fillerWords[w]; !ok {
			return false
		}
	}
	return true
}

func isBoilerplate(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range boilerplatePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// UnclearResponse flags candidate utterances that should be answered with a clarification request.
func UnclearResponse() *Classifier[string] {
	return NewClassifier(
		Predicate[string]{Name: ReasonSentinel, Match: IsSentinel},
		Predicate[string]{Name: ReasonEmpty, Match: func(s string) bool { return strings.TrimSpace(s) == "" }},
		Predicate[string]{Name: ReasonPunctuationOnly, Match: func(s string) bool { return !hasLetterOrDigit(s) }},
		Predicate[string]{Name: ReasonTooShort, Match: func(s string) bool { return letterCount(s) < 2 }},
		Predicate[string]{Name: ReasonFillerOnly, Match: isFillerOnly},
	)
}

// InvalidTranscript flags speech-to-text output that should not be accepted as an answer.
func InvalidTranscript() *Classifier[string] {
	return NewClassifier(
		Predicate[string]{Name: ReasonEmpty, Match: func(s string) bool { return strings.TrimSpace(s) == "" }},
		Predicate[string]{Name: ReasonNonAlphabetic, Match: func(s string) bool { return letterCount(s) == 0 }},
		Predicate[string]{Name: ReasonTooShort, Match: func(s string) bool { return letterCount(s) < 2 }},
		Predicate[string]{Name: ReasonURL, Match: isURLShaped},
		Predicate[string]{Name: ReasonBoilerplate, Match: isBoilerplate},
	)
}

// isURLShaped matches a link, or a transcript that is nothing but a domain.
func isURLShaped(s string) bool {
	return urlPattern.MatchString(s) || bareDomain.MatchString(strings.TrimSpace(s))
}
