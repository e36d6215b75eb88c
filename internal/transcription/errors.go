package transcription

import "fmt"

type Kind string

const (
	KindTooShort          Kind = "too-short"
	KindWriteFailed       Kind = "write-failed"
	KindFormatUnsupported Kind = "format-unsupported"
	KindAllAttemptsFailed Kind = "all-attempts-failed"
)

// Error is returned by Pipeline.Transcribe. Compare with errors.Is against the sentinels below.
type Error struct {
	Kind Kind
	Err  error
}

var (
	ErrTooShort          = &Error{Kind: KindTooShort}
	ErrWriteFailed       = &Error{Kind: KindWriteFailed}
	ErrFormatUnsupported = &Error{Kind: KindFormatUnsupported}
	ErrAllAttemptsFailed = &Error{Kind: KindAllAttemptsFailed}
)

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transcription %s: %v", e.Kind, e.Err)
	}
	return "transcription " + string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}
