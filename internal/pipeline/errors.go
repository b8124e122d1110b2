package pipeline

import "fmt"

// Kind classifies pipeline-fatal failures. Adapter-level failures are not
// errors at this layer; they travel inside ProcessingResult.ProviderStatus.
type Kind string

const (
	// KindInvalidInput marks a submission the pipeline cannot work with.
	KindInvalidInput Kind = "invalid_input"
	// KindTranscriptionFailed marks a voice submission whose transcription
	// failed; with no text to fall back to, the whole run fails.
	KindTranscriptionFailed Kind = "transcription_failed"
)

// Error is the pipeline's public error surface.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Sentinels for errors.Is comparisons on the kind.
var (
	ErrInvalidInput        = &Error{Kind: KindInvalidInput}
	ErrTranscriptionFailed = &Error{Kind: KindTranscriptionFailed}
)

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on the kind so callers can compare against the sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}
