package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/standupstack/pulse-engine/internal/models"
)

// ErrorKind classifies adapter failures so the pipeline can decide what is
// retryable by the caller and what is not.
type ErrorKind string

const (
	// KindInvalidInput marks malformed input; callers must not retry.
	KindInvalidInput ErrorKind = "invalid_input"
	// KindTimeout marks a call that ran past its deadline.
	KindTimeout ErrorKind = "provider_timeout"
	// KindUnavailable marks transient provider-side failures (rate limits,
	// 5xx responses, connection errors).
	KindUnavailable ErrorKind = "provider_unavailable"
)

// Error carries the failure classification alongside the underlying cause.
type Error struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the error kind, defaulting to unavailable for errors that
// did not originate in an adapter.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnavailable
}

// IsInvalidInput reports whether err is a non-retryable input error.
func IsInvalidInput(err error) bool {
	return KindOf(err) == KindInvalidInput
}

// Outcome is the terminal state of one adapter invocation. Failure is a
// first-class value here, never a panic or an uncaught fault: a failed call
// carries Status failed plus the classified error.
type Outcome struct {
	Status models.ProviderStatus
	Err    error
}

func okOutcome() Outcome     { return Outcome{Status: models.ProviderStatusOK} }
func mockedOutcome() Outcome { return Outcome{Status: models.ProviderStatusMocked} }

func failedOutcome(provider string, kind ErrorKind, err error) Outcome {
	return Outcome{
		Status: models.ProviderStatusFailed,
		Err:    &Error{Provider: provider, Kind: kind, Err: err},
	}
}

// Transcription is the result of one speech-to-text invocation.
type Transcription struct {
	Outcome
	Transcript string
}

// Sentiment is the result of one sentiment-scoring invocation. Score is nil
// when the call failed.
type Sentiment struct {
	Outcome
	Score *float64
	Label string
}

// Summary is the result of one summarization invocation.
type Summary struct {
	Outcome
	Text string
}

// WorkItem is the result of one tracker lookup. Found reports whether the
// tracker knew the token; a not-found token is still a successful lookup.
type WorkItem struct {
	Outcome
	Found    bool
	Metadata *models.WorkItemMetadata
}

// Transcriber converts recorded standup audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioRef string) Transcription
}

// SentimentScorer maps standup text onto the 1-5 sentiment scale.
type SentimentScorer interface {
	Score(ctx context.Context, text string) Sentiment
}

// SummaryGenerator condenses standup text into a short summary.
type SummaryGenerator interface {
	Summarize(ctx context.Context, text string) Summary
}

// WorkItemFetcher resolves a parsed tracker token into work item metadata.
type WorkItemFetcher interface {
	Fetch(ctx context.Context, token string, kind models.TrackerKind) WorkItem
}
