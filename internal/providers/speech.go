package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/standupstack/pulse-engine/internal/models"
)

// HTTPTranscriber calls a speech-to-text endpoint.
type HTTPTranscriber struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPTranscriber constructs a transcriber against the given endpoint.
func NewHTTPTranscriber(endpoint, apiKey string, timeout time.Duration) *HTTPTranscriber {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPTranscriber{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Transcribe submits the audio reference for transcription.
func (t *HTTPTranscriber) Transcribe(ctx context.Context, audioRef string) Transcription {
	if strings.TrimSpace(audioRef) == "" {
		return Transcription{Outcome: failedOutcome(models.ProviderTranscriber, KindInvalidInput, errors.New("empty audio reference"))}
	}

	payload := map[string]any{"audio_ref": audioRef}
	var response struct {
		Transcript string `json:"transcript"`
	}
	if err := postJSON(ctx, t.httpClient, models.ProviderTranscriber, t.endpoint, t.auth, payload, &response); err != nil {
		return Transcription{Outcome: Outcome{Status: models.ProviderStatusFailed, Err: err}}
	}
	if strings.TrimSpace(response.Transcript) == "" {
		return Transcription{Outcome: failedOutcome(models.ProviderTranscriber, KindUnavailable, errors.New("provider returned empty transcript"))}
	}
	return Transcription{Outcome: okOutcome(), Transcript: response.Transcript}
}

func (t *HTTPTranscriber) auth(req *http.Request) {
	if t.apiKey != "" {
		req.Header.Set("x-api-key", t.apiKey)
	}
}

// MockTranscriber produces a deterministic, clearly labeled transcript. It is
// selected when the speech provider has no endpoint or credentials.
type MockTranscriber struct{}

// Transcribe derives a synthetic transcript from the audio reference so that
// repeat calls for the same submission match.
func (MockTranscriber) Transcribe(_ context.Context, audioRef string) Transcription {
	if strings.TrimSpace(audioRef) == "" {
		return Transcription{Outcome: failedOutcome(models.ProviderTranscriber, KindInvalidInput, errors.New("empty audio reference"))}
	}
	transcript := fmt.Sprintf(
		"[synthetic transcript %s] Yesterday I wrapped up the planned items. Today I continue with the next ticket. No blockers.",
		audioRef,
	)
	return Transcription{Outcome: mockedOutcome(), Transcript: transcript}
}
