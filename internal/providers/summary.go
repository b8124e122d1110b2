package providers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/standupstack/pulse-engine/internal/models"
)

// HTTPSummaryGenerator calls a generative summarization endpoint.
type HTTPSummaryGenerator struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewHTTPSummaryGenerator constructs a generator against the given endpoint.
func NewHTTPSummaryGenerator(endpoint, apiKey, model string, timeout time.Duration) *HTTPSummaryGenerator {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &HTTPSummaryGenerator{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Summarize condenses the text into a short summary.
func (g *HTTPSummaryGenerator) Summarize(ctx context.Context, text string) Summary {
	if strings.TrimSpace(text) == "" {
		return Summary{Outcome: failedOutcome(models.ProviderSummary, KindInvalidInput, errors.New("empty text"))}
	}

	payload := map[string]any{
		"text":  text,
		"model": g.model,
	}
	var response struct {
		Summary string `json:"summary"`
	}
	if err := postJSON(ctx, g.httpClient, models.ProviderSummary, g.endpoint, g.auth, payload, &response); err != nil {
		return Summary{Outcome: Outcome{Status: models.ProviderStatusFailed, Err: err}}
	}
	if strings.TrimSpace(response.Summary) == "" {
		return Summary{Outcome: failedOutcome(models.ProviderSummary, KindUnavailable, errors.New("provider returned empty summary"))}
	}
	return Summary{Outcome: okOutcome(), Text: response.Summary}
}

func (g *HTTPSummaryGenerator) auth(req *http.Request) {
	if g.apiKey != "" {
		req.Header.Set("x-api-key", g.apiKey)
	}
}

// mockSummaryMaxLen bounds the synthetic summary length.
const mockSummaryMaxLen = 140

// MockSummaryGenerator truncates the input into a labeled synthetic summary.
type MockSummaryGenerator struct{}

// Summarize returns the leading words of the text under a synthetic marker.
func (MockSummaryGenerator) Summarize(_ context.Context, text string) Summary {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Summary{Outcome: failedOutcome(models.ProviderSummary, KindInvalidInput, errors.New("empty text"))}
	}

	condensed := strings.Join(strings.Fields(trimmed), " ")
	if len(condensed) > mockSummaryMaxLen {
		cut := condensed[:mockSummaryMaxLen]
		if idx := strings.LastIndex(cut, " "); idx > 0 {
			cut = cut[:idx]
		}
		condensed = cut + "…"
	}
	return Summary{Outcome: mockedOutcome(), Text: "[synthetic summary] " + condensed}
}
