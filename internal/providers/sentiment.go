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

// Sentiment labels on the five-class scale and their numeric scores.
const (
	LabelVeryNegative = "very_negative"
	LabelNegative     = "negative"
	LabelNeutral      = "neutral"
	LabelPositive     = "positive"
	LabelVeryPositive = "very_positive"
)

// minSentimentTextLen is the shortest text worth scoring; anything below is
// rejected as invalid input rather than scored as noise.
const minSentimentTextLen = 10

// confidenceFloor downgrades low-confidence classifications to neutral.
const confidenceFloor = 0.3

var labelScores = map[string]float64{
	LabelVeryNegative: 1,
	LabelNegative:     2,
	LabelNeutral:      3,
	LabelPositive:     4,
	LabelVeryPositive: 5,
}

// HTTPSentimentScorer calls a sentiment classification endpoint.
type HTTPSentimentScorer struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewHTTPSentimentScorer constructs a scorer against the given endpoint.
func NewHTTPSentimentScorer(endpoint, apiKey, model string, timeout time.Duration) *HTTPSentimentScorer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSentimentScorer{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Score classifies the text and maps the label onto the 1-5 scale. A
// classification below the confidence floor falls back to neutral and the
// outcome is reported as degraded, not ok.
func (s *HTTPSentimentScorer) Score(ctx context.Context, text string) Sentiment {
	if len(strings.TrimSpace(text)) < minSentimentTextLen {
		return Sentiment{Outcome: failedOutcome(models.ProviderSentiment, KindInvalidInput, errors.New("text too short to score"))}
	}

	payload := map[string]any{"text": text}
	if s.model != "" {
		payload["model"] = s.model
	}
	var response struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	}
	if err := postJSON(ctx, s.httpClient, models.ProviderSentiment, s.endpoint, s.auth, payload, &response); err != nil {
		return Sentiment{Outcome: Outcome{Status: models.ProviderStatusFailed, Err: err}}
	}

	score, ok := labelScores[strings.ToLower(response.Label)]
	if !ok {
		return Sentiment{Outcome: failedOutcome(models.ProviderSentiment, KindUnavailable, fmt.Errorf("unknown sentiment label %q", response.Label))}
	}
	if response.Confidence < confidenceFloor {
		neutral := labelScores[LabelNeutral]
		return Sentiment{
			Outcome: Outcome{Status: models.ProviderStatusDegraded},
			Score:   &neutral,
			Label:   LabelNeutral,
		}
	}
	return Sentiment{Outcome: okOutcome(), Score: &score, Label: strings.ToLower(response.Label)}
}

func (s *HTTPSentimentScorer) auth(req *http.Request) {
	if s.apiKey != "" {
		req.Header.Set("x-api-key", s.apiKey)
	}
}

// MockSentimentScorer scores text with a deterministic keyword heuristic.
type MockSentimentScorer struct{}

var (
	positiveWords = []string{"done", "finished", "shipped", "completed", "great", "good", "progress", "merged"}
	negativeWords = []string{"blocked", "stuck", "frustrated", "behind", "problem", "failing", "broken", "waiting"}
)

// Score counts positive and negative signal words around the neutral
// midpoint. Repeat calls on the same text always agree.
func (MockSentimentScorer) Score(_ context.Context, text string) Sentiment {
	if len(strings.TrimSpace(text)) < minSentimentTextLen {
		return Sentiment{Outcome: failedOutcome(models.ProviderSentiment, KindInvalidInput, errors.New("text too short to score"))}
	}

	lowered := strings.ToLower(text)
	balance := 0
	for _, w := range positiveWords {
		if strings.Contains(lowered, w) {
			balance++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lowered, w) {
			balance--
		}
	}
	if balance > 2 {
		balance = 2
	}
	if balance < -2 {
		balance = -2
	}

	score := labelScores[LabelNeutral] + float64(balance)
	label := labelForScore(score)
	return Sentiment{Outcome: mockedOutcome(), Score: &score, Label: label}
}

func labelForScore(score float64) string {
	switch {
	case score <= 1:
		return LabelVeryNegative
	case score <= 2:
		return LabelNegative
	case score < 4:
		return LabelNeutral
	case score < 5:
		return LabelPositive
	default:
		return LabelVeryPositive
	}
}
