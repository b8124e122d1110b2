package providers

import (
	"log/slog"

	"github.com/standupstack/pulse-engine/internal/config"
)

// Set bundles one adapter per capability. Which variant sits behind each
// interface is decided here, at construction time; callers never branch on
// mockedness.
type Set struct {
	Transcriber Transcriber
	Sentiment   SentimentScorer
	Summary     SummaryGenerator
	Tracker     WorkItemFetcher
}

// NewSet selects the real HTTP variant for every provider with an endpoint
// and credentials, and the deterministic mock variant otherwise. Missing
// configuration is a supported mode, logged once here, never an error.
func NewSet(cfg config.ProvidersConfig, logger *slog.Logger) Set {
	if logger == nil {
		logger = slog.Default()
	}

	set := Set{
		Transcriber: MockTranscriber{},
		Sentiment:   MockSentimentScorer{},
		Summary:     MockSummaryGenerator{},
		Tracker:     MockWorkItemFetcher{},
	}

	if cfg.Speech.Endpoint != "" && cfg.Speech.APIKey != "" {
		set.Transcriber = NewHTTPTranscriber(cfg.Speech.Endpoint, cfg.Speech.APIKey, cfg.Speech.Timeout)
	} else {
		logger.Info("speech provider unconfigured, using mock transcriber")
	}

	if cfg.Sentiment.Endpoint != "" && cfg.Sentiment.APIKey != "" {
		set.Sentiment = NewHTTPSentimentScorer(cfg.Sentiment.Endpoint, cfg.Sentiment.APIKey, cfg.Sentiment.Model, cfg.Sentiment.Timeout)
	} else {
		logger.Info("sentiment provider unconfigured, using mock scorer")
	}

	if cfg.Summary.Endpoint != "" && cfg.Summary.APIKey != "" {
		set.Summary = NewHTTPSummaryGenerator(cfg.Summary.Endpoint, cfg.Summary.APIKey, cfg.Summary.Model, cfg.Summary.Timeout)
	} else {
		logger.Info("summary provider unconfigured, using mock generator")
	}

	if cfg.Tracker.BaseURL != "" && cfg.Tracker.APIToken != "" {
		set.Tracker = NewHTTPWorkItemFetcher(cfg.Tracker.BaseURL, cfg.Tracker.Email, cfg.Tracker.APIToken, cfg.Tracker.Timeout)
	} else {
		logger.Info("tracker provider unconfigured, using mock fetcher")
	}

	return set
}
