package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/standupstack/pulse-engine/internal/extractors"
	"github.com/standupstack/pulse-engine/internal/metrics"
	"github.com/standupstack/pulse-engine/internal/models"
	"github.com/standupstack/pulse-engine/internal/providers"
)

// RefResolver enriches extracted work-item references with tracker metadata.
type RefResolver interface {
	Resolve(ctx context.Context, refs []models.WorkItemRef) ([]models.WorkItemRef, models.ProviderStatus)
}

// Timeouts bounds each adapter branch of one pipeline run. A branch that
// runs past its deadline is cancelled and recorded as failed, never awaited
// further.
type Timeouts struct {
	Transcribe time.Duration
	Sentiment  time.Duration
	Summary    time.Duration
	Resolve    time.Duration
}

func (t Timeouts) withDefaults() Timeouts {
	if t.Transcribe <= 0 {
		t.Transcribe = 30 * time.Second
	}
	if t.Sentiment <= 0 {
		t.Sentiment = 10 * time.Second
	}
	if t.Summary <= 0 {
		t.Summary = 20 * time.Second
	}
	if t.Resolve <= 0 {
		t.Resolve = 15 * time.Second
	}
	return t
}

// Pipeline orchestrates one submission through the provider adapters and
// the work-item extractor, merging whatever succeeded into a single
// ProcessingResult. The pipeline never retries and never caches; calling
// Process twice for the same submission produces two independent results.
type Pipeline struct {
	logger      *slog.Logger
	transcriber providers.Transcriber
	sentiment   providers.SentimentScorer
	summary     providers.SummaryGenerator
	resolver    RefResolver
	timeouts    Timeouts
}

// New constructs a pipeline over the given adapter set.
func New(logger *slog.Logger, set providers.Set, resolver RefResolver, timeouts Timeouts) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		logger:      logger,
		transcriber: set.Transcriber,
		sentiment:   set.Sentiment,
		summary:     set.Summary,
		resolver:    resolver,
		timeouts:    timeouts.withDefaults(),
	}
}

// Process runs one submission end to end. Transcription, when needed, is a
// blocking prerequisite; sentiment, summary, and work-item resolution then
// fan out concurrently, each under its own timeout. The merged result is
// returned only after every branch reached a terminal state. A failed
// non-transcription adapter leaves its field absent and is recorded in
// ProviderStatus; only invalid input and transcription failure abort the run.
func (p *Pipeline) Process(ctx context.Context, sub models.Submission) (*models.ProcessingResult, error) {
	const op = "pipeline.process"
	start := time.Now()

	providerStatus := make(map[string]models.ProviderStatus, 4)

	var (
		text       string
		transcript string
	)
	switch sub.InputMode {
	case models.InputModeText:
		if strings.TrimSpace(sub.RawText) == "" {
			return nil, &Error{Kind: KindInvalidInput, Op: op, Err: errors.New("text submission without raw text")}
		}
		text = sub.RawText
	case models.InputModeVoice:
		out := p.transcribe(ctx, sub.RawAudioRef)
		providerStatus[models.ProviderTranscriber] = out.Status
		if out.Status == models.ProviderStatusFailed {
			if providers.IsInvalidInput(out.Err) {
				return nil, &Error{Kind: KindInvalidInput, Op: op, Err: out.Err}
			}
			return nil, &Error{Kind: KindTranscriptionFailed, Op: op, Err: out.Err}
		}
		transcript = out.Transcript
		text = transcript
	default:
		return nil, &Error{Kind: KindInvalidInput, Op: op, Err: errors.New("unknown input mode " + string(sub.InputMode))}
	}

	var (
		wg sync.WaitGroup

		sentimentOut providers.Sentiment
		summaryOut   providers.Summary

		refs          []models.WorkItemRef
		trackerStatus models.ProviderStatus
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		callCtx, cancel := context.WithTimeout(ctx, p.timeouts.Sentiment)
		defer cancel()
		callStart := time.Now()
		sentimentOut = p.sentiment.Score(callCtx, text)
		metrics.ObserveProvider(models.ProviderSentiment, string(sentimentOut.Status), time.Since(callStart))
	}()
	go func() {
		defer wg.Done()
		callCtx, cancel := context.WithTimeout(ctx, p.timeouts.Summary)
		defer cancel()
		callStart := time.Now()
		summaryOut = p.summary.Summarize(callCtx, text)
		metrics.ObserveProvider(models.ProviderSummary, string(summaryOut.Status), time.Since(callStart))
	}()
	go func() {
		defer wg.Done()
		callCtx, cancel := context.WithTimeout(ctx, p.timeouts.Resolve)
		defer cancel()
		extracted := extractors.Extract(text)
		callStart := time.Now()
		refs, trackerStatus = p.resolver.Resolve(callCtx, extracted)
		if trackerStatus != "" {
			metrics.ObserveProvider(models.ProviderTracker, string(trackerStatus), time.Since(callStart))
		}
	}()
	wg.Wait()

	providerStatus[models.ProviderSentiment] = sentimentOut.Status
	providerStatus[models.ProviderSummary] = summaryOut.Status
	if trackerStatus != "" {
		providerStatus[models.ProviderTracker] = trackerStatus
	}

	if sentimentOut.Err != nil {
		p.logger.Warn("sentiment scoring failed",
			slog.String("submission_id", sub.ID),
			slog.Any("error", sentimentOut.Err))
	}
	if summaryOut.Err != nil {
		p.logger.Warn("summary generation failed",
			slog.String("submission_id", sub.ID),
			slog.Any("error", summaryOut.Err))
	}

	result := &models.ProcessingResult{
		ID:             uuid.NewString(),
		SubmissionID:   sub.ID,
		TeamID:         sub.TeamID,
		TeamMemberID:   sub.TeamMemberID,
		Transcript:     transcript,
		SentimentScore: sentimentOut.Score,
		SentimentLabel: sentimentOut.Label,
		SummaryText:    summaryOut.Text,
		WorkItemRefs:   refs,
		ProviderStatus: providerStatus,
		Duration:       time.Since(start),
		CreatedAt:      time.Now().UTC(),
	}
	return result, nil
}

func (p *Pipeline) transcribe(ctx context.Context, audioRef string) providers.Transcription {
	callCtx, cancel := context.WithTimeout(ctx, p.timeouts.Transcribe)
	defer cancel()
	callStart := time.Now()
	out := p.transcriber.Transcribe(callCtx, audioRef)
	metrics.ObserveProvider(models.ProviderTranscriber, string(out.Status), time.Since(callStart))
	return out
}
