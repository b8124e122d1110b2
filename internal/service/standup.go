package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/standupstack/pulse-engine/internal/analytics"
	"github.com/standupstack/pulse-engine/internal/metrics"
	"github.com/standupstack/pulse-engine/internal/models"
	"github.com/standupstack/pulse-engine/internal/patterns"
	"github.com/standupstack/pulse-engine/internal/utils"
	"github.com/standupstack/pulse-engine/internal/warning"
)

// Store is the storage collaborator boundary the service consumes.
type Store interface {
	SaveResult(ctx context.Context, result models.ProcessingResult) error
	FetchWindow(ctx context.Context, teamID string, window models.Window) ([]models.ProcessingResult, error)
	BlockerFlag(ctx context.Context, resultID string) (models.BlockerFlag, error)
}

// SubmissionProcessor runs one submission through the orchestration
// pipeline.
type SubmissionProcessor interface {
	Process(ctx context.Context, sub models.Submission) (*models.ProcessingResult, error)
}

// StandupService is the facade the surrounding system calls: process a
// submission, compute team health, evaluate a team for early warnings.
type StandupService struct {
	logger     *slog.Logger
	pipeline   SubmissionProcessor
	store      Store
	engine     *analytics.Engine
	miner      *patterns.Miner
	thresholds models.Thresholds
	window     time.Duration
	latencies  *utils.LatencyTracker
}

// NewStandupService constructs the service facade. The miner may be nil to
// disable theme enrichment.
func NewStandupService(
	logger *slog.Logger,
	pipeline SubmissionProcessor,
	store Store,
	engine *analytics.Engine,
	miner *patterns.Miner,
	thresholds models.Thresholds,
	window time.Duration,
) *StandupService {
	if logger == nil {
		logger = slog.Default()
	}
	if engine == nil {
		engine = analytics.NewEngine(logger)
	}
	if window <= 0 {
		window = 14 * 24 * time.Hour
	}
	return &StandupService{
		logger:     logger,
		pipeline:   pipeline,
		store:      store,
		engine:     engine,
		miner:      miner,
		thresholds: thresholds,
		window:     window,
		latencies:  utils.NewLatencyTracker(1024),
	}
}

// Process runs one submission through the pipeline and persists the result.
func (s *StandupService) Process(ctx context.Context, sub models.Submission) (*models.ProcessingResult, error) {
	start := time.Now()
	result, err := s.pipeline.Process(ctx, sub)
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveSubmission(duration, metrics.OutcomeError)
		s.logger.Error("pipeline processing failed",
			slog.String("submission_id", sub.ID),
			slog.Any("error", err))
		return nil, err
	}

	if err := s.store.SaveResult(ctx, *result); err != nil {
		metrics.ObserveSubmission(duration, metrics.OutcomeError)
		return nil, utils.NewAppError("service.process", "persist processing result", err)
	}

	metrics.ObserveSubmission(duration, metrics.OutcomeSuccess)
	s.latencies.Observe(duration)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		s.logger.Info("submission latency",
			slog.Duration("p95", s.latencies.Percentile(95)),
			slog.Int("samples", count))
	}
	return result, nil
}

// ComputeHealth recomputes the team-health snapshot over an explicit
// window.
func (s *StandupService) ComputeHealth(ctx context.Context, teamID string, window models.Window) (models.TeamHealthSnapshot, error) {
	observations, _, err := s.observations(ctx, teamID, window)
	if err != nil {
		return models.TeamHealthSnapshot{}, err
	}
	return s.engine.Compute(teamID, window, observations), nil
}

// EvaluateTeam composes history fetch, health computation, and warning
// evaluation for one team over the configured window. Alerts are returned,
// never dispatched from here; the caller owns notification.
func (s *StandupService) EvaluateTeam(ctx context.Context, teamID string) ([]models.WarningAlert, error) {
	now := time.Now().UTC()
	window := models.Window{Start: now.Add(-s.window), End: now}

	observations, results, err := s.observations(ctx, teamID, window)
	if err != nil {
		return nil, err
	}

	snapshot := s.engine.Compute(teamID, window, observations)
	alerts := warning.Evaluate(snapshot, s.thresholds)

	risk := s.engine.Assess(snapshot)
	s.logger.Info("team evaluated",
		slog.String("team_id", teamID),
		slog.Int("submissions", snapshot.SubmissionCount),
		slog.Int("alerts", len(alerts)),
		slog.String("risk_level", string(risk.Level)))

	if len(alerts) > 0 && s.miner != nil {
		pattern, err := s.miner.Mine(ctx, teamID, window, results)
		if err != nil {
			s.logger.Warn("theme mining failed", slog.Any("error", err))
		} else {
			enrichAlerts(alerts, pattern)
		}
	}

	for _, alert := range alerts {
		metrics.AlertRaised(string(alert.Severity), alert.IndicatorName)
	}
	return alerts, nil
}

// LatencyP95 reports the current p95 processing latency.
func (s *StandupService) LatencyP95() time.Duration {
	return s.latencies.Percentile(95)
}

func (s *StandupService) observations(ctx context.Context, teamID string, window models.Window) ([]analytics.Observation, []models.ProcessingResult, error) {
	results, err := s.store.FetchWindow(ctx, teamID, window)
	if err != nil {
		return nil, nil, utils.NewAppError("service.observations", "fetch team history", err)
	}

	observations := make([]analytics.Observation, 0, len(results))
	for _, result := range results {
		flag, err := s.store.BlockerFlag(ctx, result.ID)
		if err != nil {
			// A missing flag degrades the blocker indicators, it does not
			// block the whole evaluation.
			s.logger.Warn("blocker flag lookup failed",
				slog.String("result_id", result.ID),
				slog.Any("error", err))
			flag = models.BlockerFlag{}
		}
		observations = append(observations, analytics.Observation{Result: result, Blocker: flag})
	}
	return observations, results, nil
}

// enrichAlerts appends the mined recurring themes to non-info rationales so
// a recipient sees what the team keeps talking about.
func enrichAlerts(alerts []models.WarningAlert, pattern models.TeamPattern) {
	if len(pattern.Themes) == 0 {
		return
	}
	terms := make([]string, 0, len(pattern.Themes))
	for _, theme := range pattern.Themes {
		terms = append(terms, theme.Term)
	}
	suffix := "; recurring themes: " + strings.Join(terms, ", ")
	for i := range alerts {
		if alerts[i].Severity == models.SeverityInfo {
			continue
		}
		alerts[i].RationaleText += suffix
	}
}
