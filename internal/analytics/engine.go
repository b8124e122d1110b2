package analytics

import (
	"log/slog"

	"github.com/standupstack/pulse-engine/internal/models"
)

// Observation pairs one processing result with its externally supplied
// blocker classification. The storage collaborator owns the blocker
// heuristic; this engine only aggregates the flags.
type Observation struct {
	Result  models.ProcessingResult
	Blocker models.BlockerFlag
}

// trendDeadZone is the band around zero inside which the two-bucket trend
// counts as stable.
const trendDeadZone = 0.1

// velocityCompletionFactor estimates how many referenced work items a team
// actually completes within the window.
const velocityCompletionFactor = 0.7

// Engine derives rolling team-health indicators from processed history.
// Every call operates on its own read snapshot; nothing is mutated in
// place, so the engine is safe for concurrent use.
type Engine struct {
	logger *slog.Logger
}

// NewEngine constructs the analytics engine.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// Compute aggregates a chronological window of observations into one
// TeamHealthSnapshot. Windows with fewer than two submissions keep every
// derived field absent: a nil average is "no data", which must never be
// conflated with a valid low score.
func (e *Engine) Compute(teamID string, window models.Window, history []Observation) models.TeamHealthSnapshot {
	snapshot := models.TeamHealthSnapshot{
		TeamID:          teamID,
		WindowStart:     window.Start,
		WindowEnd:       window.End,
		SubmissionCount: len(history),
	}

	for _, obs := range history {
		if obs.Blocker.Present {
			snapshot.BlockerCount++
			if obs.Blocker.Resolved {
				snapshot.ResolvedBlockerCount++
			}
		}
		snapshot.WorkItemCount += len(obs.Result.WorkItemRefs)
	}

	if len(history) < 2 {
		return snapshot
	}

	scores := make([]float64, 0, len(history))
	for _, obs := range history {
		if obs.Result.SentimentScore != nil {
			scores = append(scores, *obs.Result.SentimentScore)
		}
	}

	if len(scores) > 0 {
		avg := mean(scores)
		snapshot.AvgSentiment = &avg
	}
	if len(scores) >= 2 {
		vol := stdDevPop(scores)
		snapshot.SentimentVolatility = &vol

		// Two-bucket comparison instead of a regression: the sign of
		// second-half mean minus first-half mean is deterministic and easy
		// to explain in alert rationale text.
		first, second := splitHalves(scores)
		if len(first) > 0 && len(second) > 0 {
			trend := mean(second) - mean(first)
			snapshot.SentimentTrend = &trend
			snapshot.TrendDirection = trendDirection(trend)
		}
	}

	if snapshot.WorkItemCount > 0 {
		velocity := float64(snapshot.WorkItemCount) * velocityCompletionFactor
		snapshot.VelocityScore = &velocity
	}

	e.logger.Debug("team health computed",
		slog.String("team_id", teamID),
		slog.Int("submissions", snapshot.SubmissionCount),
		slog.Int("scored", len(scores)),
		slog.Int("blockers", snapshot.BlockerCount))

	return snapshot
}

func trendDirection(trend float64) models.TrendDirection {
	switch {
	case trend > trendDeadZone:
		return models.TrendImproving
	case trend < -trendDeadZone:
		return models.TrendDeclining
	default:
		return models.TrendStable
	}
}
