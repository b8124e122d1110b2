package analytics

import (
	"fmt"

	"github.com/standupstack/pulse-engine/internal/models"
)

// RiskLevel buckets the aggregate risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RiskAssessment is a multi-dimension read of one snapshot. Notes name the
// contributing dimensions so the assessment stays explainable.
type RiskAssessment struct {
	Score float64
	Level RiskLevel
	Notes []string
}

const (
	lowSentimentRisk      = 2.5
	highVolatilityRisk    = 1.2
	blockerRatioRisk      = 0.5
	heavyBlockerRatioRisk = 0.7
)

// Assess folds the snapshot's indicators into one bounded risk score.
// Snapshots without derived data assess as low risk rather than guessing.
func (e *Engine) Assess(snapshot models.TeamHealthSnapshot) RiskAssessment {
	assessment := RiskAssessment{Level: RiskLow}

	if snapshot.AvgSentiment != nil && *snapshot.AvgSentiment < lowSentimentRisk {
		assessment.Score += 0.35
		assessment.Notes = append(assessment.Notes,
			fmt.Sprintf("average sentiment %.2f is below %.1f", *snapshot.AvgSentiment, lowSentimentRisk))
	}
	if snapshot.TrendDirection == models.TrendDeclining {
		assessment.Score += 0.25
		assessment.Notes = append(assessment.Notes, "sentiment trend is declining")
	}
	if snapshot.SubmissionCount > 0 {
		ratio := float64(snapshot.BlockerCount) / float64(snapshot.SubmissionCount)
		if ratio > heavyBlockerRatioRisk {
			assessment.Score += 0.35
			assessment.Notes = append(assessment.Notes,
				fmt.Sprintf("%d of %d submissions report blockers", snapshot.BlockerCount, snapshot.SubmissionCount))
		} else if ratio > blockerRatioRisk {
			assessment.Score += 0.25
			assessment.Notes = append(assessment.Notes,
				fmt.Sprintf("%d of %d submissions report blockers", snapshot.BlockerCount, snapshot.SubmissionCount))
		}
	}
	if snapshot.SentimentVolatility != nil && *snapshot.SentimentVolatility > highVolatilityRisk {
		assessment.Score += 0.15
		assessment.Notes = append(assessment.Notes,
			fmt.Sprintf("sentiment volatility %.2f exceeds %.1f", *snapshot.SentimentVolatility, highVolatilityRisk))
	}

	if assessment.Score > 1 {
		assessment.Score = 1
	}
	switch {
	case assessment.Score >= 0.75:
		assessment.Level = RiskCritical
	case assessment.Score >= 0.5:
		assessment.Level = RiskHigh
	case assessment.Score >= 0.25:
		assessment.Level = RiskModerate
	}
	return assessment
}
