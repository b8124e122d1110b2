package warning

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/standupstack/pulse-engine/internal/models"
)

// Evaluate checks one snapshot against the injected thresholds and returns
// zero or more alerts. It is a pure function of its inputs: no state is kept
// between evaluations, and nothing is dispatched from here. Rules run in a
// fixed order (sentiment, blocker rate, submission gap) and each rule is
// judged independently, so one pass can raise several alerts at once.
func Evaluate(snapshot models.TeamHealthSnapshot, thresholds models.Thresholds) []models.WarningAlert {
	alerts := make([]models.WarningAlert, 0, 3)
	now := time.Now().UTC()

	if alert, ok := sentimentRule(snapshot, thresholds, now); ok {
		alerts = append(alerts, alert)
	}
	if alert, ok := blockerRateRule(snapshot, thresholds, now); ok {
		alerts = append(alerts, alert)
	}
	if alert, ok := submissionGapRule(snapshot, thresholds, now); ok {
		alerts = append(alerts, alert)
	}
	return alerts
}

// sentimentRule fires on a low average, a sharply negative trend, or both.
// Both conditions holding at once escalates to critical. Sparse windows are
// skipped entirely: below MinSamples there is not enough signal to warn on.
func sentimentRule(snapshot models.TeamHealthSnapshot, thresholds models.Thresholds, now time.Time) (models.WarningAlert, bool) {
	if snapshot.SubmissionCount < thresholds.MinSamples {
		return models.WarningAlert{}, false
	}

	lowHit := snapshot.AvgSentiment != nil && *snapshot.AvgSentiment < thresholds.LowSentiment
	trendHit := snapshot.SentimentTrend != nil && *snapshot.SentimentTrend <= -thresholds.SentimentTrendDelta

	switch {
	case lowHit && trendHit:
		return models.WarningAlert{
			ID:             uuid.NewString(),
			TeamID:         snapshot.TeamID,
			Severity:       models.SeverityCritical,
			IndicatorName:  models.IndicatorSentimentTrend,
			ObservedValue:  *snapshot.SentimentTrend,
			ThresholdValue: -thresholds.SentimentTrendDelta,
			RationaleText: fmt.Sprintf(
				"average sentiment %.2f is below %.2f and fell by %.2f across the window (limit %.2f)",
				*snapshot.AvgSentiment, thresholds.LowSentiment, -*snapshot.SentimentTrend, thresholds.SentimentTrendDelta),
			RaisedAt: now,
		}, true
	case trendHit:
		return models.WarningAlert{
			ID:             uuid.NewString(),
			TeamID:         snapshot.TeamID,
			Severity:       models.SeverityWarning,
			IndicatorName:  models.IndicatorSentimentTrend,
			ObservedValue:  *snapshot.SentimentTrend,
			ThresholdValue: -thresholds.SentimentTrendDelta,
			RationaleText: fmt.Sprintf(
				"sentiment fell by %.2f between the first and second half of the window (limit %.2f)",
				-*snapshot.SentimentTrend, thresholds.SentimentTrendDelta),
			RaisedAt: now,
		}, true
	case lowHit:
		return models.WarningAlert{
			ID:             uuid.NewString(),
			TeamID:         snapshot.TeamID,
			Severity:       models.SeverityWarning,
			IndicatorName:  models.IndicatorSentimentLow,
			ObservedValue:  *snapshot.AvgSentiment,
			ThresholdValue: thresholds.LowSentiment,
			RationaleText: fmt.Sprintf(
				"average sentiment %.2f is below the configured floor of %.2f",
				*snapshot.AvgSentiment, thresholds.LowSentiment),
			RaisedAt: now,
		}, true
	}
	return models.WarningAlert{}, false
}

func blockerRateRule(snapshot models.TeamHealthSnapshot, thresholds models.Thresholds, now time.Time) (models.WarningAlert, bool) {
	if snapshot.SubmissionCount == 0 {
		return models.WarningAlert{}, false
	}
	ratio := float64(snapshot.BlockerCount) / float64(snapshot.SubmissionCount)
	if ratio <= thresholds.BlockerRatio {
		return models.WarningAlert{}, false
	}

	severity := models.SeverityWarning
	if thresholds.CriticalBlockerRatio > 0 && ratio > thresholds.CriticalBlockerRatio {
		severity = models.SeverityCritical
	}
	return models.WarningAlert{
		ID:             uuid.NewString(),
		TeamID:         snapshot.TeamID,
		Severity:       severity,
		IndicatorName:  models.IndicatorBlockerRate,
		ObservedValue:  ratio,
		ThresholdValue: thresholds.BlockerRatio,
		RationaleText: fmt.Sprintf(
			"%d of %d submissions report blockers (%.0f%%, limit %.0f%%)",
			snapshot.BlockerCount, snapshot.SubmissionCount, ratio*100, thresholds.BlockerRatio*100),
		RaisedAt: now,
	}, true
}

// submissionGapRule flags disengagement: a whole expected-cadence window
// with no submissions at all.
func submissionGapRule(snapshot models.TeamHealthSnapshot, thresholds models.Thresholds, now time.Time) (models.WarningAlert, bool) {
	if snapshot.SubmissionCount != 0 {
		return models.WarningAlert{}, false
	}
	window := models.Window{Start: snapshot.WindowStart, End: snapshot.WindowEnd}
	if thresholds.ExpectedCadence <= 0 || window.Span() < thresholds.ExpectedCadence {
		return models.WarningAlert{}, false
	}

	return models.WarningAlert{
		ID:             uuid.NewString(),
		TeamID:         snapshot.TeamID,
		Severity:       models.SeverityInfo,
		IndicatorName:  models.IndicatorSubmissionGap,
		ObservedValue:  0,
		ThresholdValue: 1,
		RationaleText: fmt.Sprintf(
			"no standup submissions in %s despite an expected cadence of %s; possible disengagement",
			window.Span(), thresholds.ExpectedCadence),
		RaisedAt: now,
	}, true
}
