package models

import "time"

// Window bounds a team history query.
type Window struct {
	Start time.Time
	End   time.Time
}

// Span returns the window width, zero when the bounds are inverted.
func (w Window) Span() time.Duration {
	if w.End.Before(w.Start) {
		return 0
	}
	return w.End.Sub(w.Start)
}

// BlockerFlag is the externally owned blocker classification for one result.
// The storage collaborator decides what counts as a blocker; this core only
// aggregates the flags.
type BlockerFlag struct {
	Present  bool
	Resolved bool
}

// TrendDirection labels the two-bucket sentiment trend.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendStable    TrendDirection = "stable"
	TrendDeclining TrendDirection = "declining"
)

// TeamHealthSnapshot is a derived, point-in-time aggregate of team health
// over a window. Recomputed on demand; persistence belongs to the caller.
// Pointer fields are nil when the window held no usable data, which is not
// the same as zero.
type TeamHealthSnapshot struct {
	TeamID               string
	WindowStart          time.Time
	WindowEnd            time.Time
	AvgSentiment         *float64
	SentimentTrend       *float64
	TrendDirection       TrendDirection
	SentimentVolatility  *float64
	BlockerCount         int
	ResolvedBlockerCount int
	SubmissionCount      int
	WorkItemCount        int
	VelocityScore        *float64
}

// Severity ranks how urgent a warning alert is.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Indicator names carried on warning alerts.
const (
	IndicatorSentimentLow   = "sentiment_low"
	IndicatorSentimentTrend = "sentiment_trend"
	IndicatorBlockerRate    = "blocker_rate"
	IndicatorSubmissionGap  = "submission_gap"
)

// WarningAlert is a threshold-triggered team-health signal, independent of
// any notification channel.
type WarningAlert struct {
	ID             string    `json:"id"`
	TeamID         string    `json:"team_id"`
	Severity       Severity  `json:"severity"`
	IndicatorName  string    `json:"indicator_name"`
	ObservedValue  float64   `json:"observed_value"`
	ThresholdValue float64   `json:"threshold_value"`
	RationaleText  string    `json:"rationale_text"`
	RaisedAt       time.Time `json:"raised_at"`
}

// Thresholds configures the early-warning rules. Passed in per evaluation so
// callers can override per team or per test without shared state.
type Thresholds struct {
	LowSentiment         float64
	SentimentTrendDelta  float64
	BlockerRatio         float64
	CriticalBlockerRatio float64
	ExpectedCadence      time.Duration
	MinSamples           int
}
