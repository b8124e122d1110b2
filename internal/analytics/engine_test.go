package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/standupstack/pulse-engine/internal/models"
)

func score(v float64) *float64 { return &v }

func obs(sentiment *float64, blocker bool, refs int) Observation {
	o := Observation{
		Result:  models.ProcessingResult{SentimentScore: sentiment},
		Blocker: models.BlockerFlag{Present: blocker},
	}
	for i := 0; i < refs; i++ {
		o.Result.WorkItemRefs = append(o.Result.WorkItemRefs, models.WorkItemRef{RawToken: "X-1"})
	}
	return o
}

func testWindow() models.Window {
	end := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	return models.Window{Start: end.Add(-14 * 24 * time.Hour), End: end}
}

func TestComputeEmptyHistory(t *testing.T) {
	engine := NewEngine(nil)

	snapshot := engine.Compute("team-a", testWindow(), nil)
	if snapshot.SubmissionCount != 0 {
		t.Fatalf("expected zero submissions, got %d", snapshot.SubmissionCount)
	}
	if snapshot.AvgSentiment != nil || snapshot.SentimentTrend != nil || snapshot.SentimentVolatility != nil || snapshot.VelocityScore != nil {
		t.Error("empty history must leave every derived field absent, not zero")
	}
}

func TestComputeSingleSubmissionIsDegenerate(t *testing.T) {
	engine := NewEngine(nil)

	snapshot := engine.Compute("team-a", testWindow(), []Observation{obs(score(4.0), true, 2)})
	if snapshot.SubmissionCount != 1 {
		t.Fatalf("expected 1 submission, got %d", snapshot.SubmissionCount)
	}
	if snapshot.AvgSentiment != nil || snapshot.SentimentTrend != nil {
		t.Error("one submission is not enough history for derived indicators")
	}
	if snapshot.BlockerCount != 1 || snapshot.WorkItemCount != 2 {
		t.Errorf("raw counts should still be tallied: %+v", snapshot)
	}
}

func TestComputeAbsentScoresAreNotZero(t *testing.T) {
	engine := NewEngine(nil)

	history := []Observation{obs(nil, false, 0), obs(nil, true, 1)}
	snapshot := engine.Compute("team-a", testWindow(), history)
	if snapshot.AvgSentiment != nil {
		t.Errorf("no scores available, average must be absent, got %v", *snapshot.AvgSentiment)
	}
	if snapshot.SubmissionCount != 2 || snapshot.BlockerCount != 1 {
		t.Errorf("counts wrong: %+v", snapshot)
	}
}

func TestComputeTwoBucketTrend(t *testing.T) {
	engine := NewEngine(nil)

	history := []Observation{
		obs(score(4.5), false, 0),
		obs(score(4.5), false, 0),
		obs(score(2.0), true, 0),
		obs(score(2.0), true, 0),
	}
	snapshot := engine.Compute("team-a", testWindow(), history)

	if snapshot.AvgSentiment == nil || math.Abs(*snapshot.AvgSentiment-3.25) > 1e-9 {
		t.Errorf("expected average 3.25, got %v", snapshot.AvgSentiment)
	}
	if snapshot.SentimentTrend == nil || math.Abs(*snapshot.SentimentTrend-(-2.5)) > 1e-9 {
		t.Fatalf("expected trend -2.5, got %v", snapshot.SentimentTrend)
	}
	if snapshot.TrendDirection != models.TrendDeclining {
		t.Errorf("expected declining direction, got %s", snapshot.TrendDirection)
	}
}

func TestComputeStableInsideDeadZone(t *testing.T) {
	engine := NewEngine(nil)

	history := []Observation{
		obs(score(3.5), false, 0),
		obs(score(3.45), false, 0),
		obs(score(3.5), false, 0),
		obs(score(3.55), false, 0),
	}
	snapshot := engine.Compute("team-a", testWindow(), history)
	if snapshot.TrendDirection != models.TrendStable {
		t.Errorf("expected stable direction, got %s", snapshot.TrendDirection)
	}
}

func TestComputeVolatilityAndVelocity(t *testing.T) {
	engine := NewEngine(nil)

	history := []Observation{
		obs(score(2.0), false, 3),
		obs(score(4.0), false, 2),
		obs(score(2.0), false, 0),
		obs(score(4.0), false, 5),
	}
	snapshot := engine.Compute("team-a", testWindow(), history)

	if snapshot.SentimentVolatility == nil || math.Abs(*snapshot.SentimentVolatility-1.0) > 1e-9 {
		t.Errorf("expected volatility 1.0, got %v", snapshot.SentimentVolatility)
	}
	if snapshot.WorkItemCount != 10 {
		t.Fatalf("expected 10 work items, got %d", snapshot.WorkItemCount)
	}
	if snapshot.VelocityScore == nil || math.Abs(*snapshot.VelocityScore-7.0) > 1e-9 {
		t.Errorf("expected velocity 7.0, got %v", snapshot.VelocityScore)
	}
}

func TestAssessLevels(t *testing.T) {
	engine := NewEngine(nil)

	calm := engine.Assess(models.TeamHealthSnapshot{
		SubmissionCount: 10,
		AvgSentiment:    score(4.2),
		TrendDirection:  models.TrendImproving,
	})
	if calm.Level != RiskLow || len(calm.Notes) != 0 {
		t.Errorf("healthy snapshot should assess low: %+v", calm)
	}

	strained := engine.Assess(models.TeamHealthSnapshot{
		SubmissionCount: 10,
		BlockerCount:    8,
		AvgSentiment:    score(2.1),
		TrendDirection:  models.TrendDeclining,
	})
	if strained.Level != RiskCritical {
		t.Errorf("expected critical level, got %s (score %.2f)", strained.Level, strained.Score)
	}
	if len(strained.Notes) < 3 {
		t.Errorf("expected notes naming each dimension, got %v", strained.Notes)
	}
}

func TestAssessEmptySnapshot(t *testing.T) {
	engine := NewEngine(nil)
	if got := engine.Assess(models.TeamHealthSnapshot{}); got.Level != RiskLow || got.Score != 0 {
		t.Errorf("empty snapshot must assess low risk, got %+v", got)
	}
}
