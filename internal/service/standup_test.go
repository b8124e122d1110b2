package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/standupstack/pulse-engine/internal/cache"
	"github.com/standupstack/pulse-engine/internal/config"
	"github.com/standupstack/pulse-engine/internal/models"
	"github.com/standupstack/pulse-engine/internal/patterns"
)

type fakePipeline struct {
	result *models.ProcessingResult
	err    error
}

func (f *fakePipeline) Process(_ context.Context, sub models.Submission) (*models.ProcessingResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	result := *f.result
	result.SubmissionID = sub.ID
	return &result, nil
}

type stubStore struct {
	saved   []models.ProcessingResult
	saveErr error
	history []models.ProcessingResult
	flags   map[string]models.BlockerFlag
}

func (s *stubStore) SaveResult(_ context.Context, result models.ProcessingResult) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, result)
	return nil
}

func (s *stubStore) FetchWindow(context.Context, string, models.Window) ([]models.ProcessingResult, error) {
	return s.history, nil
}

func (s *stubStore) BlockerFlag(_ context.Context, resultID string) (models.BlockerFlag, error) {
	return s.flags[resultID], nil
}

func score(v float64) *float64 { return &v }

func testThresholds() models.Thresholds {
	return models.Thresholds{
		LowSentiment:         2.5,
		SentimentTrendDelta:  0.75,
		BlockerRatio:         0.5,
		CriticalBlockerRatio: 0.7,
		ExpectedCadence:      24 * time.Hour,
		MinSamples:           5,
	}
}

func decliningHistory(n int) ([]models.ProcessingResult, map[string]models.BlockerFlag) {
	history := make([]models.ProcessingResult, 0, n)
	flags := make(map[string]models.BlockerFlag, n)
	for i := 0; i < n; i++ {
		value := 4.5
		if i >= n/2 {
			value = 2.0
		}
		id := "res-" + string(rune('a'+i))
		history = append(history, models.ProcessingResult{
			ID:             id,
			TeamID:         "team-a",
			SentimentScore: score(value),
			SummaryText:    "blocked by review backlog again",
		})
		flags[id] = models.BlockerFlag{Present: i%2 == 0}
	}
	return history, flags
}

func TestProcessPersistsResult(t *testing.T) {
	store := &stubStore{}
	svc := NewStandupService(nil, &fakePipeline{result: &models.ProcessingResult{ID: "res-1"}}, store, nil, nil, testThresholds(), 0)

	result, err := svc.Process(context.Background(), models.Submission{ID: "sub-1", TeamID: "team-a"})
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if len(store.saved) != 1 || store.saved[0].SubmissionID != "sub-1" {
		t.Errorf("result not persisted: %+v", store.saved)
	}
	if result.SubmissionID != "sub-1" {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestProcessSaveFailureSurfaces(t *testing.T) {
	store := &stubStore{saveErr: errors.New("connection refused")}
	svc := NewStandupService(nil, &fakePipeline{result: &models.ProcessingResult{ID: "res-1"}}, store, nil, nil, testThresholds(), 0)

	if _, err := svc.Process(context.Background(), models.Submission{ID: "sub-1"}); err == nil {
		t.Fatal("expected error when persistence fails")
	}
}

func TestProcessPipelineErrorPassesThrough(t *testing.T) {
	store := &stubStore{}
	pipeErr := errors.New("transcription failed")
	svc := NewStandupService(nil, &fakePipeline{err: pipeErr}, store, nil, nil, testThresholds(), 0)

	_, err := svc.Process(context.Background(), models.Submission{ID: "sub-1"})
	if !errors.Is(err, pipeErr) {
		t.Fatalf("expected pipeline error, got %v", err)
	}
	if len(store.saved) != 0 {
		t.Errorf("failed run must not persist anything")
	}
}

func TestComputeHealthUsesBlockerFlags(t *testing.T) {
	history, flags := decliningHistory(6)
	store := &stubStore{history: history, flags: flags}
	svc := NewStandupService(nil, nil, store, nil, nil, testThresholds(), 0)

	window := models.Window{Start: time.Now().Add(-14 * 24 * time.Hour), End: time.Now()}
	snapshot, err := svc.ComputeHealth(context.Background(), "team-a", window)
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}
	if snapshot.SubmissionCount != 6 {
		t.Errorf("expected 6 submissions, got %d", snapshot.SubmissionCount)
	}
	if snapshot.BlockerCount != 3 {
		t.Errorf("expected 3 blockers from flags, got %d", snapshot.BlockerCount)
	}
	if snapshot.TrendDirection != models.TrendDeclining {
		t.Errorf("expected declining trend, got %s", snapshot.TrendDirection)
	}
}

func TestEvaluateTeamRaisesAndEnriches(t *testing.T) {
	history, flags := decliningHistory(10)
	store := &stubStore{history: history, flags: flags}
	miner := patterns.NewMiner(nil, nil)
	svc := NewStandupService(nil, nil, store, nil, miner, testThresholds(), 14*24*time.Hour)

	alerts, err := svc.EvaluateTeam(context.Background(), "team-a")
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if len(alerts) == 0 {
		t.Fatal("declining history should raise alerts")
	}
	found := false
	for _, alert := range alerts {
		if alert.IndicatorName == models.IndicatorSentimentTrend {
			found = true
			if !strings.Contains(alert.RationaleText, "recurring themes") {
				t.Errorf("expected theme enrichment in rationale: %s", alert.RationaleText)
			}
		}
	}
	if !found {
		t.Errorf("expected a sentiment_trend alert, got %+v", alerts)
	}
}

func TestEvaluateTeamEmptyHistory(t *testing.T) {
	store := &stubStore{}
	svc := NewStandupService(nil, nil, store, nil, nil, testThresholds(), 14*24*time.Hour)

	alerts, err := svc.EvaluateTeam(context.Background(), "team-new")
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	// A 14-day empty window spans the expected cadence, so disengagement
	// is the single expected signal.
	if len(alerts) != 1 || alerts[0].IndicatorName != models.IndicatorSubmissionGap {
		t.Errorf("expected only a submission gap alert, got %+v", alerts)
	}
}

type recordingDispatcher struct {
	mu      sync.Mutex
	batches [][]models.WarningAlert
}

func (d *recordingDispatcher) Dispatch(_ context.Context, alerts []models.WarningAlert) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.batches = append(d.batches, alerts)
	return nil
}

func (d *recordingDispatcher) Close() error { return nil }

type setNXCache struct {
	cache.NoopProvider

	mu   sync.Mutex
	keys map[string]struct{}
}

func (c *setNXCache) SetNX(_ context.Context, key string, _ []byte, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.keys == nil {
		c.keys = make(map[string]struct{})
	}
	if _, exists := c.keys[key]; exists {
		return false, nil
	}
	c.keys[key] = struct{}{}
	return true, nil
}

type staticEvaluator struct {
	alerts []models.WarningAlert
}

func (s *staticEvaluator) EvaluateTeam(context.Context, string) ([]models.WarningAlert, error) {
	return s.alerts, nil
}

func TestEvaluatorSuppressesDuplicateAlerts(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	dedup := &setNXCache{}
	evaluator := NewEvaluator(
		config.EvaluationConfig{Teams: []string{"team-a"}, Interval: time.Hour},
		&staticEvaluator{alerts: []models.WarningAlert{{
			ID: "a-1", TeamID: "team-a", Severity: models.SeverityWarning, IndicatorName: models.IndicatorBlockerRate,
		}}},
		dispatcher,
		dedup,
		24*time.Hour,
		nil,
	)
	evaluator.now = func() time.Time {
		return time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC) // a Wednesday
	}

	evaluator.evaluateAll(context.Background())
	evaluator.evaluateAll(context.Background())

	if len(dispatcher.batches) != 1 {
		t.Fatalf("duplicate alert should dispatch once, got %d batches", len(dispatcher.batches))
	}
	if len(dispatcher.batches[0]) != 1 {
		t.Errorf("expected one alert in the batch, got %d", len(dispatcher.batches[0]))
	}
}

func TestEvaluatorSkipsWeekends(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	evaluator := NewEvaluator(
		config.EvaluationConfig{Teams: []string{"team-a"}, Interval: time.Hour, SkipWeekends: true},
		&staticEvaluator{alerts: []models.WarningAlert{{ID: "a-1", TeamID: "team-a"}}},
		dispatcher,
		nil,
		0,
		nil,
	)
	evaluator.now = func() time.Time {
		return time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC) // a Saturday
	}

	evaluator.evaluateAll(context.Background())
	if len(dispatcher.batches) != 0 {
		t.Errorf("weekend pass must not evaluate, got %d batches", len(dispatcher.batches))
	}
}
