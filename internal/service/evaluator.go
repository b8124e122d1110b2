package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/standupstack/pulse-engine/internal/cache"
	"github.com/standupstack/pulse-engine/internal/config"
	"github.com/standupstack/pulse-engine/internal/models"
	"github.com/standupstack/pulse-engine/internal/notify"
	"github.com/standupstack/pulse-engine/internal/utils"
)

// TeamEvaluator is the slice of StandupService the daemon drives.
type TeamEvaluator interface {
	EvaluateTeam(ctx context.Context, teamID string) ([]models.WarningAlert, error)
}

// Evaluator periodically evaluates the configured teams and hands fresh
// alerts to the dispatcher. Re-raised alerts are suppressed via cache SetNX
// keys with a TTL, so a persistent condition notifies once per TTL instead
// of every tick.
type Evaluator struct {
	svc          TeamEvaluator
	dispatcher   notify.Dispatcher
	cache        cache.Provider
	teams        []string
	interval     time.Duration
	skipWeekends bool
	dedupTTL     time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// NewEvaluator constructs the evaluation daemon.
func NewEvaluator(
	cfg config.EvaluationConfig,
	svc TeamEvaluator,
	dispatcher notify.Dispatcher,
	cacheProvider cache.Provider,
	dedupTTL time.Duration,
	logger *slog.Logger,
) *Evaluator {
	if dispatcher == nil {
		dispatcher = notify.NewLogDispatcher(logger)
	}
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	return &Evaluator{
		svc:          svc,
		dispatcher:   dispatcher,
		cache:        cacheProvider,
		teams:        cfg.Teams,
		interval:     interval,
		skipWeekends: cfg.SkipWeekends,
		dedupTTL:     dedupTTL,
		logger:       logger,
		now:          time.Now,
	}
}

// Run evaluates immediately, then on every tick until the context is
// cancelled.
func (e *Evaluator) Run(ctx context.Context) error {
	if len(e.teams) == 0 {
		e.logger.Info("no teams configured, evaluator idle")
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.evaluateAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.evaluateAll(ctx)
		}
	}
}

func (e *Evaluator) evaluateAll(ctx context.Context) {
	if e.skipWeekends && utils.IsWeekend(e.now()) {
		e.logger.Debug("weekend, skipping evaluation pass")
		return
	}
	for _, team := range e.teams {
		e.evaluateTeam(ctx, team)
	}
}

func (e *Evaluator) evaluateTeam(ctx context.Context, teamID string) {
	alerts, err := e.svc.EvaluateTeam(ctx, teamID)
	if err != nil {
		e.logger.Error("team evaluation failed",
			slog.String("team_id", teamID),
			slog.Any("error", err))
		return
	}

	fresh := make([]models.WarningAlert, 0, len(alerts))
	for _, alert := range alerts {
		if e.isDuplicate(ctx, alert) {
			e.logger.Debug("suppressing duplicate alert",
				slog.String("team_id", alert.TeamID),
				slog.String("indicator", alert.IndicatorName))
			continue
		}
		fresh = append(fresh, alert)
	}
	if len(fresh) == 0 {
		return
	}

	if err := e.dispatcher.Dispatch(ctx, fresh); err != nil {
		e.logger.Error("alert dispatch failed",
			slog.String("team_id", teamID),
			slog.Any("error", err))
	}
}

// isDuplicate claims the dedup key for the alert. Cache failures fail open:
// a flaky cache must never swallow a warning.
func (e *Evaluator) isDuplicate(ctx context.Context, alert models.WarningAlert) bool {
	key := "alertdedup:" + alert.TeamID + ":" + alert.IndicatorName + ":" + string(alert.Severity)
	claimed, err := e.cache.SetNX(ctx, key, []byte(alert.ID), e.dedupTTL)
	if err != nil {
		e.logger.Warn("alert dedup check failed", slog.Any("error", err))
		return false
	}
	return !claimed
}
