package notify

import (
	"context"
	"log/slog"

	"github.com/standupstack/pulse-engine/internal/models"
)

// Dispatcher delivers raised alerts to a notification channel. Evaluation
// and dispatch are deliberately separate: the warning engine returns alerts
// and the caller decides whether to hand them to a dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, alerts []models.WarningAlert) error
	Close() error
}

// LogDispatcher writes alerts to the log. It is the fallback when neither
// Kafka nor a webhook is configured, so alerts are never silently dropped.
type LogDispatcher struct {
	logger *slog.Logger
}

// NewLogDispatcher constructs the log-only dispatcher.
func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDispatcher{logger: logger}
}

// Dispatch logs each alert at a level matching its severity.
func (d *LogDispatcher) Dispatch(_ context.Context, alerts []models.WarningAlert) error {
	for _, alert := range alerts {
		attrs := []any{
			slog.String("team_id", alert.TeamID),
			slog.String("indicator", alert.IndicatorName),
			slog.String("severity", string(alert.Severity)),
			slog.Float64("observed", alert.ObservedValue),
			slog.Float64("threshold", alert.ThresholdValue),
			slog.String("rationale", alert.RationaleText),
		}
		if alert.Severity == models.SeverityInfo {
			d.logger.Info("team health alert", attrs...)
		} else {
			d.logger.Warn("team health alert", attrs...)
		}
	}
	return nil
}

// Close is a no-op.
func (d *LogDispatcher) Close() error { return nil }
