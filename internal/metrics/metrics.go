package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels submissions that produced a ProcessingResult.
	OutcomeSuccess = "success"
	// OutcomeError labels submissions that failed in the pipeline.
	OutcomeError = "error"
)

var (
	submissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pulse_engine",
			Name:      "submissions_total",
			Help:      "Total number of submissions processed, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	submissionDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pulse_engine",
			Name:      "submission_seconds",
			Help:      "End-to-end pipeline latency per submission in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
	)

	providerInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pulse_engine",
			Name:      "provider_invocations_total",
			Help:      "Adapter invocations, partitioned by provider and terminal status.",
		},
		[]string{"provider", "status"},
	)

	providerDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pulse_engine",
			Name:      "provider_seconds",
			Help:      "Adapter call latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"provider"},
	)

	alertsRaisedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pulse_engine",
			Name:      "alerts_raised_total",
			Help:      "Early-warning alerts raised, partitioned by severity and indicator.",
		},
		[]string{"severity", "indicator"},
	)
)

// Register attaches pulse-engine collectors to the supplied Prometheus
// registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		submissionsTotal,
		submissionDurationSeconds,
		providerInvocationsTotal,
		providerDurationSeconds,
		alertsRaisedTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveSubmission records one pipeline run.
func ObserveSubmission(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	submissionsTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	submissionDurationSeconds.Observe(duration.Seconds())
}

// ObserveProvider records one adapter invocation.
func ObserveProvider(provider, status string, duration time.Duration) {
	providerInvocationsTotal.WithLabelValues(provider, status).Inc()
	if duration < 0 {
		duration = 0
	}
	providerDurationSeconds.WithLabelValues(provider).Observe(duration.Seconds())
}

// AlertRaised counts one emitted early-warning alert.
func AlertRaised(severity, indicator string) {
	alertsRaisedTotal.WithLabelValues(severity, indicator).Inc()
}
