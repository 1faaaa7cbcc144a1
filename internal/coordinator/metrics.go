package coordinator

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsOnce       sync.Once
	phaseDurationHist *prometheus.HistogramVec
	submissionCounter *prometheus.CounterVec
)

// ensureSigningMetrics 注册协调器指标，多次调用只注册一次
func ensureSigningMetrics() {
	metricsOnce.Do(func() {
		phaseDurationHist = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "satnam",
			Subsystem: "signing",
			Name:      "phase_duration_seconds",
			Help:      "Time from session creation until each signing phase is reached",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"phase"})
		submissionCounter = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "satnam",
			Subsystem: "signing",
			Name:      "submissions_total",
			Help:      "Participant submissions processed by the round coordinator",
		}, []string{"kind", "outcome"})
	})
}

func observePhase(phase string, duration time.Duration) {
	if duration < 0 {
		return
	}
	ensureSigningMetrics()
	phaseDurationHist.WithLabelValues(phase).Observe(duration.Seconds())
}

func countSubmission(kind, outcome string) {
	ensureSigningMetrics()
	submissionCounter.WithLabelValues(kind, outcome).Inc()
}
