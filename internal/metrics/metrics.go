// Package metrics exposes Prometheus collectors for the scheduler,
// executor, and script engine, grounded on the teacher's
// internal/metrics package (same Register/Handler/no-op-until-registered
// pattern, generalized from process lifecycle counters to check
// lifecycle counters).
package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	regOK atomic.Bool

	checksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "monitor",
			Subsystem: "checks",
			Name:      "total",
			Help:      "Number of checks executed, by monitor and status.",
		}, []string{"monitor", "status"},
	)
	checkDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "monitor",
			Subsystem: "checks",
			Name:      "duration_seconds",
			Help:      "Observed wall-clock duration of a check, from request start to completion.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"monitor"},
	)
	scriptEvaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "monitor",
			Subsystem: "script",
			Name:      "evaluations_total",
			Help:      "Number of script engine evaluations, by outcome.",
		}, []string{"monitor", "outcome"},
	)
	scriptDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "monitor",
			Subsystem: "script",
			Name:      "duration_seconds",
			Help:      "Observed script engine execution time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"monitor"},
	)
	scheduledMonitors = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "monitor",
			Subsystem: "scheduler",
			Name:      "active_monitors",
			Help:      "Number of monitors currently scheduled.",
		},
	)
	nextSchedule = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "monitor",
			Subsystem: "scheduler",
			Name:      "next_run_unix_seconds",
			Help:      "Unix timestamp of the next scheduled run for a monitor.",
		}, []string{"monitor"},
	)
	storeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "monitor",
			Subsystem: "store",
			Name:      "errors_total",
			Help:      "Number of store operation failures, by operation.",
		}, []string{"operation"},
	)
)

// Register registers all collectors with r. Safe to call more than
// once; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{
		checksTotal, checkDuration, scriptEvaluations, scriptDuration,
		scheduledMonitors, nextSchedule, storeErrors,
	}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler serves Prometheus exposition for the default gatherer.
func Handler() http.Handler { return promhttp.Handler() }

func IncCheck(monitor, status string) {
	if regOK.Load() {
		checksTotal.WithLabelValues(monitor, status).Inc()
	}
}

func ObserveCheckDuration(monitor string, seconds float64) {
	if regOK.Load() {
		checkDuration.WithLabelValues(monitor).Observe(seconds)
	}
}

func IncScriptEvaluation(monitor, outcome string) {
	if regOK.Load() {
		scriptEvaluations.WithLabelValues(monitor, outcome).Inc()
	}
}

func ObserveScriptDuration(monitor string, seconds float64) {
	if regOK.Load() {
		scriptDuration.WithLabelValues(monitor).Observe(seconds)
	}
}

func SetScheduledMonitors(n int) {
	if regOK.Load() {
		scheduledMonitors.Set(float64(n))
	}
}

func SetNextSchedule(monitor string, unixSeconds float64) {
	if regOK.Load() {
		nextSchedule.WithLabelValues(monitor).Set(unixSeconds)
	}
}

func IncStoreError(operation string) {
	if regOK.Load() {
		storeErrors.WithLabelValues(operation).Inc()
	}
}
