package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FetchCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "currency_tracker_fetch_cycles_total",
			Help: "Total number of rate fetch cycles by result",
		},
		[]string{"result"}, // success, empty, error
	)

	AlertsCheckedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "currency_tracker_alerts_checked_total",
			Help: "Total number of alerts evaluated across all passes",
		},
	)

	AlertsTriggeredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "currency_tracker_alerts_triggered_total",
			Help: "Total number of alerts that triggered and dispatched",
		},
	)

	AlertSkipsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "currency_tracker_alert_skips_total",
			Help: "Total number of per-alert skips by reason",
		},
		[]string{"reason"},
	)

	DispatchFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "currency_tracker_dispatch_failures_total",
			Help: "Total number of failed notification dispatches",
		},
	)

	EvaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "currency_tracker_evaluation_duration_seconds",
			Help:    "Duration of one evaluation pass in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)
)
