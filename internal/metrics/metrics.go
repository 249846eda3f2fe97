package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainwatch",
		Subsystem: "scheduler",
		Name:      "ticks_total",
		Help:      "Total ticks executed, by outcome.",
	}, []string{"status"})

	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainwatch",
		Subsystem: "query",
		Name:      "total",
		Help:      "Total query executions per query id, by outcome.",
	}, []string{"query_id", "status"})

	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "chainwatch",
		Subsystem: "query",
		Name:      "duration_seconds",
		Help:      "Duration of query fetches in seconds.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"query_id"})

	QueryLastSuccess = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "chainwatch",
		Subsystem: "query",
		Name:      "last_success_timestamp",
		Help:      "Unix timestamp of the last successful fetch per query id.",
	}, []string{"query_id"})

	AlertsFiredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainwatch",
		Subsystem: "alerts",
		Name:      "fired_total",
		Help:      "Total alerts that fired, per alert id.",
	}, []string{"alert_id"})

	AlertsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainwatch",
		Subsystem: "alerts",
		Name:      "sent_total",
		Help:      "Total alerts successfully delivered, per channel.",
	}, []string{"channel"})

	AlertsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainwatch",
		Subsystem: "alerts",
		Name:      "failed_total",
		Help:      "Total alert delivery failures, per channel.",
	}, []string{"channel"})
)
