package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "argus",
		Subsystem: "engine",
		Name:      "evaluation_cycles_total",
		Help:      "Completed evaluation cycles by data source.",
	}, []string{"source"})

	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "argus",
		Subsystem: "engine",
		Name:      "evaluation_cycle_seconds",
		Help:      "Wall time of one evaluation cycle.",
		Buckets:   prometheus.DefBuckets,
	})

	rulesEvaluated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "argus",
		Subsystem: "engine",
		Name:      "rules_evaluated_total",
		Help:      "Rules evaluated across all cycles.",
	})

	alertsFired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "argus",
		Subsystem: "engine",
		Name:      "alerts_fired_total",
		Help:      "Alerts opened by the lifecycle manager.",
	})

	alertsResolved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "argus",
		Subsystem: "engine",
		Name:      "alerts_resolved_total",
		Help:      "Alerts transitioned to resolved.",
	})

	alertsPurged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "argus",
		Subsystem: "engine",
		Name:      "alerts_purged_total",
		Help:      "Alerts removed by the retention sweeper.",
	})
)
