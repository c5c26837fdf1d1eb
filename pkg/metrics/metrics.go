// Package metrics exposes Prometheus collectors for the sync pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "podium"

var (
	syncRunsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "runs_total",
		Help:      "Number of sync runs grouped by trigger and final status.",
	}, []string{"trigger", "status"})

	syncDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "run_duration_seconds",
		Help:      "Wall time of a single user sync run.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"trigger"})

	activitiesCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "activities_total",
		Help:      "Activities handled by the engine grouped by outcome.",
	}, []string{"outcome"})

	refreshCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "strava",
		Name:      "credential_refreshes_total",
		Help:      "Credential refresh exchanges grouped by result.",
	}, []string{"result"})

	apiRequestCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "strava",
		Name:      "requests_total",
		Help:      "Requests sent to the fitness API grouped by endpoint and status class.",
	}, []string{"endpoint", "class"})

	lastSyncGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful sync run.",
	})
)

func init() {
	prometheus.MustRegister(syncRunsCounter, syncDuration, activitiesCounter, refreshCounter, apiRequestCounter, lastSyncGauge)
}

// Activity outcomes.
const (
	OutcomeUpserted = "upserted"
	OutcomeDropped  = "dropped"
	OutcomeUpdated  = "updated"
	OutcomeRemoved  = "removed"
)

// RecordSyncRun records one finished user sync.
func RecordSyncRun(trigger, status string, elapsed time.Duration) {
	syncRunsCounter.WithLabelValues(trigger, status).Inc()
	syncDuration.WithLabelValues(trigger).Observe(elapsed.Seconds())
	if status == "synced" {
		lastSyncGauge.Set(float64(time.Now().Unix()))
	}
}

// RecordActivities adds n to the counter for outcome.
func RecordActivities(outcome string, n int) {
	if n <= 0 {
		return
	}
	activitiesCounter.WithLabelValues(outcome).Add(float64(n))
}

func RecordRefresh(ok bool) {
	if ok {
		refreshCounter.WithLabelValues("ok").Inc()
		return
	}
	refreshCounter.WithLabelValues("error").Inc()
}

// RecordAPIRequest counts a fitness API call. status 0 means the request
// never produced a response.
func RecordAPIRequest(endpoint string, status int) {
	class := "error"
	switch {
	case status >= 500:
		class = "5xx"
	case status >= 400:
		class = "4xx"
	case status >= 200:
		class = "2xx"
	}
	apiRequestCounter.WithLabelValues(endpoint, class).Inc()
}
