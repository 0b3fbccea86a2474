// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "homeplan"

var (
	presenceRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "presence",
			Name:      "refresh_total",
			Help:      "Presence table builds by outcome.",
		},
		[]string{"outcome"},
	)

	presenceRefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "presence",
			Name:      "refresh_duration_seconds",
			Help:      "Time spent fetching the calendar and building the table.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	presenceMatchedEvents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "presence",
			Name:      "matched_events",
			Help:      "Absence-causing (event, member) pairs in the latest table.",
		},
	)

	presenceLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "presence",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful presence build.",
		},
	)

	mealSuggestions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "meal_suggestions_total",
			Help:      "Per-date results of the weekly selector.",
		},
		[]string{"result"},
	)
)

// PresenceRefresh records one build attempt.
func PresenceRefresh(started time.Time, matched int, err error) {
	presenceRefreshDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		presenceRefreshTotal.WithLabelValues("error").Inc()
		return
	}
	presenceRefreshTotal.WithLabelValues("ok").Inc()
	presenceMatchedEvents.Set(float64(matched))
	presenceLastSuccess.Set(float64(time.Now().Unix()))
}

// Result values for MealSuggestion.
const (
	SuggestionAssigned = "assigned"
	SuggestionKept     = "kept"
	SuggestionNone     = "none"
)

// MealSuggestion counts one date's outcome in a selector run.
func MealSuggestion(result string) {
	mealSuggestions.WithLabelValues(result).Inc()
}
