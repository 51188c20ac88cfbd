package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ErrorsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slot_engine_errors_total",
			Help: "Total number of logged errors.",
		},
		[]string{"type"},
	)
	HiresCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slot_engine_hires_total",
			Help: "Total number of committed hires by quota category.",
		},
		[]string{"quota_category"},
	)
	VacatedSlotsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "slot_engine_slots_vacated_total",
			Help: "Total number of occupations ended.",
		},
	)
	SuggestionsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slot_engine_suggestions_total",
			Help: "Substitution proposals produced, by whether the quota category matched.",
		},
		[]string{"category_matched"},
	)
	RiskAlertsGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "slot_engine_risk_alerts",
			Help: "Active occupations per risk class at the last scan.",
		},
		[]string{"class"},
	)
	RiskScanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "slot_engine_risk_scan_duration_seconds",
			Help:    "Duration of each scheduled risk scan in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

var registerOnce sync.Once

// Register adds every collector to the default registry. Safe to call more
// than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			ErrorsCounter,
			HiresCounter,
			VacatedSlotsCounter,
			SuggestionsCounter,
			RiskAlertsGauge,
			RiskScanDuration,
		)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
