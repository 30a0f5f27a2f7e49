// Package metrics exposes Prometheus collectors for the batch scraper.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	unitsTotal       *prometheus.CounterVec
	unitErrorsTotal  *prometheus.CounterVec
	recordsTotal     *prometheus.CounterVec
	recoveriesTotal  prometheus.Counter
	screenshotsTotal prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		unitsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_units_total",
				Help: "Total number of search units processed, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		unitErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_unit_errors_total",
				Help: "Total number of unit failures, labeled by phase.",
			},
			[]string{"phase"},
		)

		recordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_records_total",
				Help: "Total number of records, labeled by stage (extracted or ingested).",
			},
			[]string{"stage"},
		)

		recoveriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_session_recoveries_total",
				Help: "Total number of browser session recovery attempts.",
			},
		)

		screenshotsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_screenshots_total",
				Help: "Total number of diagnostic screenshots captured.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveUnit increments the unit counter for the given outcome.
func ObserveUnit(outcome string) {
	unitsTotal.WithLabelValues(outcome).Inc()
}

// ObserveUnitError increments the failure counter for the given phase.
func ObserveUnitError(phase string) {
	unitErrorsTotal.WithLabelValues(phase).Inc()
}

// ObserveRecords adds extracted and ingested record counts.
func ObserveRecords(extracted, ingested int) {
	if extracted > 0 {
		recordsTotal.WithLabelValues("extracted").Add(float64(extracted))
	}
	if ingested > 0 {
		recordsTotal.WithLabelValues("ingested").Add(float64(ingested))
	}
}

// ObserveRecovery increments the session recovery counter.
func ObserveRecovery() {
	recoveriesTotal.Inc()
}

// ObserveScreenshots adds captured screenshot counts.
func ObserveScreenshots(n int) {
	if n > 0 {
		screenshotsTotal.Add(float64(n))
	}
}
