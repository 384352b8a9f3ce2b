package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"netflix-pricing/models"
)

// Metrics bundles Prometheus collectors for a pricing run
type Metrics struct {
	Registry       *prometheus.Registry
	CountriesTotal *prometheus.CounterVec
	RecordsTotal   prometheus.Counter
	BatchesTotal   prometheus.Counter
	StepFailures   *prometheus.CounterVec
	OpenTabs       prometheus.Gauge
	ScrapeDuration prometheus.Histogram
}

// NewMetrics constructs and registers all metrics on a dedicated registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	countries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_countries_total",
			Help: "Countries scraped, by outcome.",
		},
		[]string{"outcome"},
	)
	records := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricing_records_total",
			Help: "Price records produced.",
		},
	)
	batches := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricing_batches_total",
			Help: "Batches of concurrent tabs completed.",
		},
	)
	stepFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_step_failures_total",
			Help: "Browser step failures, by step and status.",
		},
		[]string{"step", "status"},
	)
	openTabs := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pricing_open_tabs",
			Help: "Browser tabs currently open for country scrapes.",
		},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pricing_country_scrape_seconds",
			Help:    "Time spent scraping one country.",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120},
		},
	)

	registry.MustRegister(countries, records, batches, stepFailures, openTabs, duration)

	return &Metrics{
		Registry:       registry,
		CountriesTotal: countries,
		RecordsTotal:   records,
		BatchesTotal:   batches,
		StepFailures:   stepFailures,
		OpenTabs:       openTabs,
		ScrapeDuration: duration,
	}
}

// ObserveCountry records the outcome of one country scrape
func (m *Metrics) ObserveCountry(records []models.PriceRecord, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if len(records) > 0 {
		switch {
		case records[0].IsError():
			outcome = "error"
		case records[0].IsNotAvailable():
			outcome = "na"
		}
	}
	m.CountriesTotal.WithLabelValues(outcome).Inc()
	m.RecordsTotal.Add(float64(len(records)))
	m.ScrapeDuration.Observe(d.Seconds())
}

// IncStepFailure counts a failed step
func (m *Metrics) IncStepFailure(res StepResult) {
	if m == nil {
		return
	}
	m.StepFailures.WithLabelValues(res.Step, res.Status.String()).Inc()
}

// TabOpened increments the open tabs gauge
func (m *Metrics) TabOpened() {
	if m == nil {
		return
	}
	m.OpenTabs.Inc()
}

// TabClosed decrements the open tabs gauge
func (m *Metrics) TabClosed() {
	if m == nil {
		return
	}
	m.OpenTabs.Dec()
}

// IncBatch counts a completed batch
func (m *Metrics) IncBatch() {
	if m == nil {
		return
	}
	m.BatchesTotal.Inc()
}
