// Package metrics exposes Prometheus instrumentation for the simulation
// pipeline and the API surface.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder handles metrics recording and exposure
type Recorder struct {
	// API metrics
	apiRequestCounter   *prometheus.CounterVec
	apiLatencyHistogram *prometheus.HistogramVec

	// Portfolio metrics
	portfolioSizeGauge   *prometheus.GaugeVec
	trainingDurationHist prometheus.Histogram
	trainingCounter      prometheus.Counter

	// Simulation metrics
	simulationCounter  *prometheus.CounterVec
	simulationDuration *prometheus.HistogramVec
	meanLossGauge      *prometheus.GaugeVec
	valueAtRiskGauge   *prometheus.GaugeVec
	expectedShortfall  *prometheus.GaugeVec
}

// NewRecorder creates a new metrics recorder and registers its collectors
func NewRecorder() *Recorder {
	return &Recorder{
		apiRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cre_api_requests_total",
				Help: "The total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		apiLatencyHistogram: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cre_api_latency_seconds",
				Help:    "API request latency distribution",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
			},
			[]string{"method", "path"},
		),

		portfolioSizeGauge: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cre_portfolio_loans",
				Help: "Number of loans in a generated portfolio",
			},
			[]string{"portfolio_id"},
		),
		trainingDurationHist: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cre_pd_training_duration_seconds",
				Help:    "Time taken to fit the PD model",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
			},
		),
		trainingCounter: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "cre_pd_trainings_total",
				Help: "The total number of PD model fits",
			},
		),

		simulationCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cre_simulations_total",
				Help: "The total number of Monte Carlo simulations",
			},
			[]string{"scenario"},
		),
		simulationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cre_simulation_duration_seconds",
				Help:    "Monte Carlo simulation duration",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"scenario"},
		),
		meanLossGauge: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cre_mean_expected_loss",
				Help: "Mean expected loss of the latest simulation",
			},
			[]string{"scenario"},
		),
		valueAtRiskGauge: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cre_value_at_risk_99",
				Help: "99% Value at Risk of the latest simulation",
			},
			[]string{"scenario"},
		),
		expectedShortfall: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cre_expected_shortfall_975",
				Help: "97.5% Expected Shortfall of the latest simulation",
			},
			[]string{"scenario"},
		),
	}
}

// RecordAPIRequest records an API request with latency
func (r *Recorder) RecordAPIRequest(method, path string, status int, latency time.Duration) {
	r.apiRequestCounter.WithLabelValues(method, path, statusLabel(status)).Inc()
	r.apiLatencyHistogram.WithLabelValues(method, path).Observe(latency.Seconds())
}

// RecordPortfolioGenerated records the size of a freshly generated portfolio
func (r *Recorder) RecordPortfolioGenerated(portfolioID string, loans int) {
	r.portfolioSizeGauge.WithLabelValues(portfolioID).Set(float64(loans))
}

// RecordTraining records one PD model fit
func (r *Recorder) RecordTraining(duration time.Duration) {
	r.trainingCounter.Inc()
	r.trainingDurationHist.Observe(duration.Seconds())
}

// RecordSimulation records one completed Monte Carlo run and updates the
// latest-value gauges for its scenario
func (r *Recorder) RecordSimulation(scenario string, meanLoss, var99, es float64, duration time.Duration) {
	r.simulationCounter.WithLabelValues(scenario).Inc()
	r.simulationDuration.WithLabelValues(scenario).Observe(duration.Seconds())
	r.meanLossGauge.WithLabelValues(scenario).Set(meanLoss)
	r.valueAtRiskGauge.WithLabelValues(scenario).Set(var99)
	r.expectedShortfall.WithLabelValues(scenario).Set(es)
}

func statusLabel(status int) string {
	switch {
	case status < 200:
		return "1xx"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
