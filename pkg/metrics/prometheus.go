package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	barsIngested   *prometheus.CounterVec
	windowsTotal   *prometheus.CounterVec
	windowsSkipped *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	lastForecast   *prometheus.GaugeVec
	latency        *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		barsIngested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketcast_bars_ingested_total",
				Help: "Total number of OHLCV bars ingested per backend",
			},
			[]string{"backend", "symbol"},
		),
		windowsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketcast_eval_windows_total",
				Help: "Total number of walk-forward windows evaluated",
			},
			[]string{"symbol", "model"},
		),
		windowsSkipped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketcast_eval_windows_skipped_total",
				Help: "Total number of walk-forward windows skipped on error",
			},
			[]string{"symbol", "model"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketcast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastForecast: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "marketcast_last_forecast_price",
				Help: "Last forecast point price per symbol and horizon",
			},
			[]string{"symbol", "horizon"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketcast_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordBarIngested records an OHLCV bar written to a backend.
func (r *Recorder) RecordBarIngested(backend, symbol string) {
	r.barsIngested.WithLabelValues(backend, symbol).Inc()
}

// RecordWindows records evaluated and skipped window counts for a run.
func (r *Recorder) RecordWindows(symbol, model string, evaluated, skipped int) {
	r.windowsTotal.WithLabelValues(symbol, model).Add(float64(evaluated))
	r.windowsSkipped.WithLabelValues(symbol, model).Add(float64(skipped))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordForecast records the last forecast point for a symbol/horizon.
func (r *Recorder) RecordForecast(symbol, horizon string, price float64) {
	r.lastForecast.WithLabelValues(symbol, horizon).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
