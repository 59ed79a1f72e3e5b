package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	scansTotal     *prometheus.CounterVec
	symbolsTotal   *prometheus.CounterVec
	observerErrors *prometheus.CounterVec
	lastResults    *prometheus.GaugeVec
	latency        *prometheus.HistogramVec
}

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a recorder on reg (useful for testing).
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		scansTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finscan_scans_total",
				Help: "Total number of scans by universe strategy and outcome",
			},
			[]string{"strategy", "outcome"},
		),
		symbolsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finscan_symbols_total",
				Help: "Per-symbol unit outcomes (scored, filtered, fetch_error, timeout, panic, aborted)",
			},
			[]string{"outcome"},
		),
		observerErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finscan_observer_errors_total",
				Help: "Total number of failed observer notifications",
			},
			[]string{"observer"},
		),
		lastResults: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "finscan_last_scan_results",
				Help: "Number of results produced by the last completed scan",
			},
			[]string{"strategy"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finscan_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordScan counts a finished scan.
func (r *Recorder) RecordScan(strategy, outcome string) {
	r.scansTotal.WithLabelValues(strategy, outcome).Inc()
}

// RecordSymbol counts one unit outcome.
func (r *Recorder) RecordSymbol(outcome string) {
	r.symbolsTotal.WithLabelValues(outcome).Inc()
}

// RecordObserverError counts a failed notification.
func (r *Recorder) RecordObserverError(observer string) {
	r.observerErrors.WithLabelValues(observer).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordLastScan sets the result count of the last completed scan.
func (r *Recorder) RecordLastScan(strategy string, results int) {
	r.lastResults.WithLabelValues(strategy).Set(float64(results))
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordScan(string, string)     {}
func (Nop) RecordSymbol(string)           {}
func (Nop) RecordObserverError(string)    {}
func (Nop) RecordLatency(string, float64) {}
func (Nop) RecordLastScan(string, int)    {}
