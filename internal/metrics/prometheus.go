package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder exposes scanner activity as Prometheus metrics.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry   *prometheus.Registry
	scans      *prometheus.CounterVec
	candidates *prometheus.CounterVec
	fetchTime  *prometheus.HistogramVec
	queueDepth prometheus.Gauge
}

// New creates a recorder backed by its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		scans: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mascan_scans_total",
				Help: "Scans by ticker and outcome",
			},
			[]string{"ticker", "outcome"},
		),
		candidates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mascan_candidates_total",
				Help: "Candidates emitted or rejected by the pipeline",
			},
			[]string{"ticker", "result"},
		),
		fetchTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mascan_chain_fetch_duration_seconds",
				Help:    "Duration of option chain fetches in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"ticker"},
		),
		queueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "mascan_session_queue_depth",
				Help: "Requests waiting for the market-data session",
			},
		),
	}
}

// RecordScan counts a scan outcome ("ok" or an error kind).
func (r *Recorder) RecordScan(ticker, outcome string) {
	if r == nil {
		return
	}
	r.scans.WithLabelValues(ticker, outcome).Inc()
}

// RecordCandidates counts emitted and rejected candidates of one scan.
func (r *Recorder) RecordCandidates(ticker string, emitted, rejected int) {
	if r == nil {
		return
	}
	r.candidates.WithLabelValues(ticker, "emitted").Add(float64(emitted))
	r.candidates.WithLabelValues(ticker, "rejected").Add(float64(rejected))
}

// RecordFetch records chain fetch latency in seconds.
func (r *Recorder) RecordFetch(ticker string, seconds float64) {
	if r == nil {
		return
	}
	r.fetchTime.WithLabelValues(ticker).Observe(seconds)
}

// SetQueueDepth records how many requests are waiting on the session.
func (r *Recorder) SetQueueDepth(n int) {
	if r == nil {
		return
	}
	r.queueDepth.Set(float64(n))
}

// Handler serves the recorder's registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
