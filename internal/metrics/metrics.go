// Package metrics holds the Prometheus instruments for the recommendation
// pipeline. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Document kinds.
const (
	KindSimilar = "similar"
	KindInfo    = "info"
)

// Document outcomes.
const (
	OutcomeComplete = "complete"
	OutcomeHalted   = "halted"
	OutcomeError    = "error"
)

// Metrics groups the pipeline collectors and the registry they live on.
type Metrics struct {
	registry *prometheus.Registry

	documents *prometheus.CounterVec
	skipped   prometheus.Counter
	matches   *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recfinder",
			Name:      "documents_total",
			Help:      "XML documents consumed, by kind and how parsing ended.",
		}, []string{"kind", "outcome"}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "recfinder",
			Name:      "candidates_skipped_total",
			Help:      "Candidates excluded because their info document could not be fetched or parsed.",
		}),
		matches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recfinder",
			Name:      "matches_total",
			Help:      "Candidates accepted by a filter run, by mode.",
		}, []string{"mode"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "recfinder",
			Name:      "fetch_duration_seconds",
			Help:      "Time from request to end of parsing for a single document.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}

	m.registry.MustRegister(
		m.documents,
		m.skipped,
		m.matches,
		m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Document records one consumed document.
func (m *Metrics) Document(kind, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.documents.WithLabelValues(kind, outcome).Inc()
	m.duration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// Skipped records a candidate dropped by the filter.
func (m *Metrics) Skipped() {
	if m == nil {
		return
	}
	m.skipped.Inc()
}

// Match records an accepted candidate.
func (m *Metrics) Match(mode string) {
	if m == nil {
		return
	}
	m.matches.WithLabelValues(mode).Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Outcome maps a parse result onto a document outcome label.
func Outcome(halted bool, err error) string {
	switch {
	case err != nil:
		return OutcomeError
	case halted:
		return OutcomeHalted
	default:
		return OutcomeComplete
	}
}
