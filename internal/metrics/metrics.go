// Package metrics exposes Prometheus instrumentation for lead insertion runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "prospect"

// Metrics groups the collectors used by the insertion pipeline. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	// RunsStarted counts insertion runs submitted.
	RunsStarted prometheus.Counter

	// RunsFinished counts runs by final status ("completed", "failed").
	RunsFinished *prometheus.CounterVec

	// PhaseDuration observes phase durations in seconds, labeled by phase.
	PhaseDuration *prometheus.HistogramVec

	// RecordsInserted counts new records saved, labeled by kind.
	RecordsInserted *prometheus.CounterVec

	// ScorerCalls counts scorer invocations by outcome ("ok", "error", "skipped").
	ScorerCalls *prometheus.CounterVec

	// ScorerInFlight tracks concurrent scorer calls.
	ScorerInFlight prometheus.Gauge

	// EnrichDecisions counts decisions by outcome ("enrich", "skip", "fail_open").
	EnrichDecisions *prometheus.CounterVec

	// EnrichFallbacks counts enrichment sub-steps that fell back to defaults,
	// labeled by step.
	EnrichFallbacks *prometheus.CounterVec

	// ContactsDiscovered counts contacts extracted during enrichment.
	ContactsDiscovered prometheus.Counter
}

// New creates and registers all collectors with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RunsStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_started_total",
			Help:      "Total number of lead insertion runs started.",
		}),
		RunsFinished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_finished_total",
			Help:      "Total number of lead insertion runs finished, by status.",
		}, []string{"status"}),
		PhaseDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Duration of each insertion phase in seconds.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"phase"}),
		RecordsInserted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_inserted_total",
			Help:      "Total number of new records saved, by kind.",
		}, []string{"kind"}),
		ScorerCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scorer_calls_total",
			Help:      "Total number of compatibility scorer calls, by outcome.",
		}, []string{"outcome"}),
		ScorerInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scorer_in_flight",
			Help:      "Number of compatibility scorer calls in flight.",
		}),
		EnrichDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrich_decisions_total",
			Help:      "Total number of enrichment decisions, by outcome.",
		}, []string{"outcome"}),
		EnrichFallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrich_fallbacks_total",
			Help:      "Total number of enrichment steps that fell back to defaults, by step.",
		}, []string{"step"}),
		ContactsDiscovered: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contacts_discovered_total",
			Help:      "Total number of contacts discovered during enrichment.",
		}),
	}
}

// RunStarted records a submitted run.
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.RunsStarted.Inc()
}

// RunFinished records a run's final status.
func (m *Metrics) RunFinished(status string) {
	if m == nil {
		return
	}
	m.RunsFinished.WithLabelValues(status).Inc()
}

// Phase records how long a phase took.
func (m *Metrics) Phase(phase string, seconds float64) {
	if m == nil {
		return
	}
	m.PhaseDuration.WithLabelValues(phase).Observe(seconds)
}

// Inserted records the number of new records saved for kind.
func (m *Metrics) Inserted(kind string, n int) {
	if m == nil {
		return
	}
	m.RecordsInserted.WithLabelValues(kind).Add(float64(n))
}

// ScorerCall records one scorer outcome.
func (m *Metrics) ScorerCall(outcome string) {
	if m == nil {
		return
	}
	m.ScorerCalls.WithLabelValues(outcome).Inc()
}

// ScorerBusy adjusts the in-flight gauge by delta.
func (m *Metrics) ScorerBusy(delta float64) {
	if m == nil {
		return
	}
	m.ScorerInFlight.Add(delta)
}

// Decision records one enrichment decision outcome.
func (m *Metrics) Decision(outcome string) {
	if m == nil {
		return
	}
	m.EnrichDecisions.WithLabelValues(outcome).Inc()
}

// Fallback records an enrichment step that returned defaults.
func (m *Metrics) Fallback(step string) {
	if m == nil {
		return
	}
	m.EnrichFallbacks.WithLabelValues(step).Inc()
}

// ContactFound records a discovered contact.
func (m *Metrics) ContactFound() {
	if m == nil {
		return
	}
	m.ContactsDiscovered.Inc()
}
