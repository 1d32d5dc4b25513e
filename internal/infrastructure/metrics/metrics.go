// Package metrics exposes Prometheus counters for content imports.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "theme_setup"

// Recorder counts import outcomes and wizard steps.
type Recorder struct {
	// EntitiesTotal tracks imported entities by kind and outcome
	EntitiesTotal *prometheus.CounterVec
	// StepsTotal tracks wizard step responses by content kind and result
	StepsTotal *prometheus.CounterVec
	// JobsTotal tracks finished background import jobs by status
	JobsTotal *prometheus.CounterVec
}

// New registers the collectors on reg. The API passes
// prometheus.DefaultRegisterer; tests pass a fresh registry.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		EntitiesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "import",
				Name:      "entities_total",
				Help:      "Total number of imported entities by kind and outcome",
			},
			[]string{"entity", "outcome"},
		),
		StepsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "wizard",
				Name:      "steps_total",
				Help:      "Total number of wizard step responses by content kind and result",
			},
			[]string{"kind", "result"},
		),
		JobsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "jobs",
				Name:      "finished_total",
				Help:      "Total number of finished background import jobs by status",
			},
			[]string{"status"},
		),
	}
}

// Observe records one entity outcome.
func (r *Recorder) Observe(entity, outcome string) {
	r.EntitiesTotal.WithLabelValues(entity, outcome).Inc()
}

// RecordStep records one wizard response.
func (r *Recorder) RecordStep(kind, result string) {
	r.StepsTotal.WithLabelValues(kind, result).Inc()
}

// RecordJob records a job reaching a terminal status.
func (r *Recorder) RecordJob(status string) {
	r.JobsTotal.WithLabelValues(status).Inc()
}
