// Package metrics exposes event-loop instrumentation as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/evseq/internal/event"
	"github.com/roach88/evseq/internal/sequencer"
)

// Namespace prefixes every metric name.
const Namespace = "evseq"

// Collector holds the event-loop metrics and implements sequencer.Observer.
//
// Metrics are registered on the registry passed to NewCollector, never on
// the global default registry, so several runs in one process (tests, the
// CLI) do not collide.
type Collector struct {
	EventsTotal    *prometheus.CounterVec
	EventDuration  prometheus.Histogram
	EventsInFlight prometheus.Gauge
	StageCalls     *prometheus.CounterVec
	StageDuration  *prometheus.HistogramVec
}

var _ sequencer.Observer = (*Collector)(nil)

// NewCollector creates and registers the metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		EventsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "events_total",
				Help:      "Events that finished, by outcome",
			},
			[]string{"status"},
		),
		EventDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "event_duration_seconds",
				Help:      "Wall time to run all stages of one event",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
		),
		EventsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "events_in_flight",
				Help:      "Events currently being processed",
			},
		),
		StageCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "stage_calls_total",
				Help:      "Stage invocations, by kind, stage and process code",
			},
			[]string{"kind", "stage", "code"},
		),
		StageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "stage_duration_seconds",
				Help:      "Wall time of one stage invocation",
				Buckets:   []float64{.00001, .0001, .001, .01, .1, 1},
			},
			[]string{"kind", "stage"},
		),
	}
}

// EventStarted implements sequencer.Observer.
func (c *Collector) EventStarted(uint64) {
	c.EventsInFlight.Inc()
}

// EventFinished implements sequencer.Observer.
func (c *Collector) EventFinished(_ uint64, status sequencer.EventStatus, elapsed time.Duration) {
	c.EventsInFlight.Dec()
	c.EventsTotal.WithLabelValues(status.String()).Inc()
	c.EventDuration.Observe(elapsed.Seconds())
}

// StageFinished implements sequencer.Observer.
func (c *Collector) StageFinished(kind sequencer.Kind, name string, code event.ProcessCode, elapsed time.Duration) {
	c.StageCalls.WithLabelValues(kind.String(), name, code.String()).Inc()
	c.StageDuration.WithLabelValues(kind.String(), name).Observe(elapsed.Seconds())
}
