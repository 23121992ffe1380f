// Package metrics records Prometheus collectors from execution events.
package metrics

import (
	"context"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"

	"github.com/hanpama/projector/internal/eventbus"
	"github.com/hanpama/projector/internal/events"
)

// Outcome label values of projector_executions_total.
const (
	OutcomeFound = "found"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

// Metrics holds the collectors fed by Subscribe.
type Metrics struct {
	Executions        *prometheus.CounterVec
	ExecutionDuration *prometheus.HistogramVec
	ResolverCalls     *prometheus.CounterVec
	ResolverDuration  *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Executions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "projector_executions_total",
				Help: "Total number of executed queries",
			},
			[]string{"type", "outcome"},
		),
		ExecutionDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "projector_execution_duration_seconds",
				Help:    "Query execution duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"type"},
		),
		ResolverCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "projector_resolver_calls_total",
				Help: "Total number of resolver calls",
			},
			[]string{"kind", "type", "field", "status"},
		),
		ResolverDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "projector_resolver_duration_seconds",
				Help:    "Resolver call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind", "type"},
		),
	}
}

// Subscribe updates m from finish events published on bus.
func (m *Metrics) Subscribe(bus *eventbus.Bus) (unsubscribe func()) {
	unsubs := []func(){
		eventbus.On(bus, func(_ context.Context, e events.ExecutionFinish) {
			outcome := OutcomeEmpty
			switch {
			case e.Err != nil:
				outcome = OutcomeError
			case e.Found:
				outcome = OutcomeFound
			}
			m.Executions.WithLabelValues(e.Type, outcome).Inc()
			m.ExecutionDuration.WithLabelValues(e.Type).Observe(e.Duration.Seconds())
		}),
		eventbus.On(bus, func(_ context.Context, e events.ResolverFinish) {
			status := "ok"
			if e.Err != nil {
				status = "error"
			}
			m.ResolverCalls.WithLabelValues(string(e.Kind), e.Type, e.Field, status).Inc()
			m.ResolverDuration.WithLabelValues(string(e.Kind), e.Type).Observe(e.Duration.Seconds())
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Dump writes every metric family gathered from g in the text exposition
// format.
func Dump(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
