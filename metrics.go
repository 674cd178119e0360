package hfsm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "hfsm"

// Metrics holds the Prometheus collectors shared by every machine configured
// with WithMetrics. A nil *Metrics records nothing.
type Metrics struct {
	transitions *prometheus.CounterVec
	hops        *prometheus.HistogramVec
	errors      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "transitions_total",
				Help:      "Total number of settled transition hops per machine",
			},
			[]string{"machine", "from", "to"},
		),
		hops: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "resolution_hops",
				Help:      "Number of hops taken by one transition resolution",
				Buckets:   []float64{1, 2, 4, 8, 16, 32, 64},
			},
			[]string{"machine"},
		),
		errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "errors_total",
				Help:      "Total number of errors reported per machine and kind",
			},
			[]string{"machine", "kind"},
		),
	}
}

// Transitions returns the transition counter, mainly for tests.
func (m *Metrics) Transitions() *prometheus.CounterVec {
	if m == nil {
		return nil
	}
	return m.transitions
}

// Errors returns the error counter, mainly for tests.
func (m *Metrics) Errors() *prometheus.CounterVec {
	if m == nil {
		return nil
	}
	return m.errors
}

func (m *Metrics) transition(machine, from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(machine, from, to).Inc()
}

func (m *Metrics) resolved(machine string, hops int) {
	if m == nil || hops == 0 {
		return
	}
	m.hops.WithLabelValues(machine).Observe(float64(hops))
}

func (m *Metrics) failed(machine string, err error) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(machine, errorKind(err)).Inc()
}
