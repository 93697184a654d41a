// Package metrics exposes workflow counters for Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vgp"

// Metrics workflow counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	submissions     *prometheus.CounterVec
	nonConformities *prometheus.CounterVec
	actions         prometheus.Counter
	transitions     *prometheus.CounterVec
	failures        *prometheus.CounterVec
	overdue         prometheus.Gauge
}

// New registers the workflow collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Inspection runs submitted, by flow and conclusion.",
		}, []string{"flow", "conclusion"}),
		nonConformities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nonconformities_created_total",
			Help:      "Non-conformities created, by flow and origin.",
		}, []string{"flow", "origin"}),
		actions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "corrective_actions_created_total",
			Help:      "Corrective actions created by the cascade.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "Lifecycle transitions applied, by entity kind and target status.",
		}, []string{"kind", "to"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_failures_total",
			Help:      "Rejected engine operations, by operation and error code.",
		}, []string{"operation", "code"}),
		overdue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "overdue_controls",
			Help:      "Overdue controls seen by the last due-list read.",
		}),
	}
	m.registry.MustRegister(
		m.submissions,
		m.nonConformities,
		m.actions,
		m.transitions,
		m.failures,
		m.overdue,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Submitted(flow, conclusion string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(flow, conclusion).Inc()
}

func (m *Metrics) NonConformitiesCreated(flow, origin string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.nonConformities.WithLabelValues(flow, origin).Add(float64(n))
}

func (m *Metrics) ActionsCreated(n int) {
	if m == nil || n == 0 {
		return
	}
	m.actions.Add(float64(n))
}

func (m *Metrics) Transitioned(kind, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(kind, to).Inc()
}

// Failed counts a rejected operation; code is "" for infrastructure errors.
func (m *Metrics) Failed(operation, code string) {
	if m == nil {
		return
	}
	if code == "" {
		code = "INTERNAL"
	}
	m.failures.WithLabelValues(operation, code).Inc()
}

func (m *Metrics) SetOverdue(n int) {
	if m == nil {
		return
	}
	m.overdue.Set(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
