// Package metrics exposes Prometheus counters and histograms of the
// appointment core.
package metrics

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	transitions      *prometheus.CounterVec
	rejected         *prometheus.CounterVec
	reservations     *prometheus.CounterVec
	sideEffectFailed *prometheus.CounterVec
	assignments      *prometheus.CounterVec
	outboxPublished  *prometheus.CounterVec
	opLatency        *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evservice",
			Subsystem: "appointment",
			Name:      "transitions_total",
			Help:      "Accepted appointment status transitions",
		}, []string{"from", "to"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evservice",
			Subsystem: "appointment",
			Name:      "transitions_rejected_total",
			Help:      "Rejected appointment status transitions",
		}, []string{"to", "reason"}),
		reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evservice",
			Subsystem: "slot",
			Name:      "reservations_total",
			Help:      "Slot reservation attempts by outcome",
		}, []string{"result"}),
		sideEffectFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evservice",
			Subsystem: "appointment",
			Name:      "side_effect_failures_total",
			Help:      "Side effects that failed after an accepted transition",
		}, []string{"effect"}),
		assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evservice",
			Subsystem: "technician",
			Name:      "assignments_total",
			Help:      "Technician assignments by mode and outcome",
		}, []string{"mode", "result"}),
		outboxPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evservice",
			Subsystem: "outbox",
			Name:      "published_total",
			Help:      "Outbox events handed to Kafka by outcome",
		}, []string{"result"}),
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "evservice",
			Subsystem: "appointment",
			Name:      "operation_seconds",
			Help:      "Latency of appointment service operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.transitions,
		m.rejected,
		m.reservations,
		m.sideEffectFailed,
		m.assignments,
		m.outboxPublished,
		m.opLatency,
	)
	return m
}

func (m *Metrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) ObserveRejected(to, reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(to, reason).Inc()
}

func (m *Metrics) ObserveReservation(ok bool) {
	if m == nil {
		return
	}
	result := "reserved"
	if !ok {
		result = "full"
	}
	m.reservations.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveSideEffectFailure(effect string) {
	if m == nil {
		return
	}
	m.sideEffectFailed.WithLabelValues(effect).Inc()
}

func (m *Metrics) ObserveAssignment(auto bool, result string) {
	if m == nil {
		return
	}
	mode := "manual"
	if auto {
		mode = "auto"
	}
	m.assignments.WithLabelValues(mode, result).Inc()
}

func (m *Metrics) ObserveOutbox(result string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.outboxPublished.WithLabelValues(result).Add(float64(n))
}

func (m *Metrics) ObserveLatency(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.opLatency.WithLabelValues(operation).Observe(seconds)
}
