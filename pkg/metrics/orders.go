package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics tracks the reservation and verification pipeline.
type OrderMetrics struct {
	placed        *prometheus.CounterVec
	resolved      *prometheus.CounterVec
	checks        *prometheus.CounterVec
	activeWorkers prometheus.Gauge
	dropped       prometheus.Counter
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	placed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_placed_total",
		Help:      "Payment claims accepted by the coordinator, by outcome.",
	}, []string{"outcome"})
	resolved := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_resolved_total",
		Help:      "Pending orders moved to a terminal status.",
	}, []string{"status"})
	checks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_checks_total",
		Help:      "Verification source calls, by result.",
	}, []string{"result"})
	active := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "verification_workers_active",
		Help:      "Verification workers currently polling.",
	})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_dropped_total",
		Help:      "Notifications discarded because the dispatch queue was full.",
	})
	reg.MustRegister(placed, resolved, checks, active, dropped)
	return &OrderMetrics{
		placed:        placed,
		resolved:      resolved,
		checks:        checks,
		activeWorkers: active,
		dropped:       dropped,
	}
}

func (m *OrderMetrics) IncPlaced(outcome string) {
	if m == nil || m.placed == nil {
		return
	}
	m.placed.WithLabelValues(labelOrUnknown(outcome)).Inc()
}

func (m *OrderMetrics) IncResolved(status string) {
	if m == nil || m.resolved == nil {
		return
	}
	m.resolved.WithLabelValues(labelOrUnknown(status)).Inc()
}

func (m *OrderMetrics) IncCheck(result string) {
	if m == nil || m.checks == nil {
		return
	}
	m.checks.WithLabelValues(labelOrUnknown(result)).Inc()
}

func (m *OrderMetrics) WorkerStarted() {
	if m == nil || m.activeWorkers == nil {
		return
	}
	m.activeWorkers.Inc()
}

func (m *OrderMetrics) WorkerStopped() {
	if m == nil || m.activeWorkers == nil {
		return
	}
	m.activeWorkers.Dec()
}

func (m *OrderMetrics) IncDropped() {
	if m == nil || m.dropped == nil {
		return
	}
	m.dropped.Inc()
}
