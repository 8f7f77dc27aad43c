package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestOrderMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderMetrics(reg)
	m.IncPlaced("reserved")
	m.IncResolved("verified")
	m.IncResolved("verified")
	m.IncCheck("")
	m.WorkerStarted()
	m.WorkerStarted()
	m.WorkerStopped()
	m.IncDropped()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "stashbot_orders_resolved_total", "status", "verified"); err != nil || got != 2 {
		t.Fatalf("expected resolved=2, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "stashbot_payment_checks_total", "result", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected unknown check=1, got %f (%v)", got, err)
	}
	gauge := findMetricFamily(mfs, "stashbot_verification_workers_active")
	if gauge == nil || gauge.GetMetric()[0].GetGauge().GetValue() != 1 {
		t.Fatalf("expected one active worker, got %v", gauge)
	}
}

func TestOrderMetricsNilSafe(t *testing.T) {
	var m *OrderMetrics
	m.IncPlaced("reserved")
	m.WorkerStarted()
	NewOrderMetrics(nil).IncDropped()
}
