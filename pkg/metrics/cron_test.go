package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsSplitsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.Observe("reconcile", 120*time.Millisecond, nil)
	m.Observe("reconcile", 80*time.Millisecond, errors.New("boom"))
	m.Observe("reconcile", 10*time.Millisecond, nil)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	runs := findMetricFamily(mfs, "stashbot_cron_runs_total")
	if runs == nil {
		t.Fatal("runs counter not exported")
	}
	byOutcome := map[string]float64{}
	for _, metric := range runs.GetMetric() {
		byOutcome[labelValue(metric, "outcome")] = metric.GetCounter().GetValue()
	}
	if byOutcome["ok"] != 2 || byOutcome["failed"] != 1 {
		t.Fatalf("unexpected outcome counts %v", byOutcome)
	}

	hist := findMetricFamily(mfs, "stashbot_cron_run_duration_seconds")
	if hist == nil || hist.GetMetric()[0].GetHistogram().GetSampleCount() != 3 {
		t.Fatalf("expected three duration samples, got %v", hist)
	}

	last := findMetricFamily(mfs, "stashbot_cron_last_success_timestamp_seconds")
	if last == nil || last.GetMetric()[0].GetGauge().GetValue() <= 0 {
		t.Fatalf("expected last success timestamp, got %v", last)
	}
}

func TestCronJobMetricsWithoutRegistererIsNoop(t *testing.T) {
	m := NewCronJobMetrics(nil)
	if m != nil {
		t.Fatalf("expected nil metrics without registerer")
	}
	m.Observe("", time.Second, nil)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, errors.New("metric " + name + " not found")
	}
	for _, metric := range mf.GetMetric() {
		if labelValue(metric, label) == value {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, errors.New("metric " + name + " has no " + label + "=" + value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func labelValue(metric *dto.Metric, name string) string {
	for _, pair := range metric.GetLabel() {
		if pair.GetName() == name {
			return pair.GetValue()
		}
	}
	return ""
}
