package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestPipelineMetricsObserve(t *testing.T) {
	m := NewPipelineMetrics(prometheus.NewRegistry())
	m.ObserveTurn("symptom_inquiry", "synthesized")
	m.ObserveStageLatency("classify", 200*time.Millisecond)
	m.ObserveRetrievalEmpty()
	m.ObserveFallback("classify")
}

func TestPipelineMetricsGather(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPipelineMetrics(reg)
	m.ObserveTurn("emergency", "terminal")
	m.ObserveTurn("emergency", "terminal")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	var turns *dto.MetricFamily
	for _, mf := range families {
		if mf.GetName() == "mediconnect_chat_turns_total" {
			turns = mf
		}
	}
	if turns == nil {
		t.Fatal("turns_total metric family not registered")
	}
	if got := turns.GetMetric()[0].GetCounter().GetValue(); got != 2 {
		t.Errorf("turns_total = %v, want 2", got)
	}
}

func TestStageLatencyRecordsSeconds(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPipelineMetrics(reg)
	m.ObserveStageLatency("synthesize", 250*time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	var latency *dto.MetricFamily
	for _, mf := range families {
		if mf.GetName() == "mediconnect_chat_stage_latency_seconds" {
			latency = mf
		}
	}
	if latency == nil {
		t.Fatal("stage latency metric family not registered")
	}
	if got := latency.GetMetric()[0].GetHistogram().GetSampleSum(); got != 0.25 {
		t.Errorf("sample sum = %v, want 0.25", got)
	}
}

func TestPipelineMetricsNilSafe(t *testing.T) {
	var m *PipelineMetrics
	m.ObserveTurn("greeting", "terminal")
	m.ObserveStageLatency("retrieve", 100*time.Millisecond)
	m.ObserveRetrievalEmpty()
	m.ObserveFallback("followup")
}
