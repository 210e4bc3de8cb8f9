package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics exposes counters/histograms for the conversation pipeline.
type PipelineMetrics struct {
	turnsTotal          *prometheus.CounterVec
	stageLatency        *prometheus.HistogramVec
	retrievalEmptyTotal prometheus.Counter
	llmFallbackTotal    *prometheus.CounterVec
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediconnect",
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Completed conversation turns by intent and outcome",
		}, []string{"intent", "outcome"}),
		stageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mediconnect",
			Subsystem: "chat",
			Name:      "stage_latency_seconds",
			Help:      "Latency of individual pipeline stages",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		retrievalEmptyTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mediconnect",
			Subsystem: "chat",
			Name:      "retrieval_empty_total",
			Help:      "Retrievals that returned no sources",
		}),
		llmFallbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediconnect",
			Subsystem: "chat",
			Name:      "llm_fallback_total",
			Help:      "Times a pipeline stage fell back to its degraded default",
		}, []string{"stage"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.stageLatency, m.retrievalEmptyTotal, m.llmFallbackTotal)
	return m
}

func (m *PipelineMetrics) ObserveTurn(intent, outcome string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(intent, outcome).Inc()
}

func (m *PipelineMetrics) ObserveStageLatency(stage string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.stageLatency.WithLabelValues(stage).Observe(elapsed.Seconds())
}

func (m *PipelineMetrics) ObserveRetrievalEmpty() {
	if m == nil {
		return
	}
	m.retrievalEmptyTotal.Inc()
}

func (m *PipelineMetrics) ObserveFallback(stage string) {
	if m == nil {
		return
	}
	m.llmFallbackTotal.WithLabelValues(stage).Inc()
}
