package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Call metrics
	activeCalls = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voice_line_active_calls",
		Help: "Number of calls currently in flight",
	})

	totalCalls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_line_calls_total",
		Help: "Total number of inbound calls answered",
	})

	utterances = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_line_utterances_total",
		Help: "Utterances processed through the pipeline",
	}, []string{"language", "status"})

	// Per-stage provider metrics
	stageRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_line_stage_requests_total",
		Help: "Provider requests by pipeline stage",
	}, []string{"stage", "status"}) // stage: stt, llm, tts

	stageLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voice_line_stage_latency_seconds",
		Help:    "Provider request latency by pipeline stage",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	}, []string{"stage"})

	// Pipeline failure metrics
	pipelineFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_line_pipeline_failures_total",
		Help: "Pipeline failures by kind",
	}, []string{"kind"}) // transcription, generation, synthesis, transport, recording_missing

	// Circuit breaker metrics
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "voice_line_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	// Audio metrics (streaming transport)
	audioBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_line_audio_bytes_total",
		Help: "Audio bytes moved over the media stream",
	}, []string{"direction"}) // "in" or "out"
)

// RecordCallStart records an answered call
func RecordCallStart() {
	activeCalls.Inc()
	totalCalls.Inc()
}

// RecordCallEnd records a terminated call
func RecordCallEnd() {
	activeCalls.Dec()
}

// RecordUtterance records one pipeline invocation for a call
func RecordUtterance(language string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	utterances.WithLabelValues(language, status).Inc()
}

// RecordStage records a single provider request for a pipeline stage
func RecordStage(stage string, start time.Time, err error) {
	stageLatency.WithLabelValues(stage).Observe(time.Since(start).Seconds())

	status := "success"
	if err != nil {
		status = "error"
	}
	stageRequests.WithLabelValues(stage, status).Inc()
}

// RecordPipelineFailure records a failed pipeline invocation by failure kind
func RecordPipelineFailure(kind string) {
	pipelineFailures.WithLabelValues(kind).Inc()
}

// SetBreakerState updates the circuit breaker state gauge
func SetBreakerState(service string, state int) {
	breakerState.WithLabelValues(service).Set(float64(state))
}

// RecordAudioBytes records audio moved over the media stream
func RecordAudioBytes(direction string, n int) {
	audioBytes.WithLabelValues(direction).Add(float64(n))
}
