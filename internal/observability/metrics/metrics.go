// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "indic_asr_stream"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Connection metrics
	ConnectionsTotal    prometheus.Counter
	ConnectionsActive   prometheus.Gauge
	ConnectionsRejected *prometheus.CounterVec
	ConnectionDuration  prometheus.Histogram

	// Audio metrics
	AudioBytesReceived  prometheus.Counter
	AudioFramesReceived prometheus.Counter
	WindowsFlushed      prometheus.Counter

	// STT metrics
	STTLatency *prometheus.HistogramVec
	STTErrors  *prometheus.CounterVec
	STTEmpty   prometheus.Counter

	// Diarization metrics
	DiarizationLatency  prometheus.Histogram
	DiarizationErrors   prometheus.Counter
	DiarizationFallback *prometheus.CounterVec

	// Broadcast metrics
	BroadcastsTotal    *prometheus.CounterVec
	BroadcastFailures  prometheus.Counter
	ControlMessages    *prometheus.CounterVec
	LanguageChanges    *prometheus.CounterVec
	DiscardedResults   prometheus.Counter
	InferenceQueueWait prometheus.Histogram

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// gRPC metrics
	GRPCCalls *prometheus.CounterVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		ConnectionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Total number of streaming connections accepted",
		}),
		ConnectionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Number of currently open streaming connections",
		}),
		ConnectionsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_rejected_total",
			Help:      "Total number of streaming connections rejected before upgrade",
		}, []string{"reason"}),
		ConnectionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "connection_duration_seconds",
			Help:      "Duration of streaming connections in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 900, 1800},
		}),

		AudioBytesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_received_total",
			Help:      "Total audio bytes received",
		}),
		AudioFramesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_frames_received_total",
			Help:      "Total binary audio frames received",
		}),
		WindowsFlushed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "windows_flushed_total",
			Help:      "Total number of audio buffers flushed to inference",
		}),

		STTLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stt_latency_seconds",
			Help:      "Speech-to-text inference latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"provider", "language"}),
		STTErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stt_errors_total",
			Help:      "Total number of STT inference errors",
		}, []string{"provider", "error_type"}),
		STTEmpty: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stt_empty_total",
			Help:      "Total number of windows recognized as silence",
		}),

		DiarizationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "diarization_latency_seconds",
			Help:      "Diarization inference latency over the rolling window in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),
		DiarizationErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diarization_errors_total",
			Help:      "Total number of diarization inference errors",
		}),
		DiarizationFallback: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diarization_fallback_total",
			Help:      "Total number of windows with no confident speaker segment",
		}, []string{"label"}),

		BroadcastsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Total number of messages broadcast to connected clients",
		}, []string{"type"}),
		BroadcastFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_delivery_failures_total",
			Help:      "Total number of per-connection delivery failures",
		}),
		ControlMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "control_messages_total",
			Help:      "Total number of inbound control messages",
		}, []string{"result"}),
		LanguageChanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "language_changes_total",
			Help:      "Total number of shared language changes",
		}, []string{"language"}),
		DiscardedResults: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discarded_results_total",
			Help:      "Total number of inference results discarded after disconnect",
		}),
		InferenceQueueWait: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_queue_wait_seconds",
			Help:      "Time spent waiting for an inference slot",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),

		GRPCCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_calls_total",
			Help:      "Total number of gRPC calls handled",
		}, []string{"method", "code"}),
	}
}

// RecordConnectionStart records a new streaming connection.
func (m *Metrics) RecordConnectionStart() {
	m.ConnectionsTotal.Inc()
	m.ConnectionsActive.Inc()
}

// RecordConnectionEnd records a streaming connection closing.
func (m *Metrics) RecordConnectionEnd(durationSeconds float64) {
	m.ConnectionsActive.Dec()
	m.ConnectionDuration.Observe(durationSeconds)
}

// RecordConnectionRejected records a connection refused before upgrade.
func (m *Metrics) RecordConnectionRejected(reason string) {
	m.ConnectionsRejected.WithLabelValues(reason).Inc()
}

// RecordAudioReceived records audio bytes and frames received.
func (m *Metrics) RecordAudioReceived(bytes int) {
	m.AudioBytesReceived.Add(float64(bytes))
	m.AudioFramesReceived.Inc()
}

// RecordWindowFlushed records a buffer flush.
func (m *Metrics) RecordWindowFlushed() {
	m.WindowsFlushed.Inc()
}

// RecordSTT records a transcription attempt.
func (m *Metrics) RecordSTT(provider, language string, latencySeconds float64, empty bool) {
	m.STTLatency.WithLabelValues(provider, language).Observe(latencySeconds)
	if empty {
		m.STTEmpty.Inc()
	}
}

// RecordSTTError records an STT error.
func (m *Metrics) RecordSTTError(provider, errorType string) {
	m.STTErrors.WithLabelValues(provider, errorType).Inc()
}

// RecordDiarization records a diarization call.
func (m *Metrics) RecordDiarization(latencySeconds float64, err error) {
	m.DiarizationLatency.Observe(latencySeconds)
	if err != nil {
		m.DiarizationErrors.Inc()
	}
}

// RecordDiarizationFallback records a window that fell back to a previous or sentinel label.
func (m *Metrics) RecordDiarizationFallback(label string) {
	m.DiarizationFallback.WithLabelValues(label).Inc()
}

// RecordBroadcast records one broadcast and its failed deliveries.
func (m *Metrics) RecordBroadcast(msgType string, failures int) {
	m.BroadcastsTotal.WithLabelValues(msgType).Inc()
	if failures > 0 {
		m.BroadcastFailures.Add(float64(failures))
	}
}

// RecordControlMessage records an inbound control message outcome.
func (m *Metrics) RecordControlMessage(result string) {
	m.ControlMessages.WithLabelValues(result).Inc()
}

// RecordLanguageChange records a shared language change.
func (m *Metrics) RecordLanguageChange(language string) {
	m.LanguageChanges.WithLabelValues(language).Inc()
}

// RecordDiscardedResult records an inference result dropped after the session closed.
func (m *Metrics) RecordDiscardedResult() {
	m.DiscardedResults.Inc()
}

// RecordQueueWait records time spent waiting for an inference slot.
func (m *Metrics) RecordQueueWait(seconds float64) {
	m.InferenceQueueWait.Observe(seconds)
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordGRPCCall records a handled gRPC call.
func (m *Metrics) RecordGRPCCall(method, code string) {
	m.GRPCCalls.WithLabelValues(method, code).Inc()
}
