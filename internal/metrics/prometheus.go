package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the live transcription service
type Metrics struct {
	// Frame pipeline metrics
	FramesProcessed prometheus.Counter
	FramesVoiced    prometheus.Counter
	AudioLevel      prometheus.Histogram

	// Session metrics
	SessionsStarted   prometheus.Counter
	SessionsFinalized prometheus.Counter
	SessionDuration   prometheus.Histogram

	// Chunk dispatch metrics
	ChunksDispatched  *prometheus.CounterVec
	ChunkSize         prometheus.Histogram
	DispatchesRefused prometheus.Counter

	// Transcription result metrics
	ResultsAccepted  *prometheus.CounterVec
	ResultsFiltered  prometheus.Counter
	ResultConfidence prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Frame pipeline metrics
		FramesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lts_frames_processed_total",
			Help: "Total number of audio frames processed",
		}),
		FramesVoiced: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lts_frames_voiced_total",
			Help: "Total number of frames classified as speech",
		}),
		AudioLevel: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "lts_audio_level",
			Help:    "Per-frame audio level after conditioning",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11), // 0.0 to 1.0
		}),

		// Session metrics
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lts_sessions_started_total",
			Help: "Total number of recording sessions started",
		}),
		SessionsFinalized: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lts_sessions_finalized_total",
			Help: "Total number of recording sessions finalized",
		}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "lts_session_duration_seconds",
			Help:    "Duration of recording sessions in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~8 minutes
		}),

		// Chunk dispatch metrics
		ChunksDispatched: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lts_chunks_dispatched_total",
			Help: "Total number of audio chunks dispatched for transcription",
		}, []string{"kind"}),
		ChunkSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "lts_chunk_size_samples",
			Help:    "Size of dispatched audio chunks in samples",
			Buckets: prometheus.ExponentialBuckets(4000, 2, 8), // 4k to ~512k samples
		}),
		DispatchesRefused: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lts_dispatches_refused_total",
			Help: "Total number of chunk dispatches refused while busy",
		}),

		// Transcription result metrics
		ResultsAccepted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lts_results_accepted_total",
			Help: "Total number of transcription results accepted",
		}, []string{"kind"}),
		ResultsFiltered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lts_results_filtered_total",
			Help: "Total number of transcription results rejected by the noise filter",
		}),
		ResultConfidence: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "lts_result_confidence",
			Help:    "Confidence score of accepted transcription results",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11), // 0.0 to 1.0
		}),

		// HTTP API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lts_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lts_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lts_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordFrame records one processed frame, its voice decision, and level
func (m *Metrics) RecordFrame(speech bool, level float64) {
	m.FramesProcessed.Inc()
	if speech {
		m.FramesVoiced.Inc()
	}
	m.AudioLevel.Observe(level)
}

// RecordSessionStarted increments the sessions started counter
func (m *Metrics) RecordSessionStarted() {
	m.SessionsStarted.Inc()
}

// RecordSessionFinalized increments the sessions finalized counter and records duration
func (m *Metrics) RecordSessionFinalized(durationSeconds float64) {
	m.SessionsFinalized.Inc()
	m.SessionDuration.Observe(durationSeconds)
}

// RecordChunkDispatched records a dispatched chunk by kind and size
func (m *Metrics) RecordChunkDispatched(kind string, samples int) {
	m.ChunksDispatched.WithLabelValues(kind).Inc()
	m.ChunkSize.Observe(float64(samples))
}

// RecordDispatchRefused increments the refused dispatches counter
func (m *Metrics) RecordDispatchRefused() {
	m.DispatchesRefused.Inc()
}

// RecordResultAccepted records an accepted transcription result
func (m *Metrics) RecordResultAccepted(final bool, confidence float64) {
	kind := "streaming"
	if final {
		kind = "final"
	}
	m.ResultsAccepted.WithLabelValues(kind).Inc()
	m.ResultConfidence.Observe(confidence)
}

// RecordResultFiltered increments the filtered results counter
func (m *Metrics) RecordResultFiltered() {
	m.ResultsFiltered.Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
