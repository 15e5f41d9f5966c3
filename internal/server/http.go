package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skypro1111/live-transcribe-service/internal/capture"
	"github.com/skypro1111/live-transcribe-service/internal/config"
	"github.com/skypro1111/live-transcribe-service/internal/events"
	"github.com/skypro1111/live-transcribe-service/internal/metrics"
	"github.com/skypro1111/live-transcribe-service/internal/responder"
	"github.com/skypro1111/live-transcribe-service/internal/session"
)

// HTTPServer provides HTTP API endpoints for monitoring and the WebSocket
// event stream
type HTTPServer struct {
	server     *http.Server
	logger     *slog.Logger
	config     *config.Config
	controller *session.Controller
	pump       *capture.Pump
	hub        *events.Hub
	responder  *responder.Responder
	metrics    *metrics.Metrics

	// Server state
	startTime time.Time
	mu        sync.RWMutex
}

// NewHTTPServer creates a new HTTP API server. The responder may be nil
// when suggested responses are disabled.
func NewHTTPServer(cfg config.HTTPConfig, logger *slog.Logger, appConfig *config.Config,
	controller *session.Controller, pump *capture.Pump, hub *events.Hub,
	rsp *responder.Responder, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:     logger,
		config:     appConfig,
		controller: controller,
		pump:       pump,
		hub:        hub,
		responder:  rsp,
		metrics:    m,
		startTime:  time.Now(),
	}

	// Create HTTP server with routes
	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Health check endpoint
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))

	// Session state endpoint
	mux.HandleFunc("/status", h.withMetrics("/status", h.handleStatus))

	// Configuration endpoint
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))

	// Statistics endpoint
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))

	// WebSocket event stream (hub manages its own lifecycle)
	mux.HandleFunc("/ws", h.hub.ServeWS)

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		// Create a response writer wrapper to capture status code
		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		// Call the original handler
		handler(ww, r)

		// Record metrics
		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		// Record error if status code indicates an error
		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(h.startTime)
	info := h.controller.GetInfo()
	pumpStats := h.pump.GetStats()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    uptime.String(),
		"service": map[string]interface{}{
			"name":    "live-transcribe-service",
			"version": "1.0.0",
		},
		"components": map[string]interface{}{
			"capture": map[string]interface{}{
				"status":         "running",
				"frames_pushed":  pumpStats.Pushed,
				"frames_dropped": pumpStats.Dropped,
				"queue_size":     pumpStats.Queued,
			},
			"session": map[string]interface{}{
				"status":             "running",
				"state":              info.State,
				"sessions_started":   info.SessionsStarted,
				"sessions_finalized": info.SessionsFinalized,
			},
			"transcription": map[string]interface{}{
				"status":    "running",
				"requests":  info.Dispatcher.Dispatched,
				"timeouts":  info.Dispatcher.Timeouts,
				"failures":  info.Dispatcher.Failed,
				"in_flight": info.Dispatcher.InFlight,
			},
			"events": h.hub.GetStats(),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleStatus implements the /status endpoint with the full session
// controller snapshot
func (h *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.controller.GetInfo())
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Return sanitized configuration (remove sensitive data)
	sanitizedConfig := map[string]interface{}{
		"capture": map[string]interface{}{
			"address":     h.config.Capture.Address,
			"sample_rate": h.config.Capture.SampleRate,
			"channels":    h.config.Capture.Channels,
			"queue_size":  h.config.Capture.QueueSize,
		},
		"audio": map[string]interface{}{
			"target_sample_rate": h.config.Audio.TargetSampleRate,
			"level_gain":         h.config.Audio.LevelGain,
		},
		"vad": map[string]interface{}{
			"energy_threshold": h.config.VAD.EnergyThreshold,
			"zcr_min":          h.config.VAD.ZCRMin,
			"zcr_max":          h.config.VAD.ZCRMax,
			"crossing_floor":   h.config.VAD.CrossingFloor,
			"centroid_min":     h.config.VAD.CentroidMin,
			"centroid_max":     h.config.VAD.CentroidMax,
			"weighted_energy":  h.config.VAD.WeightedEnergy,
		},
		"session": map[string]interface{}{
			"chunk_size":       h.config.Session.ChunkSize,
			"overlap_size":     h.config.Session.OverlapSize,
			"min_chunk_size":   h.config.Session.MinChunkSize,
			"silence_delay_ms": h.config.Session.SilenceDelayMs,
		},
		"transcription": map[string]interface{}{
			"endpoint": h.config.Transcription.Endpoint,
			"model":    h.config.Transcription.Model,
			"language": h.config.Transcription.Language,
			"timeout":  h.config.Transcription.Timeout,
			// Note: API key is intentionally omitted for security
		},
		"responder": map[string]interface{}{
			"enabled": h.config.Responder.Enabled,
			"model":   h.config.Responder.Model,
		},
		"store": map[string]interface{}{
			"enabled": h.config.Store.Enabled,
			"address": h.config.Store.Address,
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitizedConfig)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	info := h.controller.GetInfo()
	uptime := time.Since(h.startTime)

	stats := map[string]interface{}{
		"uptime":     uptime.String(),
		"timestamp":  time.Now().UTC(),
		"capture":    h.pump.GetStats(),
		"session":    info,
		"detector":   info.Detector,
		"dispatcher": info.Dispatcher,
		"aggregator": info.Aggregator,
		"events":     h.hub.GetStats(),
	}

	if h.responder != nil {
		stats["responder"] = h.responder.GetStats()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "Live Transcribe Service",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"GET /":        "API documentation",
			"GET /health":  "Service health check",
			"GET /status":  "Current recording session state",
			"GET /config":  "Get service configuration",
			"GET /stats":   "Get service statistics",
			"GET /ws":      "WebSocket event stream",
			"GET /metrics": "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}
