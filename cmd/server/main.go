package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skypro1111/live-transcribe-service/internal/audio"
	"github.com/skypro1111/live-transcribe-service/internal/capture"
	"github.com/skypro1111/live-transcribe-service/internal/config"
	"github.com/skypro1111/live-transcribe-service/internal/events"
	"github.com/skypro1111/live-transcribe-service/internal/metrics"
	"github.com/skypro1111/live-transcribe-service/internal/responder"
	"github.com/skypro1111/live-transcribe-service/internal/server"
	"github.com/skypro1111/live-transcribe-service/internal/session"
	"github.com/skypro1111/live-transcribe-service/internal/transcribe"
	"github.com/skypro1111/live-transcribe-service/internal/transcript"
	"github.com/skypro1111/live-transcribe-service/internal/vad"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "live-transcribe-service"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.String("capture_address", cfg.Capture.Address),
		slog.Int("capture_sample_rate", cfg.Capture.SampleRate),
		slog.Int("target_sample_rate", cfg.Audio.TargetSampleRate),
		slog.Int("chunk_size", cfg.Session.ChunkSize),
		slog.Int("overlap_size", cfg.Session.OverlapSize),
		slog.Int("silence_delay_ms", cfg.Session.SilenceDelayMs),
		slog.String("transcription_endpoint", cfg.Transcription.Endpoint),
		slog.Bool("responder_enabled", cfg.Responder.Enabled),
		slog.Bool("store_enabled", cfg.Store.Enabled),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for the frame pump
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Signal conditioning
	conditioner, err := audio.NewConditioner(cfg.Audio.TargetSampleRate, cfg.Audio.LevelGain)
	if err != nil {
		logger.Error("Failed to create conditioner", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Voice activity detection
	detector, err := vad.NewDetector(vad.Config{
		EnergyThreshold: cfg.VAD.EnergyThreshold,
		ZCRMin:          cfg.VAD.ZCRMin,
		ZCRMax:          cfg.VAD.ZCRMax,
		CrossingFloor:   cfg.VAD.CrossingFloor,
		CentroidMin:     cfg.VAD.CentroidMin,
		CentroidMax:     cfg.VAD.CentroidMax,
		WeightedEnergy:  cfg.VAD.WeightedEnergy,
	})
	if err != nil {
		logger.Error("Failed to create voice detector", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Recognition engine
	engine, err := transcribe.NewWhisperEngine(transcribe.WhisperConfig{
		Endpoint: cfg.Transcription.Endpoint,
		APIKey:   cfg.Transcription.APIKey,
		Model:    cfg.Transcription.Model,
		Language: cfg.Transcription.Language,
		Timeout:  cfg.Transcription.GetTimeoutDuration(),
	})
	if err != nil {
		logger.Error("Failed to create transcription engine", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Noise filter and session transcript aggregation
	filter := transcript.NewFilter(transcript.DefaultFilterConfig())
	aggregator := transcript.NewAggregator(filter, logger)

	// WebSocket event hub
	hub := events.NewHub(logger)

	// Optional Redis transcript archive
	var store *transcript.Store
	if cfg.Store.Enabled {
		store, err = transcript.NewStore(transcript.StoreConfig{
			Addr:      cfg.Store.Address,
			Password:  cfg.Store.Password,
			DB:        cfg.Store.DB,
			KeyPrefix: cfg.Store.KeyPrefix,
			TTL:       cfg.Store.GetTTLDuration(),
		}, logger)
		if err != nil {
			logger.Error("Failed to connect transcript store", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("Transcript store connected", slog.String("address", cfg.Store.Address))
	}

	// Optional suggested-response generation
	var rsp *responder.Responder
	if cfg.Responder.Enabled {
		rsp, err = responder.NewResponder(responder.Config{
			APIKey:       cfg.Responder.APIKey,
			Model:        cfg.Responder.Model,
			SystemPrompt: cfg.Responder.SystemPrompt,
			MaxTokens:    cfg.Responder.MaxTokens,
			Timeout:      cfg.Responder.GetTimeoutDuration(),
		}, hub, logger)
		if err != nil {
			logger.Error("Failed to create responder", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("Responder initialized", slog.String("model", cfg.Responder.Model))
	}

	// Finalized transcripts fan out to the archive and the responder
	onFinal := func(sessionID, text string, confidence float64) {
		if store != nil {
			saveCtx, saveCancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := store.SaveFinal(saveCtx, sessionID, text, confidence); err != nil {
				logger.Warn("Failed to archive transcript",
					slog.String("session_id", sessionID),
					slog.String("error", err.Error()),
				)
			}
			saveCancel()
		}
		if rsp != nil {
			rsp.HandleFinal(sessionID, text, confidence)
		}
	}

	// Session controller
	controller, err := session.NewController(session.Config{
		ChunkSize:         cfg.Session.ChunkSize,
		OverlapSize:       cfg.Session.OverlapSize,
		MinChunkSize:      cfg.Session.MinChunkSize,
		SilenceDelay:      cfg.Session.GetSilenceDelayDuration(),
		FinalWaitRetries:  cfg.Session.FinalWaitRetries,
		FinalWaitInterval: cfg.Session.GetFinalWaitInterval(),
	}, engine, cfg.Transcription.GetTimeoutDuration(), conditioner, detector, aggregator,
		hub, appMetrics, logger, onFinal)
	if err != nil {
		logger.Error("Failed to create session controller", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Session controller initialized",
		slog.Int("chunk_size", cfg.Session.ChunkSize),
		slog.Duration("silence_delay", cfg.Session.GetSilenceDelayDuration()),
	)

	// Frame pump between the capture source and the controller
	pump := capture.NewPump(cfg.Capture.QueueSize, logger)
	go pump.Run(ctx, controller.HandleFrame)

	// AudioSocket capture source
	source, err := capture.NewAudioSocketSource(capture.AudioSocketConfig{
		Addr:       cfg.Capture.Address,
		SampleRate: cfg.Capture.SampleRate,
		Channels:   cfg.Capture.Channels,
	}, logger)
	if err != nil {
		logger.Error("Failed to create capture source", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := source.Start(pump.Handler()); err != nil {
		logger.Error("Failed to start capture source", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize HTTP API server (if enabled)
	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, logger, cfg, controller, pump, hub, rsp, appMetrics)
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("HTTP API server initialized",
			slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
		)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...",
		slog.String("capture_address", cfg.Capture.Address),
	)

	sig := <-sigChan
	logger.Info("Received shutdown signal", slog.String("signal", sig.String()))

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
		shutdownCancel()
	}

	// Stop the capture source (no more frames arrive)
	if err := source.Stop(); err != nil {
		logger.Error("Error stopping capture source", slog.String("error", err.Error()))
	}

	// Stop the pump, then flush any active session and wait for the
	// outstanding dispatch
	cancel()
	controller.Close()

	// Disconnect event consumers and the transcript store
	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	hub.Close(closeCtx)
	closeCancel()

	if store != nil {
		if err := store.Close(); err != nil {
			logger.Error("Error closing transcript store", slog.String("error", err.Error()))
		}
	}

	// Get final statistics
	info := controller.GetInfo()
	pumpStats := pump.GetStats()
	logger.Info("Final pipeline statistics",
		slog.Uint64("frames_processed", info.FramesProcessed),
		slog.Uint64("frames_dropped", pumpStats.Dropped),
		slog.Uint64("sessions_started", info.SessionsStarted),
		slog.Uint64("sessions_finalized", info.SessionsFinalized),
		slog.Uint64("streaming_chunks", info.StreamingChunks),
		slog.Uint64("final_chunks", info.FinalChunks),
	)

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
