package session

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/skypro1111/live-transcribe-service/internal/audio"
	"github.com/skypro1111/live-transcribe-service/internal/events"
	"github.com/skypro1111/live-transcribe-service/internal/metrics"
	"github.com/skypro1111/live-transcribe-service/internal/transcribe"
	"github.com/skypro1111/live-transcribe-service/internal/transcript"
	"github.com/skypro1111/live-transcribe-service/internal/vad"
)

// State represents the controller's recording state.
type State int

const (
	// StateIdle means no recording session is active.
	StateIdle State = iota

	// StateRecording means a session is active and the buffer is
	// accumulating speech.
	StateRecording
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	default:
		return "unknown"
	}
}

// Config contains the session controller parameters. All sizes are in
// samples at the target rate.
type Config struct {
	// ChunkSize triggers a streaming chunk once the buffer reaches it.
	ChunkSize int

	// OverlapSize is the tail retained in the buffer after a streaming
	// chunk is cut, for cross-chunk acoustic continuity.
	OverlapSize int

	// MinChunkSize is the floor below which a finalizing buffer is
	// discarded instead of dispatched.
	MinChunkSize int

	// SilenceDelay is the sustained-silence duration that ends a session.
	SilenceDelay time.Duration

	// FinalWaitRetries and FinalWaitInterval bound how long finalization
	// waits for an in-flight dispatch before skipping the final chunk.
	FinalWaitRetries  int
	FinalWaitInterval time.Duration
}

// FinalFunc receives each finalized session transcript. Invoked on its own
// goroutine, off the frame-delivery path.
type FinalFunc func(sessionID, text string, confidence float64)

// Controller drives one recording session at a time. It consumes frames in
// arrival order, consults the voice gate, accumulates speech into the
// rolling buffer, and hands chunks to the single-flight dispatcher. Every
// dispatched chunk is stamped with the session generation; outcomes from a
// stale generation are discarded so text never leaks across sessions.
type Controller struct {
	config      Config
	conditioner *audio.Conditioner
	detector    *vad.Detector
	dispatcher  *transcribe.Dispatcher
	aggregator  *transcript.Aggregator
	sink        events.Sink
	metrics     *metrics.Metrics
	logger      *slog.Logger
	onFinal     FinalFunc

	// Session state. buffer has its own lock; mu guards the rest.
	// generation is atomic so outcome handlers can check staleness without
	// contending with the frame path's bounded final-dispatch wait.
	buffer     *audio.RollingBuffer
	state      State
	sessionID  string
	generation atomic.Uint64
	startedAt  time.Time
	lastVoice  time.Time

	// sampleRate is the conditioner's effective output rate for the
	// current capture stream, stamped on every dispatched chunk so the
	// engine decodes buffered audio at its true speed.
	sampleRate int

	// Statistics
	framesProcessed   uint64
	sessionsStarted   uint64
	sessionsFinalized uint64
	streamingChunks   uint64
	finalChunks       uint64
	discarded         uint64

	// now is injectable for silence-timing tests.
	now func() time.Time

	mu sync.Mutex
}

// Info represents controller state for monitoring and APIs.
type Info struct {
	State             string    `json:"state"`
	SessionID         string    `json:"session_id,omitempty"`
	Generation        uint64    `json:"generation"`
	StartedAt         time.Time `json:"started_at,omitempty"`
	BufferedSamples   int       `json:"buffered_samples"`
	FramesProcessed   uint64    `json:"frames_processed"`
	SessionsStarted   uint64    `json:"sessions_started"`
	SessionsFinalized uint64    `json:"sessions_finalized"`
	StreamingChunks   uint64    `json:"streaming_chunks"`
	FinalChunks       uint64    `json:"final_chunks"`
	Discarded         uint64    `json:"discarded_buffers"`

	Detector   vad.DetectorStats          `json:"detector"`
	Dispatcher transcribe.DispatcherStats `json:"dispatcher"`
	Aggregator transcript.AggregatorStats `json:"aggregator"`
}

// NewController wires the pipeline around one recording session owner.
// The dispatcher is created here so its results feed back into this
// controller's generation check and aggregator.
func NewController(config Config, engine transcribe.Engine, engineTimeout time.Duration,
	conditioner *audio.Conditioner, detector *vad.Detector, aggregator *transcript.Aggregator,
	sink events.Sink, m *metrics.Metrics, logger *slog.Logger, onFinal FinalFunc) (*Controller, error) {

	if config.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", config.ChunkSize)
	}
	if config.OverlapSize < 0 || config.OverlapSize >= config.ChunkSize {
		return nil, fmt.Errorf("overlap size must be in [0, %d), got %d", config.ChunkSize, config.OverlapSize)
	}
	if config.MinChunkSize <= 0 {
		return nil, fmt.Errorf("minimum chunk size must be positive, got %d", config.MinChunkSize)
	}
	if config.SilenceDelay <= 0 {
		return nil, fmt.Errorf("silence delay must be positive, got %s", config.SilenceDelay)
	}
	if config.FinalWaitRetries <= 0 {
		config.FinalWaitRetries = 10
	}
	if config.FinalWaitInterval <= 0 {
		config.FinalWaitInterval = 50 * time.Millisecond
	}

	c := &Controller{
		config:      config,
		conditioner: conditioner,
		detector:    detector,
		aggregator:  aggregator,
		sink:        sink,
		metrics:     m,
		logger:      logger,
		onFinal:     onFinal,
		buffer:      audio.NewRollingBuffer(config.ChunkSize + config.ChunkSize/2),
		state:       StateIdle,
		now:         time.Now,
	}

	c.dispatcher = transcribe.NewDispatcher(engine, engineTimeout, logger, c.handleOutcome)

	return c, nil
}

// HandleFrame processes one raw frame: conditioning, level publication,
// voice gating, and the session state machine. It is re-entrant per frame
// and never blocks on inference beyond the bounded final-dispatch wait.
func (c *Controller) HandleFrame(frame audio.Frame) {
	samples, rate, level := c.conditioner.Process(frame)

	c.sink.PublishLevel(audio.LevelSample{
		Level:     level,
		Timestamp: c.now().UnixMilli(),
	})

	decision := c.detector.Detect(samples)

	if c.metrics != nil {
		c.metrics.RecordFrame(decision.Speech, level)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.framesProcessed++
	c.sampleRate = rate

	switch c.state {
	case StateIdle:
		if decision.Speech {
			c.startSession(samples)
		}

	case StateRecording:
		if decision.Speech {
			c.recordSpeech(samples)
		} else {
			c.recordSilence()
		}
	}
}

// startSession transitions Idle to Recording. The session transcript is
// cleared here and only here.
func (c *Controller) startSession(samples []float32) {
	now := c.now()

	c.state = StateRecording
	c.sessionID = uuid.New().String()
	c.generation.Add(1)
	c.startedAt = now
	c.lastVoice = now
	c.sessionsStarted++

	c.buffer.Reset()
	c.buffer.Append(samples)
	c.aggregator.Reset()

	if c.metrics != nil {
		c.metrics.RecordSessionStarted()
	}

	c.logger.Info("Recording session started",
		slog.String("session_id", c.sessionID),
		slog.Uint64("generation", c.generation.Load()),
	)
}

// recordSpeech appends the frame and cuts a streaming chunk once the
// buffer reaches the threshold. The cut is skipped, not queued, while a
// dispatch is in flight; the buffer keeps accumulating as backpressure.
func (c *Controller) recordSpeech(samples []float32) {
	c.buffer.Append(samples)
	c.lastVoice = c.now()

	if c.buffer.Len() < c.config.ChunkSize {
		return
	}

	if c.dispatcher.Busy() {
		c.logger.Debug("Streaming chunk skipped, dispatch in flight",
			slog.String("session_id", c.sessionID),
			slog.Int("buffered", c.buffer.Len()),
		)
		return
	}

	chunk, err := c.buffer.ExtractChunk(c.config.ChunkSize, c.config.OverlapSize)
	if err != nil {
		c.logger.Warn("Streaming chunk extraction failed",
			slog.String("session_id", c.sessionID),
			slog.String("error", err.Error()),
		)
		return
	}

	if c.dispatch(chunk, transcribe.ChunkStreaming) {
		c.streamingChunks++
	}
}

// recordSilence finalizes the session once silence has been sustained past
// the delay. Shorter gaps leave the session untouched.
func (c *Controller) recordSilence() {
	elapsed := c.now().Sub(c.lastVoice)
	if elapsed < c.config.SilenceDelay {
		return
	}

	c.finalize("silence")
}

// finalize transitions Recording to Idle and drains the buffer as a final
// chunk when it clears the minimum floor. It waits briefly for any
// in-flight dispatch; if the dispatcher is still busy after the bound, the
// final chunk is skipped rather than blocking the frame path further.
func (c *Controller) finalize(cause string) {
	c.state = StateIdle
	c.sessionsFinalized++

	buffered := c.buffer.Len()

	if c.metrics != nil {
		c.metrics.RecordSessionFinalized(c.now().Sub(c.startedAt).Seconds())
	}

	if buffered < c.config.MinChunkSize {
		c.buffer.Reset()
		c.discarded++

		c.logger.Debug("Session ended, buffer below minimum floor",
			slog.String("session_id", c.sessionID),
			slog.String("cause", cause),
			slog.Int("buffered", buffered),
			slog.Int("min_chunk_size", c.config.MinChunkSize),
		)
		return
	}

	if !c.dispatcher.WaitIdle(c.config.FinalWaitRetries, c.config.FinalWaitInterval) {
		c.buffer.Reset()
		c.discarded++

		c.logger.Warn("Final chunk skipped, dispatcher still busy after bounded wait",
			slog.String("session_id", c.sessionID),
			slog.Int("buffered", buffered),
			slog.Int("retries", c.config.FinalWaitRetries),
		)
		return
	}

	chunk := c.buffer.DrainAll()
	if c.dispatch(chunk, transcribe.ChunkFinal) {
		c.finalChunks++
	}

	c.logger.Info("Recording session finalized",
		slog.String("session_id", c.sessionID),
		slog.String("cause", cause),
		slog.Int("samples", len(chunk)),
		slog.Duration("duration", c.now().Sub(c.startedAt)),
	)
}

// dispatch hands one chunk to the single-flight dispatcher. A refusal
// drops the chunk and is logged by the dispatcher; processing continues.
func (c *Controller) dispatch(samples []float32, kind transcribe.ChunkKind) bool {
	chunk := transcribe.Chunk{
		Samples:    samples,
		SampleRate: c.sampleRate,
		Kind:       kind,
		SessionID:  c.sessionID,
		Generation: c.generation.Load(),
		CutAt:      c.now(),
	}

	if err := c.dispatcher.Dispatch(chunk); err != nil {
		if c.metrics != nil {
			c.metrics.RecordDispatchRefused()
		}
		return false
	}

	if c.metrics != nil {
		c.metrics.RecordChunkDispatched(kind.String(), len(samples))
	}
	return true
}

// handleOutcome receives engine results from the dispatcher's supervisor
// goroutine. Results stamped with a stale generation belong to a session
// that has already reset and are discarded before aggregation. The check
// and the merge run under c.mu so a concurrent session start cannot slip
// between them and have stale text land in the fresh transcript; the
// dispatcher clears its in-flight flag before invoking this callback, so
// holding c.mu here cannot stall a finalize waiting for idle.
func (c *Controller) handleOutcome(chunk transcribe.Chunk, outcome *transcribe.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.generation.Load()
	if chunk.Generation != current {
		c.logger.Debug("Discarding outcome from stale session",
			slog.String("session_id", chunk.SessionID),
			slog.Uint64("chunk_generation", chunk.Generation),
			slog.Uint64("current_generation", current),
		)
		return
	}

	final := chunk.Kind == transcribe.ChunkFinal

	result, accepted := c.aggregator.Merge(outcome, final)
	if !accepted {
		if c.metrics != nil {
			c.metrics.RecordResultFiltered()
		}
		return
	}

	if c.metrics != nil {
		c.metrics.RecordResultAccepted(final, outcome.Confidence)
	}

	c.sink.PublishTranscription(*result)

	if final && c.onFinal != nil {
		go c.onFinal(chunk.SessionID, result.Text, result.Confidence)
	}
}

// Flush force-finalizes any active session, used when capture stops.
func (c *Controller) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRecording {
		return
	}
	c.finalize("capture_stop")
}

// Close flushes the active session and waits for the outstanding dispatch.
func (c *Controller) Close() {
	c.Flush()
	c.dispatcher.Close()
}

// GetInfo returns a snapshot of controller state for monitoring.
func (c *Controller) GetInfo() Info {
	c.mu.Lock()
	info := Info{
		State:             c.state.String(),
		Generation:        c.generation.Load(),
		BufferedSamples:   c.buffer.Len(),
		FramesProcessed:   c.framesProcessed,
		SessionsStarted:   c.sessionsStarted,
		SessionsFinalized: c.sessionsFinalized,
		StreamingChunks:   c.streamingChunks,
		FinalChunks:       c.finalChunks,
		Discarded:         c.discarded,
	}
	if c.state == StateRecording {
		info.SessionID = c.sessionID
		info.StartedAt = c.startedAt
	}
	c.mu.Unlock()

	info.Detector = c.detector.GetStats()
	info.Dispatcher = c.dispatcher.GetStats()
	info.Aggregator = c.aggregator.GetStats()

	return info
}
