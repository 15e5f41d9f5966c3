package transcribe

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrBusy is returned when a dispatch is refused because another one is
// outstanding. The affected chunk is dropped; processing continues.
var ErrBusy = errors.New("transcription already in flight")

// ResultFunc receives the outcome of a completed dispatch. It is invoked
// from the dispatcher's supervisor goroutine, never from the caller of
// Dispatch. Timed-out and failed dispatches produce no invocation.
type ResultFunc func(chunk Chunk, outcome *Outcome)

// Dispatcher enforces the single-flight policy over the recognition engine.
// Dispatch never blocks beyond submission: the engine call runs on an
// ephemeral worker, supervised with a one-shot result channel and a
// deadline. The in-flight flag clears on success, failure, and timeout
// alike so subsequent chunks are never starved.
type Dispatcher struct {
	engine   Engine
	timeout  time.Duration
	logger   *slog.Logger
	onResult ResultFunc

	inFlight atomic.Bool
	wg       sync.WaitGroup

	// Statistics
	dispatched uint64
	refused    uint64
	completed  uint64
	failed     uint64
	timeouts   uint64

	mu sync.RWMutex
}

// DispatcherStats represents dispatcher statistics for monitoring.
type DispatcherStats struct {
	Dispatched uint64 `json:"dispatched"`
	Refused    uint64 `json:"refused"`
	Completed  uint64 `json:"completed"`
	Failed     uint64 `json:"failed"`
	Timeouts   uint64 `json:"timeouts"`
	InFlight   bool   `json:"in_flight"`
}

// NewDispatcher creates a dispatcher around the given engine.
func NewDispatcher(engine Engine, timeout time.Duration, logger *slog.Logger, onResult ResultFunc) *Dispatcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Dispatcher{
		engine:   engine,
		timeout:  timeout,
		logger:   logger,
		onResult: onResult,
	}
}

// Busy reports whether a dispatch is currently outstanding.
func (d *Dispatcher) Busy() bool {
	return d.inFlight.Load()
}

// Dispatch submits one chunk for recognition. It returns ErrBusy without
// side effects if another dispatch is outstanding, otherwise it returns
// immediately and delivers any accepted outcome through the ResultFunc.
func (d *Dispatcher) Dispatch(chunk Chunk) error {
	if !d.inFlight.CompareAndSwap(false, true) {
		d.mu.Lock()
		d.refused++
		d.mu.Unlock()

		d.logger.Debug("Dispatch refused, transcription in flight",
			slog.String("kind", chunk.Kind.String()),
			slog.Int("samples", len(chunk.Samples)),
		)
		return ErrBusy
	}

	d.mu.Lock()
	d.dispatched++
	d.mu.Unlock()

	d.wg.Add(1)
	go d.supervise(chunk)

	return nil
}

type engineResult struct {
	outcome *Outcome
	err     error
}

// supervise runs the engine call on a worker goroutine and waits for its
// one-shot result up to the timeout. There is no mid-inference cancellation:
// a timed-out worker runs to completion against the background context, but
// its result is discarded. The buffered channel lets the worker exit either
// way. The in-flight flag clears before the ResultFunc runs, so callers
// polling WaitIdle are not held up by the callback's own locking.
func (d *Dispatcher) supervise(chunk Chunk) {
	defer d.wg.Done()
	defer d.inFlight.Store(false)

	startTime := time.Now()
	resultCh := make(chan engineResult, 1)

	go func() {
		outcome, err := d.engine.Transcribe(context.Background(), chunk.Samples, chunk.SampleRate)
		resultCh <- engineResult{outcome: outcome, err: err}
	}()

	timer := time.NewTimer(d.timeout)
	defer timer.Stop()

	select {
	case result := <-resultCh:
		if result.err != nil {
			d.mu.Lock()
			d.failed++
			d.mu.Unlock()

			d.logger.Warn("Engine call failed",
				slog.String("kind", chunk.Kind.String()),
				slog.String("session_id", chunk.SessionID),
				slog.String("error", result.err.Error()),
				slog.Duration("elapsed", time.Since(startTime)),
			)
			return
		}

		d.mu.Lock()
		d.completed++
		d.mu.Unlock()

		d.logger.Debug("Engine call completed",
			slog.String("kind", chunk.Kind.String()),
			slog.String("session_id", chunk.SessionID),
			slog.Duration("elapsed", time.Since(startTime)),
		)

		d.inFlight.Store(false)
		if d.onResult != nil {
			d.onResult(chunk, result.outcome)
		}

	case <-timer.C:
		d.mu.Lock()
		d.timeouts++
		d.mu.Unlock()

		d.logger.Warn("Engine call timed out, discarding chunk result",
			slog.String("kind", chunk.Kind.String()),
			slog.String("session_id", chunk.SessionID),
			slog.Duration("timeout", d.timeout),
		)
	}
}

// WaitIdle polls until no dispatch is outstanding, checking at the given
// interval for at most maxRetries times. It reports whether the dispatcher
// went idle within the bound.
func (d *Dispatcher) WaitIdle(maxRetries int, interval time.Duration) bool {
	for i := 0; i < maxRetries; i++ {
		if !d.Busy() {
			return true
		}
		time.Sleep(interval)
	}
	return !d.Busy()
}

// Close waits for the outstanding supervisor, if any, to finish.
func (d *Dispatcher) Close() {
	d.wg.Wait()
}

// GetStats returns current dispatcher statistics.
func (d *Dispatcher) GetStats() DispatcherStats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return DispatcherStats{
		Dispatched: d.dispatched,
		Refused:    d.refused,
		Completed:  d.completed,
		Failed:     d.failed,
		Timeouts:   d.timeouts,
		InFlight:   d.inFlight.Load(),
	}
}
