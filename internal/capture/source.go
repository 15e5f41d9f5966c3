package capture

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/skypro1111/live-transcribe-service/internal/audio"
)

// ErrDeviceFailure marks a capture source that failed to open or stream.
// Fatal to the current capture run; never retried automatically.
var ErrDeviceFailure = errors.New("capture device failure")

// FrameHandler receives raw frames on the source's delivery context.
// It must complete quickly and must never block on inference work.
type FrameHandler func(frame audio.Frame)

// Source delivers raw audio frames to a single registered handler until
// stopped. Start fails with an error wrapping ErrDeviceFailure when the
// underlying device or listener cannot be opened.
type Source interface {
	Start(handler FrameHandler) error
	Stop() error
}

// Pump is the message-passing boundary between a source's real-time
// delivery context and the pipeline. The source side pushes frames onto a
// bounded channel and never blocks: when the consumer falls behind, frames
// are dropped and counted rather than stalling the delivery context.
type Pump struct {
	frames chan audio.Frame
	logger *slog.Logger

	// Statistics
	pushed  uint64
	dropped uint64

	mu sync.RWMutex
}

// PumpStats represents pump statistics for monitoring.
type PumpStats struct {
	Pushed  uint64 `json:"pushed"`
	Dropped uint64 `json:"dropped"`
	Queued  int    `json:"queued"`
}

// NewPump creates a pump with the given channel capacity.
func NewPump(capacity int, logger *slog.Logger) *Pump {
	if capacity <= 0 {
		capacity = 64
	}
	return &Pump{
		frames: make(chan audio.Frame, capacity),
		logger: logger,
	}
}

// Handler returns the FrameHandler to register with a Source. It performs
// a non-blocking push.
func (p *Pump) Handler() FrameHandler {
	return func(frame audio.Frame) {
		select {
		case p.frames <- frame:
			p.mu.Lock()
			p.pushed++
			p.mu.Unlock()
		default:
			p.mu.Lock()
			p.dropped++
			dropped := p.dropped
			p.mu.Unlock()

			if dropped%100 == 1 {
				p.logger.Warn("Frame queue full, dropping frames",
					slog.Uint64("total_dropped", dropped),
				)
			}
		}
	}
}

// Run consumes queued frames in arrival order and hands each to the
// pipeline handler. It returns when the context is cancelled.
func (p *Pump) Run(ctx context.Context, handler FrameHandler) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-p.frames:
			handler(frame)
		}
	}
}

// GetStats returns current pump statistics.
func (p *Pump) GetStats() PumpStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return PumpStats{
		Pushed:  p.pushed,
		Dropped: p.dropped,
		Queued:  len(p.frames),
	}
}
