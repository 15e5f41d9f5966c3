package transcript

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/skypro1111/live-transcribe-service/internal/transcribe"
)

// Result is the consumer-facing transcription update. Text carries the
// whole running session transcript, not just the newly merged chunk.
type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Timestamp  int64   `json:"timestamp"`
	IsFinal    bool    `json:"is_final"`
}

// Aggregator owns the accumulated transcript of the current recording
// session. Accepted outcomes are appended space-joined; the text grows
// monotonically until Reset, which happens exactly when a new session
// starts.
type Aggregator struct {
	filter *Filter
	logger *slog.Logger

	sessionText string

	// Statistics
	accepted uint64
	filtered uint64

	mu sync.Mutex
}

// AggregatorStats represents aggregator statistics for monitoring.
type AggregatorStats struct {
	Accepted   uint64 `json:"accepted"`
	Filtered   uint64 `json:"filtered"`
	TextLength int    `json:"text_length"`
}

// NewAggregator creates an aggregator using the given noise filter.
func NewAggregator(filter *Filter, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		filter: filter,
		logger: logger,
	}
}

// Merge filters one raw outcome and, if accepted, appends its text to the
// session transcript. It returns the consumer-facing result and whether
// the outcome was accepted. Filtered outcomes are intentional suppression,
// logged at debug severity, not errors.
func (a *Aggregator) Merge(outcome *transcribe.Outcome, final bool) (*Result, bool) {
	accept, reason := a.filter.Evaluate(outcome.Text, outcome.Confidence)
	if !accept {
		a.mu.Lock()
		a.filtered++
		a.mu.Unlock()

		a.logger.Debug("Filtered transcription outcome",
			slog.String("reason", reason),
			slog.String("text", outcome.Text),
			slog.Float64("confidence", outcome.Confidence),
		)
		return nil, false
	}

	trimmed := strings.TrimSpace(outcome.Text)

	a.mu.Lock()
	if a.sessionText == "" {
		a.sessionText = trimmed
	} else {
		a.sessionText = a.sessionText + " " + trimmed
	}
	text := a.sessionText
	a.accepted++
	a.mu.Unlock()

	return &Result{
		Text:       text,
		Confidence: outcome.Confidence,
		Timestamp:  time.Now().UnixMilli(),
		IsFinal:    final,
	}, true
}

// SessionText returns the current accumulated transcript.
func (a *Aggregator) SessionText() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessionText
}

// Reset clears the session transcript. Called on every Idle to Recording
// transition, never elsewhere.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessionText = ""
}

// GetStats returns current aggregator statistics.
func (a *Aggregator) GetStats() AggregatorStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	return AggregatorStats{
		Accepted:   a.accepted,
		Filtered:   a.filtered,
		TextLength: len(a.sessionText),
	}
}
