package transcribe

import (
	"context"
	"time"
)

// ChunkKind distinguishes provisional mid-utterance chunks from the closing
// chunk of an utterance.
type ChunkKind int

const (
	// ChunkStreaming is a provisional segment cut while the speaker is
	// still talking. The buffer retains an overlap tail after extraction.
	ChunkStreaming ChunkKind = iota

	// ChunkFinal is the closing segment of an utterance, cut once silence
	// has been sustained past the configured delay. It drains the buffer.
	ChunkFinal
)

// String returns a human-readable kind name.
func (k ChunkKind) String() string {
	switch k {
	case ChunkStreaming:
		return "streaming"
	case ChunkFinal:
		return "final"
	default:
		return "unknown"
	}
}

// Chunk is an immutable slice of speech-rate mono samples queued for
// recognition. Generation stamps the recording session the chunk belongs
// to so results arriving after a session reset can be discarded.
type Chunk struct {
	Samples    []float32
	SampleRate int
	Kind       ChunkKind
	SessionID  string
	Generation uint64
	CutAt      time.Time
}

// Outcome is the raw result of one engine call for one chunk, before any
// noise filtering.
type Outcome struct {
	Text       string    `json:"text"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// Engine turns a chunk of samples into text. Implementations may be slow
// (seconds); callers must keep engine calls off the real-time path.
type Engine interface {
	Transcribe(ctx context.Context, samples []float32, sampleRate int) (*Outcome, error)
}
