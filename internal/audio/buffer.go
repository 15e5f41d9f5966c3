package audio

import (
	"fmt"
	"sync"
)

// RollingBuffer accumulates conditioned mono samples for the active
// recording session. It only grows by Append and only shrinks through
// chunk extraction, so callers can rely on its length as the session's
// pending-audio size. All methods are safe for concurrent use; each
// holds the lock only for the duration of one read-modify-write.
type RollingBuffer struct {
	samples []float32

	// Statistics
	totalAppended uint64
	chunksCut     uint64

	mu sync.Mutex
}

// BufferStats represents rolling buffer statistics for monitoring.
type BufferStats struct {
	PendingSamples int    `json:"pending_samples"`
	TotalAppended  uint64 `json:"total_appended"`
	ChunksCut      uint64 `json:"chunks_cut"`
}

// NewRollingBuffer creates a buffer pre-sized for the expected chunk size.
func NewRollingBuffer(capacity int) *RollingBuffer {
	if capacity < 0 {
		capacity = 0
	}
	return &RollingBuffer{
		samples: make([]float32, 0, capacity),
	}
}

// Append adds conditioned samples to the end of the buffer.
func (b *RollingBuffer) Append(samples []float32) {
	if len(samples) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.samples = append(b.samples, samples...)
	b.totalAppended += uint64(len(samples))
}

// Len returns the number of pending samples.
func (b *RollingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples)
}

// ExtractChunk copies out the first size samples and removes the first
// (size - overlap) samples from the buffer. The retained overlap tail gives
// the next chunk acoustic continuity across the cut. Requires
// 0 <= overlap < size and a buffer holding at least size samples.
func (b *RollingBuffer) ExtractChunk(size, overlap int) ([]float32, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("overlap must be in [0, %d), got %d", size, overlap)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.samples) < size {
		return nil, fmt.Errorf("buffer holds %d samples, need %d", len(b.samples), size)
	}

	chunk := make([]float32, size)
	copy(chunk, b.samples[:size])

	remove := size - overlap
	b.samples = append(b.samples[:0], b.samples[remove:]...)
	b.chunksCut++

	return chunk, nil
}

// DrainAll removes and returns every pending sample. Used when a session
// finalizes: the closing chunk takes the whole buffer, overlap included.
func (b *RollingBuffer) DrainAll() []float32 {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.samples) == 0 {
		return nil
	}

	chunk := make([]float32, len(b.samples))
	copy(chunk, b.samples)
	b.samples = b.samples[:0]
	b.chunksCut++

	return chunk
}

// Reset discards all pending samples without counting a chunk.
func (b *RollingBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples = b.samples[:0]
}

// GetStats returns current buffer statistics.
func (b *RollingBuffer) GetStats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return BufferStats{
		PendingSamples: len(b.samples),
		TotalAppended:  b.totalAppended,
		ChunksCut:      b.chunksCut,
	}
}
