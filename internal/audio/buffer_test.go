package audio

import (
	"testing"
)

func TestRollingBufferAppendAndLen(t *testing.T) {
	b := NewRollingBuffer(100)

	if b.Len() != 0 {
		t.Errorf("Expected empty buffer, got %d samples", b.Len())
	}

	b.Append([]float32{1, 2, 3})
	b.Append(nil)
	b.Append([]float32{4, 5})

	if b.Len() != 5 {
		t.Errorf("Expected 5 samples, got %d", b.Len())
	}

	stats := b.GetStats()
	if stats.TotalAppended != 5 {
		t.Errorf("Expected 5 appended, got %d", stats.TotalAppended)
	}
}

func TestExtractChunkKeepsOverlap(t *testing.T) {
	b := NewRollingBuffer(16)

	samples := make([]float32, 12)
	for i := range samples {
		samples[i] = float32(i)
	}
	b.Append(samples)

	chunk, err := b.ExtractChunk(10, 4)
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}

	if len(chunk) != 10 {
		t.Errorf("Expected chunk of 10 samples, got %d", len(chunk))
	}
	for i := range chunk {
		if chunk[i] != float32(i) {
			t.Errorf("Sample %d: expected %f, got %f", i, float32(i), chunk[i])
		}
	}

	// 10 - 4 = 6 samples removed, 6 remain: the 4 overlap samples plus the
	// 2 that were beyond the chunk
	if b.Len() != 6 {
		t.Errorf("Expected 6 samples after extraction, got %d", b.Len())
	}

	next := b.DrainAll()
	if next[0] != 6 || next[3] != 9 {
		t.Errorf("Expected overlap tail starting at sample 6, got %f..%f", next[0], next[3])
	}
}

func TestExtractChunkValidation(t *testing.T) {
	b := NewRollingBuffer(16)
	b.Append(make([]float32, 8))

	if _, err := b.ExtractChunk(0, 0); err == nil {
		t.Error("Expected error for zero chunk size")
	}
	if _, err := b.ExtractChunk(10, 10); err == nil {
		t.Error("Expected error for overlap >= size")
	}
	if _, err := b.ExtractChunk(10, 2); err == nil {
		t.Error("Expected error when buffer holds fewer samples than requested")
	}
}

func TestDrainAll(t *testing.T) {
	b := NewRollingBuffer(16)

	if got := b.DrainAll(); got != nil {
		t.Errorf("Expected nil from empty drain, got %d samples", len(got))
	}

	b.Append([]float32{1, 2, 3})
	chunk := b.DrainAll()

	if len(chunk) != 3 {
		t.Errorf("Expected 3 drained samples, got %d", len(chunk))
	}
	if b.Len() != 0 {
		t.Errorf("Expected empty buffer after drain, got %d samples", b.Len())
	}
}

func TestReset(t *testing.T) {
	b := NewRollingBuffer(16)
	b.Append([]float32{1, 2, 3})
	b.Reset()

	if b.Len() != 0 {
		t.Errorf("Expected empty buffer after reset, got %d samples", b.Len())
	}

	stats := b.GetStats()
	if stats.ChunksCut != 0 {
		t.Errorf("Expected reset not to count a chunk, got %d", stats.ChunksCut)
	}
}
