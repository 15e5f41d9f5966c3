package audio

// Frame is one buffer of raw samples as delivered by a capture source.
// Samples are normalized amplitudes in -1.0..1.0, interleaved when Channels > 1.
// Frames are ephemeral: produced per callback invocation and consumed immediately.
type Frame struct {
	Samples    []float32
	Channels   int
	SampleRate int
}

// LevelSample is a perceptual loudness reading derived from a single frame.
// Level is in [0,1]; Timestamp is Unix milliseconds.
type LevelSample struct {
	Level     float64 `json:"level"`
	Timestamp int64   `json:"timestamp"`
}
