// Package audio handles raw frame conditioning and sample buffering.
// It implements stereo downmixing, naive decimation to the recognition rate,
// RMS level metering, and a rolling buffer with overlap-preserving extraction.
package audio
