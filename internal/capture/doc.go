// Package capture defines the audio source boundary and decouples the
// real-time delivery context from pipeline processing through a bounded
// frame channel. Sources deliver fixed-format frames to one registered
// handler until stopped; device errors are fatal to the capture run.
package capture
