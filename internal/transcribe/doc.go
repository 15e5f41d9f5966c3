// Package transcribe defines the recognition engine boundary and the
// single-flight dispatcher that keeps inference off the frame-delivery path.
// At most one engine call runs at a time; chunks arriving while one is
// outstanding are refused, and a timed-out call never blocks the next one.
package transcribe
