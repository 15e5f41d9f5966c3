// Package session implements the recording-session state machine. It owns
// the rolling sample buffer, decides when speech starts and ends, cuts
// overlapping streaming chunks during long utterances, and finalizes the
// session once silence has been sustained past the configured delay.
package session
