// Package events defines the event sink boundary through which level and
// transcription updates reach consumers, and a WebSocket hub implementation
// that broadcasts them to connected clients.
package events
