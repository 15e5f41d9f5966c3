// Package responder generates suggested replies for finalized session
// transcripts using a chat-completion model and publishes them to the
// event sink. Generation runs off the frame path and failures only log.
package responder
