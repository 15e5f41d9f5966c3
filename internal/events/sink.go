package events

import (
	"github.com/skypro1111/live-transcribe-service/internal/audio"
	"github.com/skypro1111/live-transcribe-service/internal/transcript"
)

// Event types on the wire.
const (
	TypeAudioLevel        = "audio-level"
	TypeTranscription     = "transcription-result"
	TypeSuggestedResponse = "suggested-response"
)

// Event is the envelope every published update is wrapped in.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// SuggestedResponse carries the answer generated for a finalized transcript.
type SuggestedResponse struct {
	SessionID  string `json:"session_id"`
	Transcript string `json:"transcript"`
	Text       string `json:"text"`
	Timestamp  int64  `json:"timestamp"`
}

// Sink receives pipeline updates for delivery to consumers. Implementations
// must not block: PublishLevel is called once per captured frame from the
// processing path.
type Sink interface {
	PublishLevel(level audio.LevelSample)
	PublishTranscription(result transcript.Result)
	PublishResponse(response SuggestedResponse)
}

// NopSink discards all events. Useful in tests.
type NopSink struct{}

func (NopSink) PublishLevel(audio.LevelSample)         {}
func (NopSink) PublishTranscription(transcript.Result) {}
func (NopSink) PublishResponse(SuggestedResponse)      {}
