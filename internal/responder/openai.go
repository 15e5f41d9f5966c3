package responder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/skypro1111/live-transcribe-service/internal/events"
)

const defaultSystemPrompt = "You are assisting a live phone operator. " +
	"Given the transcript of what the caller just said, suggest one short, " +
	"natural reply the operator could give. Answer with the reply only."

// Config contains configuration for the suggested-response generator.
type Config struct {
	APIKey       string
	Model        string
	SystemPrompt string
	MaxTokens    int
	Timeout      time.Duration
}

// Responder turns finalized transcripts into suggested replies. One
// generation runs per finalized session; each call is independent, no
// conversation history is kept across sessions.
type Responder struct {
	config Config
	client *openai.Client
	sink   events.Sink
	logger *slog.Logger

	// Statistics
	requests  uint64
	successes uint64
	failures  uint64

	mu sync.RWMutex
}

// Stats represents responder statistics for monitoring.
type Stats struct {
	Requests  uint64 `json:"requests"`
	Successes uint64 `json:"successes"`
	Failures  uint64 `json:"failures"`
}

// NewResponder creates a responder backed by the chat-completion API.
func NewResponder(config Config, sink events.Sink, logger *slog.Logger) (*Responder, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key cannot be empty")
	}
	if config.Model == "" {
		config.Model = openai.GPT4oMini
	}
	if config.SystemPrompt == "" {
		config.SystemPrompt = defaultSystemPrompt
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 120
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	return &Responder{
		config: config,
		client: openai.NewClient(config.APIKey),
		sink:   sink,
		logger: logger,
	}, nil
}

// HandleFinal generates a suggested reply for one finalized transcript and
// publishes it. Intended to run on its own goroutine; errors are logged
// and the session is otherwise unaffected.
func (r *Responder) HandleFinal(sessionID, transcript string, confidence float64) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return
	}

	r.mu.Lock()
	r.requests++
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), r.config.Timeout)
	defer cancel()

	start := time.Now()

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     r.config.Model,
		MaxTokens: r.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: r.config.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: transcript},
		},
	})
	if err != nil {
		r.mu.Lock()
		r.failures++
		r.mu.Unlock()

		r.logger.Warn("Suggested response generation failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return
	}

	if len(resp.Choices) == 0 {
		r.mu.Lock()
		r.failures++
		r.mu.Unlock()

		r.logger.Warn("Suggested response empty",
			slog.String("session_id", sessionID),
		)
		return
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		r.mu.Lock()
		r.failures++
		r.mu.Unlock()
		return
	}

	r.mu.Lock()
	r.successes++
	r.mu.Unlock()

	r.logger.Info("Suggested response generated",
		slog.String("session_id", sessionID),
		slog.Int("length", len(text)),
		slog.Duration("duration", time.Since(start)),
	)

	r.sink.PublishResponse(events.SuggestedResponse{
		SessionID:  sessionID,
		Transcript: transcript,
		Text:       text,
		Timestamp:  time.Now().UnixMilli(),
	})
}

// GetStats returns current responder statistics.
func (r *Responder) GetStats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return Stats{
		Requests:  r.requests,
		Successes: r.successes,
		Failures:  r.failures,
	}
}
