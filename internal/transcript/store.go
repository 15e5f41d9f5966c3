package transcript

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// StoreConfig contains transcript archive configuration.
type StoreConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// Store archives finalized session transcripts in Redis hashes keyed by
// session id. The archive sits off the real-time path: failures are
// logged, never surfaced to the pipeline.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// NewStore connects to Redis and verifies the connection with a ping.
func NewStore(config StoreConfig, logger *slog.Logger) (*Store, error) {
	if config.Addr == "" {
		return nil, fmt.Errorf("redis addr cannot be empty")
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "transcript:"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Store{
		client: client,
		prefix: config.KeyPrefix,
		ttl:    config.TTL,
		logger: logger,
	}, nil
}

// SaveFinal archives one finalized session transcript.
func (s *Store) SaveFinal(ctx context.Context, sessionID, text string, confidence float64) error {
	key := s.prefix + sessionID

	fields := map[string]interface{}{
		"text":         text,
		"confidence":   fmt.Sprintf("%.3f", confidence),
		"finalized_at": time.Now().Format(time.RFC3339),
	}

	if err := s.client.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("redis HSET %s: %w", key, err)
	}

	if s.ttl > 0 {
		if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
			return fmt.Errorf("redis EXPIRE %s: %w", key, err)
		}
	}

	s.logger.Debug("Archived session transcript",
		slog.String("session_id", sessionID),
		slog.Int("text_length", len(text)),
	)

	return nil
}

// GetTranscript retrieves an archived transcript by session id.
func (s *Store) GetTranscript(ctx context.Context, sessionID string) (string, error) {
	key := s.prefix + sessionID

	val, err := s.client.HGet(ctx, key, "text").Result()
	if err != nil {
		if err == redis.Nil {
			return "", fmt.Errorf("transcript %s not found", sessionID)
		}
		return "", fmt.Errorf("redis HGET %s: %w", key, err)
	}

	return val, nil
}

// Close releases the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}
