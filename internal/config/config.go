package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	Capture       CaptureConfig       `yaml:"capture"`
	Audio         AudioConfig         `yaml:"audio"`
	VAD           VADConfig           `yaml:"vad"`
	Session       SessionConfig       `yaml:"session"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Responder     ResponderConfig     `yaml:"responder"`
	Store         StoreConfig         `yaml:"store"`
	HTTP          HTTPConfig          `yaml:"http"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// CaptureConfig contains the AudioSocket capture source configuration
type CaptureConfig struct {
	Address    string `yaml:"address"`
	SampleRate int    `yaml:"sample_rate"`
	Channels   int    `yaml:"channels"`
	QueueSize  int    `yaml:"queue_size"`
}

// AudioConfig contains signal conditioning parameters
type AudioConfig struct {
	TargetSampleRate int     `yaml:"target_sample_rate"`
	LevelGain        float64 `yaml:"level_gain"`
}

// VADConfig contains voice activity detection thresholds
type VADConfig struct {
	EnergyThreshold float64 `yaml:"energy_threshold"`
	ZCRMin          float64 `yaml:"zcr_min"`
	ZCRMax          float64 `yaml:"zcr_max"`
	CrossingFloor   float64 `yaml:"crossing_floor"`
	CentroidMin     float64 `yaml:"centroid_min"`
	CentroidMax     float64 `yaml:"centroid_max"`
	WeightedEnergy  bool    `yaml:"weighted_energy"`
}

// SessionConfig contains recording session and chunking parameters.
// All sizes are samples at the target rate.
type SessionConfig struct {
	ChunkSize        int `yaml:"chunk_size"`
	OverlapSize      int `yaml:"overlap_size"`
	MinChunkSize     int `yaml:"min_chunk_size"`
	SilenceDelayMs   int `yaml:"silence_delay_ms"`
	FinalWaitRetries int `yaml:"final_wait_retries"`
	FinalWaitMs      int `yaml:"final_wait_ms"`
}

// TranscriptionConfig contains transcription API configuration. The API
// key comes from the WHISPER_API_KEY environment variable, never YAML.
type TranscriptionConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	Language string `yaml:"language"`
	Timeout  int    `yaml:"timeout"` // seconds

	APIKey string `yaml:"-"`
}

// ResponderConfig contains suggested-response generation configuration.
// The API key comes from the OPENAI_API_KEY environment variable.
type ResponderConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Model        string `yaml:"model"`
	SystemPrompt string `yaml:"system_prompt"`
	MaxTokens    int    `yaml:"max_tokens"`
	Timeout      int    `yaml:"timeout"` // seconds

	APIKey string `yaml:"-"`
}

// StoreConfig contains the Redis transcript archive configuration. The
// password comes from the REDIS_PASSWORD environment variable.
type StoreConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Address   string `yaml:"address"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
	TTLHours  int    `yaml:"ttl_hours"`

	Password string `yaml:"-"`
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file. A .env file in the
// working directory is loaded first when present; secrets are then read
// from the environment.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config.Transcription.APIKey = os.Getenv("WHISPER_API_KEY")
	config.Responder.APIKey = os.Getenv("OPENAI_API_KEY")
	config.Store.Password = os.Getenv("REDIS_PASSWORD")

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("capture config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.VAD.Validate(); err != nil {
		return fmt.Errorf("vad config: %w", err)
	}

	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session config: %w", err)
	}

	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}

	if err := c.Responder.Validate(); err != nil {
		return fmt.Errorf("responder config: %w", err)
	}

	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates capture configuration
func (c *CaptureConfig) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	if c.SampleRate < 8000 {
		return fmt.Errorf("sample_rate must be at least 8000 Hz, got %d", c.SampleRate)
	}

	if c.Channels < 1 || c.Channels > 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", c.Channels)
	}

	if c.QueueSize < 1 {
		return fmt.Errorf("queue_size must be at least 1, got %d", c.QueueSize)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.TargetSampleRate < 8000 {
		return fmt.Errorf("target_sample_rate must be at least 8000 Hz, got %d", a.TargetSampleRate)
	}

	if a.LevelGain <= 0 {
		return fmt.Errorf("level_gain must be positive, got %f", a.LevelGain)
	}

	return nil
}

// Validate validates VAD configuration
func (v *VADConfig) Validate() error {
	if v.EnergyThreshold <= 0 {
		return fmt.Errorf("energy_threshold must be positive, got %f", v.EnergyThreshold)
	}

	if v.ZCRMin < 0 || v.ZCRMax <= v.ZCRMin {
		return fmt.Errorf("zcr band must satisfy 0 <= zcr_min < zcr_max, got [%f, %f]", v.ZCRMin, v.ZCRMax)
	}

	if v.CrossingFloor < 0 {
		return fmt.Errorf("crossing_floor cannot be negative, got %f", v.CrossingFloor)
	}

	if v.CentroidMin < 0 || v.CentroidMax <= v.CentroidMin || v.CentroidMax > 1 {
		return fmt.Errorf("centroid band must satisfy 0 <= centroid_min < centroid_max <= 1, got [%f, %f]",
			v.CentroidMin, v.CentroidMax)
	}

	return nil
}

// Validate validates session configuration
func (s *SessionConfig) Validate() error {
	if s.ChunkSize < 1 {
		return fmt.Errorf("chunk_size must be at least 1 sample, got %d", s.ChunkSize)
	}

	if s.OverlapSize < 0 || s.OverlapSize >= s.ChunkSize {
		return fmt.Errorf("overlap_size must be in [0, chunk_size), got %d", s.OverlapSize)
	}

	if s.MinChunkSize < 1 || s.MinChunkSize > s.ChunkSize {
		return fmt.Errorf("min_chunk_size must be in [1, chunk_size], got %d", s.MinChunkSize)
	}

	if s.SilenceDelayMs < 1 {
		return fmt.Errorf("silence_delay_ms must be at least 1, got %d", s.SilenceDelayMs)
	}

	if s.FinalWaitRetries < 1 {
		return fmt.Errorf("final_wait_retries must be at least 1, got %d", s.FinalWaitRetries)
	}

	if s.FinalWaitMs < 1 {
		return fmt.Errorf("final_wait_ms must be at least 1, got %d", s.FinalWaitMs)
	}

	return nil
}

// Validate validates transcription configuration
func (t *TranscriptionConfig) Validate() error {
	if t.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if t.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", t.Timeout)
	}

	return nil
}

// Validate validates responder configuration
func (r *ResponderConfig) Validate() error {
	if !r.Enabled {
		return nil
	}

	if r.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY must be set when responder is enabled")
	}

	if r.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative, got %d", r.Timeout)
	}

	return nil
}

// Validate validates store configuration
func (s *StoreConfig) Validate() error {
	if !s.Enabled {
		return nil
	}

	if s.Address == "" {
		return fmt.Errorf("address cannot be empty when store is enabled")
	}

	if s.DB < 0 {
		return fmt.Errorf("db cannot be negative, got %d", s.DB)
	}

	if s.TTLHours < 0 {
		return fmt.Errorf("ttl_hours cannot be negative, got %d", s.TTLHours)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetSilenceDelayDuration returns the silence delay as a time.Duration
func (s *SessionConfig) GetSilenceDelayDuration() time.Duration {
	return time.Duration(s.SilenceDelayMs) * time.Millisecond
}

// GetFinalWaitInterval returns the final wait polling interval as a time.Duration
func (s *SessionConfig) GetFinalWaitInterval() time.Duration {
	return time.Duration(s.FinalWaitMs) * time.Millisecond
}

// GetTimeoutDuration returns the transcription timeout as a time.Duration
func (t *TranscriptionConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}

// GetTimeoutDuration returns the responder timeout as a time.Duration
func (r *ResponderConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(r.Timeout) * time.Second
}

// GetTTLDuration returns the transcript TTL as a time.Duration
func (s *StoreConfig) GetTTLDuration() time.Duration {
	return time.Duration(s.TTLHours) * time.Hour
}
