package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Capture: CaptureConfig{
			Address:    "0.0.0.0:8090",
			SampleRate: 8000,
			Channels:   1,
			QueueSize:  64,
		},
		Audio: AudioConfig{
			TargetSampleRate: 16000,
			LevelGain:        10.0,
		},
		VAD: VADConfig{
			EnergyThreshold: 0.0005,
			ZCRMin:          0.01,
			ZCRMax:          0.30,
			CrossingFloor:   0.005,
			CentroidMin:     0.15,
			CentroidMax:     0.75,
			WeightedEnergy:  true,
		},
		Session: SessionConfig{
			ChunkSize:        48000,
			OverlapSize:      8000,
			MinChunkSize:     8000,
			SilenceDelayMs:   800,
			FinalWaitRetries: 10,
			FinalWaitMs:      50,
		},
		Transcription: TranscriptionConfig{
			Endpoint: "https://api.example.com/transcribe",
			Model:    "whisper-1",
			Language: "en",
			Timeout:  15,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid configuration",
			mutate:      func(c *Config) {},
			expectError: false,
		},
		{
			name: "empty capture address",
			mutate: func(c *Config) {
				c.Capture.Address = ""
			},
			expectError: true,
			errorMsg:    "address cannot be empty",
		},
		{
			name: "capture sample rate too low",
			mutate: func(c *Config) {
				c.Capture.SampleRate = 4000
			},
			expectError: true,
			errorMsg:    "sample_rate must be at least 8000",
		},
		{
			name: "negative level gain",
			mutate: func(c *Config) {
				c.Audio.LevelGain = -1
			},
			expectError: true,
			errorMsg:    "level_gain must be positive",
		},
		{
			name: "inverted zcr band",
			mutate: func(c *Config) {
				c.VAD.ZCRMin = 0.5
				c.VAD.ZCRMax = 0.1
			},
			expectError: true,
			errorMsg:    "zcr band",
		},
		{
			name: "centroid band above one",
			mutate: func(c *Config) {
				c.VAD.CentroidMax = 1.5
			},
			expectError: true,
			errorMsg:    "centroid band",
		},
		{
			name: "overlap not smaller than chunk",
			mutate: func(c *Config) {
				c.Session.OverlapSize = 48000
			},
			expectError: true,
			errorMsg:    "overlap_size must be in [0, chunk_size)",
		},
		{
			name: "min chunk above chunk size",
			mutate: func(c *Config) {
				c.Session.MinChunkSize = 60000
			},
			expectError: true,
			errorMsg:    "min_chunk_size",
		},
		{
			name: "zero silence delay",
			mutate: func(c *Config) {
				c.Session.SilenceDelayMs = 0
			},
			expectError: true,
			errorMsg:    "silence_delay_ms must be at least 1",
		},
		{
			name: "empty transcription endpoint",
			mutate: func(c *Config) {
				c.Transcription.Endpoint = ""
			},
			expectError: true,
			errorMsg:    "endpoint cannot be empty",
		},
		{
			name: "responder enabled without key",
			mutate: func(c *Config) {
				c.Responder.Enabled = true
				c.Responder.APIKey = ""
			},
			expectError: true,
			errorMsg:    "OPENAI_API_KEY must be set",
		},
		{
			name: "store enabled without address",
			mutate: func(c *Config) {
				c.Store.Enabled = true
				c.Store.Address = ""
			},
			expectError: true,
			errorMsg:    "address cannot be empty when store is enabled",
		},
		{
			name: "http enabled with bad port",
			mutate: func(c *Config) {
				c.HTTP.Enabled = true
				c.HTTP.Address = "0.0.0.0"
				c.HTTP.Port = 70000
			},
			expectError: true,
			errorMsg:    "http port must be between 1 and 65535",
		},
		{
			name: "invalid log level",
			mutate: func(c *Config) {
				c.Logging.Level = "trace"
			},
			expectError: true,
			errorMsg:    "level must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(&config)

			err := config.Validate()
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				}
			}
		})
	}
}

func TestConfigLoad(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name        string
		configYAML  string
		expectError bool
		errorMsg    string
	}{
		{
			name: "valid config file",
			configYAML: `
capture:
  address: "0.0.0.0:8090"
  sample_rate: 8000
  channels: 1
  queue_size: 64
audio:
  target_sample_rate: 16000
  level_gain: 10.0
vad:
  energy_threshold: 0.0005
  zcr_min: 0.01
  zcr_max: 0.30
  crossing_floor: 0.005
  centroid_min: 0.15
  centroid_max: 0.75
  weighted_energy: true
session:
  chunk_size: 48000
  overlap_size: 8000
  min_chunk_size: 8000
  silence_delay_ms: 800
  final_wait_retries: 10
  final_wait_ms: 50
transcription:
  endpoint: "https://api.example.com/transcribe"
  model: "whisper-1"
  language: "en"
  timeout: 15
logging:
  level: "info"
  format: "json"
  output: "stdout"
`,
			expectError: false,
		},
		{
			name: "invalid YAML syntax",
			configYAML: `
capture:
  address: "0.0.0.0:8090"
  queue_size: invalid_number
`,
			expectError: true,
			errorMsg:    "failed to parse",
		},
		{
			name: "missing required fields",
			configYAML: `
capture:
  sample_rate: 8000
  # missing address
`,
			expectError: true,
			errorMsg:    "address cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(tempDir, "config.yaml")
			err := os.WriteFile(configPath, []byte(tt.configYAML), 0644)
			if err != nil {
				t.Fatalf("Failed to create test config file: %v", err)
			}

			config, err := Load(configPath)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				} else if config == nil {
					t.Errorf("Expected config to be loaded but got nil")
				}
			}
		})
	}
}

func TestConfigLoadNonexistentFile(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Errorf("Expected error for nonexistent file but got none")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("Expected error about reading file, got: %v", err)
	}
}

func TestConfigLoadReadsSecretsFromEnv(t *testing.T) {
	t.Setenv("WHISPER_API_KEY", "whisper-secret")
	t.Setenv("OPENAI_API_KEY", "openai-secret")
	t.Setenv("REDIS_PASSWORD", "redis-secret")

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	configYAML := `
capture:
  address: "0.0.0.0:8090"
  sample_rate: 8000
  channels: 1
  queue_size: 64
audio:
  target_sample_rate: 16000
  level_gain: 10.0
vad:
  energy_threshold: 0.0005
  zcr_min: 0.01
  zcr_max: 0.30
  crossing_floor: 0.005
  centroid_min: 0.15
  centroid_max: 0.75
session:
  chunk_size: 48000
  overlap_size: 8000
  min_chunk_size: 8000
  silence_delay_ms: 800
  final_wait_retries: 10
  final_wait_ms: 50
transcription:
  endpoint: "https://api.example.com/transcribe"
  timeout: 15
logging:
  level: "info"
  format: "json"
  output: "stdout"
`
	if err := os.WriteFile(configPath, []byte(configYAML), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	config, err := Load(configPath)
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}

	if config.Transcription.APIKey != "whisper-secret" {
		t.Errorf("Expected transcription API key from env, got '%s'", config.Transcription.APIKey)
	}
	if config.Responder.APIKey != "openai-secret" {
		t.Errorf("Expected responder API key from env, got '%s'", config.Responder.APIKey)
	}
	if config.Store.Password != "redis-secret" {
		t.Errorf("Expected store password from env, got '%s'", config.Store.Password)
	}
}

func TestDurationHelpers(t *testing.T) {
	session := SessionConfig{
		SilenceDelayMs: 800,
		FinalWaitMs:    50,
	}

	if session.GetSilenceDelayDuration() != 800*time.Millisecond {
		t.Errorf("Expected 800ms, got %v", session.GetSilenceDelayDuration())
	}

	if session.GetFinalWaitInterval() != 50*time.Millisecond {
		t.Errorf("Expected 50ms, got %v", session.GetFinalWaitInterval())
	}

	transcription := TranscriptionConfig{
		Timeout: 15,
	}

	if transcription.GetTimeoutDuration() != 15*time.Second {
		t.Errorf("Expected 15 seconds, got %v", transcription.GetTimeoutDuration())
	}

	store := StoreConfig{
		TTLHours: 24,
	}

	if store.GetTTLDuration() != 24*time.Hour {
		t.Errorf("Expected 24 hours, got %v", store.GetTTLDuration())
	}
}

func TestLoggingConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		config LoggingConfig
		valid  bool
	}{
		{
			name: "valid json to stdout",
			config: LoggingConfig{
				Level:  "info",
				Format: "json",
				Output: "stdout",
			},
			valid: true,
		},
		{
			name: "valid text to stderr",
			config: LoggingConfig{
				Level:  "debug",
				Format: "text",
				Output: "stderr",
			},
			valid: true,
		},
		{
			name: "invalid log level",
			config: LoggingConfig{
				Level:  "trace",
				Format: "json",
				Output: "stdout",
			},
			valid: false,
		},
		{
			name: "invalid format",
			config: LoggingConfig{
				Level:  "info",
				Format: "xml",
				Output: "stdout",
			},
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.valid && err != nil {
				t.Errorf("Expected valid config but got error: %v", err)
			}
			if !tt.valid && err == nil {
				t.Errorf("Expected invalid config but got no error")
			}
		})
	}
}
