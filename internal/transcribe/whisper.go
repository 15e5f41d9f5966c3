package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"github.com/skypro1111/live-transcribe-service/internal/audio"
)

// WhisperConfig contains configuration for the HTTP recognition engine.
type WhisperConfig struct {
	Endpoint string
	APIKey   string
	Model    string
	Language string
	Timeout  time.Duration
}

// WhisperEngine is an Engine backed by a whisper-compatible HTTP server.
// Chunks are uploaded as mono 16-bit WAV via multipart form data.
type WhisperEngine struct {
	config     WhisperConfig
	httpClient *http.Client

	// Statistics
	totalRequests   uint64
	successRequests uint64
	failedRequests  uint64
	avgResponseTime time.Duration

	mu sync.RWMutex
}

// EngineStats represents engine call statistics.
type EngineStats struct {
	TotalRequests   uint64        `json:"total_requests"`
	SuccessRequests uint64        `json:"success_requests"`
	FailedRequests  uint64        `json:"failed_requests"`
	SuccessRate     float64       `json:"success_rate"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
}

// whisperResponse is the JSON body returned by the recognition server.
type whisperResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language,omitempty"`
}

// NewWhisperEngine creates the HTTP engine. The endpoint must be reachable
// before capture starts; a missing endpoint is a startup failure, not a
// per-chunk one.
func NewWhisperEngine(config WhisperConfig) (*WhisperEngine, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Model == "" {
		config.Model = "whisper-base"
	}
	if config.Language == "" {
		config.Language = "en"
	}

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &WhisperEngine{
		config:     config,
		httpClient: httpClient,
	}, nil
}

// Transcribe uploads one chunk and returns the recognized text with its
// confidence. A non-2xx status or malformed body is an engine error.
func (e *WhisperEngine) Transcribe(ctx context.Context, samples []float32, sampleRate int) (*Outcome, error) {
	startTime := time.Now()
	e.incrementTotalRequests()

	body, contentType, err := e.createMultipartRequest(samples, sampleRate)
	if err != nil {
		e.incrementFailedRequests()
		return nil, fmt.Errorf("failed to create multipart request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.Endpoint, body)
	if err != nil {
		e.incrementFailedRequests()
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", "Live-Transcribe-Service/1.0")
	if e.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+e.config.APIKey)
	}

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		e.incrementFailedRequests()
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		e.incrementFailedRequests()
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		e.incrementFailedRequests()
		return nil, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(respBody))
	}

	var whisperResp whisperResponse
	if err := json.Unmarshal(respBody, &whisperResp); err != nil {
		e.incrementFailedRequests()
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}

	e.recordSuccess(time.Since(startTime))

	return &Outcome{
		Text:       whisperResp.Text,
		Confidence: whisperResp.Confidence,
		Timestamp:  time.Now(),
	}, nil
}

// createMultipartRequest builds the multipart/form-data body with the WAV
// payload and the recognition parameters.
func (e *WhisperEngine) createMultipartRequest(samples []float32, sampleRate int) (io.Reader, string, error) {
	wavData, err := audio.EncodeWAV(samples, sampleRate)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode WAV: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fileWriter, err := writer.CreateFormFile("file", fmt.Sprintf("chunk_%d.wav", time.Now().UnixNano()))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := fileWriter.Write(wavData); err != nil {
		return nil, "", fmt.Errorf("failed to write audio data: %w", err)
	}

	fields := map[string]string{
		"model":           e.config.Model,
		"language":        e.config.Language,
		"sample_rate":     fmt.Sprintf("%d", sampleRate),
		"response_format": "json",
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", key, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}

func (e *WhisperEngine) incrementTotalRequests() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.totalRequests++
}

func (e *WhisperEngine) incrementFailedRequests() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failedRequests++
}

func (e *WhisperEngine) recordSuccess(responseTime time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.successRequests++
	if e.avgResponseTime == 0 {
		e.avgResponseTime = responseTime
	} else {
		e.avgResponseTime = (e.avgResponseTime + responseTime) / 2
	}
}

// GetStats returns current engine statistics.
func (e *WhisperEngine) GetStats() EngineStats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	successRate := float64(0)
	if e.totalRequests > 0 {
		successRate = float64(e.successRequests) / float64(e.totalRequests) * 100
	}

	return EngineStats{
		TotalRequests:   e.totalRequests,
		SuccessRequests: e.successRequests,
		FailedRequests:  e.failedRequests,
		SuccessRate:     successRate,
		AvgResponseTime: e.avgResponseTime,
	}
}
