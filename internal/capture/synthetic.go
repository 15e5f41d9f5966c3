package capture

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/skypro1111/live-transcribe-service/internal/audio"
)

// SyntheticConfig contains synthetic source parameters.
type SyntheticConfig struct {
	// SampleRate of the generated frames.
	SampleRate int

	// FrameSize is the number of samples per delivered frame.
	FrameSize int

	// Frequency of the generated tone in Hz. Zero generates silence.
	Frequency float64

	// Amplitude of the tone, in normalized units.
	Amplitude float64

	// Interval between frame deliveries. Defaults to the frame's real-time
	// duration at SampleRate.
	Interval time.Duration
}

// SyntheticSource generates tone or silence frames on a timer. Used in
// development runs and tests where no network capture is available.
type SyntheticSource struct {
	config SyntheticConfig

	phase   int
	stop    chan struct{}
	done    chan struct{}
	running bool

	mu sync.Mutex
}

// NewSyntheticSource validates the configuration and creates a source.
func NewSyntheticSource(config SyntheticConfig) (*SyntheticSource, error) {
	if config.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", config.SampleRate)
	}
	if config.FrameSize <= 0 {
		return nil, fmt.Errorf("frame size must be positive, got %d", config.FrameSize)
	}
	if config.Interval <= 0 {
		config.Interval = time.Duration(config.FrameSize) * time.Second / time.Duration(config.SampleRate)
	}

	return &SyntheticSource{config: config}, nil
}

// Start begins frame generation on a background goroutine.
func (s *SyntheticSource) Start(handler FrameHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("synthetic source already started")
	}

	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.generate(handler)
	return nil
}

func (s *SyntheticSource) generate(handler FrameHandler) {
	defer close(s.done)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			handler(s.nextFrame())
		}
	}
}

// nextFrame produces one frame, continuing the tone phase across frames so
// consecutive frames form a continuous signal.
func (s *SyntheticSource) nextFrame() audio.Frame {
	samples := make([]float32, s.config.FrameSize)

	if s.config.Frequency > 0 && s.config.Amplitude > 0 {
		step := 2 * math.Pi * s.config.Frequency / float64(s.config.SampleRate)
		for i := range samples {
			samples[i] = float32(s.config.Amplitude * math.Sin(step*float64(s.phase+i)))
		}
		s.phase += len(samples)
	}

	return audio.Frame{
		Samples:    samples,
		Channels:   1,
		SampleRate: s.config.SampleRate,
	}
}

// Stop halts generation and waits for the generator goroutine to exit.
func (s *SyntheticSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	close(s.stop)
	<-s.done
	s.running = false
	return nil
}
