package capture

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/CyCoreSystems/audiosocket"

	"github.com/skypro1111/live-transcribe-service/internal/audio"
)

// AudioSocketConfig contains configuration for the AudioSocket source.
type AudioSocketConfig struct {
	Addr       string
	SampleRate int
	Channels   int
}

// AudioSocketSource accepts one AudioSocket TCP connection at a time and
// delivers its signed-linear payloads as normalized frames. AudioSocket
// peers (typically an Asterisk dialplan) stream 16-bit little-endian PCM.
type AudioSocketSource struct {
	config   AudioSocketConfig
	logger   *slog.Logger
	listener net.Listener
	handler  FrameHandler

	shutdown chan struct{}
	wg       sync.WaitGroup

	mu      sync.Mutex
	started bool
	conn    net.Conn
}

// NewAudioSocketSource creates the source. The listener is opened by Start.
func NewAudioSocketSource(config AudioSocketConfig, logger *slog.Logger) (*AudioSocketSource, error) {
	if config.Addr == "" {
		return nil, fmt.Errorf("listen addr cannot be empty")
	}
	if config.SampleRate <= 0 {
		config.SampleRate = 8000
	}
	if config.Channels <= 0 {
		config.Channels = 1
	}

	return &AudioSocketSource{
		config:   config,
		logger:   logger,
		shutdown: make(chan struct{}),
	}, nil
}

// Start opens the TCP listener and begins accepting connections. A listener
// failure is a device error: fatal to the capture run, surfaced to the
// caller, not retried.
func (s *AudioSocketSource) Start(handler FrameHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("capture already running")
	}

	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("%w: listen on %s: %v", ErrDeviceFailure, s.config.Addr, err)
	}

	s.listener = listener
	s.handler = handler
	s.started = true

	s.logger.Info("AudioSocket source listening",
		slog.String("addr", s.config.Addr),
		slog.Int("sample_rate", s.config.SampleRate),
	)

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop closes the listener and any active connection, then waits for the
// delivery goroutines to finish.
func (s *AudioSocketSource) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	close(s.shutdown)
	s.listener.Close()
	if s.conn != nil {
		s.conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// acceptLoop serves one connection at a time: a single capture run maps to
// a single recording session owner downstream.
func (s *AudioSocketSource) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return
			default:
				s.logger.Warn("Accept failed", slog.String("error", err.Error()))
				continue
			}
		}

		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()

		s.serveConnection(conn)

		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
	}
}

// serveConnection reads AudioSocket messages until hangup or error and
// hands each audio payload to the registered handler.
func (s *AudioSocketSource) serveConnection(conn net.Conn) {
	defer conn.Close()

	id, err := audiosocket.GetID(conn)
	if err != nil {
		s.logger.Warn("Failed to read AudioSocket ID",
			slog.String("remote", conn.RemoteAddr().String()),
			slog.String("error", err.Error()),
		)
		return
	}

	s.logger.Info("AudioSocket stream connected",
		slog.String("stream_id", id.String()),
		slog.String("remote", conn.RemoteAddr().String()),
	)

	for {
		msg, err := audiosocket.NextMessage(conn)
		if err != nil {
			if err != io.EOF {
				s.logger.Warn("Failed to read AudioSocket message",
					slog.String("stream_id", id.String()),
					slog.String("error", err.Error()),
				)
			}
			break
		}

		switch msg.Kind() {
		case audiosocket.KindHangup:
			s.logger.Info("AudioSocket stream hung up",
				slog.String("stream_id", id.String()),
			)
			return
		case audiosocket.KindSlin:
			payload := msg.Payload()
			if len(payload) == 0 {
				continue
			}
			s.handler(audio.Frame{
				Samples:    decodeSlin(payload),
				Channels:   s.config.Channels,
				SampleRate: s.config.SampleRate,
			})
		case audiosocket.KindError:
			s.logger.Warn("AudioSocket error message",
				slog.String("stream_id", id.String()),
			)
		}
	}
}

// decodeSlin converts 16-bit little-endian PCM into normalized floats.
func decodeSlin(payload []byte) []float32 {
	n := len(payload) / 2
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(payload[i*2]) | int16(payload[i*2+1])<<8
		samples[i] = float32(v) / 32768
	}
	return samples
}
