package capture

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/skypro1111/live-transcribe-service/internal/audio"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPumpDeliversFramesInOrder(t *testing.T) {
	p := NewPump(8, testLogger())
	handler := p.Handler()

	for i := 0; i < 3; i++ {
		handler(audio.Frame{Samples: []float32{float32(i)}, Channels: 1, SampleRate: 8000})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan audio.Frame, 8)
	go p.Run(ctx, func(frame audio.Frame) {
		received <- frame
	})

	for i := 0; i < 3; i++ {
		select {
		case frame := <-received:
			if frame.Samples[0] != float32(i) {
				t.Errorf("Frame %d: expected sample %d, got %f", i, i, frame.Samples[0])
			}
		case <-time.After(time.Second):
			t.Fatal("Timed out waiting for frame")
		}
	}

	stats := p.GetStats()
	if stats.Pushed != 3 || stats.Dropped != 0 {
		t.Errorf("Expected 3 pushed and 0 dropped, got %+v", stats)
	}
}

func TestPumpDropsWhenFull(t *testing.T) {
	p := NewPump(2, testLogger())
	handler := p.Handler()

	// No consumer: the third frame cannot be queued and must not block
	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			handler(audio.Frame{Samples: []float32{1}, Channels: 1, SampleRate: 8000})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Expected push to never block on a full queue")
	}

	stats := p.GetStats()
	if stats.Pushed != 2 {
		t.Errorf("Expected 2 pushed frames, got %d", stats.Pushed)
	}
	if stats.Dropped != 3 {
		t.Errorf("Expected 3 dropped frames, got %d", stats.Dropped)
	}
}

func TestPumpRunStopsOnCancel(t *testing.T) {
	p := NewPump(2, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		p.Run(ctx, func(audio.Frame) {})
		close(stopped)
	}()

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Expected Run to return on context cancellation")
	}
}

func TestDecodeSlin(t *testing.T) {
	// 0x7FFF is full scale positive, 0x8000 full scale negative
	payload := []byte{0xFF, 0x7F, 0x00, 0x80, 0x00, 0x00}
	samples := decodeSlin(payload)

	if len(samples) != 3 {
		t.Fatalf("Expected 3 samples, got %d", len(samples))
	}
	if samples[0] < 0.999 {
		t.Errorf("Expected near full-scale positive, got %f", samples[0])
	}
	if samples[1] != -1.0 {
		t.Errorf("Expected full-scale negative, got %f", samples[1])
	}
	if samples[2] != 0 {
		t.Errorf("Expected zero sample, got %f", samples[2])
	}
}

func TestAudioSocketSourceValidation(t *testing.T) {
	if _, err := NewAudioSocketSource(AudioSocketConfig{}, testLogger()); err == nil {
		t.Error("Expected error for empty listen address")
	}

	s, err := NewAudioSocketSource(AudioSocketConfig{Addr: "127.0.0.1:0"}, testLogger())
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	if s.config.SampleRate != 8000 || s.config.Channels != 1 {
		t.Errorf("Expected telephony defaults, got %+v", s.config)
	}
}

func TestSyntheticSourceGeneratesContinuousTone(t *testing.T) {
	s, err := NewSyntheticSource(SyntheticConfig{
		SampleRate: 16000,
		FrameSize:  160,
		Frequency:  440,
		Amplitude:  0.1,
		Interval:   time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Failed to create source: %v", err)
	}

	frames := make(chan audio.Frame, 16)
	if err := s.Start(func(frame audio.Frame) {
		select {
		case frames <- frame:
		default:
		}
	}); err != nil {
		t.Fatalf("Failed to start source: %v", err)
	}
	defer s.Stop()

	var first, second audio.Frame
	for i := 0; i < 2; i++ {
		select {
		case frame := <-frames:
			if i == 0 {
				first = frame
			} else {
				second = frame
			}
		case <-time.After(time.Second):
			t.Fatal("Timed out waiting for generated frame")
		}
	}

	if len(first.Samples) != 160 || first.SampleRate != 16000 {
		t.Errorf("Unexpected frame shape: %d samples at %d Hz", len(first.Samples), first.SampleRate)
	}

	// Phase continues across frames: the second frame must not restart the
	// tone at zero phase
	if second.Samples[0] == first.Samples[0] && second.Samples[1] == first.Samples[1] {
		t.Error("Expected tone phase to continue across frames")
	}
}

func TestSyntheticSourceValidation(t *testing.T) {
	if _, err := NewSyntheticSource(SyntheticConfig{FrameSize: 160}); err == nil {
		t.Error("Expected error for missing sample rate")
	}
	if _, err := NewSyntheticSource(SyntheticConfig{SampleRate: 16000}); err == nil {
		t.Error("Expected error for missing frame size")
	}
}

func TestAudioSocketSourceStartStop(t *testing.T) {
	s, err := NewAudioSocketSource(AudioSocketConfig{Addr: "127.0.0.1:0"}, testLogger())
	if err != nil {
		t.Fatalf("Failed to create source: %v", err)
	}

	if err := s.Start(func(audio.Frame) {}); err != nil {
		t.Fatalf("Expected listener to open but got: %v", err)
	}
	if err := s.Start(func(audio.Frame) {}); err == nil {
		t.Error("Expected error for double start")
	}

	if err := s.Stop(); err != nil {
		t.Errorf("Expected clean stop but got: %v", err)
	}
}
