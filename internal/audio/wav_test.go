package audio

import (
	"math"
	"testing"
)

func TestEncodeWAVHeader(t *testing.T) {
	samples := []float32{0.0, 0.5, -0.5, 1.0}
	data, err := EncodeWAV(samples, 16000)
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}

	if len(data) != 44+len(samples)*2 {
		t.Errorf("Expected %d bytes, got %d", 44+len(samples)*2, len(data))
	}
	if string(data[0:4]) != "RIFF" {
		t.Errorf("Expected RIFF magic, got %q", data[0:4])
	}
	if string(data[8:12]) != "WAVE" {
		t.Errorf("Expected WAVE format, got %q", data[8:12])
	}
}

func TestEncodeWAVValidation(t *testing.T) {
	if _, err := EncodeWAV(nil, 16000); err == nil {
		t.Error("Expected error for empty samples")
	}
	if _, err := EncodeWAV([]float32{0.1}, 0); err == nil {
		t.Error("Expected error for invalid sample rate")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	samples := []float32{0.0, 0.25, -0.25, 0.9, -0.9, 1.0, -1.0}
	data, err := EncodeWAV(samples, 16000)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, rate, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if rate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", rate)
	}
	if len(decoded) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(decoded))
	}

	// Rounded quantization at a consistent scale keeps the round trip
	// within half a 16-bit step
	for i := range samples {
		if math.Abs(float64(decoded[i]-samples[i])) > 0.5/32767 {
			t.Errorf("Sample %d: expected %f, got %f", i, samples[i], decoded[i])
		}
	}
}

func TestEncodeWAVClampsRange(t *testing.T) {
	data, err := EncodeWAV([]float32{2.0, -2.0}, 16000)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, _, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if decoded[0] < 0.99 || decoded[0] > 1.0 {
		t.Errorf("Expected positive clamp near 1.0, got %f", decoded[0])
	}
	if decoded[1] > -0.99 || decoded[1] < -1.0 {
		t.Errorf("Expected negative clamp near -1.0, got %f", decoded[1])
	}
}

func TestDecodeWAVRejectsMalformed(t *testing.T) {
	if _, _, err := DecodeWAV([]byte("short")); err == nil {
		t.Error("Expected error for truncated data")
	}

	data, err := EncodeWAV([]float32{0.1, 0.2}, 16000)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	bad := make([]byte, len(data))
	copy(bad, data)
	copy(bad[0:4], "JUNK")
	if _, _, err := DecodeWAV(bad); err == nil {
		t.Error("Expected error for missing RIFF header")
	}
}
