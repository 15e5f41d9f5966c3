package vad

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Config contains detector thresholds. All values are tunable: the bands
// below describe voiced speech loosely and are expected to be adjusted per
// deployment rather than derived.
type Config struct {
	// EnergyThreshold is the minimum mean-squared amplitude for speech.
	EnergyThreshold float64

	// ZCRMin and ZCRMax bound the zero-crossing rate band typical of voiced
	// speech. Near-zero rates indicate hum or DC drift, very high rates
	// indicate broadband noise.
	ZCRMin float64
	ZCRMax float64

	// CrossingFloor is the minimum amplitude a sample pair must reach for a
	// sign change to count as a crossing. Rejects low-level jitter.
	CrossingFloor float64

	// CentroidMin and CentroidMax bound the normalized amplitude-weighted
	// mean sample index, a transform-free proxy for spectral balance.
	CentroidMin float64
	CentroidMax float64

	// WeightedEnergy emphasizes later samples in the frame when computing
	// energy, biasing the gate toward speech onsets near the frame end.
	WeightedEnergy bool
}

// DefaultConfig returns thresholds tuned for normalized 16 kHz mono speech.
func DefaultConfig() Config {
	return Config{
		EnergyThreshold: 0.0005,
		ZCRMin:          0.01,
		ZCRMax:          0.30,
		CrossingFloor:   0.005,
		CentroidMin:     0.15,
		CentroidMax:     0.75,
		WeightedEnergy:  true,
	}
}

// Decision is the per-frame classification with the features that drove it.
type Decision struct {
	Speech    bool      `json:"speech"`
	Energy    float64   `json:"energy"`
	ZCR       float64   `json:"zcr"`
	Centroid  float64   `json:"centroid"`
	Timestamp time.Time `json:"timestamp"`
}

// Detector classifies conditioned mono frames as speech or silence.
type Detector struct {
	config Config

	// Statistics
	totalFrames  uint64
	speechFrames uint64
	lastDecision Decision

	mu sync.RWMutex
}

// DetectorStats represents detector statistics for monitoring.
type DetectorStats struct {
	TotalFrames      uint64  `json:"total_frames"`
	SpeechFrames     uint64  `json:"speech_frames"`
	SpeechPercentage float64 `json:"speech_percentage"`
	EnergyThreshold  float64 `json:"energy_threshold"`
}

// NewDetector creates a detector after validating the configured bands.
func NewDetector(config Config) (*Detector, error) {
	if config.EnergyThreshold < 0 {
		return nil, fmt.Errorf("energy threshold cannot be negative, got %f", config.EnergyThreshold)
	}
	if config.ZCRMin < 0 || config.ZCRMax <= config.ZCRMin {
		return nil, fmt.Errorf("zcr band [%f, %f] is invalid", config.ZCRMin, config.ZCRMax)
	}
	if config.CentroidMin < 0 || config.CentroidMax <= config.CentroidMin {
		return nil, fmt.Errorf("centroid band [%f, %f] is invalid", config.CentroidMin, config.CentroidMax)
	}
	if config.CrossingFloor < 0 {
		return nil, fmt.Errorf("crossing floor cannot be negative, got %f", config.CrossingFloor)
	}

	return &Detector{config: config}, nil
}

// Detect classifies one frame of conditioned samples. All three feature
// checks are conjunctive: a single failing feature means silence. The
// energy gate is evaluated first so sub-threshold frames are silent
// regardless of the other features.
func (d *Detector) Detect(samples []float32) Decision {
	decision := Decision{Timestamp: time.Now()}

	if len(samples) > 0 {
		decision.Energy = d.energy(samples)
		decision.ZCR = d.zeroCrossingRate(samples)
		decision.Centroid = d.centroidProxy(samples)

		decision.Speech = decision.Energy > d.config.EnergyThreshold &&
			decision.ZCR > d.config.ZCRMin && decision.ZCR < d.config.ZCRMax &&
			decision.Centroid > d.config.CentroidMin && decision.Centroid < d.config.CentroidMax
	}

	d.mu.Lock()
	d.totalFrames++
	if decision.Speech {
		d.speechFrames++
	}
	d.lastDecision = decision
	d.mu.Unlock()

	return decision
}

// energy computes the mean squared amplitude, optionally index-weighted so
// that samples later in the frame contribute up to twice as much.
func (d *Detector) energy(samples []float32) float64 {
	n := float64(len(samples))
	var sum, weightSum float64

	for i, s := range samples {
		w := 1.0
		if d.config.WeightedEnergy {
			w = 1.0 + float64(i)/n
		}
		sum += float64(s) * float64(s) * w
		weightSum += w
	}

	return sum / weightSum
}

// zeroCrossingRate computes the fraction of adjacent-sample sign changes
// whose magnitude clears the crossing floor.
func (d *Detector) zeroCrossingRate(samples []float32) float64 {
	if len(samples) < 2 {
		return 0
	}

	crossings := 0
	for i := 1; i < len(samples); i++ {
		prev, cur := float64(samples[i-1]), float64(samples[i])
		if (prev > 0) != (cur > 0) &&
			math.Max(math.Abs(prev), math.Abs(cur)) >= d.config.CrossingFloor {
			crossings++
		}
	}

	return float64(crossings) / float64(len(samples)-1)
}

// centroidProxy computes the amplitude-weighted mean sample index normalized
// by the frame length. Frames dominated by early samples score low, frames
// dominated by late samples score high; speech tends to land mid-band.
func (d *Detector) centroidProxy(samples []float32) float64 {
	if len(samples) < 2 {
		return 0
	}

	var weighted, total float64
	for i, s := range samples {
		a := math.Abs(float64(s))
		weighted += a * float64(i)
		total += a
	}

	if total == 0 {
		return 0
	}
	return weighted / total / float64(len(samples)-1)
}

// UpdateEnergyThreshold changes the energy gate at runtime.
func (d *Detector) UpdateEnergyThreshold(threshold float64) error {
	if threshold < 0 {
		return fmt.Errorf("energy threshold cannot be negative, got %f", threshold)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.config.EnergyThreshold = threshold
	return nil
}

// Reset clears the detector statistics.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.totalFrames = 0
	d.speechFrames = 0
	d.lastDecision = Decision{}
}

// GetStats returns current detector statistics.
func (d *Detector) GetStats() DetectorStats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	speechPercentage := float64(0)
	if d.totalFrames > 0 {
		speechPercentage = float64(d.speechFrames) / float64(d.totalFrames) * 100
	}

	return DetectorStats{
		TotalFrames:      d.totalFrames,
		SpeechFrames:     d.speechFrames,
		SpeechPercentage: speechPercentage,
		EnergyThreshold:  d.config.EnergyThreshold,
	}
}
