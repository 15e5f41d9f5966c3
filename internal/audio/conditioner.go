package audio

import (
	"fmt"
	"math"
)

// DefaultLevelGain scales RMS loudness into a visually useful [0,1] range.
// Speech on a normalized stream rarely exceeds 0.1 RMS, so raw values would
// render as a nearly flat meter without amplification.
const DefaultLevelGain = 10.0

// Conditioner converts raw capture frames into mono samples at the
// recognition sample rate and computes a loudness level per frame.
// It performs no allocation-heavy or blocking work: it runs inline with
// frame delivery and must complete in time proportional to the frame size.
type Conditioner struct {
	targetRate int
	levelGain  float64
}

// NewConditioner creates a conditioner targeting the given sample rate.
func NewConditioner(targetRate int, levelGain float64) (*Conditioner, error) {
	if targetRate <= 0 {
		return nil, fmt.Errorf("target rate must be positive, got %d", targetRate)
	}
	if levelGain <= 0 {
		levelGain = DefaultLevelGain
	}
	return &Conditioner{
		targetRate: targetRate,
		levelGain:  levelGain,
	}, nil
}

// Process conditions one frame: it downmixes to mono, decimates toward the
// target rate, and returns the conditioned samples, their effective sample
// rate, and the frame's loudness level computed from the raw samples.
// The effective rate differs from the target when the source rate is below
// it (passthrough) or does not divide evenly.
func (c *Conditioner) Process(frame Frame) ([]float32, int, float64) {
	level := c.Level(frame.Samples)
	mono := Downmix(frame.Samples, frame.Channels)
	return c.Decimate(mono, frame.SampleRate), c.OutputRate(frame.SampleRate), level
}

// Level computes the RMS loudness of raw samples, scaled by the level gain
// and clamped to [0,1].
func (c *Conditioner) Level(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	rms := math.Sqrt(sum / float64(len(samples)))

	level := rms * c.levelGain
	if level > 1.0 {
		level = 1.0
	}
	return level
}

// Downmix averages adjacent sample pairs when the data is stereo-paired.
// Odd-length or mono input passes through unchanged.
func Downmix(samples []float32, channels int) []float32 {
	if channels < 2 || len(samples)%2 != 0 {
		return samples
	}

	mono := make([]float32, len(samples)/2)
	for i := range mono {
		mono[i] = (samples[i*2] + samples[i*2+1]) / 2
	}
	return mono
}

// Decimate reduces the sample rate by keeping every Kth sample, where
// K = round(sourceRate/targetRate). No anti-alias filtering is applied;
// the quality loss is an accepted simplification for speech recognition.
func (c *Conditioner) Decimate(samples []float32, sourceRate int) []float32 {
	step := c.decimationStep(sourceRate)
	if step <= 1 {
		return samples
	}

	out := make([]float32, 0, len(samples)/step+1)
	for i := 0; i < len(samples); i += step {
		out = append(out, samples[i])
	}
	return out
}

// OutputRate returns the sample rate Decimate actually produces for the
// given source rate. A source at or below the target passes through at its
// own rate; a source that does not divide evenly lands near the target.
// Callers must label conditioned audio with this rate, not the target.
func (c *Conditioner) OutputRate(sourceRate int) int {
	step := c.decimationStep(sourceRate)
	if step <= 1 {
		return sourceRate
	}
	return sourceRate / step
}

func (c *Conditioner) decimationStep(sourceRate int) int {
	if sourceRate <= c.targetRate {
		return 1
	}
	return int(math.Round(float64(sourceRate) / float64(c.targetRate)))
}

// TargetRate returns the conditioner's output sample rate.
func (c *Conditioner) TargetRate() int {
	return c.targetRate
}
