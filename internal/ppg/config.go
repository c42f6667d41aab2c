// Package ppg implements the streaming photoplethysmography pipeline: line
// assembly from a raw byte stream, red/IR frame parsing, single-pole low-pass
// filtering of the infrared channel and threshold based heart-rate
// estimation.
package ppg

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is wrapped by every Config.Validate failure.
var ErrInvalidConfig = errors.New("invalid pipeline config")

// Config holds the immutable tuning of one pipeline instance. It is passed by
// value and never mutated after NewPipeline.
type Config struct {
	// SampleRateHz is the effective rate of red/IR pairs per second.
	SampleRateHz float64
	// IRAlpha is the smoothing factor of the infrared low-pass filter.
	IRAlpha float64
	// PeakThreshold is the level the filtered IR must cross upwards to count
	// as a beat.
	PeakThreshold float64
	// Refractory is the minimum time between two accepted peaks.
	Refractory time.Duration
	// MinBPM and MaxBPM bound the plausible instantaneous heart rate
	// (exclusive on both ends).
	MinBPM float64
	MaxBPM float64
	// HRAlpha is the smoothing factor applied to accepted heart-rate values.
	HRAlpha float64
	// MaxLineBytes bounds the frame assembly buffer.
	MaxLineBytes int
	// Malformed selects how unparsable lines are handled.
	Malformed MalformedPolicy
	// SeedHRFilter makes the first accepted heart rate seed the smoothed
	// value instead of being blended in from zero.
	SeedHRFilter bool
}

// Default tuning for a MAX3010x style sensor sampled every ~10ms.
const (
	DefaultSampleRateHz  = 100.0
	DefaultIRAlpha       = 0.2
	DefaultPeakThreshold = 10.0
	DefaultRefractory    = 300 * time.Millisecond
	DefaultMinBPM        = 40.0
	DefaultMaxBPM        = 200.0
	DefaultHRAlpha       = 0.3
	DefaultMaxLineBytes  = 1023
)

// DefaultConfig returns the tuning the sensor firmware was designed around.
func DefaultConfig() Config {
	return Config{
		SampleRateHz:  DefaultSampleRateHz,
		IRAlpha:       DefaultIRAlpha,
		PeakThreshold: DefaultPeakThreshold,
		Refractory:    DefaultRefractory,
		MinBPM:        DefaultMinBPM,
		MaxBPM:        DefaultMaxBPM,
		HRAlpha:       DefaultHRAlpha,
		MaxLineBytes:  DefaultMaxLineBytes,
		Malformed:     MalformedSkip,
	}
}

// Validate checks the invariants the pipeline relies on.
func (c Config) Validate() error {
	if !(c.SampleRateHz > 0) {
		return fmt.Errorf("%w: sample rate must be positive, got %v", ErrInvalidConfig, c.SampleRateHz)
	}
	if !(c.IRAlpha > 0 && c.IRAlpha < 1) {
		return fmt.Errorf("%w: ir alpha must be in (0,1), got %v", ErrInvalidConfig, c.IRAlpha)
	}
	if !(c.HRAlpha > 0 && c.HRAlpha < 1) {
		return fmt.Errorf("%w: hr alpha must be in (0,1), got %v", ErrInvalidConfig, c.HRAlpha)
	}
	if c.Refractory < 0 {
		return fmt.Errorf("%w: refractory must not be negative, got %v", ErrInvalidConfig, c.Refractory)
	}
	if !(c.MinBPM > 0) || !(c.MaxBPM > c.MinBPM) {
		return fmt.Errorf("%w: heart-rate bounds must satisfy 0 < min < max, got [%v, %v]", ErrInvalidConfig, c.MinBPM, c.MaxBPM)
	}
	if c.MaxLineBytes <= 0 {
		return fmt.Errorf("%w: max line bytes must be positive, got %d", ErrInvalidConfig, c.MaxLineBytes)
	}
	switch c.Malformed {
	case MalformedSkip, MalformedZero:
	default:
		return fmt.Errorf("%w: unknown malformed policy %d", ErrInvalidConfig, c.Malformed)
	}
	return nil
}

// RefractorySamples converts the refractory window to a sample count. The
// estimator derives it once at construction.
func (c Config) RefractorySamples() int {
	return int(c.Refractory.Seconds() * c.SampleRateHz)
}
