package ppg

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zero sample rate", func(c *Config) { c.SampleRateHz = 0 }, true},
		{"nan sample rate", func(c *Config) { c.SampleRateHz = math.NaN() }, true},
		{"ir alpha zero", func(c *Config) { c.IRAlpha = 0 }, true},
		{"ir alpha one", func(c *Config) { c.IRAlpha = 1 }, true},
		{"hr alpha negative", func(c *Config) { c.HRAlpha = -0.1 }, true},
		{"negative refractory", func(c *Config) { c.Refractory = -time.Millisecond }, true},
		{"zero refractory", func(c *Config) { c.Refractory = 0 }, false},
		{"min bpm zero", func(c *Config) { c.MinBPM = 0 }, true},
		{"max below min", func(c *Config) { c.MaxBPM = 30 }, true},
		{"max equals min", func(c *Config) { c.MaxBPM = c.MinBPM }, true},
		{"zero line bytes", func(c *Config) { c.MaxLineBytes = 0 }, true},
		{"unknown policy", func(c *Config) { c.Malformed = MalformedPolicy(7) }, true},
		{"zero policy", func(c *Config) { c.Malformed = MalformedZero }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error %v does not wrap ErrInvalidConfig", err)
			}
		})
	}
}

func TestConfig_RefractorySamples(t *testing.T) {
	tests := []struct {
		refractory time.Duration
		rate       float64
		want       int
	}{
		{300 * time.Millisecond, 100, 30},
		{300 * time.Millisecond, 50, 15},
		{250 * time.Millisecond, 400, 100},
		{0, 100, 0},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.Refractory = tt.refractory
		cfg.SampleRateHz = tt.rate
		if got := cfg.RefractorySamples(); got != tt.want {
			t.Errorf("RefractorySamples(%v @ %vHz) = %d, want %d", tt.refractory, tt.rate, got, tt.want)
		}
	}
}
