package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/banshee-data/pulse.report/internal/acquire"
	"github.com/banshee-data/pulse.report/internal/ppg"
	"github.com/banshee-data/pulse.report/internal/serialport"
)

// EnvPrefix prefixes the environment variable of every tuning key, so
// ir_alpha is overridden by PULSE_IR_ALPHA.
const EnvPrefix = "PULSE"

// maxFileSize bounds the size of a tuning file.
const maxFileSize = 1 * 1024 * 1024 // 1MB

// TuningConfig holds the pipeline and link tuning. Every field is optional;
// unset fields fall back to the defaults returned by the Get* methods, so
// partial files are safe.
type TuningConfig struct {
	// Pipeline params
	SampleRateHz  *float64 `json:"sample_rate_hz,omitempty" mapstructure:"sample_rate_hz"`
	IRAlpha       *float64 `json:"ir_alpha,omitempty" mapstructure:"ir_alpha"`
	PeakThreshold *float64 `json:"peak_threshold,omitempty" mapstructure:"peak_threshold"`
	Refractory    *string  `json:"refractory,omitempty" mapstructure:"refractory"` // duration string like "300ms"
	MinBPM        *float64 `json:"min_bpm,omitempty" mapstructure:"min_bpm"`
	MaxBPM        *float64 `json:"max_bpm,omitempty" mapstructure:"max_bpm"`
	HRAlpha       *float64 `json:"hr_alpha,omitempty" mapstructure:"hr_alpha"`
	MaxLineBytes  *int     `json:"max_line_bytes,omitempty" mapstructure:"max_line_bytes"`
	Malformed     *string  `json:"malformed,omitempty" mapstructure:"malformed"` // "skip" or "zero"
	SeedHRFilter  *bool    `json:"seed_hr_filter,omitempty" mapstructure:"seed_hr_filter"`

	// Serial link params
	BaudRate    *int    `json:"baud_rate,omitempty" mapstructure:"baud_rate"`
	ReadTimeout *string `json:"read_timeout,omitempty" mapstructure:"read_timeout"`

	// Acquisition loop params
	ChunkSize    *int    `json:"chunk_size,omitempty" mapstructure:"chunk_size"`
	PollInterval *string `json:"poll_interval,omitempty" mapstructure:"poll_interval"`
}

// keys lists every tuning key, used to bind the environment overrides.
var keys = []string{
	"sample_rate_hz", "ir_alpha", "peak_threshold", "refractory",
	"min_bpm", "max_bpm", "hr_alpha", "max_line_bytes", "malformed",
	"seed_hr_filter", "baud_rate", "read_timeout", "chunk_size", "poll_interval",
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field set to its
// default value.
func DefaultTuningConfig() *TuningConfig {
	d := ppg.DefaultConfig()
	return &TuningConfig{
		SampleRateHz:  ptrFloat64(d.SampleRateHz),
		IRAlpha:       ptrFloat64(d.IRAlpha),
		PeakThreshold: ptrFloat64(d.PeakThreshold),
		Refractory:    ptrString(d.Refractory.String()),
		MinBPM:        ptrFloat64(d.MinBPM),
		MaxBPM:        ptrFloat64(d.MaxBPM),
		HRAlpha:       ptrFloat64(d.HRAlpha),
		MaxLineBytes:  ptrInt(d.MaxLineBytes),
		Malformed:     ptrString(d.Malformed.String()),
		SeedHRFilter:  ptrBool(d.SeedHRFilter),
		BaudRate:      ptrInt(serialport.DefaultBaudRate),
		ReadTimeout:   ptrString(serialport.DefaultReadTimeout.String()),
		ChunkSize:     ptrInt(acquire.DefaultChunkSize),
		PollInterval:  ptrString(acquire.DefaultPollInterval.String()),
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, k := range keys {
		// BindEnv only errors when called without a key.
		_ = v.BindEnv(k)
	}
	return v
}

// LoadTuningConfig loads a TuningConfig from a JSON, YAML or TOML file.
// PULSE_* environment variables override values from the file. The file
// must be under 1MB.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	switch ext := filepath.Ext(cleanPath); ext {
	case ".json", ".yaml", ".yml", ".toml":
	default:
		return nil, fmt.Errorf("config file must have .json, .yaml or .toml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	v := newViper()
	v.SetConfigFile(cleanPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return decode(v)
}

// LoadFromEnv builds a TuningConfig from PULSE_* environment variables only.
func LoadFromEnv() (*TuningConfig, error) {
	return decode(newViper())
}

// Load reads path when it is set and the environment alone otherwise.
func Load(path string) (*TuningConfig, error) {
	if path == "" {
		return LoadFromEnv()
	}
	return LoadTuningConfig(path)
}

func decode(v *viper.Viper) (*TuningConfig, error) {
	cfg := EmptyTuningConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	durations := []struct {
		name  string
		value *string
	}{
		{"refractory", c.Refractory},
		{"read_timeout", c.ReadTimeout},
		{"poll_interval", c.PollInterval},
	}
	for _, d := range durations {
		if d.value == nil || *d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(*d.value)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", d.name, *d.value, err)
		}
		if parsed < 0 {
			return fmt.Errorf("%s must not be negative, got %s", d.name, *d.value)
		}
	}

	if c.ChunkSize != nil && *c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", *c.ChunkSize)
	}

	if _, err := c.PortOptions().Normalize(); err != nil {
		return err
	}

	_, err := c.ToPipelineConfig()
	return err
}

// ToPipelineConfig converts the tuning to a validated ppg.Config.
func (c *TuningConfig) ToPipelineConfig() (ppg.Config, error) {
	policy, err := ppg.ParseMalformedPolicy(c.GetMalformed())
	if err != nil {
		return ppg.Config{}, fmt.Errorf("%w: %v", ppg.ErrInvalidConfig, err)
	}

	cfg := ppg.Config{
		SampleRateHz:  c.GetSampleRateHz(),
		IRAlpha:       c.GetIRAlpha(),
		PeakThreshold: c.GetPeakThreshold(),
		Refractory:    c.GetRefractory(),
		MinBPM:        c.GetMinBPM(),
		MaxBPM:        c.GetMaxBPM(),
		HRAlpha:       c.GetHRAlpha(),
		MaxLineBytes:  c.GetMaxLineBytes(),
		Malformed:     policy,
		SeedHRFilter:  c.GetSeedHRFilter(),
	}
	if err := cfg.Validate(); err != nil {
		return ppg.Config{}, err
	}
	return cfg, nil
}

// PortOptions returns the serial link settings, defaulting the framing to 8N1.
func (c *TuningConfig) PortOptions() serialport.PortOptions {
	return serialport.PortOptions{
		BaudRate:    c.GetBaudRate(),
		ReadTimeout: c.GetReadTimeout(),
	}
}

func getDuration(s *string, def time.Duration) time.Duration {
	if s == nil || *s == "" {
		return def
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return def // default on parse error
	}
	return d
}

// GetSampleRateHz returns the sample_rate_hz value or the default.
func (c *TuningConfig) GetSampleRateHz() float64 {
	if c.SampleRateHz == nil {
		return ppg.DefaultSampleRateHz
	}
	return *c.SampleRateHz
}

// GetIRAlpha returns the ir_alpha value or the default.
func (c *TuningConfig) GetIRAlpha() float64 {
	if c.IRAlpha == nil {
		return ppg.DefaultIRAlpha
	}
	return *c.IRAlpha
}

// GetPeakThreshold returns the peak_threshold value or the default.
func (c *TuningConfig) GetPeakThreshold() float64 {
	if c.PeakThreshold == nil {
		return ppg.DefaultPeakThreshold
	}
	return *c.PeakThreshold
}

// GetRefractory parses and returns the Refractory window.
func (c *TuningConfig) GetRefractory() time.Duration {
	return getDuration(c.Refractory, ppg.DefaultRefractory)
}

// GetMinBPM returns the min_bpm value or the default.
func (c *TuningConfig) GetMinBPM() float64 {
	if c.MinBPM == nil {
		return ppg.DefaultMinBPM
	}
	return *c.MinBPM
}

// GetMaxBPM returns the max_bpm value or the default.
func (c *TuningConfig) GetMaxBPM() float64 {
	if c.MaxBPM == nil {
		return ppg.DefaultMaxBPM
	}
	return *c.MaxBPM
}

// GetHRAlpha returns the hr_alpha value or the default.
func (c *TuningConfig) GetHRAlpha() float64 {
	if c.HRAlpha == nil {
		return ppg.DefaultHRAlpha
	}
	return *c.HRAlpha
}

// GetMaxLineBytes returns the max_line_bytes value or the default.
func (c *TuningConfig) GetMaxLineBytes() int {
	if c.MaxLineBytes == nil {
		return ppg.DefaultMaxLineBytes
	}
	return *c.MaxLineBytes
}

// GetMalformed returns the malformed policy name or "skip".
func (c *TuningConfig) GetMalformed() string {
	if c.Malformed == nil || *c.Malformed == "" {
		return ppg.MalformedSkip.String()
	}
	return *c.Malformed
}

// GetSeedHRFilter returns the seed_hr_filter value or the default.
func (c *TuningConfig) GetSeedHRFilter() bool {
	if c.SeedHRFilter == nil {
		return false
	}
	return *c.SeedHRFilter
}

// GetBaudRate returns the baud_rate value or the default.
func (c *TuningConfig) GetBaudRate() int {
	if c.BaudRate == nil {
		return serialport.DefaultBaudRate
	}
	return *c.BaudRate
}

// GetReadTimeout parses and returns the serial read timeout.
func (c *TuningConfig) GetReadTimeout() time.Duration {
	return getDuration(c.ReadTimeout, serialport.DefaultReadTimeout)
}

// GetChunkSize returns the chunk_size value or the default.
func (c *TuningConfig) GetChunkSize() int {
	if c.ChunkSize == nil {
		return acquire.DefaultChunkSize
	}
	return *c.ChunkSize
}

// GetPollInterval parses and returns the poll interval between reads.
func (c *TuningConfig) GetPollInterval() time.Duration {
	return getDuration(c.PollInterval, acquire.DefaultPollInterval)
}
