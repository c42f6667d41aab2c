package ppg

import (
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/pulse.report/internal/monitoring"
)

// SampleSink persists one filtered infrared value per sample. An error is
// fatal to the run.
type SampleSink interface {
	Append(v float64) error
}

// Pipeline owns all per-run state: the frame assembler, the IR filter and
// the heart-rate estimator. Each instance is independent and must be driven
// from a single goroutine.
type Pipeline struct {
	cfg       Config
	assembler *Assembler
	filter    *LowPass
	estimator *Estimator
	sink      SampleSink
	reporter  HeartRateReporter
	stats     *monitoring.Stats
	now       func() time.Time
	persisted int64
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithReporter sets where accepted heart-rate estimates are sent.
func WithReporter(r HeartRateReporter) Option {
	return func(p *Pipeline) { p.reporter = r }
}

// WithStats sets the counters the pipeline updates.
func WithStats(s *monitoring.Stats) Option {
	return func(p *Pipeline) {
		if s != nil {
			p.stats = s
		}
	}
}

// WithInitialIR sets the starting value of the IR filter (default 0).
func WithInitialIR(v float64) Option {
	return func(p *Pipeline) { p.filter.Reset(v) }
}

// WithNow overrides the clock used to timestamp heart-rate stats.
func WithNow(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// NewPipeline validates cfg and returns a pipeline writing to sink.
func NewPipeline(cfg Config, sink SampleSink, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		return nil, errors.New("pipeline requires a sample sink")
	}
	p := &Pipeline{
		cfg:       cfg,
		assembler: NewAssembler(cfg.MaxLineBytes),
		filter:    NewLowPass(cfg.IRAlpha, 0),
		estimator: NewEstimator(cfg),
		sink:      sink,
		reporter:  LogReporter{},
		stats:     &monitoring.Stats{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Feed pushes a chunk of raw bytes through the pipeline. Lines are processed
// in arrival order; the first sink failure stops processing and is returned.
func (p *Pipeline) Feed(chunk []byte) error {
	p.stats.AddBytes(len(chunk))
	lines, overflows := p.assembler.Feed(chunk)
	if overflows > 0 {
		p.stats.AddOverflows(overflows)
		monitoring.Warnf("frame buffer overflow (%d bytes max), discarded %d partial line(s)", p.cfg.MaxLineBytes, overflows)
	}
	for _, line := range lines {
		if err := p.ProcessLine(line); err != nil {
			return err
		}
	}
	return nil
}

// ProcessLine runs one complete line through parse, filter, estimator and
// sink. Only a sink failure is returned.
func (p *Pipeline) ProcessLine(line string) error {
	p.stats.AddLine()

	sample, err := ParseFrame(line)
	if err != nil {
		p.stats.AddMalformed()
		if p.cfg.Malformed == MalformedSkip {
			monitoring.Warnf("skipping malformed line %q: %v", line, err)
			return nil
		}
		monitoring.Warnf("malformed line %q, substituting zero: %v", line, err)
	}

	filtered := p.filter.Apply(float64(sample.IR))
	p.observe(p.estimator.Update(filtered))

	if err := p.sink.Append(filtered); err != nil {
		return fmt.Errorf("failed to persist sample %d: %w", p.estimator.SampleIndex()-1, err)
	}
	p.persisted++
	p.stats.AddSample()
	return nil
}

func (p *Pipeline) observe(d Detection) {
	switch d.Kind {
	case DetectionRefractory:
		p.stats.AddRefractory()
	case DetectionFirstPeak:
		p.stats.AddCrossing()
	case DetectionImplausible:
		p.stats.AddCrossing()
		p.stats.AddImplausible()
		monitoring.Logf("discarding implausible heart rate %.1f bpm (interval %d samples)", d.InstantBPM, d.IntervalSamples)
	case DetectionAccepted:
		p.stats.AddCrossing()
		p.stats.SetHeartRate(d.FilteredBPM, p.now())
		if p.reporter != nil {
			p.reporter.ReportHeartRate(HeartRate{
				SampleIndex:     d.SampleIndex,
				IntervalSamples: d.IntervalSamples,
				InstantBPM:      d.InstantBPM,
				FilteredBPM:     d.FilteredBPM,
			})
		}
	}
}

// FilteredIR returns the current filtered infrared value.
func (p *Pipeline) FilteredIR() float64 { return p.filter.Value() }

// HeartRate returns the latest accepted instantaneous and smoothed rates.
func (p *Pipeline) HeartRate() (instant, filtered float64) { return p.estimator.HeartRate() }

// Samples returns how many samples reached the estimator.
func (p *Pipeline) Samples() int { return p.estimator.SampleIndex() }

// Persisted returns how many samples the sink accepted.
func (p *Pipeline) Persisted() int64 { return p.persisted }

// Stats returns the counters this pipeline updates.
func (p *Pipeline) Stats() *monitoring.Stats { return p.stats }

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }
