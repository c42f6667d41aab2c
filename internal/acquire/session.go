package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/banshee-data/pulse.report/internal/monitoring"
	"github.com/banshee-data/pulse.report/internal/ppg"
	"github.com/banshee-data/pulse.report/internal/timeutil"
)

// SourceCloser is a Source that owns a resource.
type SourceCloser interface {
	Source
	io.Closer
}

// SinkCloser is a sample sink that owns a resource.
type SinkCloser interface {
	ppg.SampleSink
	io.Closer
}

// Session is one scoped acquisition run: it opens the source and the sink,
// runs a Loop over a fresh pipeline and releases both on every exit path.
type Session struct {
	OpenSource func() (SourceCloser, error)
	OpenSink   func() (SinkCloser, error)

	Config   ppg.Config
	Reporter ppg.HeartRateReporter
	Stats    *monitoring.Stats
	Clock    timeutil.Clock

	ChunkSize    int
	PollInterval time.Duration

	// Started is called once the source and sink are open, before the
	// first read.
	Started func()
}

// Run performs the session. Errors closing the sink or source are joined
// into Outcome.Err without changing Outcome.Reason.
func (s *Session) Run(ctx context.Context) (out Outcome) {
	src, err := s.OpenSource()
	if err != nil {
		return Outcome{Reason: StopOpenError, Err: fmt.Errorf("failed to open source: %w", err)}
	}
	defer func() {
		if err := src.Close(); err != nil {
			out.Err = errors.Join(out.Err, fmt.Errorf("failed to close source: %w", err))
		}
	}()

	snk, err := s.OpenSink()
	if err != nil {
		return Outcome{Reason: StopOpenError, Err: fmt.Errorf("failed to open sink: %w", err)}
	}
	defer func() {
		if err := snk.Close(); err != nil {
			out.Err = errors.Join(out.Err, fmt.Errorf("failed to close sink: %w", err))
		}
	}()

	opts := []ppg.Option{ppg.WithStats(s.Stats)}
	if s.Reporter != nil {
		opts = append(opts, ppg.WithReporter(s.Reporter))
	}
	if s.Clock != nil {
		opts = append(opts, ppg.WithNow(s.Clock.Now))
	}

	pipeline, err := ppg.NewPipeline(s.Config, snk, opts...)
	if err != nil {
		return Outcome{Reason: StopOpenError, Err: err}
	}

	if s.Started != nil {
		s.Started()
	}

	loop := &Loop{
		Source:       src,
		Pipeline:     pipeline,
		Clock:        s.Clock,
		ChunkSize:    s.ChunkSize,
		PollInterval: s.PollInterval,
	}
	out = loop.Run(ctx)
	monitoring.Logf("acquisition stopped: %s", out)
	return out
}
