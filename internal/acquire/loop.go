// Package acquire drives a ppg.Pipeline from a byte source.
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

// Loop defaults for the sensor link.
const (
	DefaultChunkSize    = 256
	DefaultPollInterval = 10 * time.Millisecond
)

// Source is a byte source with a bounded wait. A read that returns (0, nil)
// timed out without data. io.EOF means a finite source is exhausted; any
// other error is fatal.
type Source interface {
	Read(p []byte) (int, error)
}

// StopReason says why a loop returned.
type StopReason int

const (
	StopCancelled StopReason = iota
	StopSourceExhausted
	StopSourceError
	StopSinkError
	StopOpenError
)

func (r StopReason) String() string {
	switch r {
	case StopCancelled:
		return "cancelled"
	case StopSourceExhausted:
		return "source_exhausted"
	case StopSourceError:
		return "source_error"
	case StopSinkError:
		return "sink_error"
	case StopOpenError:
		return "open_error"
	default:
		return "unknown"
	}
}

// Outcome is the result of a run.
type Outcome struct {
	Reason  StopReason
	Samples int64
	Err     error
}

// Fatal reports whether the run ended because of a failure rather than a
// requested stop or the end of a finite source.
func (o Outcome) Fatal() bool {
	switch o.Reason {
	case StopSourceError, StopSinkError, StopOpenError:
		return true
	default:
		return false
	}
}

func (o Outcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("%s after %d samples: %v", o.Reason, o.Samples, o.Err)
	}
	return fmt.Sprintf("%s after %d samples", o.Reason, o.Samples)
}

// Loop reads chunks from Source and feeds them to Pipeline, sleeping
// PollInterval between reads. It runs on the caller's goroutine.
type Loop struct {
	Source       Source
	Pipeline     *ppg.Pipeline
	Clock        timeutil.Clock
	ChunkSize    int
	PollInterval time.Duration
}

// Run loops until ctx is cancelled, the source is exhausted or a fatal
// error occurs. Cancellation is observed between reads.
func (l *Loop) Run(ctx context.Context) Outcome {
	clock := l.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	chunk := l.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	poll := l.PollInterval
	if poll < 0 {
		poll = 0
	}

	stats := l.Pipeline.Stats()
	buf := make([]byte, chunk)

	for {
		if err := ctx.Err(); err != nil {
			return l.outcome(StopCancelled, nil)
		}

		n, readErr := l.Source.Read(buf)
		if n > 0 {
			if err := l.Pipeline.Feed(buf[:n]); err != nil {
				return l.outcome(StopSinkError, err)
			}
		} else if readErr == nil {
			stats.AddEmptyRead()
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				monitoring.Logf("source exhausted after %d samples", l.Pipeline.Samples())
				return l.outcome(StopSourceExhausted, nil)
			}
			return l.outcome(StopSourceError, fmt.Errorf("failed to read source: %w", readErr))
		}

		clock.Sleep(poll)
	}
}

func (l *Loop) outcome(reason StopReason, err error) Outcome {
	return Outcome{Reason: reason, Samples: l.Pipeline.Persisted(), Err: err}
}
