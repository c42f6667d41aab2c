package monitoring

import (
	"math"
	"sync/atomic"
	"time"
)

// Stats counts what the pipeline has seen. The acquisition loop is the only
// writer; debug handlers read a Snapshot from other goroutines.
type Stats struct {
	bytes       atomic.Int64
	lines       atomic.Int64
	samples     atomic.Int64
	overflows   atomic.Int64
	malformed   atomic.Int64
	crossings   atomic.Int64
	refractory  atomic.Int64
	implausible atomic.Int64
	accepted    atomic.Int64
	emptyReads  atomic.Int64
	lastBPM     atomic.Uint64
	lastBPMAt   atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Bytes       int64     `json:"bytes"`
	Lines       int64     `json:"lines"`
	Samples     int64     `json:"samples"`
	Overflows   int64     `json:"overflows"`
	Malformed   int64     `json:"malformed"`
	Crossings   int64     `json:"crossings"`
	Refractory  int64     `json:"refractory"`
	Implausible int64     `json:"implausible"`
	Accepted    int64     `json:"accepted"`
	EmptyReads  int64     `json:"empty_reads"`
	LastBPM     float64   `json:"last_bpm"`
	LastBPMAt   time.Time `json:"last_bpm_at,omitzero"`
}

func (s *Stats) AddBytes(n int)     { s.bytes.Add(int64(n)) }
func (s *Stats) AddLine()           { s.lines.Add(1) }
func (s *Stats) AddSample()         { s.samples.Add(1) }
func (s *Stats) AddOverflows(n int) { s.overflows.Add(int64(n)) }
func (s *Stats) AddMalformed()      { s.malformed.Add(1) }
func (s *Stats) AddEmptyRead()      { s.emptyReads.Add(1) }

// AddCrossing records a rising-edge crossing that passed the refractory gate.
func (s *Stats) AddCrossing() { s.crossings.Add(1) }

// AddRefractory records a crossing ignored by the refractory gate.
func (s *Stats) AddRefractory() {
	s.crossings.Add(1)
	s.refractory.Add(1)
}

// AddImplausible records a peak whose heart rate fell outside the bounds.
func (s *Stats) AddImplausible() { s.implausible.Add(1) }

// SetHeartRate records an accepted smoothed heart rate.
func (s *Stats) SetHeartRate(bpm float64, at time.Time) {
	s.accepted.Add(1)
	s.lastBPM.Store(math.Float64bits(bpm))
	s.lastBPMAt.Store(at.UnixNano())
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() StatsSnapshot {
	snap := StatsSnapshot{
		Bytes:       s.bytes.Load(),
		Lines:       s.lines.Load(),
		Samples:     s.samples.Load(),
		Overflows:   s.overflows.Load(),
		Malformed:   s.malformed.Load(),
		Crossings:   s.crossings.Load(),
		Refractory:  s.refractory.Load(),
		Implausible: s.implausible.Load(),
		Accepted:    s.accepted.Load(),
		EmptyReads:  s.emptyReads.Load(),
		LastBPM:     math.Float64frombits(s.lastBPM.Load()),
	}
	if ns := s.lastBPMAt.Load(); ns != 0 {
		snap.LastBPMAt = time.Unix(0, ns).UTC()
	}
	return snap
}
