package serialport

import (
	"bytes"
	"math"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/banshee-data/pulse.report/internal/timeutil"
)

// SimOptions configures a SimulatedPort.
type SimOptions struct {
	SampleRateHz float64
	HeartRateBPM float64
	// RedBase and IRBase are the DC levels of the two channels.
	RedBase float64
	IRBase  float64
	// IRAmplitude is the systolic peak height above IRBase.
	IRAmplitude float64
	// Noise is the peak amplitude of uniform noise added to each channel.
	Noise       float64
	Seed        uint64
	ReadTimeout time.Duration
	Clock       timeutil.Clock
}

func (o SimOptions) withDefaults() SimOptions {
	if o.SampleRateHz <= 0 {
		o.SampleRateHz = 100
	}
	if o.HeartRateBPM <= 0 {
		o.HeartRateBPM = 72
	}
	if o.IRAmplitude == 0 {
		o.IRAmplitude = 80
	}
	if o.RedBase == 0 {
		o.RedBase = 100
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = DefaultReadTimeout
	}
	if o.Clock == nil {
		o.Clock = timeutil.RealClock{}
	}
	return o
}

// SimulatedPort behaves like the sensor board: it emits one "red,ir\r\n"
// line per sample period, paced by its clock. A read with nothing due waits
// at most the read timeout and then returns (0, nil).
type SimulatedPort struct {
	mu      sync.Mutex
	opts    SimOptions
	rng     *rand.Rand
	start   time.Time
	emitted int64
	phase   float64
	pending bytes.Buffer
	closed  bool
}

// NewSimulatedPort starts a simulated sensor at the clock's current time.
func NewSimulatedPort(opts SimOptions) *SimulatedPort {
	opts = opts.withDefaults()
	return &SimulatedPort{
		opts:  opts,
		rng:   rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
		start: opts.Clock.Now(),
	}
}

func (s *SimulatedPort) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrPortClosed
	}

	if s.pending.Len() == 0 {
		s.generate()
	}
	if s.pending.Len() == 0 {
		wait := s.untilNext()
		if wait > s.opts.ReadTimeout {
			wait = s.opts.ReadTimeout
		}
		s.opts.Clock.Sleep(wait)
		s.generate()
	}
	if s.pending.Len() == 0 {
		return 0, nil
	}
	return s.pending.Read(p)
}

// Write accepts and discards commands.
func (s *SimulatedPort) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrPortClosed
	}
	return len(p), nil
}

func (s *SimulatedPort) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// SetReadTimeout sets the longest wait of an idle read.
func (s *SimulatedPort) SetReadTimeout(timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timeout > 0 {
		s.opts.ReadTimeout = timeout
	}
	return nil
}

// Emitted returns the number of samples generated so far.
func (s *SimulatedPort) Emitted() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emitted
}

// due is the number of samples whose timestamp has been reached; sample n
// is stamped n/fs seconds after start.
func (s *SimulatedPort) due() int64 {
	elapsed := s.opts.Clock.Since(s.start).Seconds()
	return int64(math.Floor(elapsed*s.opts.SampleRateHz+1e-9)) + 1
}

func (s *SimulatedPort) untilNext() time.Duration {
	next := time.Duration(float64(s.emitted) / s.opts.SampleRateHz * float64(time.Second))
	wait := next - s.opts.Clock.Since(s.start)
	if wait < 0 {
		return 0
	}
	return wait
}

func (s *SimulatedPort) generate() {
	var line []byte
	for due := s.due(); s.emitted < due; s.emitted++ {
		red, ir := s.next()
		line = strconv.AppendInt(line[:0], red, 10)
		line = append(line, ',')
		line = strconv.AppendInt(line, ir, 10)
		line = append(line, '\r', '\n')
		s.pending.Write(line)
	}
}

// next advances the cardiac phase by one sample and returns a pulse shaped
// as a systolic peak followed by a smaller dicrotic wave.
func (s *SimulatedPort) next() (red, ir int64) {
	s.phase += s.opts.HeartRateBPM / 60 / s.opts.SampleRateHz
	if s.phase >= 1 {
		s.phase -= 1
	}

	pulse := gauss(s.phase, 0.15, 0.05) + 0.1*gauss(s.phase, 0.45, 0.07)

	irValue := s.opts.IRBase + s.opts.IRAmplitude*pulse + s.noise()
	redValue := s.opts.RedBase + 0.6*s.opts.IRAmplitude*pulse + s.noise()

	return clampCount(redValue), clampCount(irValue)
}

func (s *SimulatedPort) noise() float64 {
	if s.opts.Noise == 0 {
		return 0
	}
	return s.opts.Noise * (2*s.rng.Float64() - 1)
}

func gauss(x, mu, sigma float64) float64 {
	z := (x - mu) / sigma
	return math.Exp(-0.5 * z * z)
}

func clampCount(v float64) int64 {
	if v < 0 {
		return 0
	}
	return int64(math.Round(v))
}
