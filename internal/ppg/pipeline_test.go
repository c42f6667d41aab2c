package ppg

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/banshee-data/pulse.report/internal/monitoring"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	values []float64
	failAt int
	err    error
}

func (s *recordingSink) Append(v float64) error {
	if s.err != nil && len(s.values) == s.failAt {
		return s.err
	}
	s.values = append(s.values, v)
	return nil
}

func newTestPipeline(t *testing.T, cfg Config, opts ...Option) (*Pipeline, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	p, err := NewPipeline(cfg, sink, opts...)
	require.NoError(t, err)
	return p, sink
}

func muteLogs(t *testing.T) {
	t.Helper()
	saved := monitoring.CurrentLoggers()
	monitoring.SetLogger(nil)
	t.Cleanup(saved.Restore)
}

func TestPipeline_EndToEndRecurrence(t *testing.T) {
	muteLogs(t)
	cfg := DefaultConfig()
	cfg.PeakThreshold = 10
	cfg.IRAlpha = 0.2
	p, sink := newTestPipeline(t, cfg)

	for _, line := range []string{"100,200\n", "100,205\n", "100,500\n"} {
		require.NoError(t, p.Feed([]byte(line)))
	}

	var want []float64
	var f float64
	for _, ir := range []float64{200, 205, 500} {
		f = f + 0.2*(ir-f)
		want = append(want, f)
	}
	if diff := cmp.Diff(want, sink.values); diff != "" {
		t.Errorf("sunk values mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 3, p.Samples())
	assert.EqualValues(t, 3, p.Persisted())
	assert.Equal(t, want[2], p.FilteredIR())
}

func TestPipeline_SplitChunksMatchWholeInput(t *testing.T) {
	muteLogs(t)
	input := "100,200\r\n100,205\r\n100,500\r\n90,12\r\n"

	whole, wholeSink := newTestPipeline(t, DefaultConfig())
	require.NoError(t, whole.Feed([]byte(input)))

	split, splitSink := newTestPipeline(t, DefaultConfig())
	for i := 0; i < len(input); i += 3 {
		end := min(i+3, len(input))
		require.NoError(t, split.Feed([]byte(input[i:end])))
	}
	if diff := cmp.Diff(wholeSink.values, splitSink.values); diff != "" {
		t.Errorf("chunked feed differs (-whole +split):\n%s", diff)
	}
}

func TestPipeline_MalformedSkip(t *testing.T) {
	muteLogs(t)
	stats := &monitoring.Stats{}
	p, sink := newTestPipeline(t, DefaultConfig(), WithStats(stats))

	require.NoError(t, p.Feed([]byte("100,200\ngarbage\n100,200\n")))

	assert.Len(t, sink.values, 2)
	assert.Equal(t, 2, p.Samples(), "skipped line must not advance the estimator")
	snap := stats.Snapshot()
	assert.EqualValues(t, 3, snap.Lines)
	assert.EqualValues(t, 1, snap.Malformed)
	assert.EqualValues(t, 2, snap.Samples)
}

func TestPipeline_MalformedZero(t *testing.T) {
	muteLogs(t)
	cfg := DefaultConfig()
	cfg.Malformed = MalformedZero
	p, sink := newTestPipeline(t, cfg)

	require.NoError(t, p.Feed([]byte("100,200\ngarbage\n100,200xyz\n100,200;\n100,200 300\n")))

	require.Len(t, sink.values, 5)
	first := Smooth(0, 200, cfg.IRAlpha)
	assert.Equal(t, first, sink.values[0])
	want := Smooth(first, 0, cfg.IRAlpha)
	assert.Equal(t, want, sink.values[1])
	for i := 2; i < 5; i++ {
		want = Smooth(want, 200, cfg.IRAlpha)
		assert.Equal(t, want, sink.values[i], "trailing junk keeps the scanned ir value (line %d)", i+1)
	}
}

func TestPipeline_OverflowReportedAndCounted(t *testing.T) {
	var logs []string
	saved := monitoring.CurrentLoggers()
	monitoring.SetLogger(func(format string, v ...interface{}) {
		logs = append(logs, fmt.Sprintf(format, v...))
	})
	defer saved.Restore()

	cfg := DefaultConfig()
	cfg.MaxLineBytes = 16
	stats := &monitoring.Stats{}
	p, sink := newTestPipeline(t, cfg, WithStats(stats))

	require.NoError(t, p.Feed([]byte(strings.Repeat("9", 40))))
	require.NoError(t, p.Feed([]byte(strings.Repeat("9", 40)+"\n100,200\n")))

	assert.Len(t, sink.values, 1)
	assert.EqualValues(t, 1, stats.Snapshot().Overflows)
	overflowLogs := 0
	for _, l := range logs {
		if strings.Contains(l, "overflow") {
			overflowLogs++
		}
	}
	assert.Equal(t, 1, overflowLogs)
}

func TestPipeline_SinkErrorIsFatal(t *testing.T) {
	muteLogs(t)
	diskFull := errors.New("disk full")
	sink := &recordingSink{failAt: 1, err: diskFull}
	p, err := NewPipeline(DefaultConfig(), sink)
	require.NoError(t, err)

	err = p.Feed([]byte("1,2\n3,4\n5,6\n"))
	require.ErrorIs(t, err, diskFull)
	assert.Len(t, sink.values, 1, "processing must stop at the failing sample")
	assert.EqualValues(t, 1, p.Persisted())
	assert.Equal(t, 2, p.Samples(), "the failing sample reached the estimator")
}

func TestPipeline_ReportsAcceptedHeartRate(t *testing.T) {
	muteLogs(t)
	cfg := DefaultConfig()
	var reports []HeartRate
	stats := &monitoring.Stats{}
	p, _ := newTestPipeline(t, cfg,
		WithStats(stats),
		WithReporter(ReporterFunc(func(hr HeartRate) { reports = append(reports, hr) })),
	)

	// Strong IR pulses every 80 samples; the filter lifts the first sample of
	// each pulse above the threshold.
	var sb strings.Builder
	for i := 0; i < 250; i++ {
		ir := 0
		if i%80 < 5 {
			ir = 1000
		}
		fmt.Fprintf(&sb, "500,%d\r\n", ir)
	}
	require.NoError(t, p.Feed([]byte(sb.String())))

	require.Len(t, reports, 3)
	bpm := 60 / (80.0 / cfg.SampleRateHz)
	for _, r := range reports {
		assert.Equal(t, 80, r.IntervalSamples)
		assert.Equal(t, bpm, r.InstantBPM)
	}
	inst, filt := p.HeartRate()
	assert.Equal(t, bpm, inst)
	assert.Equal(t, reports[2].FilteredBPM, filt)
	assert.EqualValues(t, 3, stats.Snapshot().Accepted)
	assert.EqualValues(t, 4, stats.Snapshot().Crossings)
}

func TestPipeline_InitialIR(t *testing.T) {
	muteLogs(t)
	p, sink := newTestPipeline(t, DefaultConfig(), WithInitialIR(100))
	require.NoError(t, p.ProcessLine("0,100"))
	assert.Equal(t, []float64{100}, sink.values)
}

func TestNewPipeline_Errors(t *testing.T) {
	bad := DefaultConfig()
	bad.IRAlpha = 1
	_, err := NewPipeline(bad, &recordingSink{})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewPipeline(DefaultConfig(), nil)
	require.Error(t, err)
}

func TestMultiReporter(t *testing.T) {
	var a, b int
	m := MultiReporter{
		ReporterFunc(func(HeartRate) { a++ }),
		nil,
		ReporterFunc(func(HeartRate) { b++ }),
	}
	m.ReportHeartRate(HeartRate{FilteredBPM: 60})
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)
}

func TestLogReporter(t *testing.T) {
	var got string
	saved := monitoring.CurrentLoggers()
	monitoring.SetLogger(func(format string, v ...interface{}) { got = fmt.Sprintf(format, v...) })
	defer saved.Restore()

	LogReporter{}.ReportHeartRate(HeartRate{FilteredBPM: 64.26})
	assert.Equal(t, "HR ≈ 64.3 bpm", got)
}
