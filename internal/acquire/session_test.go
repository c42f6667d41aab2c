package acquire

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/banshee-data/pulse.report/internal/fsutil"
	"github.com/banshee-data/pulse.report/internal/monitoring"
	"github.com/banshee-data/pulse.report/internal/ppg"
	"github.com/banshee-data/pulse.report/internal/serialport"
	"github.com/banshee-data/pulse.report/internal/sink"
	"github.com/banshee-data/pulse.report/internal/testutil"
	"github.com/banshee-data/pulse.report/internal/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionFixture struct {
	port     *serialport.TestableSerialPort
	fs       *fsutil.MemoryFileSystem
	sinkOpen int
	started  int
	session  *Session
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	testutil.MuteLogs(t)

	f := &sessionFixture{
		port: serialport.NewTestableSerialPort(),
		fs:   fsutil.NewMemoryFileSystem(),
	}
	f.port.EOFWhenDrained = true

	f.session = &Session{
		OpenSource: func() (SourceCloser, error) { return f.port, nil },
		OpenSink: func() (SinkCloser, error) {
			f.sinkOpen++
			return sink.OpenCSV(f.fs, "/ir.csv", sink.Options{})
		},
		Config:       ppg.DefaultConfig(),
		Stats:        &monitoring.Stats{},
		Clock:        timeutil.NewMockClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		PollInterval: 10 * time.Millisecond,
		Started:      func() { f.started++ },
	}
	return f
}

func TestSession_RunToExhaustion(t *testing.T) {
	f := newSessionFixture(t)
	f.port.QueueRead([]byte("100,200\r\n100,205\r\n100,500\r\n"))

	out := f.session.Run(context.Background())

	require.NoError(t, out.Err)
	assert.Equal(t, StopSourceExhausted, out.Reason)
	assert.EqualValues(t, 3, out.Samples)
	assert.Equal(t, 1, f.started)
	assert.True(t, f.port.Closed)

	data, err := f.fs.ReadFile("/ir.csv")
	require.NoError(t, err)
	assert.Equal(t, "40.000000\n73.000000\n158.400000\n", string(data))

	assert.EqualValues(t, 3, f.session.Stats.Snapshot().Samples)
}

func TestSession_SourceOpenFailure(t *testing.T) {
	f := newSessionFixture(t)
	busy := errors.New("device busy")
	f.session.OpenSource = func() (SourceCloser, error) { return nil, busy }

	out := f.session.Run(context.Background())

	assert.Equal(t, StopOpenError, out.Reason)
	assert.True(t, out.Fatal())
	assert.ErrorIs(t, out.Err, busy)
	assert.Zero(t, f.sinkOpen, "sink must not be opened without a source")
	assert.Zero(t, f.started)
}

func TestSession_SinkOpenFailureClosesSource(t *testing.T) {
	f := newSessionFixture(t)
	denied := errors.New("permission denied")
	f.fs.FailOpen("/ir.csv", denied)

	out := f.session.Run(context.Background())

	assert.Equal(t, StopOpenError, out.Reason)
	assert.ErrorIs(t, out.Err, denied)
	assert.True(t, f.port.Closed)
	assert.Zero(t, f.port.ReadCalls)
}

func TestSession_InvalidConfig(t *testing.T) {
	f := newSessionFixture(t)
	f.session.Config.SampleRateHz = 0

	out := f.session.Run(context.Background())

	assert.Equal(t, StopOpenError, out.Reason)
	assert.ErrorIs(t, out.Err, ppg.ErrInvalidConfig)
	assert.True(t, f.port.Closed)
}

func TestSession_SinkWriteFailure(t *testing.T) {
	f := newSessionFixture(t)
	f.port.QueueRead([]byte("100,200\r\n"))
	f.port.QueueRead([]byte("100,205\r\n"))

	full := errors.New("no space left on device")
	calls := 0
	f.session.Started = func() {
		calls++
	}
	f.session.Clock.(*timeutil.MockClock).OnSleep(func(int, time.Duration) {
		f.fs.FailWrites("/ir.csv", full)
	})

	out := f.session.Run(context.Background())

	assert.Equal(t, StopSinkError, out.Reason)
	assert.True(t, out.Fatal())
	assert.ErrorIs(t, out.Err, full)
	assert.EqualValues(t, 1, out.Samples)
	assert.True(t, f.port.Closed)
	assert.Equal(t, 1, calls)

	data, _ := f.fs.ReadFile("/ir.csv")
	assert.Equal(t, "40.000000\n", string(data), "only complete records are persisted")
}

func TestSession_CloseErrorsJoined(t *testing.T) {
	f := newSessionFixture(t)
	f.port.QueueRead([]byte("100,200\r\n"))
	closeErr := errors.New("close failed")
	f.port.CloseError = closeErr

	out := f.session.Run(context.Background())

	assert.Equal(t, StopSourceExhausted, out.Reason, "close errors do not change the reason")
	assert.ErrorIs(t, out.Err, closeErr)
}

func TestSession_Cancelled(t *testing.T) {
	f := newSessionFixture(t)
	f.port.EOFWhenDrained = false

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.session.Clock.(*timeutil.MockClock).OnSleep(func(n int, _ time.Duration) {
		if n == 5 {
			cancel()
		}
	})

	out := f.session.Run(ctx)

	assert.Equal(t, StopCancelled, out.Reason)
	assert.NoError(t, out.Err)
	assert.True(t, f.port.Closed)
}

func TestSession_ReportsHeartRate(t *testing.T) {
	f := newSessionFixture(t)

	var frames []byte
	for i := range 400 {
		ir := "0"
		if i%80 < 5 {
			ir = "100"
		}
		frames = append(frames, []byte("100,"+ir+"\r\n")...)
	}
	f.port.QueueRead(frames)

	var reports []ppg.HeartRate
	f.session.Reporter = ppg.ReporterFunc(func(hr ppg.HeartRate) { reports = append(reports, hr) })
	f.session.ChunkSize = 64

	out := f.session.Run(context.Background())

	require.NoError(t, out.Err)
	require.NotEmpty(t, reports)
	for _, hr := range reports {
		assert.InDelta(t, 75.0, hr.InstantBPM, 1e-9)
	}
	assert.False(t, f.session.Stats.Snapshot().LastBPMAt.IsZero(), "stats timestamp comes from the session clock")
}
