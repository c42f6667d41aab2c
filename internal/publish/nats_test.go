package publish

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pulse.report/internal/ppg"
	"github.com/banshee-data/pulse.report/internal/testutil"
	"github.com/banshee-data/pulse.report/internal/timeutil"
)

var _ Publisher = (*nats.Conn)(nil)

type published struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	msgs []published
	err  error
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{subject, append([]byte(nil), data...)})
	return nil
}

func TestNATSReporter_Publishes(t *testing.T) {
	pub := &fakePublisher{}
	clock := timeutil.NewMockClock(time.UnixMilli(1772355600123))
	r := NewNATSReporter(pub, "", "abc", clock)

	var reporter ppg.HeartRateReporter = r
	reporter.ReportHeartRate(ppg.HeartRate{SampleIndex: 160, IntervalSamples: 80, InstantBPM: 75, FilteredBPM: 38.25})

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, DefaultSubject, pub.msgs[0].subject)
	assert.Equal(t, DefaultSubject, r.Subject())

	var got Message
	require.NoError(t, json.Unmarshal(pub.msgs[0].data, &got))
	assert.Equal(t, Message{
		SessionID:       "abc",
		Ts:              1772355600123,
		SampleIndex:     160,
		IntervalSamples: 80,
		InstantBPM:      75,
		FilteredBPM:     38.25,
	}, got)
}

func TestNATSReporter_CustomSubject(t *testing.T) {
	pub := &fakePublisher{}
	r := NewNATSReporter(pub, "ward.bed7.hr", "", nil)

	r.ReportHeartRate(ppg.HeartRate{InstantBPM: 60})

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "ward.bed7.hr", pub.msgs[0].subject)
	assert.NotContains(t, string(pub.msgs[0].data), "session_id")
}

func TestNATSReporter_FailuresAreLogged(t *testing.T) {
	logs := testutil.CaptureLogs(t)
	pub := &fakePublisher{err: nats.ErrConnectionClosed}
	r := NewNATSReporter(pub, "", "abc", nil)

	r.ReportHeartRate(ppg.HeartRate{InstantBPM: 60})
	r.ReportHeartRate(ppg.HeartRate{InstantBPM: 61})

	assert.EqualValues(t, 2, r.Failures())
	assert.Equal(t, 2, logs.Count("heart-rate publish on pulse.hr"))
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect("nats://127.0.0.1:1", "pulse-test")
	assert.ErrorContains(t, err, "failed to connect to nats")
}
