// Package publish forwards heart-rate estimates to NATS subscribers.
package publish

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/banshee-data/pulse.report/internal/monitoring"
	"github.com/banshee-data/pulse.report/internal/ppg"
	"github.com/banshee-data/pulse.report/internal/timeutil"
)

// DefaultSubject is the subject heart-rate messages are published on.
const DefaultSubject = "pulse.hr"

// Publisher is the part of *nats.Conn the reporter uses.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Connect dials a NATS server, reconnecting forever once connected.
func Connect(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(
		url,
		nats.Name(name),
		nats.Timeout(3*time.Second),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				monitoring.Warnf("nats disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			monitoring.Logf("nats reconnected to %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats %s: %w", url, err)
	}
	return nc, nil
}

// Message is the JSON payload of a heart-rate message.
type Message struct {
	SessionID       string  `json:"session_id,omitempty"`
	Ts              int64   `json:"ts"` // unix milliseconds
	SampleIndex     int     `json:"sample_index"`
	IntervalSamples int     `json:"interval_samples"`
	InstantBPM      float64 `json:"instant_bpm"`
	FilteredBPM     float64 `json:"filtered_bpm"`
}

// NATSReporter publishes every reported estimate. Publish failures are
// logged and counted and never reach the pipeline.
type NATSReporter struct {
	pub       Publisher
	subject   string
	sessionID string
	clock     timeutil.Clock
	failures  atomic.Int64
}

// NewNATSReporter returns a reporter publishing on subject, or
// DefaultSubject when subject is empty.
func NewNATSReporter(pub Publisher, subject, sessionID string, clock timeutil.Clock) *NATSReporter {
	if subject == "" {
		subject = DefaultSubject
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &NATSReporter{pub: pub, subject: subject, sessionID: sessionID, clock: clock}
}

func (r *NATSReporter) ReportHeartRate(hr ppg.HeartRate) {
	b, err := json.Marshal(Message{
		SessionID:       r.sessionID,
		Ts:              r.clock.Now().UnixMilli(),
		SampleIndex:     hr.SampleIndex,
		IntervalSamples: hr.IntervalSamples,
		InstantBPM:      hr.InstantBPM,
		FilteredBPM:     hr.FilteredBPM,
	})
	if err == nil {
		err = r.pub.Publish(r.subject, b)
	}
	if err != nil {
		r.failures.Add(1)
		monitoring.Warnf("heart-rate publish on %s: %v", r.subject, err)
	}
}

// Subject returns the subject messages are published on.
func (r *NATSReporter) Subject() string { return r.subject }

// Failures returns the number of estimates that could not be published.
func (r *NATSReporter) Failures() int64 { return r.failures.Load() }
