package db

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/banshee-data/pulse.report/internal/monitoring"
	"github.com/banshee-data/pulse.report/internal/ppg"
	"github.com/banshee-data/pulse.report/internal/timeutil"
)

// HeartRateRecord is a stored heart-rate estimate.
type HeartRateRecord struct {
	SessionID       string    `json:"session_id"`
	SampleIndex     int       `json:"sample_index"`
	IntervalSamples int       `json:"interval_samples"`
	InstantBPM      float64   `json:"instant_bpm"`
	FilteredBPM     float64   `json:"filtered_bpm"`
	RecordedAt      time.Time `json:"recorded_at"`
}

// RecordHeartRate stores one accepted estimate for a session.
func (db *DB) RecordHeartRate(sessionID string, hr ppg.HeartRate, at time.Time) error {
	_, err := db.Exec(`
		INSERT INTO heart_rates
			(session_id, sample_index, interval_samples, instant_bpm, filtered_bpm, recorded_unix_nanos)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, hr.SampleIndex, hr.IntervalSamples, hr.InstantBPM, hr.FilteredBPM, at.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to record heart rate: %w", err)
	}
	return nil
}

// RecentHeartRates returns the last limit estimates of a session in sample
// order. A limit <= 0 returns all of them.
func (db *DB) RecentHeartRates(sessionID string, limit int) ([]HeartRateRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(`
		SELECT session_id, sample_index, interval_samples, instant_bpm, filtered_bpm, recorded_unix_nanos
		FROM (
			SELECT * FROM heart_rates WHERE session_id = ?
			ORDER BY sample_index DESC LIMIT ?
		)
		ORDER BY sample_index ASC`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query heart rates: %w", err)
	}
	defer rows.Close()

	var out []HeartRateRecord
	for rows.Next() {
		var (
			r  HeartRateRecord
			ns int64
		)
		if err := rows.Scan(&r.SessionID, &r.SampleIndex, &r.IntervalSamples, &r.InstantBPM, &r.FilteredBPM, &ns); err != nil {
			return nil, fmt.Errorf("failed to scan heart rate: %w", err)
		}
		r.RecordedAt = time.Unix(0, ns).UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query heart rates: %w", err)
	}
	return out, nil
}

// HeartRateRecorder stores every reported estimate under one session. A
// failed insert is logged and counted; it never stops acquisition.
type HeartRateRecorder struct {
	db        *DB
	sessionID string
	clock     timeutil.Clock
	failures  atomic.Int64
}

// NewHeartRateRecorder returns a recorder for sessionID. A nil clock uses
// the wall clock.
func NewHeartRateRecorder(db *DB, sessionID string, clock timeutil.Clock) *HeartRateRecorder {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &HeartRateRecorder{db: db, sessionID: sessionID, clock: clock}
}

func (r *HeartRateRecorder) ReportHeartRate(hr ppg.HeartRate) {
	if err := r.db.RecordHeartRate(r.sessionID, hr, r.clock.Now()); err != nil {
		r.failures.Add(1)
		monitoring.Warnf("heart-rate store: %v", err)
	}
}

// Failures returns the number of estimates that could not be stored.
func (r *HeartRateRecorder) Failures() int64 { return r.failures.Load() }

// SessionID returns the session the recorder writes to.
func (r *HeartRateRecorder) SessionID() string { return r.sessionID }
