package ppg

import "github.com/banshee-data/pulse.report/internal/monitoring"

// HeartRate is an accepted heart-rate estimate.
type HeartRate struct {
	SampleIndex     int     `json:"sample_index"`
	IntervalSamples int     `json:"interval_samples"`
	InstantBPM      float64 `json:"instant_bpm"`
	FilteredBPM     float64 `json:"filtered_bpm"`
}

// HeartRateReporter receives every accepted estimate. Reporting is a
// diagnostic side channel: implementations must not block the pipeline for
// long and cannot fail it.
type HeartRateReporter interface {
	ReportHeartRate(HeartRate)
}

// ReporterFunc adapts a function to HeartRateReporter.
type ReporterFunc func(HeartRate)

func (f ReporterFunc) ReportHeartRate(hr HeartRate) { f(hr) }

// MultiReporter fans an estimate out to every reporter in order.
type MultiReporter []HeartRateReporter

func (m MultiReporter) ReportHeartRate(hr HeartRate) {
	for _, r := range m {
		if r != nil {
			r.ReportHeartRate(hr)
		}
	}
}

// LogReporter prints the smoothed estimate through monitoring.Logf.
type LogReporter struct{}

func (LogReporter) ReportHeartRate(hr HeartRate) {
	monitoring.Logf("HR ≈ %.1f bpm", hr.FilteredBPM)
}
