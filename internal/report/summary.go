// Package report summarises and renders recorded sessions: heart-rate
// statistics, waveform plots and interactive heart-rate charts.
package report

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/pulse.report/internal/db"
)

// Summary describes a set of heart-rate estimates in bpm.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
}

// Summarize computes the statistics of values. An empty input yields the
// zero Summary; a single value has zero spread.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	s := Summary{
		Count:  len(sorted),
		Mean:   stat.Mean(sorted, nil),
		Min:    floats.Min(sorted),
		Max:    floats.Max(sorted),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
	}
	if len(sorted) > 1 {
		s.StdDev = stat.StdDev(sorted, nil)
	}
	return s
}

func (s Summary) String() string {
	if s.Count == 0 {
		return "no heart-rate estimates"
	}
	return fmt.Sprintf("%d estimates: mean %.1f bpm (sd %.1f), median %.1f, range %.1f-%.1f",
		s.Count, s.Mean, s.StdDev, s.Median, s.Min, s.Max)
}

// InstantBPM extracts the instantaneous rates of records.
func InstantBPM(records []db.HeartRateRecord) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = r.InstantBPM
	}
	return out
}
