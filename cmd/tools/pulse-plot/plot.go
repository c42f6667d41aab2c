package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/banshee-data/pulse.report/internal/db"
	"github.com/banshee-data/pulse.report/internal/debugroutes"
	"github.com/banshee-data/pulse.report/internal/fsutil"
	"github.com/banshee-data/pulse.report/internal/httputil"
	"github.com/banshee-data/pulse.report/internal/report"
)

// plotFile renders the waveform in inPath as a PNG at outPath and returns
// the number of samples plotted.
func plotFile(inPath, outPath string, rate, threshold float64) (int, error) {
	values, err := report.ReadWaveformFile(fsutil.OSFileSystem{}, inPath)
	if err != nil {
		return 0, err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", outPath, err)
	}
	cfg := report.WaveformPlot{Title: inPath, SampleRateHz: rate, Threshold: threshold}
	if err := report.WriteWaveformPNG(f, values, cfg); err != nil {
		f.Close()
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, err
	}
	return len(values), nil
}

// summarizeSession summarises the instant heart rates of session id, or of
// the most recent session when id is empty. A chart is written to chartPath
// when it is set.
func summarizeSession(store *db.DB, id, chartPath string) (db.Session, report.Summary, error) {
	var s db.Session
	if id == "" {
		latest, err := store.Sessions(1)
		if err != nil {
			return s, report.Summary{}, err
		}
		if len(latest) == 0 {
			return s, report.Summary{}, db.ErrSessionNotFound
		}
		s = latest[0]
	} else {
		got, err := store.GetSession(id)
		if err != nil {
			return s, report.Summary{}, err
		}
		s = *got
	}

	records, err := store.RecentHeartRates(s.ID, 0)
	if err != nil {
		return s, report.Summary{}, err
	}

	if chartPath != "" {
		f, err := os.Create(chartPath)
		if err != nil {
			return s, report.Summary{}, fmt.Errorf("failed to create %s: %w", chartPath, err)
		}
		err = report.HeartRateChart(f, "Session "+s.ID, records)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return s, report.Summary{}, err
		}
	}

	return s, report.Summarize(report.InstantBPM(records)), nil
}

func sessionState(s db.Session) string {
	if s.Running() {
		return "running"
	}
	return s.Outcome
}

// fetchStatus reads /debug/pipeline from a running pulse instance.
func fetchStatus(ctx context.Context, c httputil.Client, baseURL string) (debugroutes.PipelineStatus, error) {
	var status debugroutes.PipelineStatus
	url := strings.TrimSuffix(baseURL, "/") + "/debug/pipeline"
	if err := httputil.GetJSON(ctx, c, url, &status); err != nil {
		return status, err
	}
	return status, nil
}

func formatStatus(s debugroutes.PipelineStatus) string {
	hr := "no heart rate yet"
	if s.Stats.Accepted > 0 {
		hr = fmt.Sprintf("HR ≈ %.1f bpm", s.Stats.LastBPM)
	}
	return fmt.Sprintf("pulse %s session=%s samples=%d malformed=%d overflows=%d %s",
		s.Version, s.SessionID, s.Stats.Samples, s.Stats.Malformed, s.Stats.Overflows, hr)
}
