package report

import (
	"bytes"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pulse.report/internal/db"
	"github.com/banshee-data/pulse.report/internal/fsutil"
)

func TestReadWaveformCSV(t *testing.T) {
	got, err := ReadWaveformCSV(strings.NewReader("40.000000\n73.000000\n\n158.400000\n"))
	require.NoError(t, err)
	assert.Equal(t, []float64{40, 73, 158.4}, got)
}

func TestReadWaveformCSV_InvalidLine(t *testing.T) {
	_, err := ReadWaveformCSV(strings.NewReader("40.000000\nforty\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReadWaveformFile(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("/ir.csv", []byte("1.500000\n2.500000\n"), 0o644))

	got, err := ReadWaveformFile(mfs, "/ir.csv")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2.5}, got)

	_, err = ReadWaveformFile(mfs, "/missing.csv")
	assert.True(t, errors.Is(err, fs.ErrNotExist), "got %v", err)
}

func TestPlotWaveform_Validation(t *testing.T) {
	_, err := PlotWaveform([]float64{1}, WaveformPlot{})
	assert.ErrorContains(t, err, "sample rate")

	_, err = PlotWaveform(nil, WaveformPlot{SampleRateHz: 100})
	assert.ErrorContains(t, err, "no samples")
}

func TestPlotWaveform_Axes(t *testing.T) {
	values := make([]float64, 201)
	for i := range values {
		values[i] = float64(i % 80)
	}
	p, err := PlotWaveform(values, WaveformPlot{Title: "session", SampleRateHz: 100, Threshold: 50})
	require.NoError(t, err)

	assert.Equal(t, "session", p.Title.Text)
	assert.InDelta(t, 0, p.X.Min, 1e-9)
	assert.InDelta(t, 2, p.X.Max, 1e-9, "201 samples at 100 Hz span two seconds")
	assert.InDelta(t, 79, p.Y.Max, 1e-9)
}

func TestWriteWaveformPNG(t *testing.T) {
	var buf bytes.Buffer
	err := WriteWaveformPNG(&buf, []float64{0, 10, 40, 10, 0}, WaveformPlot{SampleRateHz: 100})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG\r\n\x1a\n")), "output is not a PNG")
}

func TestHeartRateChart(t *testing.T) {
	records := []db.HeartRateRecord{
		{SampleIndex: 80, InstantBPM: 75, FilteredBPM: 22.5},
		{SampleIndex: 160, InstantBPM: 75, FilteredBPM: 38.25},
	}
	var buf bytes.Buffer
	require.NoError(t, HeartRateChart(&buf, "Session abc", records))

	html := buf.String()
	assert.Contains(t, html, "Session abc")
	assert.Contains(t, html, "estimates=2")
	assert.Contains(t, html, "echarts")
}
