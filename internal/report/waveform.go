package report

import (
	"bufio"
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/pulse.report/internal/fsutil"
)

// ReadWaveformCSV reads a sink file: one filtered IR value per line. Blank
// lines are ignored; any other unparsable line is an error.
func ReadWaveformCSV(r io.Reader) ([]float64, error) {
	var values []float64
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid value %q: %w", line, text, err)
		}
		values = append(values, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read waveform: %w", err)
	}
	return values, nil
}

// ReadWaveformFile reads a sink file from fs.
func ReadWaveformFile(fs fsutil.FileSystem, path string) ([]float64, error) {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open waveform %s: %w", path, err)
	}
	defer f.Close()
	return ReadWaveformCSV(f)
}

// WaveformPlot configures PlotWaveform.
type WaveformPlot struct {
	Title        string
	SampleRateHz float64
	// Threshold draws the peak-detection level when it is positive.
	Threshold float64
}

// PlotWaveform plots values against time in seconds.
func PlotWaveform(values []float64, cfg WaveformPlot) (*plot.Plot, error) {
	if cfg.SampleRateHz <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %v", cfg.SampleRateHz)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("no samples to plot")
	}

	p := plot.New()
	p.Title.Text = cfg.Title
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Filtered IR"

	pts := make(plotter.XYs, len(values))
	for i, v := range values {
		pts[i] = plotter.XY{X: float64(i) / cfg.SampleRateHz, Y: v}
	}
	wave, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	wave.Color = color.RGBA{R: 200, G: 30, B: 30, A: 255}
	wave.Width = vg.Points(1)
	p.Add(wave)
	p.Legend.Add("ir", wave)

	if cfg.Threshold > 0 {
		end := float64(len(values)-1) / cfg.SampleRateHz
		th, err := plotter.NewLine(plotter.XYs{{X: 0, Y: cfg.Threshold}, {X: end, Y: cfg.Threshold}})
		if err != nil {
			return nil, err
		}
		th.Color = color.Gray{Y: 100}
		th.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(th)
		p.Legend.Add("threshold", th)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// WriteWaveformPNG renders PlotWaveform as a 14x6 inch PNG.
func WriteWaveformPNG(w io.Writer, values []float64, cfg WaveformPlot) error {
	p, err := PlotWaveform(values, cfg)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(14*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("failed to render plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write plot: %w", err)
	}
	return nil
}
