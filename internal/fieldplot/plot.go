// Package fieldplot renders smoothing convergence and field profiles as PNG
// charts.
package fieldplot

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/emfield/internal/security"
)

// ConvergencePlotter records per-pass squared errors for one or more
// smoothing runs and plots log10(error) against pass number.
type ConvergencePlotter struct {
	mu        sync.Mutex
	outputDir string
	series    map[string][]plotter.XY
}

// NewConvergencePlotter creates a plotter writing into outputDir.
func NewConvergencePlotter(outputDir string) (*ConvergencePlotter, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	return &ConvergencePlotter{outputDir: outputDir, series: make(map[string][]plotter.XY)}, nil
}

// Recorder returns a progress callback that appends to the named series.
// It matches smooth.Options.Progress.
func (cp *ConvergencePlotter) Recorder(name string) func(pass int, sqErr float64) {
	return func(pass int, sqErr float64) {
		cp.Record(name, pass, sqErr)
	}
}

// Record appends one pass. Non-positive errors have no logarithm and are
// skipped.
func (cp *ConvergencePlotter) Record(name string, pass int, sqErr float64) {
	if !(sqErr > 0) {
		return
	}
	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.series[name] = append(cp.series[name], plotter.XY{X: float64(pass), Y: math.Log10(sqErr)})
}

// SampleCount returns the number of recorded passes across all series.
func (cp *ConvergencePlotter) SampleCount() int {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	n := 0
	for _, s := range cp.series {
		n += len(s)
	}
	return n
}

// Save writes convergence.png and returns its path. With nothing recorded
// it writes nothing and returns "".
func (cp *ConvergencePlotter) Save() (string, error) {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	if len(cp.series) == 0 {
		return "", nil
	}

	p := plot.New()
	p.Title.Text = "Smoothing convergence"
	p.X.Label.Text = "Pass"
	p.Y.Label.Text = "log10(squared error)"

	names := make([]string, 0, len(cp.series))
	for name := range cp.series {
		names = append(names, name)
	}
	sort.Strings(names)
	colors := generateColors(len(names))
	for i, name := range names {
		if err := addLine(p, name, plotter.XYs(cp.series[name]), colors[i]); err != nil {
			return "", err
		}
	}
	placeLegend(p)

	file := filepath.Join(cp.outputDir, "convergence.png")
	if err := p.Save(14*vg.Inch, 6*vg.Inch, file); err != nil {
		return "", fmt.Errorf("save convergence plot: %w", err)
	}
	return file, nil
}

// ProfilePath returns the file a profile plot of the named field is
// written to, beside the convergence plot.
func (cp *ConvergencePlotter) ProfilePath(name string) string {
	return filepath.Join(cp.outputDir, security.SanitizeFilename(name)+"_profile.png")
}

// SaveProfile plots the three components of pts against distance along
// the line and writes the PNG to file.
func SaveProfile(file, title string, pts []ProfilePoint) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Distance"
	p.Y.Label.Text = "Field (V/m)"

	comps := [3]plotter.XYs{}
	for _, pt := range pts {
		if !pt.OK {
			continue
		}
		comps[0] = append(comps[0], plotter.XY{X: pt.S, Y: pt.E.X})
		comps[1] = append(comps[1], plotter.XY{X: pt.S, Y: pt.E.Y})
		comps[2] = append(comps[2], plotter.XY{X: pt.S, Y: pt.E.Z})
	}
	if len(comps[0]) == 0 {
		return fmt.Errorf("profile %q has no points inside the field", title)
	}
	colors := generateColors(3)
	for i, label := range []string{"Ex", "Ey", "Ez"} {
		if err := addLine(p, label, comps[i], colors[i]); err != nil {
			return err
		}
	}
	placeLegend(p)

	if err := p.Save(14*vg.Inch, 6*vg.Inch, file); err != nil {
		return fmt.Errorf("save profile plot: %w", err)
	}
	return nil
}

func addLine(p *plot.Plot, label string, pts plotter.XYs, c color.Color) error {
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = c
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add(label, line)
	return nil
}

func placeLegend(p *plot.Plot) {
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
}

// generateColors spreads n colours evenly around the hue circle.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		r, g, b := hslToRGB(float64(i)/float64(n), 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

func hslToRGB(h, s, l float64) (r, g, b uint8) {
	if s == 0 {
		v := uint8(l * 255)
		return v, v, v
	}
	q := l + s - l*s
	if l < 0.5 {
		q = l * (1 + s)
	}
	p := 2*l - q
	return uint8(hueToRGB(p, q, h+1.0/3.0) * 255),
		uint8(hueToRGB(p, q, h) * 255),
		uint8(hueToRGB(p, q, h-1.0/3.0) * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
