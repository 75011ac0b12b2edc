// Package render draws the lab reports as PDF figures with gonum/plot.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go-hep.org/x/hep/hplot"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgpdf"
	"k8s.io/klog/v2"
)

const AxisTicks = 10

// Config carries everything the figures depend on. It replaces any global
// plot state: every Renderer draws with its own copy.
type Config struct {
	OutputDir string
	Date      time.Time
	Width     vg.Length
	Height    vg.Length
	TitleSize vg.Length
	LabelSize vg.Length
	TickSize  vg.Length
	Ticks     int
	HistBins  int
	// Location used for wall-clock axes.
	Location *time.Location
}

func DefaultConfig(outputDir string) Config {
	return Config{
		OutputDir: outputDir,
		Date:      time.Now(),
		Width:     8 * vg.Inch,
		Height:    6 * vg.Inch,
		TitleSize: vg.Points(14),
		LabelSize: vg.Points(12),
		TickSize:  vg.Points(10),
		Ticks:     AxisTicks,
		HistBins:  10,
		Location:  time.Local,
	}
}

// Dir is the date-stamped directory the figures are written to.
func (c Config) Dir() string {
	return filepath.Join(c.OutputDir, c.Date.Format("2006-01-02"))
}

type figure struct {
	name string
	plot *plot.Plot
}

// Renderer builds figures and writes them out group by group. Figures of a
// group are kept until flush, then released.
type Renderer struct {
	cfg  Config
	open []figure
}

// New prepares the output directory.
func New(cfg Config) (*Renderer, error) {
	if cfg.Ticks <= 0 {
		cfg.Ticks = AxisTicks
	}
	if cfg.HistBins <= 0 {
		cfg.HistBins = 10
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if err := os.MkdirAll(cfg.Dir(), os.ModePerm); err != nil {
		return nil, fmt.Errorf("creating plot folder: %w", err)
	}
	return &Renderer{cfg: cfg}, nil
}

func (r *Renderer) Config() Config { return r.cfg }

// newFigure creates a plot tracked under name (without extension).
func (r *Renderer) newFigure(name, title, xLabel, yLabel string) (*plot.Plot, error) {
	p, err := plot.New()
	if err != nil {
		return nil, err
	}
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.X.Tick.Marker = hplot.Ticks{N: r.cfg.Ticks}
	p.Y.Tick.Marker = hplot.Ticks{N: r.cfg.Ticks}
	r.configureFontSizes(p)
	p.Add(plotterGrid())
	r.open = append(r.open, figure{name: name, plot: p})
	return p, nil
}

func (r *Renderer) configureFontSizes(p *plot.Plot) {
	p.Title.Font.Size = r.cfg.TitleSize
	p.X.Label.Font.Size = r.cfg.LabelSize
	p.Y.Label.Font.Size = r.cfg.LabelSize
	p.X.Tick.Label.Font.Size = r.cfg.TickSize
	p.Y.Tick.Label.Font.Size = r.cfg.TickSize
	p.Legend.Font.Size = r.cfg.TickSize
}

// flush writes every open figure to <dir>/<name>.pdf and releases them.
func (r *Renderer) flush() ([]string, error) {
	defer func() { r.open = nil }()
	written := make([]string, 0, len(r.open))
	for _, f := range r.open {
		path := filepath.Join(r.cfg.Dir(), f.name+".pdf")
		if err := savePDF(f.plot, r.cfg.Width, r.cfg.Height, path); err != nil {
			return written, err
		}
		klog.V(2).Infof("Wrote %s", path)
		written = append(written, path)
	}
	return written, nil
}

// discard releases open figures without writing them.
func (r *Renderer) discard() { r.open = nil }

func savePDF(p *plot.Plot, width, height vg.Length, path string) error {
	pdf := vgpdf.New(width, height)
	p.Draw(draw.New(pdf))

	w, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := pdf.WriteTo(w); err != nil {
		w.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return w.Close()
}
