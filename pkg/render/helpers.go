package render

import (
	"fmt"
	"time"

	"go-hep.org/x/hep/hbook"
	"go-hep.org/x/hep/hplot"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"

	"github.com/richiMarchi/netlab/pkg/metrics"
)

// Horizontal grid lines only.
func plotterGrid() *plotter.Grid {
	g := plotter.NewGrid()
	g.Vertical.Color = nil
	return g
}

// percentTicks appends a percent sign to every labelled tick.
type percentTicks struct {
	plot.Ticker
}

func (t percentTicks) Ticks(min, max float64) []plot.Tick {
	ticks := t.Ticker.Ticks(min, max)
	for i := range ticks {
		if ticks[i].Label != "" {
			ticks[i].Label += "%"
		}
	}
	return ticks
}

// statsTitle puts the mean and standard deviation under the figure title.
func statsTitle(title string, s metrics.Stats, unit string) string {
	if unit != "" {
		unit = " " + unit
	}
	return fmt.Sprintf("%s\nmean = %.1f%s, std = %.2f%s", title, s.Mean, unit, s.Std, unit)
}

// addPercentHistogram draws h with percent heights and, when fit is valid,
// the matching normal curve.
func addPercentHistogram(p *plot.Plot, h metrics.Histogram, fit *metrics.Normal) {
	hist := hbook.NewH1D(len(h.Counts), h.Min(), h.Max())
	for i, c := range h.Centers() {
		if h.Percent[i] > 0 {
			hist.Fill(c, h.Percent[i])
		}
	}
	p.Add(hplot.NewH1D(hist))
	p.Y.Tick.Marker = percentTicks{Ticker: p.Y.Tick.Marker}
	p.Y.Min = 0

	if fit == nil || !fit.Valid() {
		return
	}
	width := h.BinWidth()
	curve := plotter.NewFunction(func(x float64) float64 { return fit.Percent(x, width) })
	curve.XMin = h.Min()
	curve.XMax = h.Max()
	curve.Samples = 200
	curve.Color = plotutil.Color(1)
	curve.Width = 2
	p.Add(curve)
	p.Legend.Add(fmt.Sprintf("N(%.1f, %.2f)", fit.Mu, fit.Sigma), curve)
	p.Legend.Top = true
}

// wallClock maps Unix-second X values to HH:MM:SS ticks.
func (r *Renderer) wallClock(p *plot.Plot) {
	loc := r.cfg.Location
	p.X.Tick.Marker = plot.TimeTicks{
		Ticker: hplot.Ticks{N: r.cfg.Ticks},
		Format: "15:04:05",
		Time: func(t float64) time.Time {
			sec := int64(t)
			return time.Unix(sec, int64((t-float64(sec))*1e9)).In(loc)
		},
	}
}
