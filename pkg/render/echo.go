package render

import (
	"fmt"

	"gonum.org/v1/plot/plotter"
	"k8s.io/klog/v2"

	"github.com/richiMarchi/netlab/pkg/metrics"
	"github.com/richiMarchi/netlab/pkg/timing"
)

// Echo is the analysed content of one echo timing log.
type Echo struct {
	Code     string
	Times    []int64 // ascending arrival times, ms
	Series   []metrics.Series
	Baseline bool // no normal fit is drawn for the baseline code
}

// EchoReport writes the throughput, response time and histogram figures of
// an echo log and returns the written files.
func (r *Renderer) EchoReport(e Echo) ([]string, error) {
	var written []string
	diffs := timing.Diffs(e.Times)
	diffStats := metrics.Describe(diffs)
	klog.Infof("%s: %d packets, response time μ=%.1f ms σ=%.2f ms", e.Code, len(e.Times), diffStats.Mean, diffStats.Std)

	for _, s := range e.Series {
		if err := r.throughputFigure(e.Code, s); err != nil {
			r.discard()
			return written, err
		}
	}
	files, err := r.flush()
	written = append(written, files...)
	if err != nil {
		return written, err
	}

	if len(diffs) > 0 {
		if err := r.responseTimeFigure(e.Code, diffs, diffStats); err != nil {
			r.discard()
			return written, err
		}
		if err := r.histogramFigure(e.Code+"-hist", "Frequency per response time ("+e.Code+")",
			"Response time (ms)", diffs, e.Baseline); err != nil {
			r.discard()
			return written, err
		}
	}
	for _, s := range e.Series {
		if len(s.Windows) == 0 {
			continue
		}
		name := fmt.Sprintf("%s-lim%d-hist", e.Code, s.Seconds)
		title := fmt.Sprintf("Throughput frequency per %d seconds (%s)", s.Seconds, e.Code)
		if err := r.histogramFigure(name, title, "Throughput (B/s)", s.Rates(), e.Baseline); err != nil {
			r.discard()
			return written, err
		}
	}
	files, err = r.flush()
	written = append(written, files...)
	return written, err
}

func (r *Renderer) throughputFigure(code string, s metrics.Series) error {
	if len(s.Windows) == 0 {
		klog.Warningf("%s: no throughput window of %d seconds spans any time, figure skipped", code, s.Seconds)
		return nil
	}
	rates := s.Rates()
	stats := metrics.Describe(rates)
	klog.V(1).Infof("%s: %d windows of %ds, throughput μ=%.1f B/s σ=%.2f B/s", code, len(rates), s.Seconds, stats.Mean, stats.Std)

	title := statsTitle(fmt.Sprintf("Throughput per %d seconds (%s)", s.Seconds, code), stats, "B/s")
	p, err := r.newFigure(fmt.Sprintf("%s-lim%d", code, s.Seconds), title, "Arrival time", "Rate (B/s)")
	if err != nil {
		return err
	}
	r.wallClock(p)

	points := make(plotter.XYs, len(s.Windows))
	for i, w := range s.Windows {
		points[i].X = float64(w.Start) / 1000
		points[i].Y = w.Rate
	}
	scatter, err := plotter.NewScatter(points)
	if err != nil {
		return err
	}
	p.Add(scatter)
	return nil
}

func (r *Renderer) responseTimeFigure(code string, diffs []float64, stats metrics.Stats) error {
	title := statsTitle("Response time per packet ("+code+")", stats, "ms")
	p, err := r.newFigure(code+"-response-time", title, "Packet number", "Response time (ms)")
	if err != nil {
		return err
	}
	points := make(plotter.XYs, len(diffs))
	for i, d := range diffs {
		points[i].X = float64(i + 1)
		points[i].Y = d
	}
	scatter, err := plotter.NewScatter(points)
	if err != nil {
		return err
	}
	p.Add(scatter)
	p.X.Min = 0.95
	p.X.Max = float64(len(diffs)) * 1.01
	return nil
}

func (r *Renderer) histogramFigure(name, title, xLabel string, values []float64, baseline bool) error {
	h := metrics.NewHistogram(values, r.cfg.HistBins)
	p, err := r.newFigure(name, title, xLabel, "Frequency")
	if err != nil {
		return err
	}
	var fit *metrics.Normal
	if !baseline {
		n := metrics.FitNormal(values)
		fit = &n
	}
	addPercentHistogram(p, h, fit)
	return nil
}
