package render

import (
	"fmt"

	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"k8s.io/klog/v2"

	"github.com/richiMarchi/netlab/pkg/audio"
	"github.com/richiMarchi/netlab/pkg/metrics"
)

// Clip is one received sound clip: the raw and decoded streams of the same
// transmission.
type Clip struct {
	Prefix  string
	Number  int
	Buffer  []int8
	Decoded []int8
	Points  int
}

// soundLabel holds every field a sound figure label needs, resolved once.
type soundLabel struct {
	Prefix  string
	Number  int
	Kind    string
	Samples int
	Points  int
}

func (l soundLabel) name(suffix string) string {
	return fmt.Sprintf("%s%s%d%s", l.Prefix, l.Kind, l.Number, suffix)
}

func (l soundLabel) title(what string) string {
	return fmt.Sprintf("%s of %s clip %d (%s, %d samples, %d points)",
		what, l.Kind, l.Number, l.Prefix, l.Samples, l.Points)
}

// SoundReport writes the waveform and sample-difference figures of both
// streams of a clip.
func (r *Renderer) SoundReport(c Clip) ([]string, error) {
	points := c.Points
	if points <= 0 {
		points = audio.DefaultPoints
	}
	streams := []struct {
		kind    string
		samples []int8
	}{
		{audio.Buffer, c.Buffer},
		{audio.Decoded, c.Decoded},
	}
	for _, s := range streams {
		if len(s.samples) == 0 {
			continue
		}
		label := soundLabel{Prefix: c.Prefix, Number: c.Number, Kind: s.kind, Samples: len(s.samples), Points: points}
		if err := r.waveformFigure(label, s.samples); err != nil {
			r.discard()
			return nil, err
		}
		diffs := audio.SampleDiffs(s.samples)
		if len(diffs) == 0 {
			continue
		}
		if err := r.histogramFigure(label.name("-diff-hist"), label.title("Sample differences"),
			"Difference between consecutive samples", diffs, true); err != nil {
			r.discard()
			return nil, err
		}
	}
	return r.flush()
}

func (r *Renderer) waveformFigure(label soundLabel, samples []int8) error {
	averaged, err := audio.BlockAverage(samples, label.Points)
	if err != nil {
		return fmt.Errorf("%s: %w", label.name(""), err)
	}
	if dropped := len(samples) % label.Points; dropped != 0 {
		klog.V(1).Infof("%s: last %d samples ignored", label.name(""), dropped)
	}
	width := len(samples) / label.Points

	p, err := r.newFigure(label.name(""), label.title("Waveform"), "Sample", "Mean amplitude")
	if err != nil {
		return err
	}
	points := make(plotter.XYs, len(averaged))
	for i, v := range averaged {
		points[i].X = float64(i * width)
		points[i].Y = v
	}
	line, err := plotter.NewLine(points)
	if err != nil {
		return err
	}
	line.Color = plotutil.Color(0)
	p.Add(line)
	return nil
}

// AQReport draws one line figure per adaptive-quantization metric.
func (r *Renderer) AQReport(prefix string, stats audio.AQStats) ([]string, error) {
	for _, name := range stats.Names() {
		values := stats[name]
		if len(values) == 0 {
			continue
		}
		s := metrics.Describe(values)
		title := statsTitle(fmt.Sprintf("AQ %s per packet (%s)", name, prefix), s, "")
		p, err := r.newFigure(fmt.Sprintf("%s-aq-%s", prefix, name), title, "Packet", name)
		if err != nil {
			r.discard()
			return nil, err
		}
		points := make(plotter.XYs, len(values))
		for i, v := range values {
			points[i].X = float64(i + 1)
			points[i].Y = v
		}
		line, err := plotter.NewLine(points)
		if err != nil {
			r.discard()
			return nil, err
		}
		line.Color = plotutil.Color(2)
		p.Add(line)
	}
	return r.flush()
}
