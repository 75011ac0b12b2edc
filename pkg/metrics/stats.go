package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Stats is a mean / population standard deviation pair.
type Stats struct {
	N    int
	Mean float64
	Std  float64
}

// Describe returns the mean and population standard deviation of values.
func Describe(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}
	mean := stat.Mean(values, nil)
	return Stats{
		N:    len(values),
		Mean: mean,
		Std:  math.Sqrt(stat.MomentAbout(2, values, mean, nil)),
	}
}

// Histogram is a binned distribution with percent-frequency heights.
type Histogram struct {
	Edges   []float64 // len(Counts)+1
	Counts  []int
	Percent []float64
}

func (h Histogram) BinWidth() float64 {
	if len(h.Edges) < 2 {
		return 0
	}
	return h.Edges[1] - h.Edges[0]
}

func (h Histogram) Min() float64 { return h.Edges[0] }

func (h Histogram) Max() float64 { return h.Edges[len(h.Edges)-1] }

// Centers returns the middle of every bin.
func (h Histogram) Centers() []float64 {
	centers := make([]float64, len(h.Counts))
	for i := range centers {
		centers[i] = (h.Edges[i] + h.Edges[i+1]) / 2
	}
	return centers
}

// NewHistogram bins values into equal-width bins over [min, max], the last
// bin closed. Every value weighs 100/len(values) percent. A zero-width range
// is widened by 0.5 on both sides.
func NewHistogram(values []float64, bins int) Histogram {
	if bins <= 0 {
		bins = 10
	}
	lo, hi := 0.0, 1.0
	if len(values) > 0 {
		lo, hi = floats.Min(values), floats.Max(values)
	}
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}
	h := Histogram{
		Edges:   make([]float64, bins+1),
		Counts:  make([]int, bins),
		Percent: make([]float64, bins),
	}
	floats.Span(h.Edges, lo, hi)
	width := (hi - lo) / float64(bins)
	for _, v := range values {
		i := int((v - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		if i < 0 {
			i = 0
		}
		h.Counts[i]++
	}
	if n := float64(len(values)); n > 0 {
		for i, c := range h.Counts {
			h.Percent[i] = 100 * float64(c) / n
		}
	}
	return h
}

// Normal is a normal distribution fitted to a sample.
type Normal struct {
	Mu    float64
	Sigma float64
}

// FitNormal estimates the distribution by its sample mean and population
// standard deviation.
func FitNormal(values []float64) Normal {
	s := Describe(values)
	return Normal{Mu: s.Mean, Sigma: s.Std}
}

// Valid reports whether the fit can be drawn.
func (n Normal) Valid() bool {
	return n.Sigma > 0 && !math.IsNaN(n.Sigma) && !math.IsInf(n.Sigma, 0)
}

// Percent returns the expected percent of samples in a bin of the given
// width centered on x.
func (n Normal) Percent(x, binWidth float64) float64 {
	if !n.Valid() {
		return 0
	}
	d := distuv.Normal{Mu: n.Mu, Sigma: n.Sigma}
	return d.Prob(x) * binWidth * 100
}
