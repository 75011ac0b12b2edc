// Package metrics turns echo timestamps into throughput windows, descriptive
// statistics and percent-frequency histograms.
package metrics

import (
	"sort"

	"k8s.io/klog/v2"
)

// Window is one non-empty throughput bucket.
type Window struct {
	Start   int64 // first timestamp inside the window, ms
	Packets int
	Elapsed float64 // seconds between first and last timestamp inside the window
	Rate    float64 // bytes per second
}

// Series holds the windows computed for one window size.
type Series struct {
	Seconds int
	Windows []Window
}

func (s Series) Starts() []int64 {
	starts := make([]int64, len(s.Windows))
	for i, w := range s.Windows {
		starts[i] = w.Start
	}
	return starts
}

func (s Series) Rates() []float64 {
	rates := make([]float64, len(s.Windows))
	for i, w := range s.Windows {
		rates[i] = w.Rate
	}
	return rates
}

// Packets is the number of packets covered by the emitted windows.
func (s Series) Packets() int {
	n := 0
	for _, w := range s.Windows {
		n += w.Packets
	}
	return n
}

// Throughput splits the span of the ascending times into windows of the given
// size starting at times[0]. Each window is half-open except the last one,
// which also holds its right edge. Windows spanning zero time are skipped.
func Throughput(times []int64, seconds, payloadBytes int) Series {
	series := Series{Seconds: seconds}
	if len(times) < 2 || seconds <= 0 {
		return series
	}
	width := int64(seconds) * 1000
	first, last := times[0], times[len(times)-1]
	span := last - first
	bins := int((span + width - 1) / width)

	for k := 0; k < bins; k++ {
		lower := first + int64(k)*width
		upper := lower + width
		start := search(times, lower)
		var end int
		if k == bins-1 {
			end = len(times)
		} else {
			end = search(times, upper)
		}
		if end <= start {
			continue
		}
		elapsed := float64(times[end-1]-times[start]) / 1000
		if elapsed == 0 {
			klog.V(3).Infof("Window %ds #%d spans no time, skipped", seconds, k)
			continue
		}
		packets := end - start
		series.Windows = append(series.Windows, Window{
			Start:   times[start],
			Packets: packets,
			Elapsed: elapsed,
			Rate:    float64(packets*payloadBytes) / elapsed,
		})
	}
	return series
}

// ThroughputAll computes one Series per window size.
func ThroughputAll(times []int64, windows []int, payloadBytes int) []Series {
	all := make([]Series, 0, len(windows))
	for _, s := range windows {
		all = append(all, Throughput(times, s, payloadBytes))
	}
	return all
}

// search returns the index of the first timestamp >= v.
func search(times []int64, v int64) int {
	return sort.Search(len(times), func(i int) bool { return times[i] >= v })
}
