// Package audio handles the sound streams received from the lab server:
// signed 8-bit sample files, their block-averaged waveforms and the
// adaptive-quantization metrics recorded per packet.
package audio

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// Stream kinds as they appear in file names.
const (
	Buffer  = "buffer"
	Decoded = "decoded"
)

// DefaultPoints is the number of display points of a waveform.
const DefaultPoints = 100

var ErrShortStream = errors.New("stream shorter than the requested point count")

// StreamPath returns <dir>/<prefix><kind><n>.data.
func StreamPath(dir, prefix, kind string, n int) string {
	return filepath.Join(dir, prefix+kind+strconv.Itoa(n)+".data")
}

// StatsPath returns the adaptive-quantization metrics file of a prefix.
func StatsPath(dir, prefix string) string {
	return filepath.Join(dir, prefix+".txt")
}

// Samples reinterprets every byte as a signed sample.
func Samples(b []byte) []int8 {
	out := make([]int8, len(b))
	for i, v := range b {
		out[i] = int8(v)
	}
	return out
}

func ReadSamples(path string) ([]int8, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Samples(b), nil
}

func WriteSamples(path string, samples []int8) error {
	b := make([]byte, len(samples))
	for i, s := range samples {
		b[i] = byte(s)
	}
	return ioutil.WriteFile(path, b, 0644)
}

// BlockAverage reduces samples to points values. The block width is
// len(samples)/points; trailing samples that do not fill a block are ignored.
func BlockAverage(samples []int8, points int) ([]float64, error) {
	if points <= 0 || len(samples) < points {
		return nil, fmt.Errorf("%w: %d samples, %d points", ErrShortStream, len(samples), points)
	}
	width := len(samples) / points
	out := make([]float64, points)
	for p := 0; p < points; p++ {
		sum := 0
		for _, s := range samples[p*width : (p+1)*width] {
			sum += int(s)
		}
		out[p] = float64(sum) / float64(width)
	}
	return out, nil
}

// SampleDiffs returns the difference between consecutive samples.
func SampleDiffs(samples []int8) []float64 {
	if len(samples) < 2 {
		return nil
	}
	out := make([]float64, len(samples)-1)
	for i := 1; i < len(samples); i++ {
		out[i-1] = float64(int(samples[i]) - int(samples[i-1]))
	}
	return out
}

// AQStats maps a metric name to its per-packet values.
type AQStats map[string][]float64

// Names returns the metric names in a stable order.
func (s AQStats) Names() []string {
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func ReadAQStats(path string) (AQStats, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var stats AQStats
	if err := json.Unmarshal(b, &stats); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return stats, nil
}

func WriteAQStats(path string, stats AQStats) error {
	b, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path, b, 0644)
}

// Exists reports whether path is a readable file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
