// Package timing reads and writes the echo timing logs produced during a lab
// session: a header line followed by "<ms>:<rtt ms>:<dropped>" records.
package timing

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"k8s.io/klog/v2"
)

// DroppedFlag marks a record that must not be used (timed out or resent).
const DroppedFlag = "true"

var ErrEmptyLog = errors.New("timing log has no usable records")

// LogPath returns the timing log of an echo request code.
func LogPath(dir, code string) string {
	return filepath.Join(dir, code+".txt")
}

// ReadTimes reads the timestamps of a timing log file.
func ReadTimes(path string) ([]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	times, err := ParseTimes(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	klog.V(2).Infof("Read %d timestamps from %s", len(times), path)
	return times, nil
}

// ParseTimes skips the header line and returns the first field of every
// record whose third field is not DroppedFlag, in file order.
func ParseTimes(r io.Reader) ([]int64, error) {
	scanner := bufio.NewScanner(r)
	var times []int64
	line := 0
	for scanner.Scan() {
		line++
		if line == 1 {
			continue
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := strings.Split(text, ":")
		if len(fields) > 2 && strings.TrimSpace(fields[2]) == DroppedFlag {
			klog.V(4).Infof("Line %d dropped", line)
			continue
		}
		ts, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid timestamp %q", line, fields[0])
		}
		times = append(times, ts)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(times) == 0 {
		return nil, ErrEmptyLog
	}
	return times, nil
}

// Diffs returns the inter-arrival differences of times.
func Diffs(times []int64) []float64 {
	if len(times) < 2 {
		return nil
	}
	diffs := make([]float64, len(times)-1)
	for i := 1; i < len(times); i++ {
		diffs[i-1] = float64(times[i] - times[i-1])
	}
	return diffs
}

// Sorted reports whether times is in ascending order.
func Sorted(times []int64) bool {
	for i := 1; i < len(times); i++ {
		if times[i] < times[i-1] {
			return false
		}
	}
	return true
}
