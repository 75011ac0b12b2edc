package timing

import (
	"bufio"
	"io"
	"strconv"
	"time"
)

// Writer produces a timing log that ParseTimes can read back.
type Writer struct {
	w       *bufio.Writer
	records int
}

// NewWriter writes the header line, the session start in milliseconds.
func NewWriter(w io.Writer, start time.Time) (*Writer, error) {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strconv.FormatInt(Millis(start), 10) + "\n"); err != nil {
		return nil, err
	}
	return &Writer{w: bw}, nil
}

// Record appends one echo exchange. A dropped record is kept in the log for
// reference but ignored by ParseTimes.
func (w *Writer) Record(at time.Time, rtt time.Duration, dropped bool) error {
	line := strconv.FormatInt(Millis(at), 10) + ":" +
		strconv.FormatInt(rtt.Milliseconds(), 10) + ":" +
		strconv.FormatBool(dropped) + "\n"
	if _, err := w.w.WriteString(line); err != nil {
		return err
	}
	w.records++
	return nil
}

func (w *Writer) Records() int { return w.records }

func (w *Writer) Flush() error { return w.w.Flush() }

// Millis converts t to Unix milliseconds.
func Millis(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}
