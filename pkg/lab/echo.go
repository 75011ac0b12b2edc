package lab

import (
	"context"
	"errors"
	"fmt"
	"time"

	"k8s.io/klog/v2"

	"github.com/richiMarchi/netlab/pkg/timing"
)

type EchoOptions struct {
	Packets  int           // stop after this many replies, 0 for no limit
	Duration time.Duration // stop after this long, 0 for no limit
}

type EchoResult struct {
	Received    int
	Dropped     int
	Elapsed     time.Duration
	Interrupted bool // ctx ended the run before its bound
}

// Echo repeatedly sends code and records every reply in w. A request left
// unanswered within the timeout is recorded as dropped and sent again.
// Cancelling ctx ends the run like reaching its bound: the records written
// so far are flushed and kept.
func (s *Session) Echo(ctx context.Context, code string, opts EchoOptions, w *timing.Writer) (res EchoResult, err error) {
	if opts.Packets <= 0 && opts.Duration <= 0 {
		return EchoResult{}, fmt.Errorf("echo run needs a packet count or a duration")
	}
	klog.Infof("Starting echo run with code %s", code)
	start := time.Now()
	defer func() {
		res.Elapsed = time.Since(start)
		if ferr := w.Flush(); err == nil {
			err = ferr
		}
	}()

	buf := make([]byte, 2048)
	for {
		if opts.Packets > 0 && res.Received >= opts.Packets {
			break
		}
		if opts.Duration > 0 && time.Since(start) >= opts.Duration {
			break
		}
		if ctx.Err() != nil {
			res.Interrupted = true
			break
		}
		sent := time.Now()
		if err := s.request(code); err != nil {
			return res, err
		}
		n, err := s.receive(ctx, buf)
		now := time.Now()
		switch {
		case errors.Is(err, errTimeout):
			res.Dropped++
			klog.V(2).Infof("Echo request timed out after %v, resending", now.Sub(sent))
			if err := w.Record(now, now.Sub(sent), true); err != nil {
				return res, err
			}
			continue
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			res.Interrupted = true
		case err != nil:
			return res, err
		}
		if res.Interrupted {
			break
		}
		res.Received++
		klog.V(3).Infof("Echo %d: %q in %v", res.Received, buf[:n], now.Sub(sent))
		if err := w.Record(now, now.Sub(sent), false); err != nil {
			return res, err
		}
	}
	if res.Interrupted {
		klog.Warningf("Echo run interrupted: %d replies, %d dropped", res.Received, res.Dropped)
	} else {
		klog.Infof("Echo run finished: %d replies, %d dropped in %v", res.Received, res.Dropped, time.Since(start).Round(time.Millisecond))
	}
	return res, nil
}
