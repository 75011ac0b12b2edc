package lab

import (
	"context"
	"errors"
	"fmt"

	"k8s.io/klog/v2"

	"github.com/richiMarchi/netlab/pkg/audio"
)

type SoundOptions struct {
	Packets int    // 1 to 999
	AQ      bool   // adaptive quantization
	Source  string // F for a music clip, T for the tone generator
	Beta    int    // DPCM quantizer step
}

type SoundResult struct {
	Buffer  []int8 // raw packet payloads
	Decoded []int8
	Stats   audio.AQStats // nil unless AQ
	Packets int
}

func soundCommand(code string, opts SoundOptions) string {
	cmd := code
	if opts.AQ {
		cmd += "AQ"
	}
	return fmt.Sprintf("%s%s%03d", cmd, opts.Source, opts.Packets)
}

// Sound requests opts.Packets sound packets and decodes them. A timeout ends
// the session early; the packets received so far are kept.
func (s *Session) Sound(ctx context.Context, code string, opts SoundOptions) (SoundResult, error) {
	if opts.Packets < 1 || opts.Packets > 999 {
		return SoundResult{}, fmt.Errorf("sound packet count %d out of range 1..999", opts.Packets)
	}
	if opts.Source == "" {
		opts.Source = "F"
	}
	dec := audio.NewDecoder(opts.AQ, opts.Beta)
	if err := s.request(soundCommand(code, opts)); err != nil {
		return SoundResult{}, err
	}
	var res SoundResult
	// Larger than any sound packet so a mode mismatch shows up in Decode.
	buf := make([]byte, 2048)
	for res.Packets < opts.Packets {
		n, err := s.receive(ctx, buf)
		if errors.Is(err, errTimeout) {
			klog.Warningf("Sound session timed out after %d of %d packets", res.Packets, opts.Packets)
			break
		}
		if err != nil {
			return res, err
		}
		samples, err := dec.Decode(buf[:n])
		if err != nil {
			return res, fmt.Errorf("packet %d: %w", res.Packets+1, err)
		}
		res.Buffer = append(res.Buffer, audio.Samples(buf[:n])...)
		res.Decoded = append(res.Decoded, samples...)
		res.Packets++
		klog.V(5).Infof("Sound packet %d decoded into %d samples", res.Packets, len(samples))
	}
	if res.Packets == 0 {
		return res, fmt.Errorf("no sound packets received")
	}
	res.Stats = dec.Stats()
	klog.Infof("Sound session finished: %d packets, %d samples", res.Packets, len(res.Decoded))
	return res, nil
}

// WriteSound stores a session as clip n of prefix: the raw and decoded
// streams and, for AQ sessions, the per-packet metrics.
func WriteSound(dir, prefix string, n int, res SoundResult) error {
	if err := audio.WriteSamples(audio.StreamPath(dir, prefix, audio.Buffer, n), res.Buffer); err != nil {
		return err
	}
	if err := audio.WriteSamples(audio.StreamPath(dir, prefix, audio.Decoded, n), res.Decoded); err != nil {
		return err
	}
	if res.Stats == nil {
		return nil
	}
	return audio.WriteAQStats(audio.StatsPath(dir, prefix), res.Stats)
}
