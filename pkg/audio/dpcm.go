package audio

import (
	"encoding/binary"
	"fmt"
)

const (
	// PacketSize is the payload of a plain DPCM sound packet.
	PacketSize = 128
	// AQPacketSize adds the mean and step header of adaptive quantization.
	AQPacketSize = PacketSize + 4

	// Per-packet metric names written to the AQ stats file.
	MetricMean = "mean"
	MetricStep = "step"
)

// Decoder turns DPCM packets into samples. Every byte carries two 4-bit
// differences, high nibble first, each offset by 8. The running value is
// kept across packets.
type Decoder struct {
	AQ   bool
	Beta int // quantizer step of plain DPCM

	prev  int32
	stats AQStats
}

func NewDecoder(aq bool, beta int) *Decoder {
	if beta <= 0 {
		beta = 1
	}
	d := &Decoder{AQ: aq, Beta: beta}
	if aq {
		d.stats = AQStats{MetricMean: nil, MetricStep: nil}
	}
	return d
}

// PacketSize returns the expected size of one packet.
func (d *Decoder) PacketSize() int {
	if d.AQ {
		return AQPacketSize
	}
	return PacketSize
}

// Decode returns the samples carried by one packet. Adaptive-quantization
// samples are 16 bit and are scaled down to 8 bit.
func (d *Decoder) Decode(packet []byte) ([]int8, error) {
	if len(packet) != d.PacketSize() {
		return nil, fmt.Errorf("sound packet of %d bytes, want %d", len(packet), d.PacketSize())
	}
	if !d.AQ {
		return d.decode(packet, int32(d.Beta), 0, toInt8), nil
	}
	mean := int32(int16(binary.LittleEndian.Uint16(packet[0:2])))
	step := int32(binary.LittleEndian.Uint16(packet[2:4]))
	d.stats[MetricMean] = append(d.stats[MetricMean], float64(mean))
	d.stats[MetricStep] = append(d.stats[MetricStep], float64(step))
	return d.decode(packet[4:], step, mean, scaleInt16), nil
}

func (d *Decoder) decode(body []byte, step, offset int32, conv func(int32) int8) []int8 {
	out := make([]int8, 0, 2*len(body))
	for _, b := range body {
		for _, nibble := range [2]byte{b >> 4, b & 0x0F} {
			d.prev += (int32(nibble) - 8) * step
			out = append(out, conv(d.prev+offset))
		}
	}
	return out
}

// Stats returns the per-packet metrics collected so far, nil for plain DPCM.
func (d *Decoder) Stats() AQStats { return d.stats }

func toInt8(v int32) int8 {
	if v > 127 {
		return 127
	}
	if v < -128 {
		return -128
	}
	return int8(v)
}

func scaleInt16(v int32) int8 {
	if v > 32767 {
		v = 32767
	}
	if v < -32768 {
		v = -32768
	}
	return int8(v >> 8)
}
