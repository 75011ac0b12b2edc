package timing

import (
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"k8s.io/klog/v2"
)

// ReadCapture extracts echo arrival times from a pcap file recorded during a
// session: the capture timestamp of every UDP datagram sent from serverPort.
func ReadCapture(path string, serverPort int) ([]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	times, err := ParseCapture(f, serverPort)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	klog.V(2).Infof("Read %d echo replies from capture %s", len(times), path)
	return times, nil
}

func ParseCapture(r io.Reader, serverPort int) ([]int64, error) {
	reader, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, err
	}
	var times []int64
	for {
		data, ci, err := reader.ReadPacketData()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		packet := gopacket.NewPacket(data, reader.LinkType(), gopacket.NoCopy)
		udpLayer := packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			continue
		}
		udp, _ := udpLayer.(*layers.UDP)
		if int(udp.SrcPort) != serverPort {
			continue
		}
		times = append(times, Millis(ci.Timestamp))
	}
	if len(times) == 0 {
		return nil, ErrEmptyLog
	}
	return times, nil
}
