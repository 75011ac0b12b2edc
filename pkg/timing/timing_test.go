package timing

import (
	"bytes"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

func TestParseTimes(t *testing.T) {
	t.Parallel()

	log := "1490000000000\n" +
		"1490000000100:100:false\n" +
		"1490000000300:95:true\n" +
		"1490000000350:120:false\n" +
		"\n" +
		"1490000000400\n" +
		"1490000000900:88\n"
	got, err := ParseTimes(strings.NewReader(log))
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{1490000000100, 1490000000350, 1490000000400, 1490000000900}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("times (-want +got):\n%s", diff)
	}
}

func TestParseTimesErrors(t *testing.T) {
	t.Parallel()

	if _, err := ParseTimes(strings.NewReader("header only\n")); !errors.Is(err, ErrEmptyLog) {
		t.Fatalf("err=%v want ErrEmptyLog", err)
	}
	if _, err := ParseTimes(strings.NewReader("h\n1:2:true\n")); !errors.Is(err, ErrEmptyLog) {
		t.Fatalf("all dropped: err=%v", err)
	}
	_, err := ParseTimes(strings.NewReader("h\n12:1:false\nabc:1:false\n"))
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Fatalf("err=%v", err)
	}
}

func TestDiffs(t *testing.T) {
	t.Parallel()

	times := []int64{0, 1000, 2000, 9000, 9000}
	diffs := Diffs(times)
	if len(diffs) != len(times)-1 {
		t.Fatalf("len=%d", len(diffs))
	}
	for i, d := range diffs {
		if d < 0 {
			t.Fatalf("negative diff at %d: %v", i, d)
		}
	}
	if diff := cmp.Diff([]float64{1000, 1000, 7000, 0}, diffs); diff != "" {
		t.Fatalf("diffs (-want +got):\n%s", diff)
	}
	if Diffs([]int64{5}) != nil {
		t.Fatal("single timestamp has no diffs")
	}
	if !Sorted(times) || Sorted([]int64{3, 1}) {
		t.Fatal("Sorted is wrong")
	}
}

func TestWriterRoundTrip(t *testing.T) {
	t.Parallel()

	start := time.Unix(1490000000, 0)
	path := LogPath(t.TempDir(), "E1234")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w, err := NewWriter(f, start)
	if err != nil {
		t.Fatal(err)
	}
	w.Record(start.Add(120*time.Millisecond), 120*time.Millisecond, false)
	w.Record(start.Add(1120*time.Millisecond), time.Second, true)
	w.Record(start.Add(1300*time.Millisecond), 180*time.Millisecond, false)
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	f.Close()
	if w.Records() != 3 {
		t.Fatalf("records=%d", w.Records())
	}
	if filepath.Base(path) != "E1234.txt" {
		t.Fatalf("path=%s", path)
	}

	got, err := ReadTimes(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{1490000000120, 1490000001300}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("times (-want +got):\n%s", diff)
	}
}

func udpFrame(t *testing.T, src, dst int) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0, 1, 2, 3, 4, 5},
		DstMAC:       net.HardwareAddr{6, 7, 8, 9, 10, 11},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IP{155, 207, 18, 208},
		DstIP:    net.IP{10, 0, 0, 2},
	}
	udp := &layers.UDP{SrcPort: layers.UDPPort(src), DstPort: layers.UDPPort(dst)}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		t.Fatal(err)
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload("PSTART echo")); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestParseCapture(t *testing.T) {
	t.Parallel()

	var capture bytes.Buffer
	w := pcapgo.NewWriter(&capture)
	if err := w.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		t.Fatal(err)
	}
	base := time.Unix(1490000000, 0)
	frames := []struct {
		offset   time.Duration
		src, dst int
	}{
		{0, 48012, 38012},
		{40 * time.Millisecond, 38012, 48012},
		{500 * time.Millisecond, 48012, 38012},
		{560 * time.Millisecond, 38012, 48012},
	}
	for _, fr := range frames {
		data := udpFrame(t, fr.src, fr.dst)
		ci := gopacket.CaptureInfo{Timestamp: base.Add(fr.offset), CaptureLength: len(data), Length: len(data)}
		if err := w.WritePacket(ci, data); err != nil {
			t.Fatal(err)
		}
	}

	got, err := ParseCapture(bytes.NewReader(capture.Bytes()), 38012)
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{1490000000040, 1490000000560}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("times (-want +got):\n%s", diff)
	}

	if _, err := ParseCapture(bytes.NewReader(capture.Bytes()), 9999); !errors.Is(err, ErrEmptyLog) {
		t.Fatalf("err=%v want ErrEmptyLog", err)
	}
}
