package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const sample = `
codes_file: lab/codes.json
data_dir: lab
plotter:
  echo_codes: [E0000, E1234]
  windows: [8, 32]
  sounds:
    - prefix: A0456AQF
      clips: [1, 2]
client:
  timeout_ms: 2000
  echo:
    packets: 50
  images:
    - file: ptz.jpg
      max_length: 512
      camera: PTZ
  sound:
    aq: true
  stun_servers: [stun.l.google.com:19302]
`

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yml")
	if err := os.WriteFile(path, []byte(sample), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	want := Settings{
		CodesFile: "lab/codes.json",
		DataDir:   "lab",
		Plotter: Plotter{
			OutputDir:    DefaultOutputDir,
			PayloadBytes: DefaultPayloadBytes,
			Windows:      []int{8, 32},
			BaselineCode: DefaultBaselineCode,
			EchoCodes:    []string{"E0000", "E1234"},
			HistBins:     DefaultHistBins,
			Sounds:       []Sound{{Prefix: "A0456AQF", Clips: []int{1, 2}, Points: DefaultPoints}},
		},
		Client: Client{
			Server:      DefaultServer,
			TimeoutMs:   2000,
			Echo:        &Echo{Packets: 50},
			Images:      []Image{{File: "ptz.jpg", MaxLength: 512, Camera: "PTZ"}},
			Sound:       &SoundRequest{Packets: DefaultSoundPackets, AQ: true, Source: "F", Clip: 1},
			StunServers: []string{"stun.l.google.com:19302"},
		},
	}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Fatalf("settings (-want +got):\n%s", diff)
	}
	if s.Client.Timeout() != 2*time.Second {
		t.Fatalf("timeout=%v", s.Client.Timeout())
	}
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	s := Default()
	if diff := cmp.Diff([]int{8, 16, 32}, s.Plotter.Windows); diff != "" {
		t.Fatalf("windows (-want +got):\n%s", diff)
	}
	if s.Plotter.PayloadBytes != 37 || s.Plotter.BaselineCode != "E0000" || s.CodesFile != "codes.json" {
		t.Fatalf("defaults=%+v", s)
	}
	if (Echo{Duration: 240}).Length() != 4*time.Minute {
		t.Fatal("echo length")
	}
}

func TestParseRejects(t *testing.T) {
	t.Parallel()

	bad := map[string]string{
		"window":       "plotter: {windows: [8, -1]}",
		"image length": "client: {images: [{file: a.jpg, max_length: 300}]}",
		"sound source": "client: {sound: {source: X}}",
		"sound prefix": "plotter: {sounds: [{clips: [1]}]}",
		"unknown key":  "plotter: {colour: red}",
	}
	for name, doc := range bad {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
