// Package settings loads the YAML file shared by the netlab tools.
package settings

import (
	"fmt"
	"io/ioutil"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	DefaultCodesFile    = "codes.json"
	DefaultOutputDir    = "report/plots"
	DefaultPayloadBytes = 37
	DefaultBaselineCode = "E0000"
	DefaultPoints       = 100
	DefaultHistBins     = 10
	DefaultServer       = "155.207.18.208"
	DefaultTimeoutMs    = 1000
	DefaultEchoDuration = 240 // seconds
	DefaultImageLength  = 128
	DefaultCamera       = "FIX"
	DefaultSoundPackets = 999
	DefaultSoundSource  = "F"
)

var DefaultWindows = []int{8, 16, 32}

type Sound struct {
	Prefix string `yaml:"prefix"`
	Clips  []int  `yaml:"clips"`
	Points int    `yaml:"points"`
}

type Plotter struct {
	OutputDir    string   `yaml:"output_dir"`
	PayloadBytes int      `yaml:"payload_bytes"`
	Windows      []int    `yaml:"windows"` // in seconds
	BaselineCode string   `yaml:"baseline_code"`
	EchoCodes    []string `yaml:"echo_codes"`
	HistBins     int      `yaml:"hist_bins"`
	Capture      string   `yaml:"capture"` // pcap used instead of the echo code log
	Sounds       []Sound  `yaml:"sounds"`
}

type Echo struct {
	Packets  int `yaml:"packets"`    // 0 means bounded by duration only
	Duration int `yaml:"duration_s"` // in seconds
}

type Image struct {
	File      string `yaml:"file"`
	MaxLength int    `yaml:"max_length"` // 128, 256, 512 or 1024 bytes
	Flow      bool   `yaml:"flow"`
	Camera    string `yaml:"camera"`
}

type SoundRequest struct {
	Packets int    `yaml:"packets"`
	AQ      bool   `yaml:"aq"`
	Source  string `yaml:"source"` // F for a music clip, T for the tone generator
	Beta    int    `yaml:"beta"`
	Prefix  string `yaml:"prefix"`
	Clip    int    `yaml:"clip"`
}

type Client struct {
	Server      string        `yaml:"server"`
	TimeoutMs   int           `yaml:"timeout_ms"`
	Echo        *Echo         `yaml:"echo"`
	Images      []Image       `yaml:"images"`
	Sound       *SoundRequest `yaml:"sound"`
	StunServers []string      `yaml:"stun_servers"`
}

type Settings struct {
	CodesFile string  `yaml:"codes_file"`
	DataDir   string  `yaml:"data_dir"`
	Plotter   Plotter `yaml:"plotter"`
	Client    Client  `yaml:"client"`
}

// Load reads a settings file and fills in defaults.
func Load(path string) (Settings, error) {
	file, err := ioutil.ReadFile(path)
	if err != nil {
		return Settings{}, err
	}
	return Parse(file)
}

func Parse(data []byte) (Settings, error) {
	var s Settings
	if err := yaml.UnmarshalStrict(data, &s); err != nil {
		return Settings{}, fmt.Errorf("reading settings: %w", err)
	}
	s.applyDefaults()
	if err := s.validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Default returns the settings used when no file is given.
func Default() Settings {
	var s Settings
	s.applyDefaults()
	return s
}

func (s *Settings) applyDefaults() {
	if s.CodesFile == "" {
		s.CodesFile = DefaultCodesFile
	}
	if s.DataDir == "" {
		s.DataDir = "."
	}
	p := &s.Plotter
	if p.OutputDir == "" {
		p.OutputDir = DefaultOutputDir
	}
	if p.PayloadBytes == 0 {
		p.PayloadBytes = DefaultPayloadBytes
	}
	if len(p.Windows) == 0 {
		p.Windows = append([]int(nil), DefaultWindows...)
	}
	if p.BaselineCode == "" {
		p.BaselineCode = DefaultBaselineCode
	}
	if len(p.EchoCodes) == 0 {
		p.EchoCodes = []string{p.BaselineCode}
	}
	if p.HistBins == 0 {
		p.HistBins = DefaultHistBins
	}
	for i := range p.Sounds {
		if p.Sounds[i].Points == 0 {
			p.Sounds[i].Points = DefaultPoints
		}
	}

	c := &s.Client
	if c.Server == "" {
		c.Server = DefaultServer
	}
	if c.TimeoutMs == 0 {
		c.TimeoutMs = DefaultTimeoutMs
	}
	if c.Echo != nil && c.Echo.Duration == 0 && c.Echo.Packets == 0 {
		c.Echo.Duration = DefaultEchoDuration
	}
	for i := range c.Images {
		if c.Images[i].MaxLength == 0 {
			c.Images[i].MaxLength = DefaultImageLength
		}
		if c.Images[i].Camera == "" {
			c.Images[i].Camera = DefaultCamera
		}
	}
	if c.Sound != nil {
		if c.Sound.Packets == 0 {
			c.Sound.Packets = DefaultSoundPackets
		}
		if c.Sound.Source == "" {
			c.Sound.Source = DefaultSoundSource
		}
		if c.Sound.Clip == 0 {
			c.Sound.Clip = 1
		}
	}
}

func (s *Settings) validate() error {
	for _, w := range s.Plotter.Windows {
		if w <= 0 {
			return fmt.Errorf("throughput window must be positive, got %d", w)
		}
	}
	if s.Plotter.PayloadBytes < 0 {
		return fmt.Errorf("payload_bytes must be positive, got %d", s.Plotter.PayloadBytes)
	}
	for _, snd := range s.Plotter.Sounds {
		if snd.Prefix == "" {
			return fmt.Errorf("sound entry without prefix")
		}
		if snd.Points < 0 {
			return fmt.Errorf("sound %s: points must be positive", snd.Prefix)
		}
	}
	for _, img := range s.Client.Images {
		switch img.MaxLength {
		case 128, 256, 512, 1024:
		default:
			return fmt.Errorf("image %s: max_length %d not in 128/256/512/1024", img.File, img.MaxLength)
		}
		if img.File == "" {
			return fmt.Errorf("image entry without file name")
		}
	}
	if snd := s.Client.Sound; snd != nil {
		if snd.Source != "F" && snd.Source != "T" {
			return fmt.Errorf("sound source must be F or T, got %q", snd.Source)
		}
		if snd.Packets < 1 || snd.Packets > 999 {
			return fmt.Errorf("sound packets must be in 1..999, got %d", snd.Packets)
		}
	}
	return nil
}

func (c Client) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

func (e Echo) Length() time.Duration {
	return time.Duration(e.Duration) * time.Second
}
