package main

import (
	"errors"
	"flag"
	"os"

	"k8s.io/klog/v2"

	"github.com/richiMarchi/netlab/pkg/audio"
	"github.com/richiMarchi/netlab/pkg/codes"
	"github.com/richiMarchi/netlab/pkg/metrics"
	"github.com/richiMarchi/netlab/pkg/render"
	"github.com/richiMarchi/netlab/pkg/settings"
	"github.com/richiMarchi/netlab/pkg/timing"
)

func main() {
	settingsFile := flag.String("settings", "", "YAML settings file, defaults when empty")
	codesFile := flag.String("codes", "", "codes file, overrides the settings")
	outputDir := flag.String("out", "", "plot folder, overrides the settings")
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	s := settings.Default()
	if *settingsFile != "" {
		var err error
		if s, err = settings.Load(*settingsFile); err != nil {
			klog.Fatal(err)
		}
	}
	if *codesFile != "" {
		s.CodesFile = *codesFile
	}
	if *outputDir != "" {
		s.Plotter.OutputDir = *outputDir
	}

	cfg := render.DefaultConfig(s.Plotter.OutputDir)
	cfg.HistBins = s.Plotter.HistBins
	r, err := render.New(cfg)
	if err != nil {
		klog.Fatal(err)
	}
	klog.Infof("Plot folder: %s", r.Config().Dir())

	for _, code := range echoCodes(s) {
		times, err := readTimes(s, code)
		if err != nil {
			klog.Fatal(err)
		}
		if !timing.Sorted(times) {
			klog.Warningf("Timing log of %s is not sorted, throughput windows may be wrong", code)
		}
		paths, err := r.EchoReport(render.Echo{
			Code:     code,
			Times:    times,
			Series:   metrics.ThroughputAll(times, s.Plotter.Windows, s.Plotter.PayloadBytes),
			Baseline: code == s.Plotter.BaselineCode,
		})
		if err != nil {
			klog.Fatal(err)
		}
		klog.Infof("%s: %d figures", code, len(paths))
	}

	for _, snd := range s.Plotter.Sounds {
		if err := plotSound(r, s.DataDir, snd); err != nil {
			klog.Fatal(err)
		}
	}
}

// echoCodes lists the configured codes followed by the session's echo code.
func echoCodes(s settings.Settings) []string {
	list := append([]string(nil), s.Plotter.EchoCodes...)
	c, err := codes.Load(s.CodesFile)
	if errors.Is(err, os.ErrNotExist) {
		klog.Warningf("%s not found, plotting configured echo codes only", s.CodesFile)
		return list
	}
	if err != nil {
		klog.Fatal(err)
	}
	echo := c.EchoRequestCode.String()
	if echo == "" {
		return list
	}
	for _, code := range list {
		if code == echo {
			return list
		}
	}
	return append(list, echo)
}

func readTimes(s settings.Settings, code string) ([]int64, error) {
	if s.Plotter.Capture == "" || code == s.Plotter.BaselineCode {
		return timing.ReadTimes(timing.LogPath(s.DataDir, code))
	}
	c, err := codes.Load(s.CodesFile)
	if err != nil {
		return nil, err
	}
	port, err := c.ServerPort()
	if err != nil {
		return nil, err
	}
	klog.Infof("Reading %s replies from capture %s", code, s.Plotter.Capture)
	return timing.ReadCapture(s.Plotter.Capture, port)
}

func plotSound(r *render.Renderer, dir string, snd settings.Sound) error {
	for _, n := range snd.Clips {
		buffer, err := audio.ReadSamples(audio.StreamPath(dir, snd.Prefix, audio.Buffer, n))
		if err != nil {
			return err
		}
		decoded, err := audio.ReadSamples(audio.StreamPath(dir, snd.Prefix, audio.Decoded, n))
		if err != nil {
			return err
		}
		paths, err := r.SoundReport(render.Clip{
			Prefix:  snd.Prefix,
			Number:  n,
			Buffer:  buffer,
			Decoded: decoded,
			Points:  snd.Points,
		})
		if err != nil {
			return err
		}
		klog.Infof("%s clip %d: %d figures", snd.Prefix, n, len(paths))
	}

	statsPath := audio.StatsPath(dir, snd.Prefix)
	if !audio.Exists(statsPath) {
		klog.V(2).Infof("No AQ stats for %s", snd.Prefix)
		return nil
	}
	stats, err := audio.ReadAQStats(statsPath)
	if err != nil {
		return err
	}
	_, err = r.AQReport(snd.Prefix, stats)
	return err
}
