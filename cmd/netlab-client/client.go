package main

import (
	"context"
	"flag"
	"io/ioutil"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"k8s.io/klog/v2"

	"github.com/richiMarchi/netlab/pkg/audio"
	"github.com/richiMarchi/netlab/pkg/codes"
	"github.com/richiMarchi/netlab/pkg/lab"
	"github.com/richiMarchi/netlab/pkg/settings"
	"github.com/richiMarchi/netlab/pkg/timing"
)

func main() {
	settingsFile := flag.String("settings", "", "YAML settings file, defaults when empty")
	codesFile := flag.String("codes", "", "codes file, overrides the settings")
	server := flag.String("server", "", "lab server address, overrides the settings")
	skipStun := flag.Bool("skip-stun", false, "do not check the public address")
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
	if *server != "" {
		s.Client.Server = *server
	}
	c, err := codes.Load(s.CodesFile)
	if err != nil {
		klog.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-shutdown
		klog.Info("Interrupted, stopping")
		cancel()
	}()

	lab.LogSocketKnobs()
	if !*skipStun && len(s.Client.StunServers) > 0 {
		checkPublicAddress(ctx, c, s.Client)
	}

	session, err := lab.Open(c, s.Client.Server, s.Client.Timeout())
	if err != nil {
		klog.Fatal(err)
	}
	defer session.Close()

	if e := s.Client.Echo; e != nil {
		if err := runEcho(ctx, session, s.DataDir, c.EchoRequestCode.String(), *e); err != nil {
			klog.Fatal(err)
		}
	}
	if ctx.Err() != nil {
		klog.Info("Interrupted, skipping the remaining requests")
		return
	}
	for _, img := range s.Client.Images {
		data, err := session.Image(ctx, c.ImageRequestCode.String(), lab.ImageOptions{
			MaxLength: img.MaxLength,
			Flow:      img.Flow,
			Camera:    img.Camera,
		})
		if err != nil {
			klog.Fatal(err)
		}
		path := filepath.Join(s.DataDir, img.File)
		if err := ioutil.WriteFile(path, data, 0644); err != nil {
			klog.Fatal(err)
		}
		klog.Infof("Image saved to %s", path)
	}
	if snd := s.Client.Sound; snd != nil {
		res, err := session.Sound(ctx, c.SoundRequestCode.String(), lab.SoundOptions{
			Packets: snd.Packets,
			AQ:      snd.AQ,
			Source:  snd.Source,
			Beta:    snd.Beta,
		})
		if err != nil {
			klog.Fatal(err)
		}
		prefix := snd.Prefix
		if prefix == "" {
			prefix = soundPrefix(c.SoundRequestCode.String(), *snd)
		}
		if err := lab.WriteSound(s.DataDir, prefix, snd.Clip, res); err != nil {
			klog.Fatal(err)
		}
		klog.Infof("Sound saved as %s", audio.StreamPath(s.DataDir, prefix, audio.Decoded, snd.Clip))
	}
}

func runEcho(ctx context.Context, session *lab.Session, dir, code string, e settings.Echo) error {
	path := timing.LogPath(dir, code)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w, err := timing.NewWriter(f, time.Now())
	if err != nil {
		f.Close()
		return err
	}
	res, err := session.Echo(ctx, code, lab.EchoOptions{Packets: e.Packets, Duration: e.Length()}, w)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if res.Interrupted {
		klog.Infof("Partial echo log with %d replies kept in %s", res.Received, path)
	}
	return nil
}

// soundPrefix names a session after its request: code, AQ flag and source.
func soundPrefix(code string, snd settings.SoundRequest) string {
	if snd.AQ {
		code += "AQ"
	}
	return code + snd.Source
}

func checkPublicAddress(ctx context.Context, c codes.Codes, cfg settings.Client) {
	mapped, err := lab.ProbePublicAddress(ctx, cfg.StunServers, 3*time.Second)
	if err != nil {
		klog.Warningf("Public address probe failed: %v", err)
		return
	}
	expected := c.ClientPublicAddress.String()
	if !lab.SameHost(expected, mapped) {
		klog.Warningf("Public address %s does not match %s from the portal, replies may not arrive", mapped, expected)
		return
	}
	klog.Infof("Public address %s matches the portal", mapped)
}
