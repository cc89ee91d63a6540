package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"wavecast/pkg/async"
	"wavecast/pkg/audio"
	"wavecast/pkg/calibrate"
	"wavecast/pkg/profile"
	"wavecast/pkg/session"
)

func main() {
	var (
		device      = flag.String("device", "", "ASIO device name")
		profileName = flag.String("profile", "STANDARD", "transfer profile: FAST, STANDARD, ROBUST, DENSE")
		filePath    = flag.String("file", "", "path to the file to send")
		adaptive    = flag.Bool("adaptive-power", false, "enable SNR-driven power control")
		compress    = flag.Bool("compress", true, "compress the payload when it helps")
		quickCal    = flag.Bool("quick-calibration", false, "use the shorter calibration pass")
		calFile     = flag.String("calibration-file", "", "load/save calibration result from/to this YAML file")
	)
	flag.Parse()

	if *filePath == "" {
		log.Fatal("send: -file is required")
	}

	p, err := profile.Named(*profileName)
	if err != nil {
		log.Fatalf("send: %v", err)
	}

	raw, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatalf("send: reading %s: %v", *filePath, err)
	}

	dev := &audio.ASIODevice{
		DeviceName: *device,
		SampleRate: float64(profile.Default.SampleRateHz),
		InChannel:  0,
		OutChannel: 0,
	}
	defer dev.Close()

	spectrum := scanSpectrum(dev, profile.Default)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var interrupted async.Signal[struct{}]
	interruptedCh := interrupted.Signal()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt)
		select {
		case <-sig:
			interrupted.Notify()
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	var calibration calibrate.Result
	if *calFile != "" {
		if cached, err := calibrate.LoadResult(*calFile); err == nil {
			log.Printf("send: reusing cached calibration from %s", *calFile)
			calibration = cached
		}
	}
	if len(calibration.Frequencies) == 0 {
		duration := calibrate.FullDuration
		if *quickCal {
			duration = calibrate.QuickDuration
		}
		log.Printf("send: calibrating for %v...", duration)
		calibration, err = (calibrate.Calibrator{Audio: profile.Default}).Calibrate(ctx, duration, p, spectrum)
		if err != nil {
			log.Fatalf("send: calibration failed: %v", err)
		}
		if *calFile != "" {
			if err := calibrate.SaveResult(*calFile, calibration); err != nil {
				log.Printf("send: caching calibration: %v", err)
			}
		}
	}
	log.Printf("send: calibrated carriers %v", calibration.Frequencies)

	sender := session.NewSender(session.SenderConfig{
		Profile:        p,
		Audio:          profile.Default,
		Calibration:    calibration,
		UseCompression: *compress,
		Adaptive:       *adaptive,
	}, dev)

	g.Go(func() error {
		for ev := range sender.Events {
			switch ev.Kind {
			case session.EventChunkSent:
				log.Printf("send: chunk %d/%d", ev.ChunkIndex+1, ev.ChunkTotal)
			case session.EventTransferDone:
				log.Printf("send: transfer complete (%s, %d bytes)", ev.Metadata.Filename, ev.Metadata.Size)
			case session.EventError:
				log.Printf("send: error: %v", ev.Err)
			}
		}
		return nil
	})

	stop := make(chan struct{})
	g.Go(func() error {
		select {
		case <-interruptedCh:
			close(stop)
		case <-gctx.Done():
		}
		return nil
	})

	sendErr := sender.Send(ctx, filepath.Base(*filePath), raw, stop)
	close(sender.Events)
	if err := g.Wait(); err != nil {
		log.Printf("send: supervisor: %v", err)
	}
	if sendErr != nil {
		log.Fatalf("send: %v", sendErr)
	}
}

// scanSpectrum builds a wideband Goertzel-based SpectrumSource covering the
// full calibration scan range, standing in for the real FFT a production
// host would run over the ASIO input stream.
func scanSpectrum(source audio.SampleSource, a profile.AudioParams) audio.SpectrumSource {
	numBins := a.FFTSize / 2
	var freqs []float64
	for f := a.FreqMinHz; f <= a.FreqMaxHz; f += 50 {
		freqs = append(freqs, float64(f))
	}
	return &audio.GoertzelChannel{
		Source:       source,
		Window:       a.FFTSize,
		NumBins:      numBins,
		FreqsHz:      freqs,
		SampleRateHz: a.SampleRateHz,
		Scale:        255,
	}
}
