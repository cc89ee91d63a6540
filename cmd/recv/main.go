package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"golang.org/x/sync/errgroup"

	"wavecast/pkg/audio"
	"wavecast/pkg/calibrate"
	"wavecast/pkg/profile"
	"wavecast/pkg/session"
)

func main() {
	var (
		device      = flag.String("device", "", "ASIO device name")
		profileName = flag.String("profile", "STANDARD", "transfer profile: FAST, STANDARD, ROBUST, DENSE")
		outDir      = flag.String("out", ".", "directory to write the received file into")
		quickCal    = flag.Bool("quick-calibration", false, "use the shorter calibration pass")
		calFile     = flag.String("calibration-file", "", "load/save calibration result from/to this YAML file")
	)
	flag.Parse()

	p, err := profile.Named(*profileName)
	if err != nil {
		log.Fatalf("recv: %v", err)
	}

	dev := &audio.ASIODevice{
		DeviceName: *device,
		SampleRate: float64(profile.Default.SampleRateHz),
		InChannel:  0,
		OutChannel: 0,
	}
	defer dev.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt)
		select {
		case <-sig:
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	spectrum := scanSpectrum(dev, profile.Default)

	var calibration calibrate.Result
	if *calFile != "" {
		if cached, err := calibrate.LoadResult(*calFile); err == nil {
			log.Printf("recv: reusing cached calibration from %s", *calFile)
			calibration = cached
		}
	}
	if len(calibration.Frequencies) == 0 {
		duration := calibrate.FullDuration
		if *quickCal {
			duration = calibrate.QuickDuration
		}
		log.Printf("recv: calibrating for %v...", duration)
		calibration, err = (calibrate.Calibrator{Audio: profile.Default}).Calibrate(ctx, duration, p, spectrum)
		if err != nil {
			log.Fatalf("recv: calibration failed: %v", err)
		}
		if *calFile != "" {
			if err := calibrate.SaveResult(*calFile, calibration); err != nil {
				log.Printf("recv: caching calibration: %v", err)
			}
		}
	}
	log.Printf("recv: calibrated carriers %v", calibration.Frequencies)

	receiver := session.NewReceiver(session.ReceiverConfig{
		Profile:     p,
		Audio:       profile.Default,
		Calibration: calibration,
	})

	g.Go(func() error {
		for ev := range receiver.Events {
			switch ev.Kind {
			case session.EventMetaReceived:
				log.Printf("recv: receiving %q (%d bytes in %d chunks)", ev.Metadata.Filename, ev.Metadata.Size, ev.Metadata.Chunks)
			case session.EventChunkReceived:
				log.Printf("recv: chunk %d/%d", ev.ChunkIndex+1, ev.ChunkTotal)
			case session.EventTransferDone:
				log.Printf("recv: transfer complete")
			case session.EventError:
				log.Printf("recv: error: %v", ev.Err)
			}
		}
		return nil
	})

	var narrowSpectrum audio.SpectrumSource
	var narrowSamples audio.SampleSource
	if p.Scheme == profile.FSK {
		narrowSpectrum = scanSpectrum(dev, profile.Default)
	} else {
		narrowSamples = dev
	}

	transfer, runErr := receiver.Run(ctx, narrowSpectrum, narrowSamples)
	close(receiver.Events)
	cancel()
	if werr := g.Wait(); werr != nil {
		log.Printf("recv: supervisor: %v", werr)
	}
	if runErr != nil {
		log.Fatalf("recv: %v", runErr)
	}

	if !transfer.ChecksumOK || !transfer.CRCOK {
		log.Printf("recv: WARNING integrity check failed (checksum ok=%v, crc ok=%v)", transfer.ChecksumOK, transfer.CRCOK)
	}

	outPath := *outDir + "/" + transfer.Filename
	if err := os.WriteFile(outPath, transfer.Bytes, 0o644); err != nil {
		log.Fatalf("recv: writing %s: %v", outPath, err)
	}
	log.Printf("recv: wrote %s (%d bytes)", outPath, len(transfer.Bytes))
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
