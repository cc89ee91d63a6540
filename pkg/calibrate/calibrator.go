// Package calibrate probes the ambient acoustic channel and picks the
// quietest band of carrier frequencies for a given profile.
package calibrate

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"wavecast/pkg/audio"
	"wavecast/pkg/profile"
)

// ErrNoViableBand is returned when no base frequency lets every carrier of
// the requested profile fit inside [FreqMin, FreqMax].
var ErrNoViableBand = fmt.Errorf("calibrate: no viable band for this profile")

const (
	// QuickDuration and FullDuration are the two probe durations a caller
	// chooses between.
	QuickDuration = 2000 * time.Millisecond
	FullDuration  = 3000 * time.Millisecond

	sampleInterval = 50 * time.Millisecond
	scanStepHz     = 50
)

// Result is an immutable calibration outcome: an ordered, contiguous
// sequence of carrier frequencies plus the noise-floor vector captured
// while probing.
type Result struct {
	Frequencies []int     `yaml:"frequencies"`
	NoiseFloor  []float64 `yaml:"noise_floor"`
}

// Calibrator owns the fixed audio parameters used to interpret spectrum
// frames during a probe.
type Calibrator struct {
	Audio profile.AudioParams
}

// Calibrate samples source for duration, then scans candidate base
// frequencies for the profile's carrier count and spacing, selecting the
// base with the lowest mean noise across its carrier bins. Ties are broken
// by the lower frequency because the scan proceeds in ascending order and
// only replaces the best on a strict improvement.
func (c Calibrator) Calibrate(ctx context.Context, duration time.Duration, p profile.Profile, source audio.SpectrumSource) (Result, error) {
	noiseFloor, err := c.probe(ctx, duration, source)
	if err != nil {
		return Result{}, err
	}

	best, ok := c.selectBand(noiseFloor, p)
	if !ok {
		return Result{}, ErrNoViableBand
	}

	return Result{Frequencies: best, NoiseFloor: noiseFloor}, nil
}

// probe samples the microphone's magnitude spectrum roughly every 50ms for
// duration and returns the per-bin mean magnitude.
func (c Calibrator) probe(ctx context.Context, duration time.Duration, source audio.SpectrumSource) ([]float64, error) {
	deadline := time.Now().Add(duration)

	var sum []float64
	var count int

	for time.Now().Before(deadline) {
		frame, err := source.NextFrame(ctx)
		if err != nil {
			return nil, fmt.Errorf("calibrate: reading spectrum: %w", err)
		}
		if sum == nil {
			sum = make([]float64, len(frame))
		}
		for i, v := range frame {
			if i < len(sum) {
				sum[i] += v
			}
		}
		count++

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sampleInterval):
		}
	}

	if count == 0 {
		return nil, fmt.Errorf("calibrate: no spectrum frames captured")
	}
	for i := range sum {
		sum[i] /= float64(count)
	}
	return sum, nil
}

// selectBand scans base frequencies from FreqMin to FreqMax-N*spacing in
// 50Hz steps and picks the one whose N carrier bins have the lowest mean
// noise floor.
func (c Calibrator) selectBand(noiseFloor []float64, p profile.Profile) ([]int, bool) {
	a := c.Audio
	span := p.NumChannels * p.ChannelSpacingHz
	maxBase := a.FreqMaxHz - span

	if maxBase < a.FreqMinHz {
		return nil, false
	}

	bestMean := -1.0
	bestBase := 0
	found := false

	for base := a.FreqMinHz; base <= maxBase; base += scanStepHz {
		mean := meanNoiseForBase(noiseFloor, a, base, p)
		if !found || mean < bestMean {
			bestMean = mean
			bestBase = base
			found = true
		}
	}
	if !found {
		return nil, false
	}

	freqs := make([]int, p.NumChannels)
	for i := range freqs {
		freqs[i] = bestBase + i*p.ChannelSpacingHz
	}
	return freqs, true
}

// SaveResult writes a calibration Result to path as YAML, letting a host
// skip the probe on its next run against the same room and speaker
// placement.
func SaveResult(path string, result Result) error {
	b, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("calibrate: marshal result: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("calibrate: writing %s: %w", path, err)
	}
	return nil
}

// LoadResult reads back a Result previously written by SaveResult. Callers
// are responsible for deciding whether a cached calibration is still valid
// for the current room.
func LoadResult(path string) (Result, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("calibrate: reading %s: %w", path, err)
	}
	var result Result
	if err := yaml.Unmarshal(b, &result); err != nil {
		return Result{}, fmt.Errorf("calibrate: unmarshal result: %w", err)
	}
	return result, nil
}

func meanNoiseForBase(noiseFloor []float64, a profile.AudioParams, base int, p profile.Profile) float64 {
	var sum float64
	for i := 0; i < p.NumChannels; i++ {
		bin := a.BinForFreq(float64(base + i*p.ChannelSpacingHz))
		if bin >= 0 && bin < len(noiseFloor) {
			sum += noiseFloor[bin]
		}
	}
	return sum / float64(p.NumChannels)
}
