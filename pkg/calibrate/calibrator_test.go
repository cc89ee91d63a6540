package calibrate

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"wavecast/pkg/profile"
)

// fixedSpectrum always returns the same frame, with noise concentrated in
// one band so selectBand has an unambiguous quiet region to find.
type fixedSpectrum struct {
	frame []float64
}

func (f fixedSpectrum) NextFrame(ctx context.Context) ([]float64, error) {
	return f.frame, nil
}

func TestCalibrateSelectsQuietestBand(t *testing.T) {
	a := profile.Default
	numBins := a.FFTSize/2 + 1
	frame := make([]float64, numBins)
	for i := range frame {
		frame[i] = 200 // loud everywhere by default
	}
	// carve out a quiet band around 5000Hz.
	for freq := 4000.0; freq <= 6000.0; freq += 10 {
		frame[a.BinForFreq(freq)] = 1
	}

	p := profile.STANDARD
	p.NumChannels = 4
	p.ChannelSpacingHz = 100

	c := Calibrator{Audio: a}
	result, err := c.Calibrate(context.Background(), 60*time.Millisecond, p, fixedSpectrum{frame: frame})
	require.NoError(t, err)
	require.Len(t, result.Frequencies, p.NumChannels)

	span := (p.NumChannels - 1) * p.ChannelSpacingHz
	require.GreaterOrEqual(t, result.Frequencies[0], 4000-span)
	require.LessOrEqual(t, result.Frequencies[len(result.Frequencies)-1], 6100)
}

func TestCalibrateNoViableBand(t *testing.T) {
	a := profile.Default
	a.FreqMaxHz = a.FreqMinHz + 50 // too narrow for any multi-channel profile

	c := Calibrator{Audio: a}
	_, err := c.Calibrate(context.Background(), 60*time.Millisecond, profile.ROBUST, fixedSpectrum{frame: make([]float64, 10)})
	require.ErrorIs(t, err, ErrNoViableBand)
}

func TestSaveLoadResultRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "calibration.yaml")

	want := Result{Frequencies: []int{3000, 3300, 3600, 3900}, NoiseFloor: []float64{1.5, 2.5, 0.25}}
	require.NoError(t, SaveResult(path, want))

	got, err := LoadResult(path)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestLoadResultMissingFile(t *testing.T) {
	_, err := LoadResult(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
