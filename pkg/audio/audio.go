// Package audio defines the external audio interfaces.
package audio

import "context"

// Sink plays a mono PCM buffer at sampleRate. Implementations own the
// output device for the duration of a sender session.
type Sink interface {
	PlaySamples(ctx context.Context, pcm []float32, sampleRate int) error
}

// SpectrumSource delivers, at roughly 50Hz, a magnitude spectrum (values
// 0-255) from an 8192-point FFT of real PCM at 44.1kHz with a 0.3s
// smoothing time constant. Calibration and FSK
// demodulation consume this.
type SpectrumSource interface {
	NextFrame(ctx context.Context) ([]float64, error)
}

// SampleSource delivers raw mono PCM. Only the PSK I/Q-correlation demod
// path uses this, since phase detection needs the waveform itself and
// not just a magnitude spectrum.
type SampleSource interface {
	NextSamples(ctx context.Context, n int) ([]float64, error)
}
