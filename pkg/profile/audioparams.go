package profile

// AudioParams are the fixed, normative audio-path constants. Changing any
// of these invalidates calibration results and bin indices computed
// against them.
type AudioParams struct {
	SampleRateHz         int
	FFTSize              int
	FSKDeviationHz       int
	FreqMinHz            int
	FreqMaxHz            int
	SignalThreshold      float64 // 0-255 magnitude scale, FSK spectrum-frame path only
	CorrelationThreshold float64 // amplitude-domain magnitude, PSK/8-PSK I/Q path only
	SpectrumHz           float64 // host delivers one frame at roughly this rate
	SmoothingTauSecs     float64
}

// Default is the sole normative AudioParams instance; the module never
// constructs an alternate one outside of tests exercising bin-mapping edge
// cases.
//
// CorrelationThreshold is set well below the smallest per-channel amplitude
// a PSK/8-PSK profile produces at the fixed default power (0.10 split across
// up to 16 channels, so as low as ~0.006), with margin to stay clear of
// zero in a quiet channel.
var Default = AudioParams{
	SampleRateHz:         44100,
	FFTSize:              8192,
	FSKDeviationHz:       100,
	FreqMinHz:            2000,
	FreqMaxHz:            10000,
	SignalThreshold:      80,
	CorrelationThreshold: 0.003,
	SpectrumHz:           50,
	SmoothingTauSecs:     0.3,
}

// BinWidthHz is the frequency resolution of one FFT bin under these params.
func (a AudioParams) BinWidthHz() float64 {
	return float64(a.SampleRateHz) / float64(a.FFTSize)
}

// BinForFreq maps a frequency in Hz to the nearest FFT bin index.
func (a AudioParams) BinForFreq(freqHz float64) int {
	return int(freqHz/a.BinWidthHz() + 0.5)
}
