package modem

import (
	"math"

	"wavecast/pkg/calibrate"
	"wavecast/pkg/profile"
)

const (
	preambleChordMs   = 150
	preambleSilenceMs = 50
	preambleChords    = 3
)

// PlayPreamble synthesizes the three priming chords: a chord of all
// calibrated carriers summed together, 150ms each, separated by 50ms of
// silence. This is distinct from per-packet framing — it exists only to
// prime the receiver's signal detector before the first Meta packet,
// matching the prior separation of preamble detection from
// data-extraction state.
func PlayPreamble(calibration calibrate.Result, audio profile.AudioParams, power float64) []float32 {
	chordSamples := audio.SampleRateHz * preambleChordMs / 1000
	silenceSamples := audio.SampleRateHz * preambleSilenceMs / 1000

	amplitude := power / float64(max(1, len(calibration.Frequencies)))

	var out []float32
	for c := 0; c < preambleChords; c++ {
		chord := make([]float64, chordSamples)
		for _, carrier := range calibration.Frequencies {
			for i := range chord {
				t := float64(i) / float64(audio.SampleRateHz)
				chord[i] += amplitude * math.Cos(2*math.Pi*float64(carrier)*t)
			}
		}
		normalizeChord(chord)
		for _, v := range chord {
			out = append(out, float32(v))
		}
		if c < preambleChords-1 {
			out = append(out, make([]float32, silenceSamples)...)
		}
	}
	return out
}
