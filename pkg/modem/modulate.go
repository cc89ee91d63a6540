// Package modem implements the multi-channel modulator/demodulator stack:
// bit strings are interleaved round-robin across N carriers, symbolized
// per the profile's scheme, and summed into chords that play back-to-back.
package modem

import (
	"math"

	"wavecast/pkg/calibrate"
	"wavecast/pkg/framer"
	"wavecast/pkg/profile"
)

// qpskPhases and psk8Phases are the constellation maps, indexed by the
// dibit/tribit value read MSB-first.
var qpskPhases = [4]float64{0, math.Pi / 2, math.Pi, 3 * math.Pi / 2}

var psk8Phases = [8]float64{
	0, math.Pi / 4, math.Pi / 2, 3 * math.Pi / 4,
	math.Pi, 5 * math.Pi / 4, 3 * math.Pi / 2, 7 * math.Pi / 4,
}

// Modulator turns an interleaved, framed bit string into time-domain PCM
// samples for a fixed profile and calibration result.
type Modulator struct {
	Profile     profile.Profile
	Calibration calibrate.Result
	Audio       profile.AudioParams
	Power       *PowerController
}

// Modulate interleaves, symbolizes per stream, synthesizes and sums
// chords, then emits slots back-to-back.
func (m Modulator) Modulate(bits []bool) []float32 {
	streams := framer.Interleave(bits, m.Profile.NumChannels)
	symbolsPerStream := symbolizeStreams(streams, m.Profile.Scheme)

	samplesPerSymbol := m.Audio.SampleRateHz * m.Profile.SymbolDurationMs / 1000
	numSlots := 0
	for _, s := range symbolsPerStream {
		numSlots = max(numSlots, len(s))
	}

	power := fixedPowerDefault
	if m.Power != nil {
		power = m.Power.Power()
	}
	amplitude := power / float64(m.Profile.NumChannels)

	out := make([]float32, numSlots*samplesPerSymbol)

	for slot := 0; slot < numSlots; slot++ {
		chord := make([]float64, samplesPerSymbol)
		for ch := 0; ch < m.Profile.NumChannels; ch++ {
			if slot >= len(symbolsPerStream[ch]) {
				continue
			}
			carrierHz := float64(m.Calibration.Frequencies[ch])
			addTone(chord, symbolsPerStream[ch][slot], carrierHz, amplitude, m.Profile.Scheme, m.Audio)
		}
		normalizeChord(chord)
		for i, v := range chord {
			out[slot*samplesPerSymbol+i] = float32(v)
		}
	}

	return out
}

// symbol carries either an FSK bit or a PSK phase offset, depending on
// scheme.
type symbol struct {
	bit   bool
	phase float64
}

// symbolizeStreams groups each channel's bit stream into symbols,
// padding the tail with zero bits.
func symbolizeStreams(streams [][]bool, scheme profile.Scheme) [][]symbol {
	out := make([][]symbol, len(streams))
	bps := scheme.BitsPerSymbol()

	for ch, stream := range streams {
		n := (len(stream) + bps - 1) / bps
		symbols := make([]symbol, n)
		for i := 0; i < n; i++ {
			switch scheme {
			case profile.FSK:
				symbols[i] = symbol{bit: bitAt(stream, i)}
			case profile.QPSK:
				v := dibitAt(stream, i*2)
				symbols[i] = symbol{phase: qpskPhases[v]}
			case profile.PSK8:
				v := tribitAt(stream, i*3)
				symbols[i] = symbol{phase: psk8Phases[v]}
			}
		}
		out[ch] = symbols
	}
	return out
}

func bitAt(stream []bool, i int) bool {
	if i < len(stream) {
		return stream[i]
	}
	return false
}

func dibitAt(stream []bool, start int) int {
	v := 0
	for j := 0; j < 2; j++ {
		v <<= 1
		if bitAt(stream, start+j) {
			v |= 1
		}
	}
	return v
}

func tribitAt(stream []bool, start int) int {
	v := 0
	for j := 0; j < 3; j++ {
		v <<= 1
		if bitAt(stream, start+j) {
			v |= 1
		}
	}
	return v
}

// addTone synthesizes one channel's symbol into dst, accumulating (chords
// sum all channels of a slot).
func addTone(dst []float64, s symbol, carrierHz, amplitude float64, scheme profile.Scheme, a profile.AudioParams) {
	freq := carrierHz
	phase := 0.0
	if scheme == profile.FSK {
		if s.bit {
			freq += float64(a.FSKDeviationHz)
		} else {
			freq -= float64(a.FSKDeviationHz)
		}
	} else {
		phase = s.phase
	}

	for i := range dst {
		t := float64(i) / float64(a.SampleRateHz)
		dst[i] += amplitude * math.Cos(2*math.Pi*freq*t+phase)
	}
}

// normalizeChord clamps a summed chord back into [-1,1], grounded on
// other_examples/playok-audio-modem__ofdm.go's ApplyAGC/amplitude
// normalization idiom.
func normalizeChord(chord []float64) {
	peak := 0.0
	for _, v := range chord {
		if absF(v) > peak {
			peak = absF(v)
		}
	}
	if peak <= 1.0 {
		return
	}
	for i := range chord {
		chord[i] /= peak
	}
}
