package modem

import (
	"math"

	"wavecast/pkg/calibrate"
	"wavecast/pkg/profile"
)

// Demodulator turns microphone spectrum frames (FSK) or raw PCM windows
// (QPSK/8PSK) into the receiver's bit stream. Output bits are appended in
// channel order as they arrive within a slot (for QPSK/8PSK, one pass over
// the channels per bit position of the symbol); silent channels are
// skipped, and a tick yielding no channel at all is discarded.
type Demodulator struct {
	Profile     profile.Profile
	Calibration calibrate.Result
	Audio       profile.AudioParams

	Bits []bool
}

// TickSpectrum processes one magnitude-spectrum frame under the FSK
// decision rule: for each channel, compare the magnitude at
// carrier-deviation and carrier+deviation; report silent if both are below
// threshold, else report 1 if the upper bin is larger.
func (d *Demodulator) TickSpectrum(frame []float64) {
	any := false
	slot := make([]bool, 0, d.Profile.NumChannels)

	for _, carrier := range d.Calibration.Frequencies {
		carrierHz := float64(carrier)
		bin0 := d.Audio.BinForFreq(carrierHz - float64(d.Audio.FSKDeviationHz))
		bin1 := d.Audio.BinForFreq(carrierHz + float64(d.Audio.FSKDeviationHz))

		m0 := magnitudeAt(frame, bin0)
		m1 := magnitudeAt(frame, bin1)

		if math.Max(m0, m1) < d.Audio.SignalThreshold {
			continue // channel silent, skipped within the slot
		}
		any = true
		slot = append(slot, m1 > m0)
	}

	if !any {
		return // tick discarded
	}
	d.Bits = append(d.Bits, slot...)
}

func magnitudeAt(frame []float64, bin int) float64 {
	if bin < 0 || bin >= len(frame) {
		return 0
	}
	return frame[bin]
}

// TickSamples processes one symbol-duration window of raw PCM under I/Q
// correlation against each channel's carrier.
func (d *Demodulator) TickSamples(window []float64) {
	if len(window) == 0 {
		return
	}

	bps := d.Profile.Scheme.BitsPerSymbol()
	slot := make([]bool, 0, d.Profile.NumChannels*bps)
	perChannel := make([][]bool, 0, len(d.Calibration.Frequencies))

	// All channels are frequency-division multiplexed onto the same slot —
	// every carrier is correlated against the whole window, not a
	// per-channel slice of it.
	for _, carrier := range d.Calibration.Frequencies {
		i, q := correlateIQ(window, float64(carrier), float64(d.Audio.SampleRateHz))
		mag := math.Hypot(i, q)
		if mag < d.Audio.CorrelationThreshold {
			continue
		}
		phase := math.Atan2(q, i)
		perChannel = append(perChannel, phaseToBits(phase, bps))
	}

	// A symbol carries bps consecutive bits of its channel's round-robin
	// stream, so bit j of every channel is emitted before bit j+1 of any
	// channel, restoring the sender's bit order.
	for j := 0; j < bps; j++ {
		for _, bits := range perChannel {
			if j < len(bits) {
				slot = append(slot, bits[j])
			}
		}
	}

	d.Bits = append(d.Bits, slot...)
}

// correlateIQ computes the in-phase/quadrature correlation of window
// against a cosine/sine carrier at carrierHz, normalized by window length.
func correlateIQ(window []float64, carrierHz, sampleRateHz float64) (i, q float64) {
	n := len(window)
	for idx, x := range window {
		t := float64(idx) / sampleRateHz
		i += x * math.Cos(2*math.Pi*carrierHz*t)
		q -= x * math.Sin(2*math.Pi*carrierHz*t)
	}
	return 2 * i / float64(n), 2 * q / float64(n)
}

// phaseToBits quantizes a correlated phase to the nearest constellation
// point and returns its bits, MSB-first, matching the modulator's maps.
func phaseToBits(phase float64, bps int) []bool {
	if phase < 0 {
		phase += 2 * math.Pi
	}

	var phases []float64
	switch bps {
	case 2:
		phases = qpskPhases[:]
	case 3:
		phases = psk8Phases[:]
	default:
		return nil
	}

	best := 0
	bestDist := math.MaxFloat64
	for idx, p := range phases {
		d := angularDistance(phase, p)
		if d < bestDist {
			bestDist = d
			best = idx
		}
	}

	bits := make([]bool, bps)
	for i := bps - 1; i >= 0; i-- {
		bits[i] = best&1 == 1
		best >>= 1
	}
	return bits
}

func angularDistance(a, b float64) float64 {
	d := math.Abs(a - b)
	if d > math.Pi {
		d = 2*math.Pi - d
	}
	return d
}
