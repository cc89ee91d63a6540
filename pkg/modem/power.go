package modem

const (
	// MinPower and MaxPower bound the per-oscillator amplitude scale the
	// power controller may select.
	MinPower = 0.02
	MaxPower = 0.5

	fixedPowerDefault = 0.10
	targetSNRdB       = 15.0
	snrToleranceDB    = 2.0

	increaseFactor = 1.1
	decreaseFactor = 0.9
)

// PowerController implements the adaptive amplitude-control loop: after
// each reported reception SNR, it nudges power toward the target by a
// fixed multiplicative step, clamped to [MinPower, MaxPower]. When
// adaptive power is disabled, Power always reports the fixed default.
type PowerController struct {
	Adaptive bool

	power float64
}

// NewPowerController returns a controller starting at the fixed default
// power (used verbatim when Adaptive is false).
func NewPowerController(adaptive bool) *PowerController {
	return &PowerController{Adaptive: adaptive, power: fixedPowerDefault}
}

// Power returns the current per-oscillator amplitude scale.
func (c *PowerController) Power() float64 {
	if !c.Adaptive {
		return fixedPowerDefault
	}
	if c.power == 0 {
		c.power = fixedPowerDefault
	}
	return c.power
}

// ReportSNR feeds back the last measured reception SNR in dB and updates
// power per the target-SNR control law. A no-op when adaptive power is
// disabled.
func (c *PowerController) ReportSNR(snrDB float64) {
	if !c.Adaptive {
		return
	}
	if c.power == 0 {
		c.power = fixedPowerDefault
	}

	delta := targetSNRdB - snrDB
	switch {
	case absF(delta) < snrToleranceDB:
		// within tolerance, no change
	case delta > 0:
		c.power *= increaseFactor
	default:
		c.power *= decreaseFactor
	}

	c.power = clampF(c.power, MinPower, MaxPower)
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func clampF(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
