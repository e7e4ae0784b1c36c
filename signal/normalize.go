package signal

import "math"

const DefaultNormalizeTop = 0.8

// minRampFrames bounds how fast the gain may move towards a new peak.
const minRampFrames = 32

// Normalizer rescales each chunk so that its peak lands on top. The
// gain ramps linearly from the previous chunk's peak to the current
// one, reaching it at the position of the current peak, so abrupt
// level changes do not click. The first chunk uses its own peak.
type Normalizer struct {
	src     Signal
	top     Smp
	lastMax Smp
}

// Normalize wraps s. A top <= 0 selects DefaultNormalizeTop.
func Normalize(s Signal, top Smp) *Normalizer {
	if top <= 0 {
		top = DefaultNormalizeTop
	}
	return &Normalizer{src: s, top: top}
}

func (n *Normalizer) Evaluate(t float64, out []Smp, rate float64) (float64, error) {
	next, err := n.src.Evaluate(t, out, rate)
	if err != nil {
		return t, err
	}
	peak := Smp(1e-10)
	peakPos := 1
	for i, v := range out {
		if a := math.Abs(v); a > peak {
			peak = a
			peakPos = i + 1
		}
	}
	ramp := float64(max(peakPos, minRampFrames))
	lastMax := n.lastMax
	if lastMax == 0 {
		// first chunk
		lastMax = peak
	}
	n.lastMax = peak
	for i := range out {
		gain := peak - lastMax
		if pos := float64(i + 1); pos < ramp {
			gain *= pos / ramp
		}
		gain += lastMax
		out[i] = out[i] / gain * n.top
	}
	return next, nil
}

func (n *Normalizer) Clone() Signal {
	c := *n
	c.src = n.src.Clone()
	return &c
}
