package filter

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// MagnitudeSpectrum returns |X[k]| for the bins 0..len(samples)/2.
func MagnitudeSpectrum(samples []float64) []float64 {
	n := len(samples)
	if n == 0 {
		return nil
	}
	x := fft.FFTReal(samples)
	mags := make([]float64, n/2+1)
	for k := range mags {
		mags[k] = cmplx.Abs(x[k])
	}
	return mags
}

// binFreq is the center frequency of bin k in an n-point transform.
func binFreq(k, n int, rate float64) float64 {
	return float64(k) * rate / float64(n)
}

// BandEnergy sums |X[k]|^2 over the bins whose frequency lies in
// [fLow, fHigh].
func BandEnergy(samples []float64, rate, fLow, fHigh float64) float64 {
	if fHigh < fLow {
		fLow, fHigh = fHigh, fLow
	}
	var energy float64
	for k, m := range MagnitudeSpectrum(samples) {
		if f := binFreq(k, len(samples), rate); f >= fLow && f <= fHigh {
			energy += m * m
		}
	}
	return energy
}

// PeakFrequency returns the frequency of the strongest non-DC bin.
func PeakFrequency(samples []float64, rate float64) float64 {
	mags := MagnitudeSpectrum(samples)
	best := 0
	for k := 1; k < len(mags); k++ {
		if best == 0 || mags[k] > mags[best] {
			best = k
		}
	}
	return binFreq(best, len(samples), rate)
}
