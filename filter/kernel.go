// Package filter designs windowed-sinc FIR kernels and applies them to
// signals with FFT overlap-add convolution.
package filter

import (
	"errors"
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/window"
)

var (
	ErrEvenKernel = errors.New("filter kernel size must be odd")
	ErrCutoff     = errors.New("cutoff frequency out of range")
)

// Window tapers a sinc to reduce sidelobes.
type Window int

const (
	Blackman Window = iota
	Hamming
	BlackmanHarris
)

func (w Window) String() string {
	switch w {
	case Blackman:
		return "blackman"
	case Hamming:
		return "hamming"
	case BlackmanHarris:
		return "blackman-harris"
	}
	return fmt.Sprintf("Window(%d)", int(w))
}

func ParseWindow(name string) (Window, error) {
	switch name {
	case "blackman":
		return Blackman, nil
	case "hamming":
		return Hamming, nil
	case "blackman-harris", "blackmanharris":
		return BlackmanHarris, nil
	}
	return 0, fmt.Errorf("unknown window: %q", name)
}

// weights returns the window function applied to a kernel.
func (w Window) weights() func(int) []float64 {
	switch w {
	case Hamming:
		return window.Hamming
	case BlackmanHarris:
		return blackmanHarris
	default:
		return window.Blackman
	}
}

// blackmanHarris is the 4-term Blackman-Harris window over L points.
func blackmanHarris(L int) []float64 {
	r := make([]float64, L)
	if L == 1 {
		r[0] = 1
		return r
	}
	for n := range r {
		x := 2 * math.Pi * float64(n) / float64(L-1)
		r[n] = 0.35875 - 0.48829*math.Cos(x) + 0.14128*math.Cos(2*x) - 0.01168*math.Cos(3*x)
	}
	return r
}

// KernelSize returns the odd kernel length for a normalized transition
// bandwidth bw (fraction of the sample rate): ceil(4/bw), rounded up to
// the next odd number. Sizes that do not fit an int32 saturate at
// math.MaxInt32.
func KernelSize(bw float64) int {
	c := math.Ceil(4 / bw)
	if !(c < math.MaxInt32) {
		return math.MaxInt32
	}
	m := int(c)
	if m%2 == 0 {
		m++
	}
	return m
}

// DefaultBandwidth is the transition bandwidth whose kernel exactly
// fills the overlap-add budget of a filter running on chunkSize blocks.
func DefaultBandwidth(chunkSize int) float64 {
	return 4 / float64(chunkSize)
}

func checkDesign(size int, f, rate float64) error {
	if size <= 0 || size%2 != 1 {
		return fmt.Errorf("%w: %d", ErrEvenKernel, size)
	}
	if !(f > 0) || f >= rate/2 {
		return fmt.Errorf("%w: %v Hz at %v Hz", ErrCutoff, f, rate)
	}
	return nil
}

func sinc(out []float64, f, rate float64) {
	m := float64(len(out)-1) / 2
	pfc := 2 * math.Pi * f / rate
	for i := range out {
		x := float64(i) - m
		if x == 0 {
			out[i] = pfc
		} else {
			out[i] = math.Sin(pfc*x) / x
		}
	}
}

func normalize(k []float64) {
	var sum float64
	for _, v := range k {
		sum += v
	}
	for i := range k {
		k[i] /= sum
	}
}

// SpectralInversion turns a lowpass kernel into the matching highpass
// in place: every tap is negated and the center tap gets 1 added.
func SpectralInversion(k []float64) {
	for i := range k {
		k[i] = -k[i]
	}
	k[(len(k)-1)/2] += 1
}

// Lowpass designs a unity-DC-gain lowpass kernel with cutoff f.
func Lowpass(size int, f, rate float64, w Window) ([]float64, error) {
	if err := checkDesign(size, f, rate); err != nil {
		return nil, err
	}
	k := make([]float64, size)
	sinc(k, f, rate)
	window.Apply(k, w.weights())
	normalize(k)
	return k, nil
}

func Highpass(size int, f, rate float64, w Window) ([]float64, error) {
	k, err := Lowpass(size, f, rate, w)
	if err != nil {
		return nil, err
	}
	SpectralInversion(k)
	return k, nil
}

// Bandpass passes [fLow, fHigh]. The edges are swapped if given in the
// wrong order.
func Bandpass(size int, fLow, fHigh, rate float64, w Window) ([]float64, error) {
	if fHigh < fLow {
		fLow, fHigh = fHigh, fLow
	}
	k, err := Lowpass(size, fHigh, rate, w)
	if err != nil {
		return nil, err
	}
	low, err := Lowpass(size, fLow, rate, w)
	if err != nil {
		return nil, err
	}
	for i := range k {
		k[i] -= low[i]
	}
	return k, nil
}

// Bandreject stops [fLow, fHigh].
func Bandreject(size int, fLow, fHigh, rate float64, w Window) ([]float64, error) {
	k, err := Bandpass(size, fLow, fHigh, rate, w)
	if err != nil {
		return nil, err
	}
	SpectralInversion(k)
	return k, nil
}
