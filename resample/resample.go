// Package resample converts rendered tapes between sample rates with
// libsamplerate.
package resample

import (
	"fmt"

	"github.com/dh1tw/gosamplerate"

	"github.com/cellux/sigplay/signal"
)

const (
	maxRatio = 1.0 * 16
	minRatio = 1.0 / 16
)

// Converter selects the libsamplerate algorithm; the values are the
// SRC_* converter types.
type Converter int

const (
	SincBest Converter = iota
	SincMedium
	SincFast
	ZeroOrder
	Linear
)

var converterNames = map[string]Converter{
	"best":   SincBest,
	"medium": SincMedium,
	"fast":   SincFast,
	"hold":   ZeroOrder,
	"linear": Linear,
}

func ParseConverter(name string) (Converter, error) {
	if c, ok := converterNames[name]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("unknown converter: %q", name)
}

func IsValidRatio(ratio float64) bool {
	if !gosamplerate.IsValidRatio(ratio) {
		return false
	}
	return ratio >= minRatio && ratio <= maxRatio
}

// Tape returns a copy of t converted to rate. A tape already at rate is
// returned as is.
func Tape(t *signal.Tape, rate float64, conv Converter) (*signal.Tape, error) {
	if rate == t.SampleRate {
		return t, nil
	}
	ratio := rate / t.SampleRate
	if !IsValidRatio(ratio) {
		return nil, fmt.Errorf("resample: invalid ratio: %f", ratio)
	}
	if len(t.Samples) == 0 {
		return &signal.Tape{SampleRate: rate}, nil
	}
	in := make([]float32, len(t.Samples))
	for i, smp := range t.Samples {
		in[i] = float32(smp)
	}
	out, err := gosamplerate.Simple(in, ratio, 1, int(conv))
	if err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}
	res := &signal.Tape{SampleRate: rate, Samples: make([]signal.Smp, len(out))}
	for i, smp := range out {
		res.Samples[i] = signal.Smp(smp)
	}
	return res, nil
}
