package signal

import (
	"fmt"
	"math"
	"time"
)

// Tape is a finite mono recording of a signal.
type Tape struct {
	SampleRate float64
	Samples    []Smp
}

func (t *Tape) String() string {
	return fmt.Sprintf("Tape(rate=%g nframes=%d)", t.SampleRate, len(t.Samples))
}

func (t *Tape) Duration() time.Duration {
	if t.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(t.Samples)) / t.SampleRate * float64(time.Second))
}

// Peak returns the largest absolute sample value.
func (t *Tape) Peak() Smp {
	var peak Smp
	for _, v := range t.Samples {
		peak = max(peak, math.Abs(v))
	}
	return peak
}

// Render evaluates nframes samples of s starting at t=0, chunkSize
// samples at a time. Signals such as stream filters only accept their
// configured chunk size, so the last chunk is computed in full and
// then cut. Rendering works on a clone of s and never advances the
// caller's graph.
func Render(s Signal, rate float64, nframes, chunkSize int) (*Tape, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("render: invalid chunk size %d", chunkSize)
	}
	if nframes < 0 {
		return nil, fmt.Errorf("render: invalid frame count %d", nframes)
	}
	s = s.Clone()
	nchunks := (nframes + chunkSize - 1) / chunkSize
	samples := make([]Smp, nchunks*chunkSize)
	var t float64
	for i := range nchunks {
		var err error
		t, err = s.Evaluate(t, samples[i*chunkSize:(i+1)*chunkSize], rate)
		if err != nil {
			return nil, fmt.Errorf("render: %w", err)
		}
	}
	return &Tape{
		SampleRate: rate,
		Samples:    samples[:nframes],
	}, nil
}
