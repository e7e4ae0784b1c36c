package signal

import (
	"errors"
	"fmt"
	"math"

	"github.com/cellux/sigplay/config"
)

var ErrInvalidSample = errors.New("generator produced an invalid sample")

// GeneratorError reports the time and value of a failing sample.
type GeneratorError struct {
	T     float64
	Value Smp
	Err   error
}

func (e *GeneratorError) Error() string {
	if e.Err == ErrInvalidSample {
		return fmt.Sprintf("t=%.6f: %s (%v)", e.T, e.Err, e.Value)
	}
	return fmt.Sprintf("t=%.6f: %s", e.T, e.Err)
}

func (e *GeneratorError) Unwrap() error { return e.Err }

// Signal produces consecutive chunks of samples.
//
// Evaluate fills out with the samples for times t, t+1/rate, ... and
// returns the time of the sample following the chunk. Nodes may keep
// scratch space or filter memory, so a Signal must not be evaluated
// from two goroutines at once; Clone gives every consumer its own copy.
// A stateful node used twice in one graph, as in Add(f, f), advances twice
// per chunk; Clone splits it into independent copies.
type Signal interface {
	Evaluate(t float64, out []Smp, rate float64) (float64, error)
	Clone() Signal
}

// Eval allocates a chunk of n samples and evaluates s into it.
func Eval(s Signal, t float64, n int, rate float64) (Chunk, float64, error) {
	out := make(Chunk, n)
	next, err := s.Evaluate(t, out, rate)
	return out, next, err
}

func advance(t float64, n int, rate float64) float64 {
	return t + float64(n)/rate
}

// Osc drives a Generator with frequency, amplitude and phase Params.
type Osc struct {
	gen   Generator
	freq  Param
	amp   Param
	phase Param
}

type OscOption func(*Osc)

func WithFreq(p Param) OscOption  { return func(o *Osc) { o.freq = p } }
func WithAmp(p Param) OscOption   { return func(o *Osc) { o.amp = p } }
func WithPhase(p Param) OscOption { return func(o *Osc) { o.phase = p } }

// NewOsc builds an oscillator. Params not set by an option are taken
// from a snapshot of defaults; a nil store means config.Default().
func NewOsc(gen Generator, defaults *config.Store, opts ...OscOption) *Osc {
	d := config.Default()
	if defaults != nil {
		d = defaults.Get()
	}
	o := &Osc{gen: gen}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.freq == nil {
		o.freq = Const(d.Freq)
	}
	if o.amp == nil {
		o.amp = Const(d.Amp)
	}
	if o.phase == nil {
		o.phase = Const(d.Phase)
	}
	return o
}

func (o *Osc) Evaluate(t float64, out []Smp, rate float64) (float64, error) {
	for i := range out {
		ti := t + float64(i)/rate
		f := o.freq.At(ti)
		phase := math.Mod(ti*f+o.phase.At(ti), 1.0)
		if phase < 0 {
			phase += 1.0
		}
		if phase >= 1.0 {
			phase = 0
		}
		v, err := o.gen.Sample(phase)
		if err != nil {
			return t, &GeneratorError{T: ti, Value: v, Err: err}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return t, &GeneratorError{T: ti, Value: v, Err: ErrInvalidSample}
		}
		out[i] = v * o.amp.At(ti)
	}
	return advance(t, len(out), rate), nil
}

func (o *Osc) Clone() Signal {
	c := *o
	c.gen = cloneGenerator(o.gen)
	return &c
}

// Constant is a signal whose every sample is the same value.
type Constant Smp

func (c Constant) Evaluate(t float64, out []Smp, rate float64) (float64, error) {
	for i := range out {
		out[i] = Smp(c)
	}
	return advance(t, len(out), rate), nil
}

func (c Constant) Clone() Signal { return c }
