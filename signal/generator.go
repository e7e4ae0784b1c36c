package signal

import (
	"fmt"
	"math"
)

// Generator maps a phase in [0,1) to a sample in [-1,1].
type Generator interface {
	Sample(phase Smp) (Smp, error)
}

// StatefulGenerator is a Generator carrying state between calls. Clone
// returns an independent copy so that two consumers never share it.
type StatefulGenerator interface {
	Generator
	Clone() Generator
}

// Op is a pure waveform function.
type Op func(phase Smp) Smp

func (op Op) Sample(phase Smp) (Smp, error) {
	return op(phase), nil
}

// Func wraps user code. A returned error, NaN or infinity is fatal for
// the owning signal.
type Func func(phase Smp) (Smp, error)

func (f Func) Sample(phase Smp) (Smp, error) {
	return f(phase)
}

func SinOp() Op {
	return func(phase Smp) Smp {
		return math.Sin(phase * 2 * math.Pi)
	}
}

func TriangleOp() Op {
	return func(phase Smp) Smp {
		if phase <= 0.5 {
			return 4.0*phase - 1.0
		}
		return 3.0 - 4.0*phase
	}
}

func SawOp() Op {
	return func(phase Smp) Smp {
		return 2.0*phase - 1.0
	}
}

func RectOp() Op {
	return func(phase Smp) Smp {
		if phase <= 0.5 {
			return 1.0
		}
		return -1.0
	}
}

// Kind tags the built-in generators.
type Kind int

const (
	KindSine Kind = iota
	KindTriangle
	KindSaw
	KindRect
	KindWhiteNoise
	KindBrownNoise
)

var kindNames = map[Kind]string{
	KindSine:       "sine",
	KindTriangle:   "triangle",
	KindSaw:        "saw",
	KindRect:       "rect",
	KindWhiteNoise: "white",
	KindBrownNoise: "brown",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func ParseKind(name string) (Kind, error) {
	switch name {
	case "sine", "sin":
		return KindSine, nil
	case "triangle", "tri":
		return KindTriangle, nil
	case "saw":
		return KindSaw, nil
	case "rect", "square":
		return KindRect, nil
	case "white", "whitenoise", "noise":
		return KindWhiteNoise, nil
	case "brown", "brownnoise":
		return KindBrownNoise, nil
	}
	return 0, fmt.Errorf("unknown generator: %q", name)
}

// NewGenerator returns a fresh instance of a built-in generator. seed
// only matters for the noise kinds.
func NewGenerator(kind Kind, seed uint32) (Generator, error) {
	switch kind {
	case KindSine:
		return SinOp(), nil
	case KindTriangle:
		return TriangleOp(), nil
	case KindSaw:
		return SawOp(), nil
	case KindRect:
		return RectOp(), nil
	case KindWhiteNoise:
		return NewWhiteNoise(seed), nil
	case KindBrownNoise:
		return NewBrownNoise(seed), nil
	}
	return nil, fmt.Errorf("unknown generator kind %d", int(kind))
}

func cloneGenerator(gen Generator) Generator {
	if sg, ok := gen.(StatefulGenerator); ok {
		return sg.Clone()
	}
	return gen
}
