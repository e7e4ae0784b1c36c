package signal

import "fmt"

type BinOp func(x, y Smp) Smp

func AddOp() BinOp {
	return func(x, y Smp) Smp { return x + y }
}

func MulOp() BinOp {
	return func(x, y Smp) Smp { return x * y }
}

// Combined evaluates two signals at the same time and merges them
// sample by sample, clamping the result to [-1,1].
type Combined struct {
	name    string
	lhs     Signal
	rhs     Signal
	op      BinOp
	scratch []Smp
}

func combine(name string, lhs, rhs Signal, op BinOp) *Combined {
	return &Combined{name: name, lhs: lhs, rhs: rhs, op: op}
}

func Add(lhs, rhs Signal) *Combined {
	return combine("add", lhs, rhs, AddOp())
}

func Mul(lhs, rhs Signal) *Combined {
	return combine("mul", lhs, rhs, MulOp())
}

// Scale multiplies s by a constant factor.
func Scale(s Signal, k Smp) *Combined {
	return Mul(s, Constant(k))
}

// Offset adds a constant to s.
func Offset(s Signal, c Smp) *Combined {
	return Add(s, Constant(c))
}

func (c *Combined) Evaluate(t float64, out []Smp, rate float64) (float64, error) {
	if cap(c.scratch) < len(out) {
		c.scratch = make([]Smp, len(out))
	}
	other := c.scratch[:len(out)]
	if _, err := c.lhs.Evaluate(t, out, rate); err != nil {
		return t, fmt.Errorf("%s: %w", c.name, err)
	}
	next, err := c.rhs.Evaluate(t, other, rate)
	if err != nil {
		return t, fmt.Errorf("%s: %w", c.name, err)
	}
	for i := range out {
		out[i] = Clamp(c.op(out[i], other[i]))
	}
	return next, nil
}

func (c *Combined) Clone() Signal {
	return &Combined{
		name: c.name,
		lhs:  c.lhs.Clone(),
		rhs:  c.rhs.Clone(),
		op:   c.op,
	}
}
