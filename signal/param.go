package signal

// Param is an oscillator parameter resolved once per sample.
type Param interface {
	At(t float64) float64
}

// Const is a time-invariant Param.
type Const float64

func (c Const) At(float64) float64 { return float64(c) }

// ParamFunc computes a Param from absolute time in seconds. It must be
// safe to call from the goroutine that evaluates the signal.
type ParamFunc func(t float64) float64

func (f ParamFunc) At(t float64) float64 { return f(t) }
