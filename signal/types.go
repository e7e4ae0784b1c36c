package signal

type Smp = float64

// Chunk is one block of samples produced by a single Evaluate call.
type Chunk []Smp

func clamp(value, lo, hi Smp) Smp {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// Clamp limits v to [-1,1].
func Clamp(v Smp) Smp {
	return clamp(v, -1, 1)
}
