package signal

// xorshift32 PRNG; a zero seed is mapped to 1 to avoid lockup.
type xorshift32 uint32

func newXorshift32(seed uint32) xorshift32 {
	if seed == 0 {
		seed = 1
	}
	return xorshift32(seed)
}

// next returns a uniform value in [-1,1].
func (x *xorshift32) next() Smp {
	state := uint32(*x)
	state ^= state << 13
	state ^= state >> 17
	state ^= state << 5
	*x = xorshift32(state)
	u := float64(state) / float64(^uint32(0))
	return Smp(2*u - 1)
}

// WhiteNoise ignores the phase and returns uniform noise in [-1,1].
type WhiteNoise struct {
	rng xorshift32
}

func NewWhiteNoise(seed uint32) *WhiteNoise {
	return &WhiteNoise{rng: newXorshift32(seed)}
}

func (n *WhiteNoise) Sample(Smp) (Smp, error) {
	return n.rng.next(), nil
}

func (n *WhiteNoise) Clone() Generator {
	c := *n
	return &c
}

// BrownNoise is a random walk: each sample adds a uniform step in
// [-1,1] to the previous one and clamps the result to [-1,1].
type BrownNoise struct {
	rng  xorshift32
	last Smp
}

func NewBrownNoise(seed uint32) *BrownNoise {
	return &BrownNoise{rng: newXorshift32(seed)}
}

func (n *BrownNoise) Sample(Smp) (Smp, error) {
	n.last = Clamp(n.last + n.rng.next())
	return n.last, nil
}

func (n *BrownNoise) Clone() Generator {
	c := *n
	return &c
}
