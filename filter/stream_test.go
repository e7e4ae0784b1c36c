package filter

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/cellux/sigplay/signal"
)

// sliceSignal plays back a fixed sample slice, then silence.
type sliceSignal struct {
	samples []float64
	pos     int
}

func (s *sliceSignal) Evaluate(t float64, out []signal.Smp, rate float64) (float64, error) {
	for i := range out {
		if s.pos < len(s.samples) {
			out[i] = s.samples[s.pos]
		} else {
			out[i] = 0
		}
		s.pos++
	}
	return t + float64(len(out))/rate, nil
}

func (s *sliceSignal) Clone() signal.Signal {
	c := *s
	return &c
}

func convolve(x, k []float64) []float64 {
	y := make([]float64, len(x))
	for n := range y {
		for j, h := range k {
			if n-j >= 0 {
				y[n] += h * x[n-j]
			}
		}
	}
	return y
}

func run(t *testing.T, s signal.Signal, chunkSize, chunks int) []float64 {
	t.Helper()
	var out []float64
	var tm float64
	buf := make([]float64, chunkSize)
	for i := 0; i < chunks; i++ {
		next, err := s.Evaluate(tm, buf, rate)
		if err != nil {
			t.Fatalf("chunk %d: %v", i, err)
		}
		tm = next
		out = append(out, buf...)
	}
	return out
}

func TestOverlapAddMatchesConvolution(t *testing.T) {
	const chunkSize = 64
	rng := rand.New(rand.NewSource(1))
	for _, taps := range []int{1, 7, 33, MaxKernelSize(chunkSize)} {
		kernel := make([]float64, taps)
		for i := range kernel {
			kernel[i] = rng.Float64()*2 - 1
		}
		input := make([]float64, 5*chunkSize)
		for i := range input {
			input[i] = rng.Float64()*2 - 1
		}
		f, err := New(&sliceSignal{samples: input}, kernel, chunkSize)
		if err != nil {
			t.Fatalf("New(%d taps): %v", taps, err)
		}
		got := run(t, f, chunkSize, 5)
		want := convolve(input, kernel)
		for i := range want {
			if math.Abs(got[i]-want[i]) > 1e-9 {
				t.Fatalf("%d taps: sample %d = %v, want %v", taps, i, got[i], want[i])
			}
		}
	}
}

func TestImpulseResponse(t *testing.T) {
	const chunkSize = 128
	kernel, err := Lowpass(101, 2000, rate, Blackman)
	if err != nil {
		t.Fatal(err)
	}
	f, err := New(&sliceSignal{samples: []float64{1}}, kernel, chunkSize)
	if err != nil {
		t.Fatal(err)
	}
	got := run(t, f, chunkSize, 2)
	for i := range got {
		want := 0.0
		if i < len(kernel) {
			want = kernel[i]
		}
		if math.Abs(got[i]-want) > 1e-12 {
			t.Fatalf("sample %d = %v, want %v", i, got[i], want)
		}
	}
}

func TestCascadedLowpass(t *testing.T) {
	const chunkSize = 1024
	const chunks = 8
	cfg := Config{ChunkSize: chunkSize, SampleRate: rate}
	// 500 Hz and 5000 Hz both fall on exact bins of a 4410-point transform
	tones := func() signal.Signal {
		lo := signal.NewOsc(signal.SinOp(), nil, signal.WithFreq(signal.Const(500)), signal.WithAmp(signal.Const(0.5)))
		hi := signal.NewOsc(signal.SinOp(), nil, signal.WithFreq(signal.Const(5000)), signal.WithAmp(signal.Const(0.5)))
		return signal.Add(lo, hi)
	}

	once, err := NewLowpass(tones(), 1000, cfg)
	if err != nil {
		t.Fatal(err)
	}
	first, err := NewLowpass(tones(), 1000, cfg)
	if err != nil {
		t.Fatal(err)
	}
	twice, err := NewLowpass(first, 1000, cfg)
	if err != nil {
		t.Fatal(err)
	}

	// skip the start-up transient of two cascaded kernels
	const from, n = 3 * chunkSize, 4410
	raw := run(t, tones(), chunkSize, chunks)[from : from+n]
	a := run(t, once, chunkSize, chunks)[from : from+n]
	b := run(t, twice, chunkSize, chunks)[from : from+n]

	const lo, hi = 2000, rate / 2
	eRaw := BandEnergy(raw, rate, lo, hi)
	eOnce := BandEnergy(a, rate, lo, hi)
	eTwice := BandEnergy(b, rate, lo, hi)
	if !(eOnce < 1e-6*eRaw) {
		t.Errorf("one pass: stopband energy %v of %v", eOnce, eRaw)
	}
	if !(eTwice < eOnce) {
		t.Errorf("second pass did not attenuate further: %v >= %v", eTwice, eOnce)
	}
	if f := PeakFrequency(b, rate); f != 500 {
		t.Errorf("peak after filtering = %v Hz, want 500", f)
	}
}

func TestKernelTooLong(t *testing.T) {
	const chunkSize = 64
	if _, err := New(signal.Constant(0), make([]float64, MaxKernelSize(chunkSize)), chunkSize); err != nil {
		t.Fatalf("max kernel rejected: %v", err)
	}
	_, err := New(signal.Constant(0), make([]float64, chunkSize+3), chunkSize)
	if !errors.Is(err, ErrKernelTooLong) {
		t.Fatalf("err = %v, want ErrKernelTooLong", err)
	}
	if _, err := New(signal.Constant(0), nil, chunkSize); !errors.Is(err, ErrKernelTooLong) {
		t.Fatalf("empty kernel: err = %v", err)
	}
}

func TestDesignedKernelIsClamped(t *testing.T) {
	cfg := Config{ChunkSize: 256, SampleRate: rate, Bandwidth: 0.001}
	f, err := NewLowpass(signal.Constant(0), 1000, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !f.Clamped() || f.Taps() != MaxKernelSize(256) {
		t.Errorf("clamped = %v, taps = %d", f.Clamped(), f.Taps())
	}

	for _, bw := range []float64{1e-20, math.SmallestNonzeroFloat64} {
		cfg.Bandwidth = bw
		f, err = NewLowpass(signal.Constant(0), 1000, cfg)
		if err != nil {
			t.Fatalf("bandwidth %v: %v", bw, err)
		}
		if !f.Clamped() || f.Taps() != MaxKernelSize(256) {
			t.Errorf("bandwidth %v: clamped = %v, taps = %d", bw, f.Clamped(), f.Taps())
		}
	}

	cfg.Bandwidth = 0
	f, err = NewHighpass(signal.Constant(0), 1000, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if f.Clamped() || f.Taps() != 257 {
		t.Errorf("default bandwidth: clamped = %v, taps = %d", f.Clamped(), f.Taps())
	}
}

func TestChunkSizeMismatch(t *testing.T) {
	f, err := NewBandpass(signal.Constant(0), 200, 400, Config{ChunkSize: 128, SampleRate: rate})
	if err != nil {
		t.Fatal(err)
	}
	_, err = f.Evaluate(0, make([]float64, 64), rate)
	if !errors.Is(err, ErrChunkSize) {
		t.Fatalf("err = %v, want ErrChunkSize", err)
	}
}

func TestSampleRateMismatch(t *testing.T) {
	f, err := NewLowpass(signal.Constant(0), 1000, Config{ChunkSize: 64, SampleRate: rate})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Evaluate(0, make([]float64, 64), rate); err != nil {
		t.Fatalf("design rate rejected: %v", err)
	}
	if _, err := f.Evaluate(0, make([]float64, 64), 48000); !errors.Is(err, ErrSampleRate) {
		t.Fatalf("err = %v, want ErrSampleRate", err)
	}

	// a raw kernel has no design rate
	raw, err := New(signal.Constant(0), []float64{1}, 64)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := raw.Evaluate(0, make([]float64, 64), 48000); err != nil {
		t.Errorf("raw kernel at 48000 Hz: %v", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	const chunkSize = 64
	rng := rand.New(rand.NewSource(2))
	input := make([]float64, 8*chunkSize)
	for i := range input {
		input[i] = rng.Float64()*2 - 1
	}
	f, err := NewBandreject(&sliceSignal{samples: input}, 1000, 4000,
		Config{ChunkSize: chunkSize, SampleRate: rate})
	if err != nil {
		t.Fatal(err)
	}
	run(t, f, chunkSize, 3)
	c := f.Clone()
	a := run(t, f, chunkSize, 3)
	b := run(t, c, chunkSize, 3)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d: original %v, clone %v", i, a[i], b[i])
		}
	}
}

func TestPeakFrequency(t *testing.T) {
	const n = 4410 // 10 Hz bins
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = math.Sin(2*math.Pi*1000*float64(i)/rate) + 0.1*math.Sin(2*math.Pi*5000*float64(i)/rate)
	}
	if f := PeakFrequency(samples, rate); f != 1000 {
		t.Errorf("PeakFrequency = %v, want 1000", f)
	}
	if e := BandEnergy(samples, rate, 900, 1100); e <= BandEnergy(samples, rate, 4900, 5100) {
		t.Errorf("1000 Hz band weaker than 5000 Hz band")
	}
	if MagnitudeSpectrum(nil) != nil {
		t.Error("empty spectrum not nil")
	}
}
