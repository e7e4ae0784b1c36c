package filter

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mjibson/go-dsp/fft"

	"github.com/cellux/sigplay/signal"
)

var (
	ErrKernelTooLong = errors.New("filter kernel does not fit the FFT window")
	ErrChunkSize     = errors.New("chunk length does not match the filter")
	ErrSampleRate    = errors.New("sample rate does not match the filter design")
)

// Config describes how a StreamFilter kernel is designed.
type Config struct {
	// ChunkSize is the block length the filter will be evaluated with.
	ChunkSize int
	// SampleRate is the rate the kernel is designed for.
	SampleRate float64
	// Bandwidth is the normalized transition bandwidth; 0 selects
	// DefaultBandwidth(ChunkSize).
	Bandwidth float64
	Window    Window
}

// MaxKernelSize is the longest odd kernel whose linear convolution with
// one chunk still fits an FFT window of twice the chunk length.
func MaxKernelSize(chunkSize int) int {
	m := chunkSize + 1
	if m%2 == 0 {
		m--
	}
	return m
}

// StreamFilter convolves a signal with a fixed FIR kernel, one chunk at
// a time, using FFT multiplication and overlap-add. The kernel spectrum
// is computed once; retuning means building a new filter.
type StreamFilter struct {
	src       signal.Signal
	chunkSize int
	fftSize   int
	taps      int
	clamped   bool

	// rate is the design rate of the kernel; 0 accepts any rate
	rate float64

	// spectrum is shared between clones and never written after New
	spectrum []complex128
	window   []float64
	carry    []float64
}

// New wraps src with the given kernel. The kernel must satisfy
// chunkSize + len(kernel) - 1 <= 2*chunkSize. Its taps are in samples, so
// the filter runs at whatever rate it is evaluated with.
func New(src signal.Signal, kernel []float64, chunkSize int) (*StreamFilter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("invalid chunk size: %d", chunkSize)
	}
	fftSize := 2 * chunkSize
	if len(kernel) == 0 {
		return nil, fmt.Errorf("%w: empty kernel", ErrKernelTooLong)
	}
	if chunkSize+len(kernel)-1 > fftSize {
		return nil, fmt.Errorf("%w: %d taps with chunk size %d (max %d)",
			ErrKernelTooLong, len(kernel), chunkSize, fftSize-chunkSize+1)
	}
	padded := make([]float64, fftSize)
	copy(padded, kernel)
	return &StreamFilter{
		src:       src,
		chunkSize: chunkSize,
		fftSize:   fftSize,
		taps:      len(kernel),
		spectrum:  fft.FFTReal(padded),
		window:    make([]float64, fftSize),
		carry:     make([]float64, chunkSize),
	}, nil
}

func (f *StreamFilter) Evaluate(t float64, out []signal.Smp, rate float64) (float64, error) {
	if len(out) != f.chunkSize {
		return t, fmt.Errorf("%w: got %d, want %d", ErrChunkSize, len(out), f.chunkSize)
	}
	if f.rate != 0 && rate != f.rate {
		return t, fmt.Errorf("%w: got %v Hz, designed for %v Hz", ErrSampleRate, rate, f.rate)
	}
	next, err := f.src.Evaluate(t, out, rate)
	if err != nil {
		return t, err
	}
	n := f.chunkSize
	copy(f.window, out)
	clear(f.window[n:])
	spec := fft.FFTReal(f.window)
	for k := range spec {
		spec[k] *= f.spectrum[k]
	}
	// fft.IFFT output is already scaled by 1/fftSize
	y := fft.IFFT(spec)
	for i := range out {
		out[i] = f.carry[i] + real(y[i])
		f.carry[i] = real(y[n+i])
	}
	return next, nil
}

func (f *StreamFilter) Clone() signal.Signal {
	c := *f
	c.src = f.src.Clone()
	c.window = make([]float64, f.fftSize)
	c.carry = append([]float64(nil), f.carry...)
	return &c
}

func (f *StreamFilter) ChunkSize() int { return f.chunkSize }

// Taps is the kernel length in use.
func (f *StreamFilter) Taps() int { return f.taps }

// Clamped reports whether the designed kernel had to be shortened to
// fit the FFT window.
func (f *StreamFilter) Clamped() bool { return f.clamped }

func (cfg Config) kernelSize() (size int, clamped bool, err error) {
	if cfg.ChunkSize <= 0 {
		return 0, false, fmt.Errorf("invalid chunk size: %d", cfg.ChunkSize)
	}
	if !(cfg.SampleRate > 0) {
		return 0, false, fmt.Errorf("invalid sample rate: %v", cfg.SampleRate)
	}
	bw := cfg.Bandwidth
	if bw == 0 {
		bw = DefaultBandwidth(cfg.ChunkSize)
	}
	if !(bw > 0) {
		return 0, false, fmt.Errorf("invalid bandwidth: %v", bw)
	}
	// compare before converting: a tiny bw overflows int
	if limit := MaxKernelSize(cfg.ChunkSize); 4/bw > float64(limit) {
		slog.Warn("filter kernel clamped", "bandwidth", bw, "requested", 4/bw, "taps", limit, "chunkSize", cfg.ChunkSize)
		return limit, true, nil
	}
	return KernelSize(bw), false, nil
}

func newDesigned(src signal.Signal, cfg Config, design func(size int) ([]float64, error)) (*StreamFilter, error) {
	size, clamped, err := cfg.kernelSize()
	if err != nil {
		return nil, err
	}
	kernel, err := design(size)
	if err != nil {
		return nil, err
	}
	f, err := New(src, kernel, cfg.ChunkSize)
	if err != nil {
		return nil, err
	}
	f.clamped = clamped
	f.rate = cfg.SampleRate
	return f, nil
}

func NewLowpass(src signal.Signal, freq float64, cfg Config) (*StreamFilter, error) {
	return newDesigned(src, cfg, func(size int) ([]float64, error) {
		return Lowpass(size, freq, cfg.SampleRate, cfg.Window)
	})
}

func NewHighpass(src signal.Signal, freq float64, cfg Config) (*StreamFilter, error) {
	return newDesigned(src, cfg, func(size int) ([]float64, error) {
		return Highpass(size, freq, cfg.SampleRate, cfg.Window)
	})
}

func NewBandpass(src signal.Signal, fLow, fHigh float64, cfg Config) (*StreamFilter, error) {
	return newDesigned(src, cfg, func(size int) ([]float64, error) {
		return Bandpass(size, fLow, fHigh, cfg.SampleRate, cfg.Window)
	})
}

func NewBandreject(src signal.Signal, fLow, fHigh float64, cfg Config) (*StreamFilter, error) {
	return newDesigned(src, cfg, func(size int) ([]float64, error) {
		return Bandreject(size, fLow, fHigh, cfg.SampleRate, cfg.Window)
	})
}
