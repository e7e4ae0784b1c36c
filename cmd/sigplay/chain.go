package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cellux/sigplay/config"
	"github.com/cellux/sigplay/filter"
	"github.com/cellux/sigplay/signal"
)

// toneSpec is one -tone argument: wave[:freq[:amp]]. Missing fields fall
// back to the configured defaults.
type toneSpec struct {
	kind    signal.Kind
	freq    float64
	amp     float64
	hasFreq bool
	hasAmp  bool
}

func parseTone(s string) (toneSpec, error) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return toneSpec{}, fmt.Errorf("tone %q: want wave[:freq[:amp]]", s)
	}
	kind, err := signal.ParseKind(parts[0])
	if err != nil {
		return toneSpec{}, fmt.Errorf("tone %q: %w", s, err)
	}
	ts := toneSpec{kind: kind}
	if len(parts) > 1 && parts[1] != "" {
		if ts.freq, err = strconv.ParseFloat(parts[1], 64); err != nil {
			return toneSpec{}, fmt.Errorf("tone %q: frequency: %w", s, err)
		}
		ts.hasFreq = true
	}
	if len(parts) > 2 && parts[2] != "" {
		if ts.amp, err = strconv.ParseFloat(parts[2], 64); err != nil {
			return toneSpec{}, fmt.Errorf("tone %q: amplitude: %w", s, err)
		}
		ts.hasAmp = true
	}
	return ts, nil
}

type toneList []toneSpec

func (l *toneList) String() string {
	names := make([]string, len(*l))
	for i, ts := range *l {
		names[i] = ts.kind.String()
	}
	return strings.Join(names, ",")
}

func (l *toneList) Set(s string) error {
	ts, err := parseTone(s)
	if err != nil {
		return err
	}
	*l = append(*l, ts)
	return nil
}

// band is a lo:hi frequency pair; the zero band is unset.
type band struct {
	lo, hi float64
}

func (b *band) String() string {
	if b.lo == 0 && b.hi == 0 {
		return ""
	}
	return fmt.Sprintf("%g:%g", b.lo, b.hi)
}

func (b *band) Set(s string) error {
	lo, hi, ok := strings.Cut(s, ":")
	if !ok {
		return fmt.Errorf("band %q: want lo:hi", s)
	}
	var err error
	if b.lo, err = strconv.ParseFloat(lo, 64); err != nil {
		return fmt.Errorf("band %q: %w", s, err)
	}
	if b.hi, err = strconv.ParseFloat(hi, 64); err != nil {
		return fmt.Errorf("band %q: %w", s, err)
	}
	return nil
}

type chainOptions struct {
	tones      toneList
	seed       uint
	lowpass    float64
	highpass   float64
	bandpass   band
	bandreject band
	bandwidth  float64
	window     string
	normalize  float64
}

// buildChain sums the tones and runs the result through the requested
// filters, in the order lowpass, highpass, bandpass, bandreject.
func buildChain(opts chainOptions, store *config.Store) (signal.Signal, error) {
	tones := opts.tones
	if len(tones) == 0 {
		tones = toneList{{kind: signal.KindSine}}
	}
	var sig signal.Signal
	for i, ts := range tones {
		gen, err := signal.NewGenerator(ts.kind, uint32(opts.seed)+uint32(i))
		if err != nil {
			return nil, err
		}
		var oscOpts []signal.OscOption
		if ts.hasFreq {
			oscOpts = append(oscOpts, signal.WithFreq(signal.Const(ts.freq)))
		}
		if ts.hasAmp {
			oscOpts = append(oscOpts, signal.WithAmp(signal.Const(ts.amp)))
		}
		osc := signal.NewOsc(gen, store, oscOpts...)
		if sig == nil {
			sig = osc
		} else {
			sig = signal.Add(sig, osc)
		}
	}

	window, err := filter.ParseWindow(opts.window)
	if err != nil {
		return nil, err
	}
	d := store.Get()
	cfg := filter.Config{
		ChunkSize:  d.ChunkSize,
		SampleRate: d.SampleRate,
		Bandwidth:  opts.bandwidth,
		Window:     window,
	}
	var f *filter.StreamFilter
	if opts.lowpass > 0 {
		if f, err = filter.NewLowpass(sig, opts.lowpass, cfg); err != nil {
			return nil, fmt.Errorf("lowpass: %w", err)
		}
		sig = f
	}
	if opts.highpass > 0 {
		if f, err = filter.NewHighpass(sig, opts.highpass, cfg); err != nil {
			return nil, fmt.Errorf("highpass: %w", err)
		}
		sig = f
	}
	if b := opts.bandpass; b != (band{}) {
		if f, err = filter.NewBandpass(sig, b.lo, b.hi, cfg); err != nil {
			return nil, fmt.Errorf("bandpass: %w", err)
		}
		sig = f
	}
	if b := opts.bandreject; b != (band{}) {
		if f, err = filter.NewBandreject(sig, b.lo, b.hi, cfg); err != nil {
			return nil, fmt.Errorf("bandreject: %w", err)
		}
		sig = f
	}
	if opts.normalize > 0 {
		sig = signal.Normalize(sig, opts.normalize)
	}
	return sig, nil
}
