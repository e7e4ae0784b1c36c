// Command sigplay plays or renders a sum of tones, optionally filtered.
//
//	sigplay -tone sine:440 -tone saw:110:0.3 -lowpass 2000 -duration 5s
//	sigplay -tone white -bandpass 300:3000 -duration 2s -o noise.wav
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/mitchellh/go-homedir"

	"github.com/cellux/sigplay/config"
	"github.com/cellux/sigplay/player"
	"github.com/cellux/sigplay/resample"
	"github.com/cellux/sigplay/signal"
	"github.com/cellux/sigplay/wavfile"
)

const defaultEnvFile = "~/.sigplay.env"

type options struct {
	chain     chainOptions
	duration  time.Duration
	output    string
	bits      int
	outRate   float64
	converter string
	backend   string
	envFile   string
	logLevel  string
}

func parseFlags(args []string) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("sigplay", flag.ContinueOnError)
	fs.Var(&opts.chain.tones, "tone", "add a tone `wave[:freq[:amp]]` (sine, triangle, saw, rect, white, brown); repeatable")
	fs.UintVar(&opts.chain.seed, "seed", 1, "noise seed")
	fs.Float64Var(&opts.chain.lowpass, "lowpass", 0, "lowpass cutoff in Hz")
	fs.Float64Var(&opts.chain.highpass, "highpass", 0, "highpass cutoff in Hz")
	fs.Var(&opts.chain.bandpass, "bandpass", "bandpass edges `lo:hi` in Hz")
	fs.Var(&opts.chain.bandreject, "bandreject", "bandreject edges `lo:hi` in Hz")
	fs.Float64Var(&opts.chain.bandwidth, "bw", 0, "normalized transition bandwidth (0: widest kernel that fits a chunk)")
	fs.StringVar(&opts.chain.window, "window", "blackman", "kernel window: blackman, hamming, blackman-harris")
	fs.Float64Var(&opts.chain.normalize, "normalize", 0, "normalize to this peak level (0: off)")
	fs.DurationVar(&opts.duration, "duration", 0, "play or render time (0: play until interrupted)")
	fs.StringVar(&opts.output, "o", "", "render to this WAV file instead of playing")
	fs.IntVar(&opts.bits, "bits", 16, "WAV bit depth: 8, 16, 24 or 32")
	fs.Float64Var(&opts.outRate, "out-rate", 0, "resample the rendered file to this rate")
	fs.StringVar(&opts.converter, "converter", "best", "resampler: best, medium, fast, hold, linear")
	fs.StringVar(&opts.backend, "backend", "oto", fmt.Sprintf("output backend %v", backendNames()))
	fs.StringVar(&opts.envFile, "env", "", "dotenv file with SIGPLAY_* defaults (default "+defaultEnvFile+" if present)")
	fs.StringVar(&opts.logLevel, "log", "", "log level: debug, info, warn, error (default $"+config.EnvLogLevel+" or info)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

func loadDefaults(envFile string) (config.Defaults, error) {
	if envFile != "" {
		return config.Load(envFile)
	}
	if _, err := os.Stat(expandOrSelf(defaultEnvFile)); err == nil {
		return config.Load(defaultEnvFile)
	}
	return config.Load()
}

func expandOrSelf(path string) string {
	if p, err := homedir.Expand(path); err == nil {
		return p
	}
	return path
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	d, err := loadDefaults(opts.envFile)
	if err != nil {
		return err
	}
	if opts.logLevel != "" {
		if d.LogLevel, err = ResolveLogLevel(opts.logLevel); err != nil {
			return err
		}
	}
	InitLogger(d.LogLevel)
	store := config.NewStore(d)
	sig, err := buildChain(opts.chain, store)
	if err != nil {
		return err
	}
	if opts.output != "" {
		return render(sig, d, opts)
	}
	return play(sig, store, opts)
}

func render(sig signal.Signal, d config.Defaults, opts *options) error {
	if opts.duration <= 0 {
		return errors.New("rendering needs a positive -duration")
	}
	frames := int(math.Round(opts.duration.Seconds() * d.SampleRate))
	tape, err := signal.Render(sig, d.SampleRate, frames, d.ChunkSize)
	if err != nil {
		return err
	}
	if opts.outRate > 0 {
		conv, err := resample.ParseConverter(opts.converter)
		if err != nil {
			return err
		}
		if tape, err = resample.Tape(tape, opts.outRate, conv); err != nil {
			return err
		}
	}
	if err := wavfile.Write(opts.output, tape, opts.bits); err != nil {
		return err
	}
	logger.Info("rendered", "path", opts.output, "tape", tape.String(), "duration", tape.Duration(), "peak", tape.Peak())
	return nil
}

func play(sig signal.Signal, store *config.Store, opts *options) error {
	dev, err := lookupBackend(opts.backend)
	if err != nil {
		return err
	}
	reg := player.NewRegistry()
	defer reg.Clear()
	p := player.New(sig, dev, store, player.WithLogger(logger), player.WithRegistry(reg))
	if err := p.Play(); err != nil {
		return err
	}

	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
wait:
	for {
		select {
		case <-ctx.Done():
			break wait
		case <-ticker.C:
			if p.Status() != player.Playing {
				break wait
			}
		}
	}
	if err := reg.StopAll(); err != nil {
		logger.Warn("stopping players", "err", err)
	}
	st := p.Stats()
	logger.Info("done", "produced", st.Produced, "consumed", st.Consumed, "underruns", st.Underruns)
	return p.Err()
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatalf("%v\n", err)
	}
}
