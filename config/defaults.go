package config

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
)

const (
	DefaultSampleRate  = 44100
	DefaultFreq        = 440
	DefaultAmp         = 1
	DefaultPhase       = 0
	DefaultChunkSize   = 1024
	DefaultBufferCount = 2
	DefaultLogLevel    = slog.LevelInfo
)

// Environment keys consulted by Load.
const (
	EnvSampleRate  = "SIGPLAY_SAMPLE_RATE"
	EnvFreq        = "SIGPLAY_FREQ"
	EnvAmp         = "SIGPLAY_AMP"
	EnvPhase       = "SIGPLAY_PHASE"
	EnvChunkSize   = "SIGPLAY_CHUNK_SIZE"
	EnvBufferCount = "SIGPLAY_BUFFER_COUNT"
	EnvLogLevel    = "SIGPLAY_LOG_LEVEL"
)

var envKeys = []string{EnvSampleRate, EnvFreq, EnvAmp, EnvPhase, EnvChunkSize, EnvBufferCount, EnvLogLevel}

// Defaults is the process-wide parameter record. Signals fall back to
// Freq, Amp and Phase when a parameter is omitted; players take
// SampleRate, ChunkSize and BufferCount from it at Play time. LogLevel
// is the level the command line tool logs at unless told otherwise.
type Defaults struct {
	SampleRate  float64
	Freq        float64
	Amp         float64
	Phase       float64
	ChunkSize   int
	BufferCount int
	LogLevel    slog.Level
}

// Store is the shared, lock-guarded Defaults instance.
type Store = Box[Defaults]

func Default() Defaults {
	return Defaults{
		SampleRate:  DefaultSampleRate,
		Freq:        DefaultFreq,
		Amp:         DefaultAmp,
		Phase:       DefaultPhase,
		ChunkSize:   DefaultChunkSize,
		BufferCount: DefaultBufferCount,
		LogLevel:    DefaultLogLevel,
	}
}

func NewStore(d Defaults) *Store {
	return NewBox(d)
}

func (d Defaults) Validate() error {
	if !(d.SampleRate > 0) || math.IsInf(d.SampleRate, 0) {
		return fmt.Errorf("invalid sample rate: %v", d.SampleRate)
	}
	if math.IsNaN(d.Freq) || math.IsInf(d.Freq, 0) {
		return fmt.Errorf("invalid default frequency: %v", d.Freq)
	}
	if math.IsNaN(d.Amp) || math.IsInf(d.Amp, 0) {
		return fmt.Errorf("invalid default amplitude: %v", d.Amp)
	}
	if math.IsNaN(d.Phase) || math.IsInf(d.Phase, 0) {
		return fmt.Errorf("invalid default phase: %v", d.Phase)
	}
	if d.ChunkSize <= 0 {
		return fmt.Errorf("invalid chunk size: %d", d.ChunkSize)
	}
	if d.BufferCount < 2 {
		return fmt.Errorf("buffer count must be at least 2, got %d", d.BufferCount)
	}
	return nil
}

// Load starts from Default, applies every dotenv file in order and
// then the process environment. Paths may start with ~.
func Load(files ...string) (Defaults, error) {
	d := Default()
	for _, file := range files {
		path, err := homedir.Expand(file)
		if err != nil {
			return d, fmt.Errorf("expand %s: %w", file, err)
		}
		vars, err := godotenv.Read(path)
		if err != nil {
			return d, fmt.Errorf("read %s: %w", path, err)
		}
		if d, err = Apply(d, vars); err != nil {
			return d, fmt.Errorf("%s: %w", path, err)
		}
	}
	env := make(map[string]string)
	for _, key := range envKeys {
		if v, ok := os.LookupEnv(key); ok {
			env[key] = v
		}
	}
	d, err := Apply(d, env)
	if err != nil {
		return d, err
	}
	return d, d.Validate()
}

// Apply overrides the fields of d named by the keys present in vars.
func Apply(d Defaults, vars map[string]string) (Defaults, error) {
	floats := []struct {
		key string
		dst *float64
	}{
		{EnvSampleRate, &d.SampleRate},
		{EnvFreq, &d.Freq},
		{EnvAmp, &d.Amp},
		{EnvPhase, &d.Phase},
	}
	for _, f := range floats {
		s, ok := vars[f.key]
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return d, fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = v
	}
	ints := []struct {
		key string
		dst *int
	}{
		{EnvChunkSize, &d.ChunkSize},
		{EnvBufferCount, &d.BufferCount},
	}
	for _, f := range ints {
		s, ok := vars[f.key]
		if !ok {
			continue
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return d, fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = v
	}
	if s, ok := vars[EnvLogLevel]; ok {
		// accepts debug, info, warn, error and offsets such as warn+2
		if err := d.LogLevel.UnmarshalText([]byte(s)); err != nil {
			return d, fmt.Errorf("%s: %w", EnvLogLevel, err)
		}
	}
	return d, nil
}
