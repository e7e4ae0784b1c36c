// Package wavfile stores rendered tapes as mono PCM WAV files.
package wavfile

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mitchellh/go-homedir"

	"github.com/cellux/sigplay/signal"
)

var ErrBitDepth = errors.New("unsupported bit depth")

const (
	formatPCM   = 1
	writeFrames = 4096
)

func checkBitDepth(bitDepth int) error {
	switch bitDepth {
	case 8, 16, 24, 32:
		return nil
	}
	return fmt.Errorf("%w: %d", ErrBitDepth, bitDepth)
}

func fullScale(bitDepth int) float64 {
	return float64(int64(1)<<(bitDepth-1) - 1)
}

// quantize maps a sample in [-1,1] to a PCM integer. 8-bit WAV data is
// unsigned and centered on 128.
func quantize(s signal.Smp, bitDepth int) int {
	v := int(math.Round(signal.Clamp(s) * fullScale(bitDepth)))
	if bitDepth == 8 {
		v += 128
	}
	return v
}

func dequantize(v, bitDepth int) signal.Smp {
	if bitDepth == 8 {
		v -= 128
	}
	return signal.Smp(v) / fullScale(bitDepth)
}

// Encode writes tape to w as a WAV stream.
func Encode(w io.WriteSeeker, tape *signal.Tape, bitDepth int) error {
	if err := checkBitDepth(bitDepth); err != nil {
		return err
	}
	rate := int(math.Round(tape.SampleRate))
	if rate <= 0 {
		return fmt.Errorf("invalid sample rate: %v", tape.SampleRate)
	}
	format := &audio.Format{SampleRate: rate, NumChannels: 1}
	enc := wav.NewEncoder(w, rate, bitDepth, 1, formatPCM)
	buf := &audio.IntBuffer{Format: format, SourceBitDepth: bitDepth, Data: make([]int, 0, writeFrames)}
	for start := 0; start < len(tape.Samples); start += writeFrames {
		end := min(start+writeFrames, len(tape.Samples))
		buf.Data = buf.Data[:0]
		for _, s := range tape.Samples[start:end] {
			buf.Data = append(buf.Data, quantize(s, bitDepth))
		}
		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("encode wav: %w", err)
		}
	}
	if len(tape.Samples) == 0 {
		buf.Data = buf.Data[:0]
		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("encode wav: %w", err)
		}
	}
	return enc.Close()
}

// Write stores tape at path, which may start with ~.
func Write(path string, tape *signal.Tape, bitDepth int) error {
	if err := checkBitDepth(bitDepth); err != nil {
		return err
	}
	path, err := homedir.Expand(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, tape, bitDepth); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Read loads a mono PCM WAV file into a tape.
func Read(path string) (*signal.Tape, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if dec.NumChans != 1 {
		return nil, fmt.Errorf("%s: %d channels, want 1", path, dec.NumChans)
	}
	bitDepth := int(dec.BitDepth)
	if err := checkBitDepth(bitDepth); err != nil {
		return nil, err
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	tape := &signal.Tape{
		SampleRate: float64(dec.SampleRate),
		Samples:    make([]signal.Smp, len(buf.Data)),
	}
	for i, v := range buf.Data {
		tape.Samples[i] = dequantize(v, bitDepth)
	}
	return tape, nil
}
