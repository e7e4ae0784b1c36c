// Package device abstracts audio output backends behind a pull callback.
package device

import (
	"errors"
	"fmt"
)

var ErrStreamClosed = errors.New("stream is closed")

// Config describes the stream a Device should open.
type Config struct {
	Channels        int
	SampleRate      float64
	FramesPerBuffer int
}

func (c Config) Validate() error {
	if c.Channels != 1 {
		return fmt.Errorf("unsupported channel count: %d", c.Channels)
	}
	if !(c.SampleRate > 0) {
		return fmt.Errorf("invalid sample rate: %v", c.SampleRate)
	}
	if c.FramesPerBuffer <= 0 {
		return fmt.Errorf("invalid frames per buffer: %d", c.FramesPerBuffer)
	}
	return nil
}

// Callback fills out with the next FramesPerBuffer frames. It runs on the
// backend's thread and must not block.
type Callback func(out []float32)

type Stream interface {
	Start() error
	Stop() error
	Close() error
}

type Device interface {
	Open(cfg Config, cb Callback) (Stream, error)
}
