// Package padev plays device streams through PortAudio.
package padev

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/cellux/sigplay/device"
)

type Device struct{}

// Open initializes PortAudio for the lifetime of the stream; every
// stream holds one Initialize/Terminate pair.
func (Device) Open(cfg device.Config, cb device.Callback) (device.Stream, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: %w", err)
	}
	s, err := portaudio.OpenDefaultStream(0, cfg.Channels, cfg.SampleRate, cfg.FramesPerBuffer,
		func(_, out []float32) { cb(out) })
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("error opening stream: %w", err)
	}
	return &stream{s: s, terminate: portaudio.Terminate}, nil
}

// paStream is the part of *portaudio.Stream a stream drives.
type paStream interface {
	Start() error
	Stop() error
	Close() error
}

type stream struct {
	mu        sync.Mutex
	s         paStream
	terminate func() error
	started   bool
	closed    bool
}

func (st *stream) Start() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return device.ErrStreamClosed
	}
	if st.started {
		return nil
	}
	if err := st.s.Start(); err != nil {
		return fmt.Errorf("error starting stream: %w", err)
	}
	st.started = true
	return nil
}

func (st *stream) Stop() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.started || st.closed {
		return nil
	}
	if err := st.s.Stop(); err != nil {
		return fmt.Errorf("error stopping stream: %w", err)
	}
	st.started = false
	return nil
}

// Close stops the stream if needed, then closes it and releases the
// PortAudio reference taken by Open even when stopping fails.
func (st *stream) Close() error {
	serr := st.Stop()
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return serr
	}
	st.closed = true
	st.started = false
	cerr := st.s.Close()
	if cerr != nil {
		cerr = fmt.Errorf("error closing stream: %w", cerr)
	}
	return errors.Join(serr, cerr, st.terminate())
}
