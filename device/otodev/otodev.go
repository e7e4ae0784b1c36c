// Package otodev plays device streams through ebitengine/oto.
package otodev

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/cellux/sigplay/device"
)

// oto allows a single context per process; it is created by the first
// Open and reused by every stream after it.
var (
	ctxMu   sync.Mutex
	ctx     *oto.Context
	ctxRate int
)

func sharedContext(cfg device.Config) (*oto.Context, error) {
	ctxMu.Lock()
	defer ctxMu.Unlock()
	rate := int(cfg.SampleRate)
	if ctx != nil {
		if rate != ctxRate {
			return nil, fmt.Errorf("oto context already running at %d Hz, cannot open %d Hz", ctxRate, rate)
		}
		return ctx, nil
	}
	op := &oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: cfg.Channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   time.Duration(float64(cfg.FramesPerBuffer) / cfg.SampleRate * float64(time.Second)),
	}
	c, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready
	ctx, ctxRate = c, rate
	return ctx, nil
}

type Device struct{}

func (Device) Open(cfg device.Config, cb device.Callback) (device.Stream, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c, err := sharedContext(cfg)
	if err != nil {
		return nil, fmt.Errorf("oto: %w", err)
	}
	r := &reader{cb: cb, buf: make([]float32, cfg.FramesPerBuffer*cfg.Channels)}
	r.pos = len(r.buf)
	p := c.NewPlayer(r)
	p.SetBufferSize(len(r.buf) * 4)
	return &stream{player: p}, nil
}

// reader adapts the fixed-size callback to oto's pull of arbitrary byte
// counts, refilling its buffer whenever it has been drained.
type reader struct {
	cb  device.Callback
	buf []float32
	pos int
}

func (r *reader) Read(p []byte) (int, error) {
	n := 0
	for n+4 <= len(p) {
		if r.pos == len(r.buf) {
			r.cb(r.buf)
			r.pos = 0
		}
		binary.LittleEndian.PutUint32(p[n:], math.Float32bits(r.buf[r.pos]))
		r.pos++
		n += 4
	}
	return n, nil
}

type stream struct {
	mu      sync.Mutex
	player  *oto.Player
	started bool
	closed  bool
}

func (s *stream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return device.ErrStreamClosed
	}
	if !s.started {
		s.player.Play()
		s.started = true
	}
	return nil
}

func (s *stream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		s.player.Pause()
		s.started = false
	}
	return nil
}

func (s *stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.started = false
	return s.player.Close()
}
