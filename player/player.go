// Package player streams a signal to an output device in real time.
//
// A producer goroutine evaluates the signal into a ring of K chunk-sized
// buffers; the device callback only copies finished buffers out and
// wakes the producer. Signals are never evaluated on the device thread.
package player

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/cellux/sigplay/config"
	"github.com/cellux/sigplay/device"
	"github.com/cellux/sigplay/signal"
)

var (
	ErrClosed      = errors.New("player is closed")
	ErrBufferCount = errors.New("player needs at least two buffers")
)

type Status int32

const (
	Undefined Status = iota
	Playing
	Stopped
)

func (s Status) String() string {
	switch s {
	case Undefined:
		return "undefined"
	case Playing:
		return "playing"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("Status(%d)", int32(s))
}

// Stats counts the chunks of the current (or last) run.
type Stats struct {
	Produced  uint64
	Consumed  uint64
	Underruns uint64
}

type Option func(*Player)

func WithLogger(l *slog.Logger) Option { return func(p *Player) { p.logger = l } }

// WithBufferCount overrides the buffer count taken from the defaults.
func WithBufferCount(k int) Option { return func(p *Player) { p.bufferCount = k } }

// WithChunkSize overrides the chunk size taken from the defaults.
func WithChunkSize(n int) Option { return func(p *Player) { p.chunkSize = n } }

// WithRegistry makes the player add itself to r while it plays.
func WithRegistry(r *Registry) Option { return func(p *Player) { p.registry = r } }

type Player struct {
	id          uuid.UUID
	src         signal.Signal
	dev         device.Device
	defaults    *config.Store
	logger      *slog.Logger
	bufferCount int
	chunkSize   int
	registry    *Registry

	status atomic.Int32

	// mu serializes Play, Stop and Close
	mu     sync.Mutex
	closed bool

	errMu sync.Mutex
	err   error

	// state of the current run
	ring      *ring
	underruns atomic.Uint64
	wake      chan struct{}
	quit      chan struct{}
	done      chan struct{}
	streamErr error
}

// New returns a player for src. Nothing is evaluated or opened until
// Play; a nil store means config.Default().
func New(src signal.Signal, dev device.Device, defaults *config.Store, opts ...Option) *Player {
	p := &Player{
		id:       uuid.New(),
		src:      src,
		dev:      dev,
		defaults: defaults,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.logger = p.logger.With("player", p.id.String())
	return p
}

func (p *Player) ID() uuid.UUID { return p.id }

func (p *Player) Status() Status { return Status(p.status.Load()) }

// Err returns the error that stopped the last run, if any.
func (p *Player) Err() error {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	return p.err
}

func (p *Player) setErr(err error) {
	p.errMu.Lock()
	p.err = err
	p.errMu.Unlock()
}

func (p *Player) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.statsLocked()
}

func (p *Player) settings() (rate float64, chunk, k int, err error) {
	d := config.Default()
	if p.defaults != nil {
		d = p.defaults.Get()
	}
	rate, chunk, k = d.SampleRate, d.ChunkSize, d.BufferCount
	if p.chunkSize != 0 {
		chunk = p.chunkSize
	}
	if p.bufferCount != 0 {
		k = p.bufferCount
	}
	if !(rate > 0) {
		return 0, 0, 0, fmt.Errorf("invalid sample rate: %v", rate)
	}
	if chunk <= 0 {
		return 0, 0, 0, fmt.Errorf("invalid chunk size: %d", chunk)
	}
	if k < 2 {
		return 0, 0, 0, fmt.Errorf("%w: %d", ErrBufferCount, k)
	}
	return rate, chunk, k, nil
}

// Play snapshots the signal, prefills every buffer, opens and starts the
// device stream and launches the producer. Playing from Stopped starts
// again at t=0 with a fresh snapshot. Play on a playing player does
// nothing.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if p.Status() == Playing {
		return nil
	}
	// reap a producer that stopped by itself
	p.joinLocked()

	rate, chunk, k, err := p.settings()
	if err != nil {
		return err
	}
	sig := p.src.Clone()
	r := newRing(k, chunk)
	scratch := make([]signal.Smp, chunk)
	var t float64
	for buf := r.beginWrite(); buf != nil; buf = r.beginWrite() {
		if t, err = fill(sig, buf, scratch, t, rate); err != nil {
			p.setErr(err)
			return fmt.Errorf("prefill: %w", err)
		}
		r.commitWrite()
	}

	wake := make(chan struct{}, 1)
	p.underruns.Store(0)
	stream, err := p.dev.Open(device.Config{
		Channels:        1,
		SampleRate:      rate,
		FramesPerBuffer: chunk,
	}, p.callback(r, wake))
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("start device: %w", err)
	}

	p.setErr(nil)
	p.ring = r
	p.wake = wake
	p.quit = make(chan struct{})
	p.done = make(chan struct{})
	p.streamErr = nil
	p.status.Store(int32(Playing))
	go p.produce(sig, r, scratch, t, rate, stream)
	if p.registry != nil {
		p.registry.Add(p)
	}
	p.logger.Info("playing", "rate", rate, "chunkSize", chunk, "buffers", k)
	return nil
}

// fill evaluates one chunk of sig into buf, clamped and quantized.
func fill(sig signal.Signal, buf []float32, scratch []signal.Smp, t, rate float64) (float64, error) {
	next, err := sig.Evaluate(t, scratch, rate)
	if err != nil {
		return t, err
	}
	for i, v := range scratch {
		buf[i] = float32(signal.Clamp(v))
	}
	return next, nil
}

func (p *Player) callback(r *ring, wake chan struct{}) device.Callback {
	return func(out []float32) {
		if buf := r.beginRead(); buf != nil {
			n := copy(out, buf)
			clear(out[n:])
			r.commitRead()
		} else {
			clear(out)
			p.underruns.Add(1)
		}
		select {
		case wake <- struct{}{}:
		default:
		}
	}
}

func (p *Player) produce(sig signal.Signal, r *ring, scratch []signal.Smp, t, rate float64, stream device.Stream) {
	defer close(p.done)
	defer func() {
		err := stream.Stop()
		if cerr := stream.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			p.logger.Warn("closing stream", "err", err)
		}
		p.streamErr = err
	}()
	for {
		for buf := r.beginWrite(); buf != nil; buf = r.beginWrite() {
			select {
			case <-p.quit:
				return
			default:
			}
			next, err := fill(sig, buf, scratch, t, rate)
			if err != nil {
				p.setErr(err)
				p.status.Store(int32(Stopped))
				p.logger.Error("producer stopped", "err", err)
				return
			}
			r.commitWrite()
			t = next
		}
		select {
		case <-p.quit:
			return
		case <-p.wake:
		}
	}
}

// joinLocked stops the producer of the current run, if any, and waits
// for it to exit. It returns the error of closing the device stream.
func (p *Player) joinLocked() error {
	if p.done == nil {
		return nil
	}
	p.status.CompareAndSwap(int32(Playing), int32(Stopped))
	close(p.quit)
	<-p.done
	p.done = nil
	if p.registry != nil {
		p.registry.Remove(p)
	}
	return p.streamErr
}

// Stop ends playback and returns once the producer has exited and the
// device stream is stopped and closed.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	wasPlaying := p.done != nil
	err := p.joinLocked()
	if wasPlaying {
		p.logger.Info("stopped", "stats", p.statsLocked())
	}
	return err
}

func (p *Player) statsLocked() Stats {
	if p.ring == nil {
		return Stats{}
	}
	return Stats{
		Produced:  p.ring.produced.Load(),
		Consumed:  p.ring.consumed.Load(),
		Underruns: p.underruns.Load(),
	}
}

// Close stops the player for good.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.joinLocked()
}
