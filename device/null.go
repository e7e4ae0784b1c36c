package device

import (
	"sync"
	"time"
)

// Null is a headless device. It calls the callback from a ticker at the
// real-time cadence of the configured buffer size and discards the output.
type Null struct {
	// Sink, when set, receives a copy of every buffer.
	Sink func(buf []float32)
}

func (d *Null) Open(cfg Config, cb Callback) (Stream, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	period := time.Duration(float64(cfg.FramesPerBuffer) / cfg.SampleRate * float64(time.Second))
	return &nullStream{
		cb:     cb,
		sink:   d.Sink,
		period: period,
		buf:    make([]float32, cfg.FramesPerBuffer*cfg.Channels),
	}, nil
}

type nullStream struct {
	cb     Callback
	sink   func([]float32)
	period time.Duration
	buf    []float32

	mu      sync.Mutex
	quit    chan struct{}
	done    chan struct{}
	started bool
	closed  bool
}

func (s *nullStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	if s.started {
		return nil
	}
	s.quit = make(chan struct{})
	s.done = make(chan struct{})
	s.started = true
	go s.run(s.quit, s.done)
	return nil
}

func (s *nullStream) run(quit, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()
	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
			s.cb(s.buf)
			if s.sink != nil {
				s.sink(s.buf)
			}
		}
	}
}

func (s *nullStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	close(s.quit)
	<-s.done
	s.started = false
	return nil
}

func (s *nullStream) Close() error {
	if err := s.Stop(); err != nil {
		return err
	}
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
