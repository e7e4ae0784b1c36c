package player

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cellux/sigplay/device"
	"github.com/cellux/sigplay/signal"
)

const chunkSize = 64

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// script emits chunk n filled with n/100. It can fail at a given chunk or
// block on a gate before producing chunks from gateAt on.
type script struct {
	n      int
	failAt int
	gateAt int
	gate   chan struct{}
}

func (s *script) Evaluate(t float64, out []signal.Smp, rate float64) (float64, error) {
	if s.gate != nil && s.n >= s.gateAt {
		<-s.gate
	}
	if s.failAt > 0 && s.n == s.failAt {
		return t, &signal.GeneratorError{T: t, Value: math.NaN(), Err: signal.ErrInvalidSample}
	}
	for i := range out {
		out[i] = float64(s.n%100) / 100
	}
	s.n++
	return t + float64(len(out))/rate, nil
}

func (s *script) Clone() signal.Signal {
	c := *s
	return &c
}

func chunkValue(n int) float32 { return float32(float64(n%100) / 100) }

type fakeDevice struct {
	mu      sync.Mutex
	opens   int
	cfg     device.Config
	stream  *fakeStream
	openErr error
}

func (d *fakeDevice) Open(cfg device.Config, cb device.Callback) (device.Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.openErr != nil {
		return nil, d.openErr
	}
	d.opens++
	d.cfg = cfg
	d.stream = &fakeStream{cb: cb, buf: make([]float32, cfg.FramesPerBuffer)}
	return d.stream, nil
}

func (d *fakeDevice) current() *fakeStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stream
}

func (d *fakeDevice) openCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens
}

// fakeStream is driven by the test, which plays the device thread.
type fakeStream struct {
	cb      device.Callback
	buf     []float32
	started atomic.Bool
	stopped atomic.Bool
	closed  atomic.Bool
}

func (s *fakeStream) Start() error { s.started.Store(true); return nil }
func (s *fakeStream) Stop() error  { s.stopped.Store(true); return nil }
func (s *fakeStream) Close() error { s.closed.Store(true); return nil }

func (s *fakeStream) pull() []float32 {
	s.cb(s.buf)
	return append([]float32(nil), s.buf...)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func newTestPlayer(sig signal.Signal, dev device.Device, opts ...Option) *Player {
	opts = append([]Option{WithLogger(quiet), WithChunkSize(chunkSize), WithBufferCount(2)}, opts...)
	return New(sig, dev, nil, opts...)
}

func TestPlayStreamsChunksInOrder(t *testing.T) {
	dev := &fakeDevice{}
	p := newTestPlayer(&script{}, dev)
	if p.Status() != Undefined {
		t.Fatalf("status = %v", p.Status())
	}
	if err := p.Play(); err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	if p.Status() != Playing {
		t.Fatalf("status = %v", p.Status())
	}
	if dev.cfg != (device.Config{Channels: 1, SampleRate: 44100, FramesPerBuffer: chunkSize}) {
		t.Errorf("device config = %+v", dev.cfg)
	}
	if st := p.Stats(); st.Produced != 2 || st.Consumed != 0 {
		t.Fatalf("after prefill: %+v", st)
	}
	s := dev.current()
	if !s.started.Load() {
		t.Fatal("stream not started")
	}
	for n := 0; n < 20; n++ {
		waitFor(t, "a full ring", func() bool {
			st := p.Stats()
			return st.Produced-st.Consumed == 2
		})
		out := s.pull()
		for i, v := range out {
			if v != chunkValue(n) {
				t.Fatalf("chunk %d sample %d = %v, want %v", n, i, v, chunkValue(n))
			}
		}
	}
	if st := p.Stats(); st.Underruns != 0 {
		t.Errorf("underruns = %d", st.Underruns)
	}
}

func TestPlayWhilePlayingIsNoOp(t *testing.T) {
	dev := &fakeDevice{}
	p := newTestPlayer(&script{}, dev)
	defer p.Close()
	for i := 0; i < 3; i++ {
		if err := p.Play(); err != nil {
			t.Fatal(err)
		}
	}
	if dev.openCount() != 1 {
		t.Errorf("device opened %d times", dev.openCount())
	}
}

func TestStopJoinsProducer(t *testing.T) {
	dev := &fakeDevice{}
	p := newTestPlayer(&script{}, dev)
	if err := p.Play(); err != nil {
		t.Fatal(err)
	}
	first := dev.current()
	first.pull()
	if err := p.Stop(); err != nil {
		t.Fatal(err)
	}
	if p.Status() != Stopped {
		t.Errorf("status = %v", p.Status())
	}
	if !first.stopped.Load() || !first.closed.Load() {
		t.Error("Stop returned before the stream was stopped and closed")
	}
	if err := p.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}

	// playing again starts over from a fresh snapshot
	if err := p.Play(); err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	second := dev.current()
	if second == first || dev.openCount() != 2 {
		t.Fatal("Play after Stop did not open a new stream")
	}
	if out := second.pull(); out[0] != chunkValue(0) {
		t.Errorf("restarted at %v", out[0])
	}
}

func TestUnderrunEmitsSilence(t *testing.T) {
	gate := make(chan struct{})
	dev := &fakeDevice{}
	p := newTestPlayer(&script{gate: gate, gateAt: 2}, dev)
	if err := p.Play(); err != nil {
		t.Fatal(err)
	}
	s := dev.current()
	s.pull()
	s.pull()
	out := s.pull()
	for i, v := range out {
		if v != 0 {
			t.Fatalf("underrun sample %d = %v", i, v)
		}
	}
	if st := p.Stats(); st.Underruns != 1 || st.Consumed != 2 {
		t.Errorf("stats = %+v", st)
	}
	close(gate)
	waitFor(t, "the producer to catch up", func() bool { return p.Stats().Produced == 4 })
	if out := s.pull(); out[0] != chunkValue(2) {
		t.Errorf("after underrun got %v, want %v", out[0], chunkValue(2))
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducerErrorIsRecorded(t *testing.T) {
	dev := &fakeDevice{}
	p := newTestPlayer(&script{failAt: 3}, dev)
	if err := p.Play(); err != nil {
		t.Fatal(err)
	}
	s := dev.current()
	s.pull()
	waitFor(t, "chunk 2", func() bool { return p.Stats().Produced == 3 })
	s.pull()
	waitFor(t, "the producer to stop", func() bool { return p.Status() == Stopped })
	waitFor(t, "the stream to close", s.closed.Load)

	var gerr *signal.GeneratorError
	if err := p.Err(); !errors.As(err, &gerr) || !errors.Is(err, signal.ErrInvalidSample) {
		t.Fatalf("Err() = %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Errorf("Stop after producer error: %v", err)
	}

	// the failure was in a snapshot; a new Play starts clean
	if err := p.Play(); err != nil {
		t.Fatal(err)
	}
	if p.Err() != nil {
		t.Errorf("Err() = %v after Play", p.Err())
	}
	p.Close()
}

func TestPrefillError(t *testing.T) {
	dev := &fakeDevice{}
	p := newTestPlayer(&script{failAt: 1}, dev)
	err := p.Play()
	if !errors.Is(err, signal.ErrInvalidSample) {
		t.Fatalf("Play() = %v", err)
	}
	if dev.openCount() != 0 {
		t.Error("device opened despite prefill failure")
	}
	if p.Status() != Undefined {
		t.Errorf("status = %v", p.Status())
	}
}

func TestOpenError(t *testing.T) {
	boom := errors.New("no device")
	p := newTestPlayer(&script{}, &fakeDevice{openErr: boom})
	if err := p.Play(); !errors.Is(err, boom) {
		t.Fatalf("Play() = %v", err)
	}
	if p.Status() == Playing {
		t.Error("player is playing without a stream")
	}
}

func TestBufferCount(t *testing.T) {
	p := newTestPlayer(&script{}, &fakeDevice{}, WithBufferCount(1))
	if err := p.Play(); !errors.Is(err, ErrBufferCount) {
		t.Fatalf("Play() = %v", err)
	}
}

func TestClose(t *testing.T) {
	dev := &fakeDevice{}
	p := newTestPlayer(&script{}, dev)
	if err := p.Play(); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if !dev.current().closed.Load() {
		t.Error("stream not closed")
	}
	if err := p.Play(); !errors.Is(err, ErrClosed) {
		t.Errorf("Play after Close = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestPlayersAreIndependent(t *testing.T) {
	devA, devB := &fakeDevice{}, &fakeDevice{}
	a := newTestPlayer(&script{failAt: 2}, devA)
	b := newTestPlayer(&script{}, devB)
	if err := a.Play(); err != nil {
		t.Fatal(err)
	}
	if err := b.Play(); err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	devA.current().pull()
	waitFor(t, "player a to fail", func() bool { return a.Status() == Stopped })
	if b.Status() != Playing || b.Err() != nil {
		t.Errorf("player b: %v, %v", b.Status(), b.Err())
	}
	a.Close()
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	var players []*Player
	var devs []*fakeDevice
	for i := 0; i < 3; i++ {
		dev := &fakeDevice{}
		p := newTestPlayer(&script{}, dev, WithRegistry(reg))
		if err := p.Play(); err != nil {
			t.Fatal(err)
		}
		players = append(players, p)
		devs = append(devs, dev)
	}
	if reg.Len() != 3 {
		t.Fatalf("Len() = %d", reg.Len())
	}
	if err := players[0].Stop(); err != nil {
		t.Fatal(err)
	}
	if reg.Len() != 2 {
		t.Fatalf("Len() after Stop = %d", reg.Len())
	}
	if err := reg.StopAll(); err != nil {
		t.Fatal(err)
	}
	if reg.Len() != 0 {
		t.Errorf("Len() after StopAll = %d", reg.Len())
	}
	for i, p := range players {
		if p.Status() != Stopped || !devs[i].current().closed.Load() {
			t.Errorf("player %d: %v", i, p.Status())
		}
	}

	if err := players[1].Play(); err != nil {
		t.Fatal(err)
	}
	if err := reg.Clear(); err != nil {
		t.Fatal(err)
	}
	if reg.Len() != 0 {
		t.Errorf("Len() after Clear = %d", reg.Len())
	}
	if err := players[1].Play(); !errors.Is(err, ErrClosed) {
		t.Errorf("Play after Clear = %v", err)
	}
}
