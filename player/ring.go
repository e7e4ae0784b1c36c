package player

import "sync/atomic"

// ring is a single-producer single-consumer queue of K fixed-size chunks.
//
// produced and consumed only grow. Slot produced%K belongs to the writer
// while produced-consumed < K; slot consumed%K belongs to the reader while
// consumed < produced. The two never name the same slot at once.
type ring struct {
	slots    [][]float32
	produced atomic.Uint64
	consumed atomic.Uint64
}

func newRing(k, chunkSize int) *ring {
	r := &ring{slots: make([][]float32, k)}
	for i := range r.slots {
		r.slots[i] = make([]float32, chunkSize)
	}
	return r
}

// beginWrite returns the next free slot, or nil if every slot is full.
func (r *ring) beginWrite() []float32 {
	p := r.produced.Load()
	if p-r.consumed.Load() >= uint64(len(r.slots)) {
		return nil
	}
	return r.slots[p%uint64(len(r.slots))]
}

// commitWrite publishes the slot returned by beginWrite.
func (r *ring) commitWrite() { r.produced.Add(1) }

// beginRead returns the oldest full slot, or nil if the ring is empty.
func (r *ring) beginRead() []float32 {
	c := r.consumed.Load()
	if c == r.produced.Load() {
		return nil
	}
	return r.slots[c%uint64(len(r.slots))]
}

// commitRead hands the slot returned by beginRead back to the writer.
func (r *ring) commitRead() { r.consumed.Add(1) }

// writeIndex and readIndex name the slots the next beginWrite and
// beginRead would return.
func (r *ring) writeIndex() int { return int(r.produced.Load() % uint64(len(r.slots))) }
func (r *ring) readIndex() int  { return int(r.consumed.Load() % uint64(len(r.slots))) }
