package config

import (
	"sync"
)

// Box holds a value behind a mutex.
type Box[T any] struct {
	mu sync.Mutex
	v  T
}

func NewBox[T any](v T) *Box[T] {
	return &Box[T]{v: v}
}

func (box *Box[T]) Get() T {
	box.mu.Lock()
	defer box.mu.Unlock()
	return box.v
}

func (box *Box[T]) Set(v T) {
	box.mu.Lock()
	defer box.mu.Unlock()
	box.v = v
}

// Update runs fn on a copy of the boxed value while holding the lock
// and stores the result only if fn returns nil.
func (box *Box[T]) Update(fn func(v *T) error) error {
	box.mu.Lock()
	defer box.mu.Unlock()
	v := box.v
	if err := fn(&v); err != nil {
		return err
	}
	box.v = v
	return nil
}
