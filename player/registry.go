package player

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Registry tracks the players that are currently playing so a host can
// stop them all at shutdown.
type Registry struct {
	mu      sync.Mutex
	players map[uuid.UUID]*Player
}

func NewRegistry() *Registry {
	return &Registry{players: make(map[uuid.UUID]*Player)}
}

func (r *Registry) Add(p *Player) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.players[p.ID()] = p
}

func (r *Registry) Remove(p *Player) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.players, p.ID())
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// snapshot must be used before calling into players: Stop removes the
// player from the registry and would deadlock under r.mu.
func (r *Registry) snapshot() []*Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	ps := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		ps = append(ps, p)
	}
	return ps
}

// StopAll stops every registered player.
func (r *Registry) StopAll() error {
	var errs []error
	for _, p := range r.snapshot() {
		if err := p.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Clear closes every registered player and empties the registry.
func (r *Registry) Clear() error {
	var errs []error
	for _, p := range r.snapshot() {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.mu.Lock()
	clear(r.players)
	r.mu.Unlock()
	return errors.Join(errs...)
}
