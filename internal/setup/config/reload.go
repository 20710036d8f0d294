package config

import (
	"fmt"
	"sync"
)

// Reloader rereads the lifecycle section from the config directory.
// A failed reload keeps serving the last good snapshot.
type Reloader struct {
	dir  string
	last Lifecycle
	mu   sync.Mutex
}

// NewReloader creates a Reloader seeded with an already loaded snapshot.
func NewReloader(dir string, initial Lifecycle) *Reloader {
	return &Reloader{
		dir:  dir,
		last: initial,
	}
}

// Lifecycle returns a fresh snapshot. On failure it returns the previous
// snapshot together with the error.
func (r *Reloader) Lifecycle() (Lifecycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, err := LoadFrom(r.dir)
	if err != nil {
		return r.last, fmt.Errorf("failed to reload config: %w", err)
	}

	r.last = cfg.Worker.Lifecycle
	return r.last, nil
}

// Static serves the same snapshot forever.
type Static Lifecycle

// Lifecycle implements the lifecycle source used by the cycle worker.
func (s Static) Lifecycle() (Lifecycle, error) {
	return Lifecycle(s), nil
}
