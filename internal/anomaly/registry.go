package anomaly

import (
	"context"
	"fmt"
	"sync"

	"github.com/fidde/patterntrie/internal/config"
	"github.com/fidde/patterntrie/internal/storage/snapshot"
)

// Registry owns every named Detector a running server serves, creating one
// on first reference and restoring it from a snapshot if one exists.
type Registry struct {
	mu        sync.RWMutex
	detectors map[string]*Detector
	mode      Mode
	tuning    config.TuningConfig
	snapshots *snapshot.Store
}

// NewRegistry builds an empty registry. Every detector it later creates
// starts in mode and uses tuning for its convergence threshold and extra
// calendar words.
func NewRegistry(mode Mode, tuning config.TuningConfig, snapshots *snapshot.Store) *Registry {
	return &Registry{
		detectors: make(map[string]*Detector),
		mode:      mode,
		tuning:    tuning,
		snapshots: snapshots,
	}
}

// Get returns the named detector, creating it (and attempting to restore it
// from a snapshot) the first time it's referenced.
func (r *Registry) Get(ctx context.Context, name string) (*Detector, error) {
	r.mu.RLock()
	d, ok := r.detectors[name]
	r.mu.RUnlock()
	if ok {
		return d, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.detectors[name]; ok {
		return d, nil
	}

	d, err := r.restoreOrCreate(ctx, name)
	if err != nil {
		return nil, err
	}
	r.detectors[name] = d
	return d, nil
}

func (r *Registry) restoreOrCreate(ctx context.Context, name string) (*Detector, error) {
	if r.snapshots != nil {
		trie, err := r.snapshots.LoadSnapshot(ctx, name)
		switch {
		case err == nil:
			return FromTrie(name, r.mode, r.tuning, trie), nil
		case err == snapshot.ErrNotFound:
			// fall through to a fresh detector
		default:
			return nil, fmt.Errorf("restoring detector %q from snapshot: %w", name, err)
		}
	}
	return New(name, r.mode, r.tuning), nil
}

// Snapshot persists the named detector's current trie, creating it first if
// it doesn't exist yet.
func (r *Registry) Snapshot(ctx context.Context, name string) error {
	if r.snapshots == nil {
		return fmt.Errorf("snapshotting detector %q: no snapshot store configured", name)
	}
	d, err := r.Get(ctx, name)
	if err != nil {
		return err
	}
	if err := r.snapshots.SaveSnapshot(ctx, name, d.Trie()); err != nil {
		return fmt.Errorf("snapshotting detector %q: %w", name, err)
	}
	return nil
}

// Names returns every detector name currently held in memory.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.detectors))
	for name := range r.detectors {
		names = append(names, name)
	}
	return names
}
