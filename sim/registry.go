package sim

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Key identifies a registered adapter: a (category, name) pair such as
// ("simulator", "opm").
type Key struct {
	Category string
	Name     string
}

func (k Key) String() string {
	return k.Category + "/" + k.Name
}

// Registry is a keyed directory of backend adapters. It holds no simulation
// state and registers nothing implicitly: callers supply every instance at
// startup. A Registry is safe for concurrent use; construct one with
// NewRegistry and pass it to whatever consumes it.
type Registry struct {
	mu      sync.RWMutex
	entries map[Key]Simulator
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[Key]Simulator)}
}

// Register stores an adapter under (category, name). Re-registration under
// an existing key overwrites the previous entry; the overwrite is logged so
// it is never silently lost.
func (r *Registry) Register(category, name string, s Simulator) {
	key := Key{Category: category, Name: name}
	r.mu.Lock()
	if prev, ok := r.entries[key]; ok {
		logrus.Warnf("registry: overwriting %s (previous engine %q)", key, prev.Info().Engine)
	}
	r.entries[key] = s
	r.mu.Unlock()
	logrus.Debugf("registry: registered %s", key)
}

// Get returns the adapter registered under (category, name), or an error
// wrapping ErrNotFound.
func (r *Registry) Get(category, name string) (Simulator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.entries[Key{Category: category, Name: name}]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, category, name)
	}
	return s, nil
}

// ListNames returns every registered name in a category, sorted.
func (r *Registry) ListNames(category string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for key := range r.entries {
		if key.Category == category {
			names = append(names, key.Name)
		}
	}
	sort.Strings(names)
	return names
}

// AggregateHealth runs every registered adapter's health check concurrently
// and returns per-key health ("category/name" -> healthy) plus an overall
// verdict that is false if any adapter is unhealthy. ctx bounds the whole
// sweep.
func (r *Registry) AggregateHealth(ctx context.Context) (map[string]bool, bool) {
	r.mu.RLock()
	snapshot := make(map[Key]Simulator, len(r.entries))
	for key, s := range r.entries {
		snapshot[key] = s
	}
	r.mu.RUnlock()

	health := make(map[string]bool, len(snapshot))
	var mu sync.Mutex
	g, _ := errgroup.WithContext(ctx)
	for key, s := range snapshot {
		key, s := key, s
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			ok := s.Healthy()
			mu.Lock()
			health[key.String()] = ok
			mu.Unlock()
			return nil
		})
	}
	// Health checks only report status; the error from a cancelled sweep is
	// reflected by the missing entries counting as unhealthy below.
	_ = g.Wait()

	overall := true
	for key := range snapshot {
		if !health[key.String()] {
			health[key.String()] = false
			overall = false
		}
	}
	return health, overall
}
