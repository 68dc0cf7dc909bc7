package importers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mrlokans/catalogimport/internal/entities"
	"github.com/mrlokans/catalogimport/internal/metadata"
)

var ErrUnknownSource = errors.New("unknown source")

// Registry maps source identifiers to adapters. It is built once at startup
// and passed to whoever needs it; tests build their own with fakes.
type Registry struct {
	mu       sync.RWMutex
	adapters map[entities.Source]metadata.Adapter
	order    []entities.Source
}

// NewRegistry creates a registry holding the given adapters in order.
func NewRegistry(adapters ...metadata.Adapter) *Registry {
	r := &Registry{adapters: make(map[entities.Source]metadata.Adapter, len(adapters))}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds an adapter, replacing any adapter already registered for
// the same source.
func (r *Registry) Register(a metadata.Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	source := a.Source()
	if _, exists := r.adapters[source]; !exists {
		r.order = append(r.order, source)
	}
	r.adapters[source] = a
}

// Get returns the adapter for source or an error wrapping ErrUnknownSource.
func (r *Registry) Get(source entities.Source) (metadata.Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[source]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
	return a, nil
}

// ListAll returns every adapter in registration order.
func (r *Registry) ListAll() []metadata.Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]metadata.Adapter, 0, len(r.order))
	for _, s := range r.order {
		all = append(all, r.adapters[s])
	}
	return all
}

// ListSupportedSources returns the registered source identifiers in
// registration order.
func (r *Registry) ListSupportedSources() []entities.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]entities.Source(nil), r.order...)
}

// Resolve returns the adapters for sources, or all adapters when sources is
// empty. Any unknown source fails the whole resolution.
func (r *Registry) Resolve(sources []entities.Source) ([]metadata.Adapter, error) {
	if len(sources) == 0 {
		return r.ListAll(), nil
	}

	adapters := make([]metadata.Adapter, 0, len(sources))
	seen := make(map[entities.Source]bool, len(sources))
	for _, s := range sources {
		if seen[s] {
			continue
		}
		seen[s] = true
		a, err := r.Get(s)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}
	return adapters, nil
}

// AdapterConfig holds the per-provider settings for NewDefaultRegistry.
type AdapterConfig struct {
	Gutendex    metadata.ClientConfig
	OpenLibrary metadata.ClientConfig
	GoogleBooks metadata.ClientConfig
}

// NewDefaultRegistry registers the three built-in catalogs.
func NewDefaultRegistry(ctx context.Context, cfg AdapterConfig) (*Registry, error) {
	googleBooks, err := metadata.NewGoogleBooksClient(ctx, cfg.GoogleBooks)
	if err != nil {
		return nil, fmt.Errorf("google books adapter: %w", err)
	}

	return NewRegistry(
		metadata.NewGutendexClient(cfg.Gutendex),
		metadata.NewOpenLibraryClient(cfg.OpenLibrary),
		googleBooks,
	), nil
}
