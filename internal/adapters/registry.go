package adapters

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"evhub/internal/ev"
)

var (
	ErrAdapterAlreadyExists = errors.New("adapter already registered")
)

// Factory produces an adapter instance for registration
type Factory func() Adapter

// Registry maps manufacturers to adapters. Lookup of an unregistered
// manufacturer returns a deterministic no-op adapter instead of failing, so
// the hub degrades gracefully on missing configuration; the fallback is
// logged so it cannot be mistaken for a real integration.
type Registry struct {
	mu       sync.RWMutex
	adapters map[ev.Manufacturer]Adapter
	logger   *slog.Logger
}

// NewRegistry creates an empty adapter registry
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		adapters: make(map[ev.Manufacturer]Adapter),
		logger:   logger,
	}
}

// Register adds an adapter produced by the factory. Adapters are stateless,
// so one instance is built eagerly and reused for every Get.
func (r *Registry) Register(manufacturer ev.Manufacturer, factory Factory) error {
	if !manufacturer.Valid() {
		return fmt.Errorf("%w: %s", ev.ErrManufacturerUnknown, manufacturer)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.adapters[manufacturer]; exists {
		return fmt.Errorf("%w: %s", ErrAdapterAlreadyExists, manufacturer)
	}

	r.adapters[manufacturer] = factory()
	return nil
}

// Get returns the adapter for the manufacturer, or the no-op fallback if
// none is registered. It never returns nil.
func (r *Registry) Get(manufacturer ev.Manufacturer) Adapter {
	r.mu.RLock()
	adapter, exists := r.adapters[manufacturer]
	r.mu.RUnlock()

	if !exists {
		r.logger.Warn("No adapter registered, using no-op fallback",
			"component", "registry",
			"manufacturer", manufacturer,
		)
		return newFallbackAdapter(manufacturer)
	}

	return adapter
}

// Has reports whether a real adapter is registered for the manufacturer
func (r *Registry) Has(manufacturer ev.Manufacturer) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.adapters[manufacturer]
	return exists
}

// List returns all registered manufacturers
func (r *Registry) List() []ev.Manufacturer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	manufacturers := make([]ev.Manufacturer, 0, len(r.adapters))
	for m := range r.adapters {
		manufacturers = append(manufacturers, m)
	}
	return manufacturers
}
