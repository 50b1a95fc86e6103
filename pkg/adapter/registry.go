package adapter

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

// Factory builds an unconnected warehouse adapter. The validation
// cascade connects it once per process and reuses it for every EXPLAIN
// and row-capped execution.
type Factory func(*slog.Logger) Adapter

var (
	enginesMu sync.RWMutex
	engines   = make(map[string]Factory)
)

// Register makes a warehouse engine selectable through engine.type.
// Engine packages call it from init, so importing the package is what
// enables the engine. Names are case-insensitive.
func Register(name string, factory Factory) {
	enginesMu.Lock()
	defer enginesMu.Unlock()
	engines[strings.ToLower(name)] = factory
}

// Get returns the factory registered for an engine name.
func Get(name string) (Factory, bool) {
	enginesMu.RLock()
	defer enginesMu.RUnlock()
	f, ok := engines[strings.ToLower(name)]
	return f, ok
}

// NewAdapter builds the adapter for cfg.Type without connecting it.
// A nil logger is replaced by the adapter with a discard logger.
func NewAdapter(cfg core.AdapterConfig, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("adapter type not specified")
	}
	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{Type: cfg.Type, Available: ListAdapters()}
	}
	return factory(logger), nil
}

// ListAdapters returns the registered engine names in sorted order.
func ListAdapters() []string {
	enginesMu.RLock()
	defer enginesMu.RUnlock()
	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered reports whether engine.type may name this engine.
func IsRegistered(name string) bool {
	_, ok := Get(name)
	return ok
}

// UnknownAdapterError reports an engine.type with no registered engine.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown warehouse engine %q (registered: %s); set engine.type in leapquery.yaml",
		e.Type, strings.Join(e.Available, ", "))
}
