package schema

import (
	"sync/atomic"
)

// Store publishes the current graph snapshot. Readers bind to the
// pointer returned by Current for the lifetime of a request; reloads
// replace it with Swap and never mutate a published graph.
type Store struct {
	current atomic.Pointer[Graph]
}

// NewStore creates a store holding g.
func NewStore(g *Graph) *Store {
	s := &Store{}
	s.current.Store(g)
	return s
}

// Current returns the active snapshot.
func (s *Store) Current() *Graph {
	return s.current.Load()
}

// Swap publishes g and returns the previous snapshot.
func (s *Store) Swap(g *Graph) *Graph {
	return s.current.Swap(g)
}
