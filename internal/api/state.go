package api

import (
	"sync"

	"junction/internal/catalog"
)

// State: текущий снимок каталога; заменяется целиком при reload.
type State struct {
	mu       sync.RWMutex
	cat      *catalog.Catalog
	DSLRoot  string
	PGSchema string
}

func NewState(c *catalog.Catalog, dslRoot, pgSchema string) *State {
	return &State{cat: c, DSLRoot: dslRoot, PGSchema: pgSchema}
}

func (s *State) Catalog() *catalog.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cat
}

func (s *State) swap(c *catalog.Catalog) {
	s.mu.Lock()
	s.cat = c
	s.mu.Unlock()
}
