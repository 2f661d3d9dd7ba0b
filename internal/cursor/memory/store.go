// Package memory keeps the rotation cursor in process memory.
package memory

import (
	"context"
	"sync"

	"github.com/samir-bensayou/upwork-jobs-scraper/internal/scraper"
)

// Store is a process-local cursor. It is lost on restart.
type Store struct {
	mu    sync.RWMutex
	state *scraper.KeywordState
}

// New returns an empty Store.
func New() *Store {
	return &Store{}
}

// Read returns the last written state or scraper.ErrNoState.
func (s *Store) Read(_ context.Context) (scraper.KeywordState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return scraper.KeywordState{}, scraper.ErrNoState
	}
	return *s.state, nil
}

// Write replaces the stored state.
func (s *Store) Write(_ context.Context, state scraper.KeywordState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = &state
	return nil
}
