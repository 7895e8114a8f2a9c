package scrape

import (
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/pulsecraft/reviewpulse/internal/domain"
)

// Store holds the single current snapshot under a read-write mutex. Snapshots
// are immutable, so Get and Set are nothing more than a guarded pointer swap:
// a reader can never observe fields from two different cycles.
type Store struct {
	mu      sync.RWMutex
	current *domain.Snapshot
}

// NewStore creates a store pre-seeded with the NoData snapshot for the given
// sources, so Get has a coherent answer before the first cycle ever runs.
func NewStore(sources []string, clock clockwork.Clock) *Store {
	return &Store{current: domain.NewNoDataSnapshot(sources, clock.Now())}
}

// Get returns the most recently completed snapshot.
func (s *Store) Get() *domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Set atomically replaces the current snapshot.
func (s *Store) Set(snap *domain.Snapshot) {
	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()
}
