// Package quota tracks requests-used-today per model. Counters are shared
// across processes, so increments must be atomic at the store; the daily
// reset is an external scheduler calling Reset per model.
package quota

import (
	"context"
	"sync"
)

type Store interface {
	Get(ctx context.Context, modelID int64) (int, error)
	// Increment bumps the counter by one, initializing it to 1 when no
	// counter exists yet. Called exactly once per successful provider
	// call, never before.
	Increment(ctx context.Context, modelID int64) error
	Reset(ctx context.Context, modelID int64) error
}

// InMemoryStore is a process-local counter set for tests and
// single-instance development.
type InMemoryStore struct {
	mu     sync.RWMutex
	counts map[int64]int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{counts: make(map[int64]int)}
}

func (s *InMemoryStore) Get(ctx context.Context, modelID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counts[modelID], nil
}

func (s *InMemoryStore) Increment(ctx context.Context, modelID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[modelID]++
	return nil
}

func (s *InMemoryStore) Reset(ctx context.Context, modelID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[modelID] = 0
	return nil
}

// Count is a lock-protected read without the error plumbing, used by the
// in-memory catalog to join counters onto models.
func (s *InMemoryStore) Count(modelID int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counts[modelID]
}

// Set pins a counter to an exact value.
func (s *InMemoryStore) Set(modelID int64, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[modelID] = count
}
