package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/negotiate/core"
)

// InMemoryStore is a volatile NegotiationStore keeping records in a process
// local arena indexed by negotiation id, plus an index of the active record
// per subject/counterparty pair. It is safe for concurrent access and best
// suited for tests or single-process deployments. Records are cloned on the
// way in and out so callers never share memory with the store.
type InMemoryStore struct {
	mu     sync.RWMutex
	arena  []*core.Negotiation
	index  map[string]int    // negotiation id -> arena slot
	active map[string]string // pair key -> negotiation id
}

var (
	_ core.NegotiationStore = (*InMemoryStore)(nil)
	_ core.DueLister        = (*InMemoryStore)(nil)
)

// NewInMemoryStore constructs an empty in-memory negotiation store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{index: make(map[string]int), active: make(map[string]string)}
}

// Get returns a copy of the negotiation.
func (s *InMemoryStore) Get(_ context.Context, negotiationID string) (*core.Negotiation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.index[negotiationID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrNotFound, negotiationID)
	}
	return s.arena[slot].Clone(), nil
}

// Put inserts (Version 1) or replaces (Version = stored+1) a negotiation.
func (s *InMemoryStore) Put(_ context.Context, n *core.Negotiation) error {
	if n == nil || n.ID == "" {
		return fmt.Errorf("%w: negotiation id required", core.ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	pair := core.PairKey(n.SubjectID, n.CounterpartyID)
	slot, exists := s.index[n.ID]
	if !exists {
		if n.Version != 1 {
			return fmt.Errorf("%w: insert of %s expects version 1, got %d", core.ErrConflict, n.ID, n.Version)
		}
		if owner, busy := s.active[pair]; busy && n.IsActive() {
			return fmt.Errorf("%w: pair already negotiating in %s", core.ErrDuplicateNegotiation, owner)
		}
		s.arena = append(s.arena, n.Clone())
		s.index[n.ID] = len(s.arena) - 1
		if n.IsActive() {
			s.active[pair] = n.ID
		}
		return nil
	}

	current := s.arena[slot]
	if n.Version != current.Version+1 {
		return fmt.Errorf("%w: %s is at version %d, write carries %d", core.ErrConflict, n.ID, current.Version, n.Version)
	}
	s.arena[slot] = n.Clone()
	if n.IsActive() {
		s.active[pair] = n.ID
	} else if s.active[pair] == n.ID {
		delete(s.active, pair)
	}
	return nil
}

// ExistsActiveFor reports whether the pair has a non-terminal negotiation.
func (s *InMemoryStore) ExistsActiveFor(_ context.Context, subjectID, counterpartyID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.active[core.PairKey(subjectID, counterpartyID)]
	return ok, nil
}

// ListDue returns up to limit ids of non-terminal negotiations whose deadline
// lies before now, ordered by deadline and then id. A limit of zero or less
// returns all of them.
func (s *InMemoryStore) ListDue(_ context.Context, now time.Time, limit int) ([]string, error) {
	type due struct {
		id string
		at time.Time
	}

	s.mu.RLock()
	var candidates []due
	for _, id := range s.active {
		n := s.arena[s.index[id]]
		if now.After(n.TimeoutAt) {
			candidates = append(candidates, due{id: id, at: n.TimeoutAt})
		}
	}
	s.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].at.Equal(candidates[j].at) {
			return candidates[i].at.Before(candidates[j].at)
		}
		return candidates[i].id < candidates[j].id
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.id
	}
	return ids, nil
}

// Len returns the number of stored negotiations, terminal ones included.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.arena)
}
