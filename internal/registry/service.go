package registry

import (
	"context"
	"sync"
	"time"

	"fieldops_backend/platform/apperr"
)

// Store is the data access interface needed by the registry service. Lookups
// by id are served from the service's own cache, so the store only lists.
type Store interface {
	List(ctx context.Context) ([]Definition, error)
}

// Service serves disposition definitions with a short in-process TTL cache.
// Flag changes become visible within the TTL; history is never reclassified
// because the lifecycle core captures flags at disposition time.
type Service struct {
	store Store
	ttl   time.Duration

	mu        sync.RWMutex
	cached    map[string]Definition
	ordered   []Definition
	refreshed time.Time
}

// NewService creates a registry service with the given cache TTL.
func NewService(store Store, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{store: store, ttl: ttl}
}

// List returns all active definitions in display order.
func (s *Service) List(ctx context.Context) ([]Definition, error) {
	if err := s.ensureFresh(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Definition, len(s.ordered))
	copy(out, s.ordered)
	return out, nil
}

// Get returns the definition for a status id, or a validation error when the
// status is unknown to the registry.
func (s *Service) Get(ctx context.Context, id string) (Definition, error) {
	if err := s.ensureFresh(ctx); err != nil {
		return Definition{}, err
	}

	s.mu.RLock()
	d, ok := s.cached[id]
	s.mu.RUnlock()
	if !ok {
		return Definition{}, apperr.Validation("unknown disposition status").WithDetails(id)
	}
	return d, nil
}

func (s *Service) ensureFresh(ctx context.Context) error {
	s.mu.RLock()
	fresh := s.cached != nil && time.Since(s.refreshed) < s.ttl
	s.mu.RUnlock()
	if fresh {
		return nil
	}

	items, err := s.store.List(ctx)
	if err != nil {
		// A stale cache beats an outage.
		s.mu.RLock()
		hasStale := s.cached != nil
		s.mu.RUnlock()
		if hasStale {
			return nil
		}
		return err
	}

	byID := make(map[string]Definition, len(items))
	for _, d := range items {
		byID[d.ID] = d
	}

	s.mu.Lock()
	s.cached = byID
	s.ordered = items
	s.refreshed = time.Now()
	s.mu.Unlock()
	return nil
}
