// Package tracking ingests continuous GPS samples from rep devices and keeps
// each user's last-known fix hot for the proximity gate.
package tracking

import (
	"context"
	"sync"

	"fieldops_backend/internal/leads/proximity"

	"github.com/google/uuid"
)

// Store holds the latest fix per user in memory. Waiters block until a fix
// for their user arrives or their context expires, which gives the proximity
// gate its bounded live acquisition.
type Store struct {
	mu      sync.Mutex
	latest  map[uuid.UUID]proximity.Fix
	waiters map[uuid.UUID][]chan proximity.Fix
}

func NewStore() *Store {
	return &Store{
		latest:  make(map[uuid.UUID]proximity.Fix),
		waiters: make(map[uuid.UUID][]chan proximity.Fix),
	}
}

// Record stores the fix as the user's latest and wakes any waiters. Samples
// may arrive at arbitrary intervals and with non-monotone accuracy; the
// newest sample always wins.
func (s *Store) Record(userID uuid.UUID, fix proximity.Fix) {
	s.mu.Lock()
	s.latest[userID] = fix
	waiting := s.waiters[userID]
	delete(s.waiters, userID)
	s.mu.Unlock()

	for _, ch := range waiting {
		ch <- fix
	}
}

// Latest returns the user's last-known fix without blocking.
func (s *Store) Latest(userID uuid.UUID) (proximity.Fix, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fix, ok := s.latest[userID]
	return fix, ok
}

// CurrentFix implements proximity.FixSource. A stored fix is returned
// immediately; otherwise the call blocks until a sample arrives or ctx
// expires.
func (s *Store) CurrentFix(ctx context.Context, userID uuid.UUID) (proximity.Fix, error) {
	s.mu.Lock()
	if fix, ok := s.latest[userID]; ok {
		s.mu.Unlock()
		return fix, nil
	}

	ch := make(chan proximity.Fix, 1)
	s.waiters[userID] = append(s.waiters[userID], ch)
	s.mu.Unlock()

	select {
	case fix := <-ch:
		return fix, nil
	case <-ctx.Done():
		s.dropWaiter(userID, ch)
		return proximity.Fix{}, ctx.Err()
	}
}

func (s *Store) dropWaiter(userID uuid.UUID, ch chan proximity.Fix) {
	s.mu.Lock()
	defer s.mu.Unlock()
	waiting := s.waiters[userID]
	for i, w := range waiting {
		if w == ch {
			s.waiters[userID] = append(waiting[:i], waiting[i+1:]...)
			break
		}
	}
	if len(s.waiters[userID]) == 0 {
		delete(s.waiters, userID)
	}
}
