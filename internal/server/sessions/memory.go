package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/voxbot/internal/clock"
	"github.com/dmitrijs2005/voxbot/internal/server/models"
)

type memEntry struct {
	action    models.PendingAction
	expiresAt time.Time
}

// MemoryStore is a bounded in-process Store. When full, expired entries are
// dropped first, then the entry closest to expiry.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[int64]memEntry
	ttl        time.Duration
	maxEntries int
	clock      clock.Clock
}

func NewMemoryStore(ttl time.Duration, maxEntries int, clk clock.Clock) *MemoryStore {
	if clk == nil {
		clk = clock.Real()
	}
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	return &MemoryStore{
		entries:    make(map[int64]memEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		clock:      clk,
	}
}

func (s *MemoryStore) Put(_ context.Context, adminID int64, action models.PendingAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if _, exists := s.entries[adminID]; !exists && len(s.entries) >= s.maxEntries {
		s.evictLocked(now)
	}
	s.entries[adminID] = memEntry{action: action, expiresAt: now.Add(s.ttl)}
	return nil
}

func (s *MemoryStore) evictLocked(now time.Time) {
	var (
		oldestID int64
		oldest   time.Time
		found    bool
	)
	for id, e := range s.entries {
		if !e.expiresAt.After(now) {
			delete(s.entries, id)
			continue
		}
		if !found || e.expiresAt.Before(oldest) {
			oldestID, oldest, found = id, e.expiresAt, true
		}
	}
	if len(s.entries) >= s.maxEntries && found {
		delete(s.entries, oldestID)
	}
}

func (s *MemoryStore) Take(_ context.Context, adminID int64) (models.PendingAction, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[adminID]
	if !ok {
		return models.PendingAction{}, false, nil
	}
	delete(s.entries, adminID)
	if !e.expiresAt.After(s.clock.Now()) {
		return models.PendingAction{}, false, nil
	}
	return e.action, true, nil
}

func (s *MemoryStore) Has(_ context.Context, adminID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[adminID]
	if !ok {
		return false, nil
	}
	if !e.expiresAt.After(s.clock.Now()) {
		delete(s.entries, adminID)
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) Clear(_ context.Context, adminID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, adminID)
	return nil
}

// Len counts stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
