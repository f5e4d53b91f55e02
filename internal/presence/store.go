package presence

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type Key struct {
	PlayerID int64
	GameID   int64
}

// Store is a TTL map of who was recently seen in which game. Writes are
// last-writer-wins.
type Store interface {
	Touch(key Key, ttl time.Duration)
	Alive(key Key) bool
	Delete(key Key)
	Len() int
}

// MemoryStore expires entries lazily on read. Prune drops everything that
// has already expired.
type MemoryStore struct {
	clock clockwork.Clock

	mu      sync.Mutex
	entries map[Key]time.Time
}

func NewMemoryStore(clock clockwork.Clock) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStore{
		clock:   clock,
		entries: make(map[Key]time.Time),
	}
}

func (s *MemoryStore) Touch(key Key, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = s.clock.Now().Add(ttl)
}

func (s *MemoryStore) Alive(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.entries[key]
	if !ok {
		return false
	}
	if !s.clock.Now().Before(expiry) {
		delete(s.entries, key)
		return false
	}
	return true
}

func (s *MemoryStore) Delete(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	removed := 0
	for key, expiry := range s.entries {
		if !now.Before(expiry) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}
