package idempotency

import (
	"strings"
	"sync"
	"time"
)

// pruneThreshold is the size at which CheckAndMark drops expired keys inline.
const pruneThreshold = 1024

// Store remembers recently seen delivery keys so an event the platform
// retries is handled once.
type Store struct {
	ttl  time.Duration
	now  func() time.Time
	mu   sync.Mutex
	keys map[string]time.Time // key -> expiry
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Store{
		ttl:  ttl,
		now:  time.Now,
		keys: make(map[string]time.Time),
	}
}

// CheckAndMark reports whether key was already seen within the TTL and
// records it either way. An empty key is never a duplicate.
func (s *Store) CheckAndMark(key string) bool {
	if key == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if expiry, exists := s.keys[key]; exists {
		if expiry.After(now) {
			return true
		}
		delete(s.keys, key)
	}

	if len(s.keys) >= pruneThreshold {
		s.pruneLocked(now)
	}
	s.keys[key] = now.Add(s.ttl)
	return false
}

func (s *Store) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pruneLocked(s.now())
}

func (s *Store) pruneLocked(now time.Time) int {
	count := 0
	for k, expiry := range s.keys {
		if !expiry.After(now) {
			delete(s.keys, k)
			count++
		}
	}
	return count
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

// EventKey builds the delivery key for an inbound adapter event from the
// platform id the adapter put in metadata. It returns "" when there is none.
func EventKey(source, target string, metadata map[string]string) string {
	for _, field := range []string{"event_id", "msg_id", "ts"} {
		if id := strings.TrimSpace(metadata[field]); id != "" {
			return source + ":" + target + ":" + id
		}
	}
	return ""
}
