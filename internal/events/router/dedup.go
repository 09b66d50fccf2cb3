package router

import (
	"sync"
	"time"
)

// MemoryDedupStore потокобезопасное in-memory хранилище ключей с TTL.
// Устаревшие ключи вычищаются лениво при обращениях.
type MemoryDedupStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]time.Time
}

// NewMemoryDedupStore создает хранилище с указанным временем жизни ключей
func NewMemoryDedupStore(ttl time.Duration) *MemoryDedupStore {
	return &MemoryDedupStore{
		ttl:     ttl,
		entries: make(map[string]time.Time),
	}
}

// MarkSeen отмечает ключ и возвращает true, если он встречается впервые
// за окно TTL
func (s *MemoryDedupStore) MarkSeen(key string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cleanup(now)

	if seenAt, ok := s.entries[key]; ok && now.Sub(seenAt) < s.ttl {
		return false
	}

	s.entries[key] = now
	return true
}

func (s *MemoryDedupStore) cleanup(now time.Time) {
	for key, seenAt := range s.entries {
		if now.Sub(seenAt) >= s.ttl {
			delete(s.entries, key)
		}
	}
}
