// Package cache is an explicit in-memory key/value store for backend
// responses. Keys are namespaced strings built from the full request identity
// (see Key), so two requests differing in any parameter never share an entry.
// Invalidation is always explicit, by exact key or by prefix.
package cache

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

type entry struct {
	value     interface{}
	expiresAt time.Time
}

type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

func New() *Store {
	return &Store{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the cached value for key, or false when absent or expired.
// Expired entries are left for Set/InvalidatePrefix to overwrite; lookups
// simply miss.
func (s *Store) Get(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && s.now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

// Set stores value under key. A zero ttl means the entry never expires on its
// own and lives until explicitly invalidated.
func (s *Store) Set(key string, value interface{}, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = e
}

// Invalidate removes the entry for exactly key.
func (s *Store) Invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// InvalidatePrefix removes every entry whose key starts with prefix, e.g.
// InvalidatePrefix("media/") after a successful upload.
func (s *Store) InvalidatePrefix(prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k := range s.entries {
		if strings.HasPrefix(k, prefix) {
			delete(s.entries, k)
		}
	}
}

// Len reports the number of stored entries, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Key builds a namespaced cache key from parts plus an optional parameter
// set. Parameters are sorted by name so that key construction is independent
// of map iteration order.
func Key(parts []string, params map[string]string) string {
	key := strings.Join(parts, "/")
	if len(params) == 0 {
		return key
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, fmt.Sprintf("%s=%s", name, params[name]))
	}
	return key + "?" + strings.Join(pairs, "&")
}
