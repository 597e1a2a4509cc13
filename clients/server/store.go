package server

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

type entry[T any] struct {
	value   T
	expires time.Time // zero = never
}

// store is an in-memory map keyed by random IDs. Entries older than ttl are
// invisible to readers and reclaimed by sweep.
type store[T any] struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry[T]
	now     func() time.Time
}

func newStore[T any](ttl time.Duration) *store[T] {
	return &store[T]{ttl: ttl, entries: make(map[string]entry[T]), now: time.Now}
}

func (s *store[T]) add(v T) string {
	id := randomID()
	e := entry[T]{value: v}
	if s.ttl > 0 {
		e.expires = s.now().Add(s.ttl)
	}
	s.mu.Lock()
	s.entries[id] = e
	s.mu.Unlock()
	return id
}

func (s *store[T]) get(id string) (T, bool) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok || s.expired(e) {
		var zero T
		return zero, false
	}
	return e.value, true
}

// take removes and returns id. Only one caller can take a given entry.
func (s *store[T]) take(id string) (T, bool) {
	s.mu.Lock()
	e, ok := s.entries[id]
	delete(s.entries, id)
	s.mu.Unlock()
	if !ok || s.expired(e) {
		var zero T
		return zero, false
	}
	return e.value, true
}

func (s *store[T]) remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	delete(s.entries, id)
	return ok
}

// each calls fn for every live entry under the read lock.
func (s *store[T]) each(fn func(id string, v T)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, e := range s.entries {
		if !s.expired(e) {
			fn(id, e.value)
		}
	}
}

// sweep drops expired entries and reports how many were removed.
func (s *store[T]) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, e := range s.entries {
		if s.expired(e) {
			delete(s.entries, id)
			n++
		}
	}
	return n
}

func (s *store[T]) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *store[T]) expired(e entry[T]) bool {
	return !e.expires.IsZero() && !s.now().Before(e.expires)
}

func randomID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}
