// Package cache provides the in-memory tile store shared across one
// document-generation run. The same tile is frequently wanted by several
// segments; the store makes the second request free.
package cache

import (
	"sync"
	"time"
)

// Store is a thread-safe byte store keyed by caller-chosen strings.
type Store struct {
	entries map[string]*entry
	mutex   sync.RWMutex
}

type entry struct {
	data     []byte
	storedAt time.Time
	source   string
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		entries: make(map[string]*entry),
	}
}

// Set stores data under key, recording where it came from.
func (s *Store) Set(key string, data []byte, source string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.entries[key] = &entry{
		data:     data,
		storedAt: time.Now(),
		source:   source,
	}
}

// Get retrieves data by key.
func (s *Store) Get(key string) ([]byte, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	return e.data, true
}

// Keys returns all stored keys.
func (s *Store) Keys() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	return keys
}

// Stats summarizes store usage, mostly for end-of-run logging.
type Stats struct {
	Entries    int
	TotalBytes int64
	Oldest     time.Time
	Newest     time.Time
}

// Stats returns store statistics.
func (s *Store) Stats() Stats {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	stats := Stats{Entries: len(s.entries)}
	for _, e := range s.entries {
		stats.TotalBytes += int64(len(e.data))
		if stats.Oldest.IsZero() || e.storedAt.Before(stats.Oldest) {
			stats.Oldest = e.storedAt
		}
		if e.storedAt.After(stats.Newest) {
			stats.Newest = e.storedAt
		}
	}
	return stats
}
