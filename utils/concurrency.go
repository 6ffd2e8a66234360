package utils

import "sync"

// URLSet is a thread-safe set for tracking seen listing URLs.
type URLSet struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewURLSet creates an empty URLSet.
func NewURLSet() *URLSet {
	return &URLSet{seen: make(map[string]struct{})}
}

// Add returns true if the URL was newly added, false if already present.
func (s *URLSet) Add(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[url]; exists {
		return false
	}
	s.seen[url] = struct{}{}
	return true
}

// Contains returns true if the URL has already been seen.
func (s *URLSet) Contains(url string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.seen[url]
	return exists
}

// Size returns the number of unique URLs tracked.
func (s *URLSet) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}
