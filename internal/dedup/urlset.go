package dedup

import "sync"

// URLSet is a concurrency-safe, grow-only set of URLs.
// The service owns two instances: one for URLs a crawl has attempted and one for URLs
// committed to the index. Neither is persisted and entries are never evicted.
type URLSet struct {
	urls map[string]struct{}
	mu   sync.RWMutex
}

// NewURLSet creates an empty set.
func NewURLSet() *URLSet {
	return &URLSet{
		urls: make(map[string]struct{}),
	}
}

// Add inserts url if absent. It returns true only for the call that inserted it.
func (s *URLSet) Add(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.urls[url]; ok {
		return false
	}
	s.urls[url] = struct{}{}
	return true
}

// Contains reports whether url is in the set.
func (s *URLSet) Contains(url string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.urls[url]
	return ok
}

// Len returns the number of URLs in the set.
func (s *URLSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.urls)
}
