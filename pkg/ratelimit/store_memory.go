package ratelimit

import (
	"sync"
	"time"
)

// InMemoryRateLimitStore is a thread-safe in-memory store of request
// timestamps keyed by client IP.
//
// Memory management features:
//   - Maximum key limit to prevent unbounded memory growth
//   - Oldest-access eviction when capacity is reached
//   - Periodic cleanup of expired entries
type InMemoryRateLimitStore struct {
	mu       sync.Mutex
	requests map[string]*timestampList
	maxKeys  int
}

// timestampList holds timestamps for a single key.
type timestampList struct {
	timestamps []time.Time
	lastAccess time.Time
}

// NewInMemoryRateLimitStore creates a new in-memory rate limit store.
//
// maxKeys bounds the number of tracked keys; zero or negative selects the
// default of 10000.
func NewInMemoryRateLimitStore(maxKeys int) *InMemoryRateLimitStore {
	if maxKeys <= 0 {
		maxKeys = 10000
	}
	return &InMemoryRateLimitStore{
		requests: make(map[string]*timestampList),
		maxKeys:  maxKeys,
	}
}

// CheckAndAdd atomically counts the requests for key after cutoff and, if the
// count is below limit, records the new request. Performing the check and the
// insert under one lock prevents concurrent requests from slipping past the
// limit between a separate check and add.
//
// Returns whether the request was allowed and the count of requests in the
// window including the current one if it was added.
func (s *InMemoryRateLimitStore) CheckAndAdd(key string, now, cutoff time.Time, limit int) (allowed bool, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tsList, exists := s.requests[key]
	if !exists {
		if len(s.requests) >= s.maxKeys {
			s.evictOldestLocked()
		}
		tsList = &timestampList{
			// 1ウィンドウ分の要求を再割り当てなしで収める
			timestamps: make([]time.Time, 0, 16),
		}
		s.requests[key] = tsList
	}
	tsList.lastAccess = now

	// Drop timestamps that fell out of the window.
	kept := tsList.timestamps[:0]
	for _, ts := range tsList.timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	tsList.timestamps = kept

	if len(tsList.timestamps) >= limit {
		return false, len(tsList.timestamps)
	}

	tsList.timestamps = append(tsList.timestamps, now)
	return true, len(tsList.timestamps)
}

// evictOldestLocked removes the least recently accessed key.
// Caller must hold s.mu.
func (s *InMemoryRateLimitStore) evictOldestLocked() {
	var oldestKey string
	var oldestAccess time.Time
	first := true

	for key, tsList := range s.requests {
		if first || tsList.lastAccess.Before(oldestAccess) {
			oldestKey = key
			oldestAccess = tsList.lastAccess
			first = false
		}
	}

	if !first {
		delete(s.requests, oldestKey)
	}
}

// Cleanup removes keys whose last access is older than maxAge.
//
// Returns the number of keys removed and the number remaining.
func (s *InMemoryRateLimitStore) Cleanup(now time.Time, maxAge time.Duration) (removed, remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-maxAge)
	for key, tsList := range s.requests {
		if tsList.lastAccess.Before(cutoff) {
			delete(s.requests, key)
			removed++
		}
	}
	return removed, len(s.requests)
}

// Len returns the number of keys currently tracked.
func (s *InMemoryRateLimitStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}
