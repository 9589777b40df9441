// Copyright 2026 The Trellis Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ratelimit

import (
	"sync"
	"time"
)

// Store decides whether a request identified by key is admitted at time
// now. remaining is the budget left after this decision; resetSeconds is
// how long until the budget replenishes (for Retry-After headers).
//
// Implementations must be safe for concurrent use.
type Store interface {
	Allow(key string, now time.Time) (allowed bool, remaining int, resetSeconds int)
}

// bucketEntry is one key's token bucket. The entry mutex serializes refill
// arithmetic per key; the store's RWMutex only guards the map itself, so
// different keys never contend with each other.
type bucketEntry struct {
	mu       sync.Mutex
	tokens   float64
	lastSeen time.Time
}

// TokenBucketStore admits requests from a continuously refilling token
// bucket per key: rate tokens per second, burst capacity. Smooths traffic
// rather than cutting it at window edges.
type TokenBucketStore struct {
	mu      sync.RWMutex
	entries map[string]*bucketEntry

	rate  float64
	burst float64

	stopJanitor chan struct{}
	stopOnce    sync.Once
}

// NewTokenBucketStore creates a token bucket store admitting rate requests
// per second with the given burst capacity. A background janitor drops keys
// idle long enough to have fully refilled, bounding memory under churning
// key sets.
func NewTokenBucketStore(rate float64, burst int) *TokenBucketStore {
	if rate <= 0 {
		rate = 1
	}
	if burst <= 0 {
		burst = 1
	}
	s := &TokenBucketStore{
		entries:     make(map[string]*bucketEntry),
		rate:        rate,
		burst:       float64(burst),
		stopJanitor: make(chan struct{}),
	}
	go s.janitor()
	return s
}

// Allow implements Store.
func (s *TokenBucketStore) Allow(key string, now time.Time) (bool, int, int) {
	e := s.entry(key, now)

	e.mu.Lock()
	defer e.mu.Unlock()

	elapsed := now.Sub(e.lastSeen).Seconds()
	if elapsed > 0 {
		e.tokens = min(s.burst, e.tokens+elapsed*s.rate)
		e.lastSeen = now
	}

	if e.tokens >= 1 {
		e.tokens--
		return true, int(e.tokens), 0
	}

	// Seconds until one full token accrues.
	wait := (1 - e.tokens) / s.rate
	resetSeconds := int(wait)
	if wait > float64(resetSeconds) {
		resetSeconds++
	}
	return false, 0, resetSeconds
}

// entry returns the bucket for key, lazily inserting a full one. The
// double-checked insert keeps the common path on the read lock.
func (s *TokenBucketStore) entry(key string, now time.Time) *bucketEntry {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[key]; ok {
		return e
	}
	e = &bucketEntry{tokens: s.burst, lastSeen: now}
	s.entries[key] = e
	return e
}

// janitor periodically removes entries idle long enough to be full again;
// dropping them is behaviorally invisible.
func (s *TokenBucketStore) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopJanitor:
			return
		case now := <-ticker.C:
			idle := time.Duration(s.burst/s.rate)*time.Second + time.Minute
			s.mu.Lock()
			for key, e := range s.entries {
				e.mu.Lock()
				stale := now.Sub(e.lastSeen) > idle
				e.mu.Unlock()
				if stale {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		}
	}
}

// Close stops the janitor goroutine.
func (s *TokenBucketStore) Close() {
	s.stopOnce.Do(func() { close(s.stopJanitor) })
}

// windowEntry is one key's fixed window counter.
type windowEntry struct {
	mu          sync.Mutex
	count       int
	windowStart time.Time
}

// FixedWindowStore admits up to limit requests per window per key. The
// counter resets at window boundaries, so up to 2x the limit can pass
// around an edge; acceptable where the simpler arithmetic and exact
// Retry-After matter more than smoothing.
type FixedWindowStore struct {
	mu      sync.RWMutex
	entries map[string]*windowEntry

	limit  int
	window time.Duration

	stopJanitor chan struct{}
	stopOnce    sync.Once
}

// NewFixedWindowStore creates a fixed window store admitting limit requests
// per window.
func NewFixedWindowStore(limit int, window time.Duration) *FixedWindowStore {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Second
	}
	s := &FixedWindowStore{
		entries:     make(map[string]*windowEntry),
		limit:       limit,
		window:      window,
		stopJanitor: make(chan struct{}),
	}
	go s.janitor()
	return s
}

// Allow implements Store.
func (s *FixedWindowStore) Allow(key string, now time.Time) (bool, int, int) {
	e := s.entry(key, now)

	e.mu.Lock()
	defer e.mu.Unlock()

	if now.Sub(e.windowStart) >= s.window {
		e.windowStart = now
		e.count = 0
	}

	reset := e.windowStart.Add(s.window).Sub(now)
	resetSeconds := int(reset / time.Second)
	if reset%time.Second > 0 {
		resetSeconds++
	}

	if e.count < s.limit {
		e.count++
		return true, s.limit - e.count, resetSeconds
	}
	return false, 0, resetSeconds
}

func (s *FixedWindowStore) entry(key string, now time.Time) *windowEntry {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[key]; ok {
		return e
	}
	e = &windowEntry{windowStart: now}
	s.entries[key] = e
	return e
}

func (s *FixedWindowStore) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopJanitor:
			return
		case now := <-ticker.C:
			// Entries two windows old have reset; nothing observable is lost.
			idle := 2 * s.window
			if idle < time.Minute {
				idle = time.Minute
			}
			s.mu.Lock()
			for key, e := range s.entries {
				e.mu.Lock()
				stale := now.Sub(e.windowStart) > idle
				e.mu.Unlock()
				if stale {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		}
	}
}

// Close stops the janitor goroutine.
func (s *FixedWindowStore) Close() {
	s.stopOnce.Do(func() { close(s.stopJanitor) })
}
