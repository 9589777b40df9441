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

package fragcache

import (
	"hash/fnv"
	"net/http"
	"sync"
	"time"
)

// entry is one cached response fragment.
type entry struct {
	statusCode int
	header     http.Header
	body       []byte
	expiresAt  time.Time
}

// expired reports whether the entry is past its TTL at time now.
func (e *entry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

const shardCount = 16

// shard is one lock domain of the store.
type shard struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// Store is a sharded in-memory TTL cache for response fragments. Sharding
// by key hash spreads lock contention; expiry is checked on read and swept
// by a janitor so memory does not grow with dead entries.
type Store struct {
	shards [shardCount]*shard
	ttl    time.Duration

	stopJanitor chan struct{}
	stopOnce    sync.Once
}

// NewStore creates a fragment store with the given TTL per entry.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Minute
	}
	s := &Store{
		ttl:         ttl,
		stopJanitor: make(chan struct{}),
	}
	for i := range s.shards {
		s.shards[i] = &shard{entries: make(map[string]*entry)}
	}
	go s.janitor()
	return s
}

func (s *Store) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return s.shards[h.Sum32()%shardCount]
}

// get returns the live entry for key, or nil. Expired entries are treated
// as absent and removed lazily.
func (s *Store) get(key string, now time.Time) *entry {
	sh := s.shardFor(key)

	sh.mu.RLock()
	e, ok := sh.entries[key]
	sh.mu.RUnlock()
	if !ok {
		return nil
	}
	if e.expired(now) {
		sh.mu.Lock()
		if cur, ok := sh.entries[key]; ok && cur.expired(now) {
			delete(sh.entries, key)
		}
		sh.mu.Unlock()
		return nil
	}
	return e
}

// set stores a captured response fragment under key with the store's
// default TTL. The caller must not mutate header or body after the call.
func (s *Store) set(key string, statusCode int, header http.Header, body []byte, now time.Time) {
	s.put(key, &entry{
		statusCode: statusCode,
		header:     header,
		body:       body,
		expiresAt:  now.Add(s.ttl),
	})
}

func (s *Store) put(key string, e *entry) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	sh.entries[key] = e
	sh.mu.Unlock()
}

// Get returns the cached body and content type for key, or found=false
// when the key is absent or expired. For handlers that consult the cache
// directly instead of going through the middleware.
func (s *Store) Get(key string) (body []byte, contentType string, found bool) {
	e := s.get(key, time.Now())
	if e == nil {
		return nil, "", false
	}
	return e.body, e.header.Get("Content-Type"), true
}

// Set stores body under key with its own TTL, overriding the store
// default; ttl <= 0 falls back to the default. The entry replays as a 200.
// The caller must not mutate body after the call.
func (s *Store) Set(key string, body []byte, contentType string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.ttl
	}
	header := make(http.Header, 1)
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	s.put(key, &entry{
		statusCode: http.StatusOK,
		header:     header,
		body:       body,
		expiresAt:  time.Now().Add(ttl),
	})
}

// Invalidate removes the entry for key, if present. For handlers that know
// they just made a cached fragment stale.
func (s *Store) Invalidate(key string) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	delete(sh.entries, key)
	sh.mu.Unlock()
}

// Len returns the number of entries currently held, expired or not.
func (s *Store) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.entries)
		sh.mu.RUnlock()
	}
	return n
}

func (s *Store) janitor() {
	interval := s.ttl
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopJanitor:
			return
		case now := <-ticker.C:
			for _, sh := range s.shards {
				sh.mu.Lock()
				for key, e := range sh.entries {
					if e.expired(now) {
						delete(sh.entries, key)
					}
				}
				sh.mu.Unlock()
			}
		}
	}
}

// Close stops the janitor goroutine.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stopJanitor) })
}
