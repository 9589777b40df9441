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

package fragcache_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routeworks/trellis"
	"github.com/routeworks/trellis/middleware/fragcache"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newCachedRouter(t *testing.T, store *fragcache.Store, clock *fakeClock, hits *int) *trellis.Router {
	t.Helper()
	r := trellis.MustNew()
	r.Use(fragcache.New(
		fragcache.WithStore(store),
		fragcache.WithClock(clock.Now),
	))
	r.GET("/page", func(c *trellis.Context) {
		*hits++
		c.Header("X-Origin", "handler")
		c.String(http.StatusOK, fmt.Sprintf("render %d", *hits))
	})
	r.POST("/page", func(c *trellis.Context) {
		*hits++
		c.String(http.StatusOK, "posted")
	})
	return r
}

func get(r *trellis.Router, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestMissThenHit(t *testing.T) {
	clock := newFakeClock()
	store := fragcache.NewStore(time.Minute)
	defer store.Close()
	hits := 0
	r := newCachedRouter(t, store, clock, &hits)

	rec := get(r, "/page")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "render 1", rec.Body.String())
	require.Equal(t, 1, hits)

	// Second request replays the stored fragment; the handler stays cold.
	rec = get(r, "/page")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "render 1", rec.Body.String())
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, "handler", rec.Header().Get("X-Origin"), "stored headers replay too")
	assert.Equal(t, 1, hits)
}

func TestExpiryRerunsHandler(t *testing.T) {
	clock := newFakeClock()
	store := fragcache.NewStore(time.Minute)
	defer store.Close()
	hits := 0
	r := newCachedRouter(t, store, clock, &hits)

	get(r, "/page")
	clock.Advance(time.Minute + time.Second)

	rec := get(r, "/page")
	assert.Equal(t, "render 2", rec.Body.String())
	assert.Equal(t, 2, hits)
}

func TestQueryStringsAreSeparateEntries(t *testing.T) {
	clock := newFakeClock()
	store := fragcache.NewStore(time.Minute)
	defer store.Close()
	hits := 0
	r := newCachedRouter(t, store, clock, &hits)

	get(r, "/page?tab=a")
	get(r, "/page?tab=b")
	assert.Equal(t, 2, hits, "different query strings must not share an entry")

	get(r, "/page?tab=a")
	assert.Equal(t, 2, hits)
}

func TestNonGETBypassesCache(t *testing.T) {
	clock := newFakeClock()
	store := fragcache.NewStore(time.Minute)
	defer store.Close()
	hits := 0
	r := newCachedRouter(t, store, clock, &hits)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/page", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 3, hits)
	assert.Zero(t, store.Len())
}

func TestErrorResponsesAreNotCached(t *testing.T) {
	clock := newFakeClock()
	store := fragcache.NewStore(time.Minute)
	defer store.Close()

	hits := 0
	r := trellis.MustNew()
	r.Use(fragcache.New(fragcache.WithStore(store), fragcache.WithClock(clock.Now)))
	r.GET("/flaky", func(c *trellis.Context) {
		hits++
		c.WriteErrorResponse(http.StatusServiceUnavailable, "down")
	})

	get(r, "/flaky")
	get(r, "/flaky")
	assert.Equal(t, 2, hits, "5xx responses must be re-attempted")
}

func TestOversizedBodiesAreNotCached(t *testing.T) {
	clock := newFakeClock()
	store := fragcache.NewStore(time.Minute)
	defer store.Close()

	hits := 0
	r := trellis.MustNew()
	r.Use(fragcache.New(
		fragcache.WithStore(store),
		fragcache.WithClock(clock.Now),
		fragcache.WithMaxBodySize(8),
	))
	r.GET("/big", func(c *trellis.Context) {
		hits++
		c.String(http.StatusOK, strings.Repeat("x", 64))
	})

	rec := get(r, "/big")
	require.Len(t, rec.Body.String(), 64, "the client still gets the full body")
	get(r, "/big")
	assert.Equal(t, 2, hits)
	assert.Zero(t, store.Len())
}

func TestInvalidate(t *testing.T) {
	clock := newFakeClock()
	store := fragcache.NewStore(time.Minute)
	defer store.Close()
	hits := 0
	r := newCachedRouter(t, store, clock, &hits)

	get(r, "/page")
	store.Invalidate("GET /page")

	get(r, "/page")
	assert.Equal(t, 2, hits)
}

func TestHeadHitOmitsBody(t *testing.T) {
	clock := newFakeClock()
	store := fragcache.NewStore(time.Minute)
	defer store.Close()

	r := trellis.MustNew()
	r.Use(fragcache.New(
		fragcache.WithStore(store),
		fragcache.WithClock(clock.Now),
		// Method-insensitive keys so HEAD can hit a GET-filled entry.
		fragcache.WithKeyFunc(func(c *trellis.Context) string {
			return c.Request.URL.RequestURI()
		}),
	))
	r.GET("/doc", func(c *trellis.Context) { c.String(http.StatusOK, "body") })
	r.HEAD("/doc", func(c *trellis.Context) { c.Status(http.StatusOK) })

	get(r, "/doc")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/doc", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, rec.Body.Len())
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
}

func TestStoreLenAndJanitorlessExpiry(t *testing.T) {
	clock := newFakeClock()
	store := fragcache.NewStore(time.Minute)
	defer store.Close()
	hits := 0
	r := newCachedRouter(t, store, clock, &hits)

	get(r, "/page")
	require.Equal(t, 1, store.Len())

	// Reads past the TTL drop the entry lazily, without the janitor.
	clock.Advance(2 * time.Minute)
	get(r, "/page")
	assert.Equal(t, 2, hits)
}

func TestNewWithoutStorePanics(t *testing.T) {
	assert.Panics(t, func() { fragcache.New() })
}

func TestStoreGetSetRoundTrip(t *testing.T) {
	store := fragcache.NewStore(time.Minute)
	defer store.Close()

	_, _, found := store.Get("widget:7")
	require.False(t, found)

	store.Set("widget:7", []byte(`{"id":7}`), "application/json", time.Hour)

	body, contentType, found := store.Get("widget:7")
	require.True(t, found)
	assert.Equal(t, []byte(`{"id":7}`), body)
	assert.Equal(t, "application/json", contentType)
}

func TestStoreSetPerEntryTTL(t *testing.T) {
	store := fragcache.NewStore(time.Hour)
	defer store.Close()

	// The entry's own TTL wins over the store default.
	store.Set("ephemeral", []byte("x"), "text/plain", time.Millisecond)
	store.Set("durable", []byte("y"), "text/plain", 0) // 0 falls back to the default

	time.Sleep(5 * time.Millisecond)

	_, _, found := store.Get("ephemeral")
	assert.False(t, found, "per-entry TTL must expire independently")
	_, _, found = store.Get("durable")
	assert.True(t, found)
}

func TestManuallySetEntryServesThroughMiddleware(t *testing.T) {
	store := fragcache.NewStore(time.Minute)
	defer store.Close()

	r := trellis.MustNew()
	r.Use(fragcache.New(fragcache.WithStore(store)))
	r.GET("/warm", func(c *trellis.Context) {
		t.Fatal("handler must not run for a pre-warmed key")
	})

	store.Set("GET /warm", []byte("prewarmed"), "text/plain", time.Hour)

	rec := get(r, "/warm")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "prewarmed", rec.Body.String())
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
}
