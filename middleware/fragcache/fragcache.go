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

// Package fragcache caches whole response fragments for GET and HEAD
// requests. On a hit the stored status, headers, and body are replayed and
// the handler never runs; on a miss the response is captured while being
// written through, then stored if it was a success.
package fragcache

import (
	"bytes"
	"net/http"
	"time"

	"github.com/routeworks/trellis"
	"github.com/routeworks/trellis/middleware"
)

// KeyFunc derives the cache key for a request. An empty key skips caching.
type KeyFunc func(c *trellis.Context) string

// Option configures the middleware.
type Option func(*config)

type config struct {
	store    *Store
	keyFunc  KeyFunc
	maxBody  int
	cacheOK  func(statusCode int) bool
	now      func() time.Time
	hitToken string
}

// WithStore sets the fragment store. Required.
func WithStore(s *Store) Option {
	return func(c *config) { c.store = s }
}

// WithKeyFunc sets the cache key derivation. Defaults to METHOD + full
// request URI, which separates query-string variants.
func WithKeyFunc(fn KeyFunc) Option {
	return func(c *config) { c.keyFunc = fn }
}

// WithMaxBodySize caps the body size the cache will store; larger
// responses pass through uncached. Default 1 MiB.
func WithMaxBodySize(n int) Option {
	return func(c *config) { c.maxBody = n }
}

// WithCacheableStatus overrides which status codes are stored. Defaults to
// 2xx only.
func WithCacheableStatus(fn func(statusCode int) bool) Option {
	return func(c *config) { c.cacheOK = fn }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// New builds the fragment caching middleware. Panics without a store.
func New(opts ...Option) trellis.HandlerFunc {
	cfg := config{
		keyFunc: func(c *trellis.Context) string {
			return c.Request.Method + " " + c.Request.URL.RequestURI()
		},
		maxBody: 1 << 20,
		cacheOK: func(code int) bool { return code >= 200 && code < 300 },
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.store == nil {
		panic("fragcache: store is required (use WithStore)")
	}

	return func(c *trellis.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.Next()
			return
		}
		key := cfg.keyFunc(c)
		if key == "" {
			c.Next()
			return
		}

		now := cfg.now()
		if e := cfg.store.get(key, now); e != nil {
			replay(c, e)
			c.Set(middleware.CacheHitKey, true)
			c.Abort()
			return
		}

		// Miss: capture the downstream response while writing it through.
		cw := &captureWriter{ResponseWriter: c.Response, maxBody: cfg.maxBody}
		orig := c.Response
		c.Response = cw
		c.Next()
		c.Response = orig

		if cw.overflowed || !cw.wroteHeader || !cfg.cacheOK(cw.statusCode) {
			return
		}
		cfg.store.set(key, cw.statusCode, cw.header.Clone(), bytes.Clone(cw.body.Bytes()), now)
	}
}

// replay writes a stored fragment to the client.
func replay(c *trellis.Context, e *entry) {
	h := c.Response.Header()
	for key, values := range e.header {
		h[key] = values
	}
	h.Set("X-Cache", "HIT")
	c.Response.WriteHeader(e.statusCode)
	if c.Request.Method != http.MethodHead {
		_, _ = c.Response.Write(e.body)
	}
}

// captureWriter tees the response into a buffer while forwarding it to the
// client. If the body exceeds maxBody the capture is abandoned but the
// client keeps receiving bytes.
type captureWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
	body        bytes.Buffer
	header      http.Header
	maxBody     int
	overflowed  bool
}

func (w *captureWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.statusCode = code
		w.wroteHeader = true
		w.header = w.ResponseWriter.Header().Clone()
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *captureWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if !w.overflowed {
		if w.body.Len()+len(b) > w.maxBody {
			w.overflowed = true
			w.body.Reset()
		} else {
			w.body.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

// Unwrap exposes the underlying writer for http.ResponseController.
func (w *captureWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
