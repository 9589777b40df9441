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

// Package ratelimit provides admission-control middleware: requests over
// the configured budget are answered 429 and the chain is aborted. A
// rejected request is an outcome, not an error; nothing is recorded on the
// context error list.
package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/routeworks/trellis"
	"github.com/routeworks/trellis/middleware"
)

// KeyFunc derives the limiting key from a request: client IP, API key,
// user ID. An empty key bypasses limiting for that request.
type KeyFunc func(c *trellis.Context) string

// Option configures the middleware.
type Option func(*config)

type config struct {
	store      Store
	keyFunc    KeyFunc
	onRejected trellis.HandlerFunc
	headers    bool
	now        func() time.Time
}

// WithStore sets the admission store. Required.
func WithStore(s Store) Option {
	return func(c *config) { c.store = s }
}

// WithKeyFunc sets how requests map to limiting keys. Defaults to the
// client IP.
func WithKeyFunc(fn KeyFunc) Option {
	return func(c *config) { c.keyFunc = fn }
}

// WithOnRejected replaces the default 429 response. The handler must write
// a response; the chain is aborted either way.
func WithOnRejected(h trellis.HandlerFunc) Option {
	return func(c *config) { c.onRejected = h }
}

// WithHeaders controls X-RateLimit-Remaining and Retry-After headers.
// On by default.
func WithHeaders(enabled bool) Option {
	return func(c *config) { c.headers = enabled }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// New builds the rate limiting middleware. Panics without a store: a
// limiter with nowhere to count is a configuration error, caught at
// startup like route conflicts.
func New(opts ...Option) trellis.HandlerFunc {
	cfg := config{
		keyFunc: func(c *trellis.Context) string { return c.ClientIP() },
		headers: true,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.store == nil {
		panic("ratelimit: store is required (use WithStore)")
	}

	return func(c *trellis.Context) {
		key := cfg.keyFunc(c)
		if key == "" {
			c.Next()
			return
		}

		allowed, remaining, resetSeconds := cfg.store.Allow(key, cfg.now())
		if cfg.headers {
			c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		}

		if !allowed {
			if cfg.headers && resetSeconds > 0 {
				c.Header("Retry-After", strconv.Itoa(resetSeconds))
			}
			if cfg.onRejected != nil {
				cfg.onRejected(c)
				c.Abort()
				return
			}
			c.WriteErrorResponse(http.StatusTooManyRequests, "Too Many Requests")
			c.Abort()
			return
		}

		c.Set(middleware.RateLimitRemainingKey, remaining)
		c.Next()
	}
}
