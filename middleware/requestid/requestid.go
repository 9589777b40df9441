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

// Package requestid assigns each request a correlation ID, honoring an
// incoming X-Request-ID header when present. The ID lands in the context
// store and on the response, so logs and clients can be correlated.
package requestid

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/routeworks/trellis"
	"github.com/routeworks/trellis/middleware"
)

// HeaderName is the request and response header carrying the ID.
const HeaderName = "X-Request-ID"

// Generator produces request IDs.
type Generator func() string

// UUIDGenerator returns random (v4) UUIDs.
func UUIDGenerator() string {
	return uuid.NewString()
}

// ULIDGenerator returns ULIDs: time-ordered, so sorting IDs sorts requests
// by arrival, which is convenient in log search.
func ULIDGenerator() string {
	return ulid.Make().String()
}

// HexGenerator returns 16 random bytes hex-encoded; the cheapest of the
// three when ID shape does not matter.
func HexGenerator() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing is a broken platform; fall back to a ULID
		// rather than serving requests without IDs.
		return ulid.Make().String()
	}
	return hex.EncodeToString(b[:])
}

// Option configures the middleware.
type Option func(*config)

type config struct {
	generator   Generator
	header      string
	trustHeader bool
}

// WithGenerator sets the ID generator. Defaults to ULIDGenerator.
func WithGenerator(g Generator) Option {
	return func(c *config) { c.generator = g }
}

// WithHeader overrides the header name.
func WithHeader(name string) Option {
	return func(c *config) { c.header = name }
}

// WithTrustHeader controls whether an incoming ID header is reused. On by
// default; disable it at trust boundaries where clients must not pick
// their own IDs.
func WithTrustHeader(trust bool) Option {
	return func(c *config) { c.trustHeader = trust }
}

// New builds the request ID middleware.
func New(opts ...Option) trellis.HandlerFunc {
	cfg := config{
		generator:   ULIDGenerator,
		header:      HeaderName,
		trustHeader: true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(c *trellis.Context) {
		id := ""
		if cfg.trustHeader {
			id = c.Request.Header.Get(cfg.header)
		}
		if id == "" {
			id = cfg.generator()
		}
		c.Set(middleware.RequestIDKey, id)
		c.Header(cfg.header, id)
		c.Next()
	}
}

// FromContext returns the request ID set by this middleware, or "".
func FromContext(c *trellis.Context) string {
	return c.GetString(middleware.RequestIDKey)
}
