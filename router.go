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

package trellis

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Router matches incoming requests against per-method route trees and runs
// the matched handler chain on a pooled Context.
//
// A Router has two phases. During configuration (single-goroutine) routes,
// middleware, and options are registered. The first request freezes the
// route table; from then on the trees are read-only and dispatch is
// lock-free. Registering routes after the freeze panics.
type Router struct {
	trees      methodTrees
	middleware []HandlerFunc
	routeCount int

	pool   *contextPool
	frozen atomic.Bool

	noRouteHandlers []HandlerFunc

	// Options, fixed at construction.
	checkCancellation      bool
	redirectTrailingSlash  bool
	handleMethodNotAllowed bool
	enableH2C              bool
	logger                 *slog.Logger
	observability          ObservabilityRecorder

	readTimeout       time.Duration
	writeTimeout      time.Duration
	idleTimeout       time.Duration
	readHeaderTimeout time.Duration
	maxHeaderBytes    int

	server   *http.Server
	serverMu sync.Mutex
}

// Option configures a Router. Options are applied by New in order; invalid
// combinations surface as an error from New rather than a panic.
type Option func(*Router)

// New creates a Router with the given options. The zero configuration is
// production-ready: method-not-allowed handling on, cancellation checks on,
// hardened server timeouts.
func New(opts ...Option) (*Router, error) {
	r := &Router{
		pool:                   newContextPool(),
		checkCancellation:      true,
		handleMethodNotAllowed: true,
		logger:                 noopLogger,

		readTimeout:       15 * time.Second,
		writeTimeout:      15 * time.Second,
		idleTimeout:       60 * time.Second,
		readHeaderTimeout: 5 * time.Second,
		maxHeaderBytes:    1 << 20,
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	return r, nil
}

// MustNew is New, panicking on configuration errors. Suitable for main
// functions where a bad configuration should stop the process.
func MustNew(opts ...Option) *Router {
	r, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Router) validate() error {
	if r.readTimeout < 0 || r.writeTimeout < 0 || r.idleTimeout < 0 || r.readHeaderTimeout < 0 {
		return fmt.Errorf("server timeouts must be non-negative")
	}
	if r.maxHeaderBytes < 0 {
		return fmt.Errorf("max header bytes must be non-negative")
	}
	if r.logger == nil {
		return fmt.Errorf("logger must not be nil")
	}
	return nil
}

// Use appends middleware to the router's global chain. Middleware applies
// to routes registered after the Use call; register middleware first.
func (r *Router) Use(mw ...HandlerFunc) {
	if r.frozen.Load() {
		panic(fmt.Sprintf("trellis: cannot add middleware: %v", ErrRouterFrozen))
	}
	r.middleware = append(r.middleware, mw...)
}

// NoRoute installs handlers that run when no route matches, replacing the
// built-in 404 response. Global middleware still runs in front of them.
func (r *Router) NoRoute(handlers ...HandlerFunc) {
	if r.frozen.Load() {
		panic(fmt.Sprintf("trellis: cannot set NoRoute handlers: %v", ErrRouterFrozen))
	}
	chain := make([]HandlerFunc, 0, len(r.middleware)+len(handlers))
	chain = append(chain, r.middleware...)
	chain = append(chain, handlers...)
	r.noRouteHandlers = chain
}

// Logger returns the router's structured logger.
func (r *Router) Logger() *slog.Logger {
	return r.logger
}

// PoolStats returns a snapshot of context pool activity.
func (r *Router) PoolStats() PoolStats {
	return r.pool.stats()
}

// freeze marks the route table immutable. Called once, on the first request.
func (r *Router) freeze() {
	r.frozen.CompareAndSwap(false, true)
}
