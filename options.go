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
	"log/slog"
	"time"
)

// WithLogger sets the structured logger used for router diagnostics and
// exposed to handlers via Context.Logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithObservability installs a recorder that is notified around each
// request's lifecycle. See ObservabilityRecorder.
func WithObservability(rec ObservabilityRecorder) Option {
	return func(r *Router) {
		r.observability = rec
	}
}

// WithCancellationCheck controls whether the handler chain stops advancing
// once the request's context is canceled. On by default; disable it for
// benchmark scenarios where the per-handler check is measurable.
func WithCancellationCheck(enabled bool) Option {
	return func(r *Router) {
		r.checkCancellation = enabled
	}
}

// WithRedirectTrailingSlash enables 301 redirects between "/path" and
// "/path/" when exactly one of the two is registered. Off by default:
// matching is exact unless asked otherwise.
func WithRedirectTrailingSlash() Option {
	return func(r *Router) {
		r.redirectTrailingSlash = true
	}
}

// WithMethodNotAllowed controls 405 responses. When enabled (the default),
// a path registered under a different method answers 405 with an Allow
// header instead of 404.
func WithMethodNotAllowed(enabled bool) Option {
	return func(r *Router) {
		r.handleMethodNotAllowed = enabled
	}
}

// WithH2C enables HTTP/2 cleartext upgrades on the built-in server. Useful
// behind load balancers that terminate TLS.
func WithH2C() Option {
	return func(r *Router) {
		r.enableH2C = true
	}
}

// WithServerTimeouts overrides the built-in server's read, write, and idle
// timeouts. Zero values disable the respective timeout; prefer the
// hardened defaults for anything internet-facing.
func WithServerTimeouts(read, write, idle time.Duration) Option {
	return func(r *Router) {
		r.readTimeout = read
		r.writeTimeout = write
		r.idleTimeout = idle
	}
}

// WithReadHeaderTimeout overrides how long the server waits for request
// headers, the first line of defense against slowloris clients.
func WithReadHeaderTimeout(d time.Duration) Option {
	return func(r *Router) {
		r.readHeaderTimeout = d
	}
}

// WithMaxHeaderBytes caps the size of request headers the server parses.
func WithMaxHeaderBytes(n int) Option {
	return func(r *Router) {
		r.maxHeaderBytes = n
	}
}
