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

// Package accesslog emits one structured log line per request via slog.
package accesslog

import (
	"log/slog"
	"time"

	"github.com/routeworks/trellis"
	"github.com/routeworks/trellis/middleware"
)

// Option configures the middleware.
type Option func(*config)

type config struct {
	logger    *slog.Logger
	skipPaths map[string]struct{}
}

// WithLogger sets the destination logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithSkipPaths suppresses logging for exact paths (health checks, metrics
// scrapes).
func WithSkipPaths(paths ...string) Option {
	return func(c *config) {
		if c.skipPaths == nil {
			c.skipPaths = make(map[string]struct{}, len(paths))
		}
		for _, p := range paths {
			c.skipPaths[p] = struct{}{}
		}
	}
}

// New builds the access log middleware. Install it early so the recorded
// duration covers the rest of the chain.
func New(opts ...Option) trellis.HandlerFunc {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	return func(c *trellis.Context) {
		if _, skip := cfg.skipPaths[c.Request.URL.Path]; skip {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		attrs := []any{
			slog.Int("status", statusOf(c)),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("route", c.RoutePattern()),
			slog.String("client_ip", c.ClientIP()),
			slog.Duration("duration", elapsed),
		}
		if id := c.GetString(middleware.RequestIDKey); id != "" {
			attrs = append(attrs, slog.String("request_id", id))
		}
		if errs := c.Errors(); len(errs) > 0 {
			msgs := make([]string, len(errs))
			for i, err := range errs {
				msgs[i] = err.Error()
			}
			attrs = append(attrs, slog.Any("errors", msgs))
		}

		if c.HasErrors() {
			cfg.logger.Error("request", attrs...)
		} else {
			cfg.logger.Info("request", attrs...)
		}
	}
}

// statusOf reads the response status through the router's instrumented
// writer, falling back to 200 for bare writers.
func statusOf(c *trellis.Context) int {
	if sw, ok := c.Response.(interface{ StatusCode() int }); ok {
		return sw.StatusCode()
	}
	return 200
}
