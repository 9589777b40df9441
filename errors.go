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
	"errors"
	"io"
	"log/slog"
)

// Configuration and runtime errors returned by the router. All are sentinel
// values so callers can match with errors.Is.
var (
	// ErrInvalidConfiguration wraps option validation failures from New.
	ErrInvalidConfiguration = errors.New("invalid router configuration")

	// ErrServerNotStarted is returned by Shutdown when Serve was never
	// called.
	ErrServerNotStarted = errors.New("server not started")

	// ErrContextResponseNil is returned by render methods when the context
	// has no response writer bound.
	ErrContextResponseNil = errors.New("context response writer is nil")

	// ErrRouterFrozen is returned when routes are registered after the
	// first request has been served.
	ErrRouterFrozen = errors.New("route registration after first request")
)

// noopLogger discards everything. Contexts carry it when no logger is
// configured, so c.Logger() is always safe to call.
var noopLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
	Level: slog.Level(127), // above any real level; records are never built
}))
