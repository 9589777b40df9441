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

// Package timeout bounds handler execution by deadline-wrapping the
// request context. Handlers that honor cancellation stop early; the
// router's own cancellation check stops the chain from advancing past the
// deadline either way.
package timeout

import (
	"context"
	"time"

	"github.com/routeworks/trellis"
)

// New wraps the request context with the given deadline for the rest of
// the chain. It does not forcibly interrupt a running handler; Go provides
// no safe preemption, so the guarantee is cooperative, same as
// context.Context everywhere else.
func New(d time.Duration) trellis.HandlerFunc {
	if d <= 0 {
		panic("timeout: duration must be positive")
	}
	return func(c *trellis.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		orig := c.Request
		c.Request = orig.WithContext(ctx)
		defer func() { c.Request = orig }()

		c.Next()
	}
}
