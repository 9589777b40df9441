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

// Package middleware holds the conventions shared by the middleware
// subpackages: the context-store keys they publish values under.
package middleware

// Context-store keys set by the middleware subpackages. Typed constants
// keep key strings in one place so handlers and middleware agree.
const (
	// RequestIDKey holds the request's correlation ID (requestid package).
	RequestIDKey = "trellis.request_id"

	// RateLimitRemainingKey holds the tokens remaining after admission
	// (ratelimit package).
	RateLimitRemainingKey = "trellis.ratelimit_remaining"

	// CacheHitKey is set to true when fragcache served the response
	// without running the handler (fragcache package).
	CacheHitKey = "trellis.cache_hit"
)
