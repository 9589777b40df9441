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
	"net/http"
	"strings"
)

// Group is a set of routes sharing a path prefix and middleware. Nested
// groups compose both: a child group's routes see the parent's prefix and
// middleware in front of their own.
//
//	api := r.Group("/api", authMiddleware)
//	v1 := api.Group("/v1")
//	v1.GET("/users", listUsers) // final path /api/v1/users, runs auth first
type Group struct {
	router     *Router
	prefix     string
	middleware []HandlerFunc
}

// Group creates a route group with the given prefix and optional
// group-level middleware.
func (r *Router) Group(prefix string, mw ...HandlerFunc) *Group {
	return &Group{
		router:     r,
		prefix:     normalizePrefix(prefix),
		middleware: mw,
	}
}

// Group creates a nested group. The child's prefix is appended to the
// parent's, and the parent's middleware precedes the child's.
func (g *Group) Group(prefix string, mw ...HandlerFunc) *Group {
	combined := make([]HandlerFunc, 0, len(g.middleware)+len(mw))
	combined = append(combined, g.middleware...)
	combined = append(combined, mw...)
	return &Group{
		router:     g.router,
		prefix:     g.prefix + normalizePrefix(prefix),
		middleware: combined,
	}
}

// Use appends middleware to the group. Applies to routes registered after
// the call, matching the router-level behavior.
func (g *Group) Use(mw ...HandlerFunc) {
	g.middleware = append(g.middleware, mw...)
}

// Handle registers a route relative to the group's prefix.
func (g *Group) Handle(method, pattern string, handlers ...HandlerFunc) {
	chain := make([]HandlerFunc, 0, len(g.middleware)+len(handlers))
	chain = append(chain, g.middleware...)
	chain = append(chain, handlers...)
	g.router.Handle(method, g.joinPattern(pattern), chain...)
}

// GET registers a GET route relative to the group's prefix.
func (g *Group) GET(pattern string, handlers ...HandlerFunc) {
	g.Handle(http.MethodGet, pattern, handlers...)
}

// POST registers a POST route relative to the group's prefix.
func (g *Group) POST(pattern string, handlers ...HandlerFunc) {
	g.Handle(http.MethodPost, pattern, handlers...)
}

// PUT registers a PUT route relative to the group's prefix.
func (g *Group) PUT(pattern string, handlers ...HandlerFunc) {
	g.Handle(http.MethodPut, pattern, handlers...)
}

// DELETE registers a DELETE route relative to the group's prefix.
func (g *Group) DELETE(pattern string, handlers ...HandlerFunc) {
	g.Handle(http.MethodDelete, pattern, handlers...)
}

// PATCH registers a PATCH route relative to the group's prefix.
func (g *Group) PATCH(pattern string, handlers ...HandlerFunc) {
	g.Handle(http.MethodPatch, pattern, handlers...)
}

// HEAD registers a HEAD route relative to the group's prefix.
func (g *Group) HEAD(pattern string, handlers ...HandlerFunc) {
	g.Handle(http.MethodHead, pattern, handlers...)
}

// OPTIONS registers an OPTIONS route relative to the group's prefix.
func (g *Group) OPTIONS(pattern string, handlers ...HandlerFunc) {
	g.Handle(http.MethodOptions, pattern, handlers...)
}

func (g *Group) joinPattern(pattern string) string {
	if pattern == "" || pattern == "/" {
		if g.prefix == "" {
			return "/"
		}
		return g.prefix
	}
	if !strings.HasPrefix(pattern, "/") {
		pattern = "/" + pattern
	}
	return g.prefix + pattern
}

// normalizePrefix trims a trailing slash and guarantees a leading one, so
// concatenation never produces "//" segments.
func normalizePrefix(prefix string) string {
	if prefix == "" || prefix == "/" {
		return ""
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return strings.TrimSuffix(prefix, "/")
}
