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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(*Context) {}

func addPatterns(t *testing.T, root *node, patterns ...string) {
	t.Helper()
	for _, p := range patterns {
		root.addRoute(p, []HandlerFunc{noop})
	}
}

// match runs a lookup on a fresh context and returns the matched pattern
// plus the bound parameters.
func match(root *node, path string) (string, map[string]string) {
	c := &Context{index: -1}
	handlers, pattern := root.getRoute(path, c)
	if handlers == nil {
		return "", nil
	}
	params := make(map[string]string)
	for i := int32(0); i < c.paramCount && i < maxArrayParams; i++ {
		params[c.paramKeys[i]] = c.paramValues[i]
	}
	for k, v := range c.Params {
		params[k] = v
	}
	return pattern, params
}

func TestStaticMatching(t *testing.T) {
	root := newNode()
	addPatterns(t, root, "/", "/users", "/users/all", "/health/live")

	tests := []struct {
		path string
		want string
	}{
		{"/", "/"},
		{"/users", "/users"},
		{"/users/all", "/users/all"},
		{"/health/live", "/health/live"},
	}
	for _, tt := range tests {
		pattern, _ := match(root, tt.path)
		assert.Equal(t, tt.want, pattern, "path %q", tt.path)
	}

	for _, path := range []string{"/user", "/users/al", "/users/all/x", "/health"} {
		pattern, _ := match(root, path)
		assert.Empty(t, pattern, "path %q should not match", path)
	}
}

func TestTrailingSlashIsExact(t *testing.T) {
	root := newNode()
	addPatterns(t, root, "/users")

	pattern, _ := match(root, "/users/")
	assert.Empty(t, pattern, "/users/ must not match /users")

	root2 := newNode()
	addPatterns(t, root2, "/users/")
	pattern, _ = match(root2, "/users")
	assert.Empty(t, pattern, "/users must not match /users/")
	pattern, _ = match(root2, "/users/")
	assert.Equal(t, "/users/", pattern)
}

func TestParamMatching(t *testing.T) {
	root := newNode()
	addPatterns(t, root, "/users/:id", "/users/:id/posts/:postID")

	pattern, params := match(root, "/users/42")
	require.Equal(t, "/users/:id", pattern)
	assert.Equal(t, "42", params["id"])

	pattern, params = match(root, "/users/42/posts/7")
	require.Equal(t, "/users/:id/posts/:postID", pattern)
	assert.Equal(t, "42", params["id"])
	assert.Equal(t, "7", params["postID"])

	// A parameter never binds an empty segment.
	pattern, _ = match(root, "/users//posts/7")
	assert.Empty(t, pattern)
}

func TestLiteralBeatsParam(t *testing.T) {
	root := newNode()
	addPatterns(t, root, "/users/:id", "/users/all")

	pattern, params := match(root, "/users/all")
	assert.Equal(t, "/users/all", pattern)
	assert.Empty(t, params["id"])

	pattern, params = match(root, "/users/99")
	assert.Equal(t, "/users/:id", pattern)
	assert.Equal(t, "99", params["id"])
}

func TestParamBeatsCatchAll(t *testing.T) {
	root := newNode()
	addPatterns(t, root, "/files/:name", "/files/*rest")

	pattern, params := match(root, "/files/report")
	assert.Equal(t, "/files/:name", pattern)
	assert.Equal(t, "report", params["name"])

	// The param branch cannot consume two segments; the catch-all wins.
	pattern, params = match(root, "/files/a/b")
	assert.Equal(t, "/files/*rest", pattern)
	assert.Equal(t, "a/b", params["rest"])
}

func TestBacktrackingUnbindsParams(t *testing.T) {
	root := newNode()
	addPatterns(t, root, "/a/:x/c", "/a/*rest")

	// ":x" binds "b", then "d" fails against "c"; the matcher must fall
	// back to the catch-all with the ":x" binding discarded.
	pattern, params := match(root, "/a/b/d")
	require.Equal(t, "/a/*rest", pattern)
	assert.Equal(t, "b/d", params["rest"])
	_, hasX := params["x"]
	assert.False(t, hasX, "backtracked binding must not leak")
}

func TestCatchAllMatching(t *testing.T) {
	root := newNode()
	addPatterns(t, root, "/static/*filepath")

	tests := []struct {
		path string
		want string
	}{
		{"/static/app.js", "app.js"},
		{"/static/css/site.css", "css/site.css"},
		{"/static/", ""},
	}
	for _, tt := range tests {
		pattern, params := match(root, tt.path)
		require.Equal(t, "/static/*filepath", pattern, "path %q", tt.path)
		assert.Equal(t, tt.want, params["filepath"], "path %q", tt.path)
	}

	// The catch-all needs at least the slash after its prefix.
	pattern, _ := match(root, "/static")
	assert.Empty(t, pattern)
}

func TestDeepStaticTreeMatching(t *testing.T) {
	root := newNode()
	addPatterns(t, root,
		"/api/v1/users/:id",
		"/api/v1/users/:id/settings",
		"/api/v2/users/:id",
		"/api/v1/admin/reports/daily",
	)

	pattern, params := match(root, "/api/v2/users/7")
	assert.Equal(t, "/api/v2/users/:id", pattern)
	assert.Equal(t, "7", params["id"])

	pattern, _ = match(root, "/api/v1/admin/reports/daily")
	assert.Equal(t, "/api/v1/admin/reports/daily", pattern)

	pattern, _ = match(root, "/api/v3/users/7")
	assert.Empty(t, pattern)
}

func TestRegistrationConflictsPanic(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
	}{
		{"duplicate static", []string{"/users", "/users"}},
		{"duplicate root", []string{"/", "/"}},
		{"duplicate param route", []string{"/users/:id", "/users/:id"}},
		{"conflicting param names", []string{"/users/:id", "/users/:name"}},
		{"second catch-all", []string{"/files/*a", "/files/*b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := newNode()
			require.Panics(t, func() {
				for _, p := range tt.patterns {
					root.addRoute(p, []HandlerFunc{noop})
				}
			})
		})
	}
}

func TestMalformedPatternsPanic(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
	}{
		{"missing leading slash", "users"},
		{"empty pattern", ""},
		{"unnamed param", "/users/:"},
		{"unnamed catch-all", "/files/*"},
		{"catch-all not final", "/files/*rest/meta"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := newNode()
			require.Panics(t, func() {
				root.addRoute(tt.pattern, []HandlerFunc{noop})
			})
		})
	}
}

func TestNoHandlersPanics(t *testing.T) {
	root := newNode()
	require.Panics(t, func() {
		root.addRoute("/users", nil)
	})
}

func TestParamAndCatchAllCoexist(t *testing.T) {
	// Registering both at the same position is legal; precedence at match
	// time decides between them.
	root := newNode()
	require.NotPanics(t, func() {
		addPatterns(t, root, "/files/:name", "/files/*rest")
	})
}

func TestRegistrationOrderIrrelevant(t *testing.T) {
	forward := newNode()
	addPatterns(t, forward, "/users/all", "/users/:id", "/users/*rest")

	reverse := newNode()
	addPatterns(t, reverse, "/users/*rest", "/users/:id", "/users/all")

	for _, path := range []string{"/users/all", "/users/7", "/users/a/b"} {
		p1, _ := match(forward, path)
		p2, _ := match(reverse, path)
		assert.Equal(t, p1, p2, "path %q", path)
	}
}

func TestCountRoutes(t *testing.T) {
	root := newNode()
	addPatterns(t, root, "/", "/users", "/users/:id", "/files/*rest")
	assert.Equal(t, 4, root.countRoutes())
}
