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
	"net/http"
	"strings"
)

// methodTrees holds one route tree root per HTTP method. Fixed fields and a
// switch keep method lookup branch-predictable; a map would add a hash per
// request for nine known keys.
type methodTrees struct {
	get     *node
	post    *node
	put     *node
	delete  *node
	patch   *node
	head    *node
	options *node
	connect *node
	trace   *node
}

// root returns the tree root for method, or nil when no route with that
// method has been registered.
func (t *methodTrees) root(method string) *node {
	switch method {
	case http.MethodGet:
		return t.get
	case http.MethodPost:
		return t.post
	case http.MethodPut:
		return t.put
	case http.MethodDelete:
		return t.delete
	case http.MethodPatch:
		return t.patch
	case http.MethodHead:
		return t.head
	case http.MethodOptions:
		return t.options
	case http.MethodConnect:
		return t.connect
	case http.MethodTrace:
		return t.trace
	}
	return nil
}

// getOrCreate returns the tree root for method, creating it on first use.
// Unknown methods panic: registration input is programmer-controlled.
func (t *methodTrees) getOrCreate(method string) *node {
	switch method {
	case http.MethodGet:
		if t.get == nil {
			t.get = newNode()
		}
		return t.get
	case http.MethodPost:
		if t.post == nil {
			t.post = newNode()
		}
		return t.post
	case http.MethodPut:
		if t.put == nil {
			t.put = newNode()
		}
		return t.put
	case http.MethodDelete:
		if t.delete == nil {
			t.delete = newNode()
		}
		return t.delete
	case http.MethodPatch:
		if t.patch == nil {
			t.patch = newNode()
		}
		return t.patch
	case http.MethodHead:
		if t.head == nil {
			t.head = newNode()
		}
		return t.head
	case http.MethodOptions:
		if t.options == nil {
			t.options = newNode()
		}
		return t.options
	case http.MethodConnect:
		if t.connect == nil {
			t.connect = newNode()
		}
		return t.connect
	case http.MethodTrace:
		if t.trace == nil {
			t.trace = newNode()
		}
		return t.trace
	}
	panic(fmt.Sprintf("trellis: unsupported HTTP method %q", method))
}

// forEach visits every non-nil tree with its method name.
func (t *methodTrees) forEach(fn func(method string, root *node)) {
	visit := func(method string, root *node) {
		if root != nil {
			fn(method, root)
		}
	}
	visit(http.MethodGet, t.get)
	visit(http.MethodPost, t.post)
	visit(http.MethodPut, t.put)
	visit(http.MethodDelete, t.delete)
	visit(http.MethodPatch, t.patch)
	visit(http.MethodHead, t.head)
	visit(http.MethodOptions, t.options)
	visit(http.MethodConnect, t.connect)
	visit(http.MethodTrace, t.trace)
}

// Handle registers a route for the given HTTP method and pattern. The final
// chain is assembled here, at registration time: router middleware first,
// then the provided handlers. Registration is not safe to interleave with
// serving; the router panics if the route table is already frozen.
func (r *Router) Handle(method, pattern string, handlers ...HandlerFunc) {
	if r.frozen.Load() {
		panic(fmt.Sprintf("trellis: cannot register %s %s: %v", method, pattern, ErrRouterFrozen))
	}
	if len(handlers) == 0 {
		panic(fmt.Sprintf("trellis: route %s %s has no handlers", method, pattern))
	}
	method = strings.ToUpper(method)

	chain := make([]HandlerFunc, 0, len(r.middleware)+len(handlers))
	chain = append(chain, r.middleware...)
	chain = append(chain, handlers...)

	root := r.trees.getOrCreate(method)
	root.addRoute(pattern, chain)
	r.routeCount++
}

// GET registers a route for GET requests.
func (r *Router) GET(pattern string, handlers ...HandlerFunc) {
	r.Handle(http.MethodGet, pattern, handlers...)
}

// POST registers a route for POST requests.
func (r *Router) POST(pattern string, handlers ...HandlerFunc) {
	r.Handle(http.MethodPost, pattern, handlers...)
}

// PUT registers a route for PUT requests.
func (r *Router) PUT(pattern string, handlers ...HandlerFunc) {
	r.Handle(http.MethodPut, pattern, handlers...)
}

// DELETE registers a route for DELETE requests.
func (r *Router) DELETE(pattern string, handlers ...HandlerFunc) {
	r.Handle(http.MethodDelete, pattern, handlers...)
}

// PATCH registers a route for PATCH requests.
func (r *Router) PATCH(pattern string, handlers ...HandlerFunc) {
	r.Handle(http.MethodPatch, pattern, handlers...)
}

// HEAD registers a route for HEAD requests.
func (r *Router) HEAD(pattern string, handlers ...HandlerFunc) {
	r.Handle(http.MethodHead, pattern, handlers...)
}

// OPTIONS registers a route for OPTIONS requests.
func (r *Router) OPTIONS(pattern string, handlers ...HandlerFunc) {
	r.Handle(http.MethodOptions, pattern, handlers...)
}

// Any registers the same handlers for the common HTTP methods.
func (r *Router) Any(pattern string, handlers ...HandlerFunc) {
	for _, m := range []string{
		http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete,
		http.MethodPatch, http.MethodHead, http.MethodOptions,
	} {
		r.Handle(m, pattern, handlers...)
	}
}

// RouteExists reports whether a registered route would match the given
// method and path.
func (r *Router) RouteExists(method, path string) bool {
	root := r.trees.root(strings.ToUpper(method))
	if root == nil {
		return false
	}
	probe := &Context{index: -1}
	handlers, _ := root.getRoute(path, probe)
	return handlers != nil
}

// Routes returns the number of registered routes across all methods.
func (r *Router) Routes() int {
	return r.routeCount
}

// allowedMethods returns the methods whose trees match path, for building
// the Allow header on 405 responses.
func (r *Router) allowedMethods(path string) []string {
	var allowed []string
	r.trees.forEach(func(method string, root *node) {
		probe := &Context{index: -1}
		if handlers, _ := root.getRoute(path, probe); handlers != nil {
			allowed = append(allowed, method)
		}
	})
	return allowed
}
