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
	"strings"
)

// edge is a per-segment static child in the route tree. A linear scan over a
// small slice beats map hashing for the segment counts seen in practice.
type edge struct {
	label string
	node  *node
}

// paramChild captures one dynamic segment (":id", ":name").
type paramChild struct {
	key  string // parameter name without the ':' prefix
	node *node
}

// catchAllChild matches the entire remaining path ("*filepath").
type catchAllChild struct {
	key  string // parameter name without the '*' prefix
	node *node  // terminal node carrying the handlers
}

// node is one segment position in the route tree for a single HTTP method.
//
// Thread safety: nodes are built during the single-threaded configuration
// phase. After the router freezes, the tree is immutable and safe for
// concurrent reads without locking.
type node struct {
	handlers    []HandlerFunc    // handler chain, non-nil only at terminal nodes
	edges       []edge           // static children, disjoint by label
	staticPaths map[string]*node // full-path static routes, root node only
	param       *paramChild      // at most one per node
	catchAll    *catchAllChild   // at most one per node
	pattern     string           // registered pattern for terminal nodes
}

// newNode returns an empty tree root.
func newNode() *node {
	return &node{}
}

// findEdge returns the static child for segment, or nil.
func (n *node) findEdge(segment string) *node {
	for i := range n.edges {
		if n.edges[i].label == segment {
			return n.edges[i].node
		}
	}
	return nil
}

// findOrCreateEdge returns the static child for segment, creating it if needed.
func (n *node) findOrCreateEdge(segment string) *node {
	if child := n.findEdge(segment); child != nil {
		return child
	}
	child := &node{}
	n.edges = append(n.edges, edge{label: segment, node: child})
	return child
}

// isStaticPattern reports whether pattern contains no dynamic segments.
func isStaticPattern(pattern string) bool {
	return !strings.ContainsAny(pattern, ":*")
}

// addRoute registers pattern on the tree rooted at n.
//
// Pattern grammar: '/'-separated segments, each a literal, ":name" parameter,
// or "*name" catch-all. A catch-all must be the final segment. Registration
// conflicts are programming errors and panic: they must surface at startup,
// never at request time.
//
// Must only be called during the configuration phase, before the router
// starts serving. This keeps the serving-phase tree lock-free.
func (n *node) addRoute(pattern string, handlers []HandlerFunc) {
	if pattern == "" || pattern[0] != '/' {
		panic(fmt.Sprintf("trellis: route pattern must begin with '/', got %q", pattern))
	}
	if len(handlers) == 0 {
		panic(fmt.Sprintf("trellis: route %q registered without handlers", pattern))
	}

	if pattern == "/" {
		if n.handlers != nil {
			panic(`trellis: duplicate route registration for "/"`)
		}
		n.handlers = handlers
		n.pattern = "/"
		return
	}

	// Fully static patterns also land in the root's full-path map so the
	// serving hot path can resolve them with a single lookup.
	if isStaticPattern(pattern) {
		if n.staticPaths == nil {
			n.staticPaths = make(map[string]*node, 8)
		}
		if existing := n.staticPaths[pattern]; existing != nil && existing.handlers != nil {
			panic(fmt.Sprintf("trellis: duplicate route registration for %q", pattern))
		}
	}

	segments := strings.Split(pattern[1:], "/")
	current := n

	for i, segment := range segments {
		isLast := i == len(segments)-1

		switch {
		case strings.HasPrefix(segment, ":"):
			name := segment[1:]
			if name == "" {
				panic(fmt.Sprintf("trellis: route %q has an unnamed parameter segment", pattern))
			}
			if current.param == nil {
				current.param = &paramChild{key: name, node: &node{}}
			} else if current.param.key != name {
				panic(fmt.Sprintf("trellis: route %q declares parameter :%s where :%s is already registered",
					pattern, name, current.param.key))
			}
			current = current.param.node

		case strings.HasPrefix(segment, "*"):
			name := segment[1:]
			if name == "" {
				panic(fmt.Sprintf("trellis: route %q has an unnamed catch-all segment", pattern))
			}
			if !isLast {
				panic(fmt.Sprintf("trellis: route %q uses catch-all *%s before the final segment", pattern, name))
			}
			if current.catchAll != nil {
				panic(fmt.Sprintf("trellis: route %q conflicts with existing catch-all *%s",
					pattern, current.catchAll.key))
			}
			current.catchAll = &catchAllChild{key: name, node: &node{}}
			current = current.catchAll.node

		default:
			current = current.findOrCreateEdge(segment)
		}

		if isLast {
			if current.handlers != nil {
				panic(fmt.Sprintf("trellis: duplicate route registration for %q", pattern))
			}
			current.handlers = handlers
			current.pattern = pattern
		}
	}

	if isStaticPattern(pattern) {
		n.staticPaths[pattern] = current
	}
}

// getRoute resolves path against the tree and binds any path parameters into
// c. Returns the handler chain and registered pattern, or (nil, "").
//
// Matching precedence at each node: static edge, then parameter, then
// catch-all. The walk backtracks, so a catch-all only wins when no static or
// parameter alternative along the remaining path can complete the match.
//
// Safe for concurrent use once the tree is frozen.
func (n *node) getRoute(path string, c *Context) ([]HandlerFunc, string) {
	if path == "/" || path == "" {
		if n.handlers != nil {
			return n.handlers, n.pattern
		}
		// "/" may still be claimed by a root-level catch-all.
		if n.catchAll != nil && n.catchAll.node.handlers != nil {
			c.addParam(n.catchAll.key, "")
			return n.catchAll.node.handlers, n.catchAll.node.pattern
		}
		return nil, ""
	}

	// Static full-path routes resolve with one map lookup.
	if n.staticPaths != nil {
		if terminal := n.staticPaths[path]; terminal != nil && terminal.handlers != nil {
			return terminal.handlers, terminal.pattern
		}
	}

	start := 0
	if path[0] == '/' {
		start = 1
	}
	if terminal := n.matchFrom(path, start, c); terminal != nil {
		return terminal.handlers, terminal.pattern
	}
	return nil, ""
}

// matchFrom matches path[start:] against the subtree rooted at n, binding
// parameters into c. Parameters bound along a branch that ultimately fails
// are unwound before the next alternative is tried.
func (n *node) matchFrom(path string, start int, c *Context) *node {
	if start > len(path) {
		if n.handlers != nil {
			return n
		}
		return nil
	}

	// Slice the next segment without allocating.
	end := start
	for end < len(path) && path[end] != '/' {
		end++
	}
	segment := path[start:end]
	next := end + 1 // past the separating slash

	if child := n.findEdge(segment); child != nil {
		if terminal := child.matchFrom(path, next, c); terminal != nil {
			return terminal
		}
	}

	// Parameters never bind the empty segment, so "/users//posts" and
	// trailing slashes cannot silently satisfy ":id".
	if n.param != nil && segment != "" {
		mark := c.paramMark()
		c.addParam(n.param.key, segment)
		if terminal := n.param.node.matchFrom(path, next, c); terminal != nil {
			return terminal
		}
		c.truncateParams(mark)
	}

	if n.catchAll != nil && n.catchAll.node.handlers != nil {
		c.addParam(n.catchAll.key, path[start:])
		return n.catchAll.node
	}

	return nil
}

// countRoutes reports the number of terminal nodes reachable from n,
// including n itself.
func (n *node) countRoutes() int {
	count := 0
	if n.handlers != nil {
		count++
	}
	for i := range n.edges {
		count += n.edges[i].node.countRoutes()
	}
	if n.param != nil {
		count += n.param.node.countRoutes()
	}
	if n.catchAll != nil {
		count += n.catchAll.node.countRoutes()
	}
	return count
}
