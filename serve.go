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
	"context"
	"net/http"
	"runtime/debug"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Route-pattern sentinels reported to observability recorders when dispatch
// ends without a handler match.
const (
	PatternNotFound         = "_not_found"
	PatternMethodNotAllowed = "_method_not_allowed"
)

// ServeHTTP implements http.Handler. The first request freezes the route
// table; after that dispatch touches no locks: method tree lookup, radix
// match, pooled context, chain execution.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if !r.frozen.Load() {
		r.freeze()
	}

	rw := r.pool.getWriter(w)
	c := r.pool.get()
	defer func() {
		r.pool.put(c)
		r.pool.putWriter(rw)
	}()

	path := req.URL.Path
	var handlers []HandlerFunc
	pattern := PatternNotFound

	if root := r.trees.root(req.Method); root != nil {
		handlers, pattern = root.getRoute(path, c)
		if handlers == nil {
			pattern = PatternNotFound
		}
	}

	if handlers == nil {
		if r.redirectTrailingSlash && r.redirectSlash(rw, req, path) {
			return
		}
		if r.handleMethodNotAllowed {
			if allowed := r.allowedMethods(path); len(allowed) > 0 {
				c.initForRequest(req, rw, nil, r)
				c.routePattern = PatternMethodNotAllowed
				c.logger = r.logger
				c.MethodNotAllowed(allowed)
				return
			}
		}
		r.serveNotFound(c, rw, req)
		return
	}

	c.initForRequest(req, rw, handlers, r)
	c.routePattern = pattern
	c.logger = r.logger

	r.runChain(c, rw, req, pattern)
}

// runChain executes the handler chain with the observability lifecycle and
// the router's panic boundary around it.
func (r *Router) runChain(c *Context, rw *responseWriter, req *http.Request, pattern string) {
	var obsState any
	if r.observability != nil {
		var wrapped *http.Request
		wrapped, obsState = r.observability.OnRequestStart(req, pattern)
		if wrapped != nil {
			req = wrapped
			c.Request = wrapped
		}
		if w := r.observability.WrapResponseWriter(rw); w != nil {
			c.Response = w
		}
		defer func() {
			r.observability.OnRequestEnd(req, obsState, ResponseInfo{
				StatusCode: rw.StatusCode(),
				Size:       rw.Size(),
			})
		}()
	}

	// Panic boundary. A panicking handler must not take the process down
	// or poison the pool: log it, answer 500 if nothing was written, and
	// let the deferred release in ServeHTTP run as usual.
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic recovered in handler",
				"panic", rec,
				"method", req.Method,
				"path", req.URL.Path,
				"route", pattern,
				"stack", string(debug.Stack()),
			)
			if !rw.Written() {
				http.Error(rw, "Internal Server Error", http.StatusInternalServerError)
			}
		}
	}()

	c.Next()
}

// serveNotFound answers an unmatched request, through the NoRoute chain
// when one is installed.
func (r *Router) serveNotFound(c *Context, rw *responseWriter, req *http.Request) {
	if len(r.noRouteHandlers) > 0 {
		c.initForRequest(req, rw, r.noRouteHandlers, r)
		c.routePattern = PatternNotFound
		c.logger = r.logger
		r.runChain(c, rw, req, PatternNotFound)
		if !rw.Written() {
			c.NotFound()
		}
		return
	}
	c.initForRequest(req, rw, nil, r)
	c.routePattern = PatternNotFound
	c.logger = r.logger
	c.NotFound()
}

// redirectSlash issues a redirect when toggling the trailing slash yields a
// registered route. 301 for GET, 308 otherwise so the method and body
// survive the redirect.
func (r *Router) redirectSlash(w http.ResponseWriter, req *http.Request, path string) bool {
	if path == "/" {
		return false
	}
	alt := path + "/"
	if path[len(path)-1] == '/' {
		alt = path[:len(path)-1]
	}

	root := r.trees.root(req.Method)
	if root == nil {
		return false
	}
	probe := &Context{index: -1}
	if handlers, _ := root.getRoute(alt, probe); handlers == nil {
		return false
	}

	code := http.StatusPermanentRedirect
	if req.Method == http.MethodGet || req.Method == http.MethodHead {
		code = http.StatusMovedPermanently
	}
	target := *req.URL
	target.Path = alt
	http.Redirect(w, req, target.String(), code)
	return true
}

// Serve starts the built-in HTTP server on addr and blocks until it stops.
// The server carries the router's hardened timeouts; with WithH2C the
// handler accepts HTTP/2 cleartext upgrades.
func (r *Router) Serve(addr string) error {
	srv := r.buildServer(addr)
	return srv.ListenAndServe()
}

// ServeTLS starts the built-in server with TLS.
func (r *Router) ServeTLS(addr, certFile, keyFile string) error {
	srv := r.buildServer(addr)
	return srv.ListenAndServeTLS(certFile, keyFile)
}

// Shutdown gracefully stops the built-in server, waiting for in-flight
// requests up to the context's deadline.
func (r *Router) Shutdown(ctx context.Context) error {
	r.serverMu.Lock()
	srv := r.server
	r.serverMu.Unlock()
	if srv == nil {
		return ErrServerNotStarted
	}
	return srv.Shutdown(ctx)
}

func (r *Router) buildServer(addr string) *http.Server {
	var handler http.Handler = r
	if r.enableH2C {
		handler = h2c.NewHandler(r, &http2.Server{})
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       r.readTimeout,
		WriteTimeout:      r.writeTimeout,
		IdleTimeout:       r.idleTimeout,
		ReadHeaderTimeout: r.readHeaderTimeout,
		MaxHeaderBytes:    r.maxHeaderBytes,
	}
	r.serverMu.Lock()
	r.server = srv
	r.serverMu.Unlock()
	return srv
}
