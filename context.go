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
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// HandlerFunc is the signature shared by middleware and route handlers.
// Middleware calls c.Next() to run the rest of the chain; a final handler
// usually just writes the response.
//
//	func Logger() trellis.HandlerFunc {
//	    return func(c *trellis.Context) {
//	        start := time.Now()
//	        c.Next()
//	        log.Printf("request took %v", time.Since(start))
//	    }
//	}
type HandlerFunc func(*Context)

// maxArrayParams is the number of path parameters stored in fixed arrays
// before overflowing to a map. Routes with more than eight parameters are
// rare enough that the map path is acceptable.
const maxArrayParams = 4 * 2

// Context carries the state of one HTTP request through a handler chain:
// the request and response writer, bound path parameters, a request-scoped
// key/value store, accumulated errors, and the chain cursor.
//
// Context is NOT safe for concurrent use. It is owned by the single
// goroutine serving its request. Contexts are pooled and reused; retaining
// a *Context (or anything reachable only through it) after the handler
// returns is undefined behavior — copy the data you need before spawning
// goroutines:
//
//	func handler(c *trellis.Context) {
//	    id := c.Param("id") // copy first
//	    go archive(id)      // never capture c itself
//	}
type Context struct {
	Request  *http.Request
	Response http.ResponseWriter

	handlers []HandlerFunc
	router   *Router
	index    int32 // cursor into handlers; -1 before the chain starts
	aborted  bool

	// Parameter storage: fixed arrays for the common case, map overflow
	// beyond maxArrayParams. paramCount is the total bound, across both.
	paramKeys     [maxArrayParams]string
	paramValues   [maxArrayParams]string
	paramCount    int32
	Params        map[string]string // overflow only; nil for typical routes
	paramOverflow []string          // overflow insertion order, for unwinding

	store        map[string]any // request-scoped key/value store, lazily built
	errs         []error        // accumulated via Error(), lazily built
	routePattern string         // matched pattern, e.g. "/users/:id"
	logger       *slog.Logger   // request-scoped; never nil after init
}

// NewContext creates a standalone context for the given request and writer.
// Normal dispatch obtains contexts from the router's pool; this constructor
// exists for tests and for driving handlers outside a router.
func NewContext(w http.ResponseWriter, r *http.Request) *Context {
	return &Context{
		Request:  r,
		Response: w,
		index:    -1,
		logger:   noopLogger,
	}
}

// Next hands control to the next handler in the chain. Code after the Next
// call runs once every deeper handler has returned, which yields the usual
// pre/post ("onion") ordering.
//
// Continuation is explicit: a handler that returns without calling Next
// ends the chain right there, an implicit abort. Deeper handlers only ever
// run because someone above them asked.
func (c *Context) Next() {
	if c.aborted {
		return
	}
	c.index++
	if c.index >= int32(len(c.handlers)) {
		return
	}
	if c.router != nil && c.router.checkCancellation {
		// Skip work for requests the client already gave up on.
		if err := c.Request.Context().Err(); err != nil {
			return
		}
	}
	c.handlers[c.index](c)
}

// Abort prevents any handler deeper in the chain from running. The calling
// handler's own remaining statements still execute; only later handlers are
// skipped, and pending Next calls up the stack become no-ops.
func (c *Context) Abort() {
	c.aborted = true
}

// AbortWithStatus writes a status code and aborts the chain.
func (c *Context) AbortWithStatus(code int) {
	c.Status(code)
	c.Abort()
}

// IsAborted reports whether the chain has been aborted.
func (c *Context) IsAborted() bool {
	return c.aborted
}

// addParam binds one path parameter. Called by the route matcher.
func (c *Context) addParam(key, value string) {
	if c.paramCount < maxArrayParams {
		c.paramKeys[c.paramCount] = key
		c.paramValues[c.paramCount] = value
	} else {
		if c.Params == nil {
			c.Params = make(map[string]string, 2)
		}
		c.Params[key] = value
		c.paramOverflow = append(c.paramOverflow, key)
	}
	c.paramCount++
}

// paramMark returns the current parameter count so a failed match branch can
// be unwound with truncateParams.
func (c *Context) paramMark() int32 {
	return c.paramCount
}

// truncateParams discards parameters bound after mark. Bindings made on a
// backtracked branch must not leak into the final match.
func (c *Context) truncateParams(mark int32) {
	for i := c.paramCount - 1; i >= mark; i-- {
		if i < maxArrayParams {
			c.paramKeys[i] = ""
			c.paramValues[i] = ""
		} else {
			last := len(c.paramOverflow) - 1
			delete(c.Params, c.paramOverflow[last])
			c.paramOverflow = c.paramOverflow[:last]
		}
	}
	c.paramCount = mark
}

// Param returns the value bound to a path parameter, or "" if the route did
// not declare it.
//
//	r.GET("/users/:id", func(c *trellis.Context) {
//	    id := c.Param("id")
//	    ...
//	})
func (c *Context) Param(key string) string {
	limit := min(c.paramCount, maxArrayParams)
	for i := int32(0); i < limit; i++ {
		if c.paramKeys[i] == key {
			return c.paramValues[i]
		}
	}
	return c.Params[key]
}

// ParamCount returns the number of path parameters bound on this context.
func (c *Context) ParamCount() int32 {
	return c.paramCount
}

// Error appends err to the context's error list. Errors accumulate without
// halting the chain; a trailing middleware (logging, error rendering) can
// inspect them via Errors. Call Abort separately to stop the chain.
func (c *Context) Error(err error) {
	if err == nil {
		return
	}
	if c.errs == nil {
		c.errs = make([]error, 0, 4)
	}
	c.errs = append(c.errs, err)
}

// Errors returns the errors recorded during this request, in order, or nil.
// Combine with errors.Join or iterate individually.
func (c *Context) Errors() []error {
	return c.errs
}

// HasErrors reports whether any error was recorded on this context.
func (c *Context) HasErrors() bool {
	return len(c.errs) > 0
}

// RoutePattern returns the matched route pattern (e.g. "/users/:id"), or a
// sentinel such as "_not_found" when no route matched.
func (c *Context) RoutePattern() string {
	return c.routePattern
}

// Logger returns the request-scoped structured logger. It is never nil; if
// the router has no observability configured it is a no-op logger.
func (c *Context) Logger() *slog.Logger {
	if c.logger == nil {
		return noopLogger
	}
	return c.logger
}

// RequestContext returns the request's context.Context, for passing to
// downstream calls that honor cancellation.
func (c *Context) RequestContext() context.Context {
	if c.Request != nil {
		return c.Request.Context()
	}
	return context.Background()
}

// Status writes the response status code if headers were not written yet.
func (c *Context) Status(code int) {
	if rw, ok := c.Response.(*responseWriter); ok {
		if !rw.Written() {
			rw.WriteHeader(code)
		}
		return
	}
	c.Response.WriteHeader(code)
}

// Header sets a response header. An empty value deletes the header.
func (c *Context) Header(key, value string) {
	if value == "" {
		c.Response.Header().Del(key)
		return
	}
	c.Response.Header().Set(key, value)
}

// writeStatus writes code unless the response has already been started.
func (c *Context) writeStatus(code int) {
	if rw, ok := c.Response.(*responseWriter); ok && rw.Written() {
		return
	}
	c.Response.WriteHeader(code)
}

// JSON encodes obj and writes it with the given status code. Encoding
// happens into a buffer first so a marshalling failure never leaves a
// half-written response.
func (c *Context) JSON(code int, obj any) error {
	var buf strings.Builder
	buf.Grow(256)
	if err := json.NewEncoder(&buf).Encode(obj); err != nil {
		return fmt.Errorf("json encoding failed for %T: %w", obj, err)
	}

	if c.Response == nil {
		return ErrContextResponseNil
	}
	c.Response.Header().Set("Content-Type", "application/json; charset=utf-8")
	c.writeStatus(code)
	_, err := io.WriteString(c.Response, buf.String())
	return err
}

// YAML encodes obj as YAML and writes it with the given status code.
func (c *Context) YAML(code int, obj any) error {
	out, err := yaml.Marshal(obj)
	if err != nil {
		return fmt.Errorf("yaml encoding failed for %T: %w", obj, err)
	}

	if c.Response == nil {
		return ErrContextResponseNil
	}
	c.Response.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	c.writeStatus(code)
	_, err = c.Response.Write(out)
	return err
}

// String writes a plain-text response with the given status code.
func (c *Context) String(code int, value string) error {
	if c.Response == nil {
		return ErrContextResponseNil
	}
	c.Response.Header().Set("Content-Type", "text/plain; charset=utf-8")
	c.writeStatus(code)
	_, err := io.WriteString(c.Response, value)
	return err
}

// Stringf formats according to format and writes the result as plain text.
func (c *Context) Stringf(code int, format string, values ...any) error {
	return c.String(code, fmt.Sprintf(format, values...))
}

// Data writes raw bytes with the given status code and content type.
func (c *Context) Data(code int, contentType string, data []byte) error {
	if c.Response == nil {
		return ErrContextResponseNil
	}
	if contentType != "" {
		c.Response.Header().Set("Content-Type", contentType)
	}
	c.writeStatus(code)
	_, err := c.Response.Write(data)
	return err
}

// NoContent writes a 204 response with no body.
func (c *Context) NoContent() {
	c.writeStatus(http.StatusNoContent)
}

// Redirect writes an HTTP redirect to location.
func (c *Context) Redirect(code int, location string) {
	http.Redirect(c.Response, c.Request, location, code)
}

// SetCookie adds a Set-Cookie header to the response.
func (c *Context) SetCookie(name, value string, maxAge int, path, domain string, secure, httpOnly bool) {
	if path == "" {
		path = "/"
	}
	http.SetCookie(c.Response, &http.Cookie{
		Name:     name,
		Value:    value,
		MaxAge:   maxAge,
		Path:     path,
		Domain:   domain,
		Secure:   secure,
		HttpOnly: httpOnly,
	})
}

// GetCookie returns the named request cookie's value.
func (c *Context) GetCookie(name string) (string, error) {
	cookie, err := c.Request.Cookie(name)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}

// WriteErrorResponse writes a minimal plain-text error response. The router
// uses it for its built-in 404/405/500 bodies; aborting middleware is free
// to write richer responses itself.
func (c *Context) WriteErrorResponse(status int, message string) {
	if rw, ok := c.Response.(*responseWriter); !ok || !rw.Written() {
		if message != "" {
			c.Response.Header().Set("Content-Type", "text/plain; charset=utf-8")
		}
		c.Response.WriteHeader(status)
	}
	if message != "" {
		_, _ = io.WriteString(c.Response, message+"\n")
	}
}

// NotFound writes the built-in 404 response.
func (c *Context) NotFound() {
	c.WriteErrorResponse(http.StatusNotFound, "Not Found")
}

// MethodNotAllowed writes a 405 response with the required Allow header.
func (c *Context) MethodNotAllowed(allowed []string) {
	sort.Strings(allowed)
	c.Header("Allow", strings.Join(allowed, ", "))
	c.WriteErrorResponse(http.StatusMethodNotAllowed, "Method Not Allowed")
}

// reset returns the context to its zero state for reuse. Every mutable
// field must be cleared here: a value that survives reset is visible to an
// unrelated request, which is a correctness bug rather than a leak.
func (c *Context) reset() {
	c.Request = nil
	c.Response = nil
	c.handlers = nil
	c.router = nil
	c.index = -1
	c.aborted = false
	c.errs = nil
	c.routePattern = ""
	c.logger = nil

	if c.paramCount > 0 {
		clearCount := min(c.paramCount, maxArrayParams)
		for i := int32(0); i < clearCount; i++ {
			c.paramKeys[i] = ""
			c.paramValues[i] = ""
		}
		c.paramCount = 0
	}
	if c.Params != nil {
		clear(c.Params)
	}
	c.paramOverflow = c.paramOverflow[:0]

	if c.store != nil {
		clear(c.store)
	}
}

// initForRequest binds the context to a new request. The caller must have
// obtained the context from the pool (already reset) or reset it.
func (c *Context) initForRequest(req *http.Request, w http.ResponseWriter, handlers []HandlerFunc, r *Router) {
	c.Request = req
	c.Response = w
	c.handlers = handlers
	c.router = r
	c.index = -1
	c.logger = noopLogger
}
