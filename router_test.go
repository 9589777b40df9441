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
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doRequest(r *Router, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New(WithServerTimeouts(-time.Second, 0, 0))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = New(WithLogger(nil))
	require.Error(t, err)

	r, err := New()
	require.NoError(t, err)
	assert.NotNil(t, r)
}

func TestMustNewPanicsOnBadConfig(t *testing.T) {
	assert.Panics(t, func() {
		MustNew(WithMaxHeaderBytes(-1))
	})
}

func TestVerbHelpersDispatchByMethod(t *testing.T) {
	r := MustNew()
	for _, m := range []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"} {
		method := m
		r.Handle(method, "/echo", func(c *Context) {
			c.String(http.StatusOK, method)
		})
	}

	for _, m := range []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"} {
		rec := doRequest(r, m, "/echo")
		require.Equal(t, http.StatusOK, rec.Code, "method %s", m)
		assert.Equal(t, m, rec.Body.String())
	}
}

func TestNotFound(t *testing.T) {
	r := MustNew()
	r.GET("/users", func(c *Context) { c.String(http.StatusOK, "ok") })

	rec := doRequest(r, http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNoRouteHandler(t *testing.T) {
	r := MustNew()
	r.NoRoute(func(c *Context) {
		c.JSON(http.StatusNotFound, map[string]string{"error": "custom"})
	})

	rec := doRequest(r, http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"custom"}`, rec.Body.String())
}

func TestMethodNotAllowed(t *testing.T) {
	r := MustNew()
	r.GET("/users", func(c *Context) { c.String(http.StatusOK, "ok") })
	r.POST("/users", func(c *Context) { c.String(http.StatusOK, "ok") })

	rec := doRequest(r, http.MethodDelete, "/users")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, POST", rec.Header().Get("Allow"))
}

func TestMethodNotAllowedDisabled(t *testing.T) {
	r := MustNew(WithMethodNotAllowed(false))
	r.GET("/users", func(c *Context) { c.String(http.StatusOK, "ok") })

	rec := doRequest(r, http.MethodDelete, "/users")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGlobalMiddlewareOrder(t *testing.T) {
	var order []string
	r := MustNew()
	r.Use(func(c *Context) {
		order = append(order, "mw1-in")
		c.Next()
		order = append(order, "mw1-out")
	})
	r.Use(func(c *Context) {
		order = append(order, "mw2-in")
		c.Next()
		order = append(order, "mw2-out")
	})
	r.GET("/", func(c *Context) {
		order = append(order, "handler")
		c.String(http.StatusOK, "ok")
	})

	doRequest(r, http.MethodGet, "/")

	assert.Equal(t, []string{"mw1-in", "mw2-in", "handler", "mw2-out", "mw1-out"}, order)
}

func TestMiddlewareWithoutNextStopsDispatch(t *testing.T) {
	var ran []string
	r := MustNew()
	r.Use(func(c *Context) {
		ran = append(ran, "mw")
		// No Next and no Abort: the chain must still end here.
	})
	r.GET("/", func(c *Context) {
		ran = append(ran, "handler")
		c.String(http.StatusOK, "leaked")
	})

	rec := doRequest(r, http.MethodGet, "/")
	assert.Equal(t, []string{"mw"}, ran)
	assert.NotContains(t, rec.Body.String(), "leaked")
}

func TestMiddlewareAbortShortCircuits(t *testing.T) {
	handlerRan := false
	r := MustNew()
	r.Use(func(c *Context) {
		c.AbortWithStatus(http.StatusForbidden)
	})
	r.GET("/", func(c *Context) { handlerRan = true })

	rec := doRequest(r, http.MethodGet, "/")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, handlerRan)
}

func TestGroupPrefixAndMiddleware(t *testing.T) {
	var order []string
	r := MustNew()
	api := r.Group("/api", func(c *Context) {
		order = append(order, "api-mw")
		c.Next()
	})
	v1 := api.Group("/v1", func(c *Context) {
		order = append(order, "v1-mw")
		c.Next()
	})
	v1.GET("/users/:id", func(c *Context) {
		order = append(order, "handler")
		c.String(http.StatusOK, c.Param("id"))
	})

	rec := doRequest(r, http.MethodGet, "/api/v1/users/8")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "8", rec.Body.String())
	assert.Equal(t, []string{"api-mw", "v1-mw", "handler"}, order)

	rec = doRequest(r, http.MethodGet, "/v1/users/8")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGroupRootPattern(t *testing.T) {
	r := MustNew()
	api := r.Group("/api")
	api.GET("/", func(c *Context) { c.String(http.StatusOK, "api root") })

	rec := doRequest(r, http.MethodGet, "/api")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegistrationAfterFirstRequestPanics(t *testing.T) {
	r := MustNew()
	r.GET("/", func(c *Context) { c.String(http.StatusOK, "ok") })
	doRequest(r, http.MethodGet, "/")

	assert.Panics(t, func() { r.GET("/late", noop) })
	assert.Panics(t, func() { r.Use(noop) })
	assert.Panics(t, func() { r.NoRoute(noop) })
}

func TestRouteExists(t *testing.T) {
	r := MustNew()
	r.GET("/users/:id", noop)

	assert.True(t, r.RouteExists("GET", "/users/5"))
	assert.True(t, r.RouteExists("get", "/users/5"))
	assert.False(t, r.RouteExists("POST", "/users/5"))
	assert.False(t, r.RouteExists("GET", "/nope"))
	assert.Equal(t, 1, r.Routes())
}

func TestTrailingSlashRedirect(t *testing.T) {
	r := MustNew(WithRedirectTrailingSlash())
	r.GET("/users", func(c *Context) { c.String(http.StatusOK, "ok") })
	r.POST("/items/", func(c *Context) { c.String(http.StatusOK, "ok") })

	rec := doRequest(r, http.MethodGet, "/users/")
	require.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/users", rec.Header().Get("Location"))

	// Non-GET methods redirect with 308 so the method is preserved.
	rec = doRequest(r, http.MethodPost, "/items")
	require.Equal(t, http.StatusPermanentRedirect, rec.Code)
	assert.Equal(t, "/items/", rec.Header().Get("Location"))
}

func TestNoTrailingSlashRedirectByDefault(t *testing.T) {
	r := MustNew()
	r.GET("/users", func(c *Context) { c.String(http.StatusOK, "ok") })

	rec := doRequest(r, http.MethodGet, "/users/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoutePatternExposed(t *testing.T) {
	r := MustNew()
	var pattern string
	r.GET("/users/:id", func(c *Context) {
		pattern = c.RoutePattern()
		c.String(http.StatusOK, "ok")
	})

	doRequest(r, http.MethodGet, "/users/3")
	assert.Equal(t, "/users/:id", pattern)
}
