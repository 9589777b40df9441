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
	"net"
	"strings"
)

// Query returns the first value for the named query parameter, or "".
func (c *Context) Query(key string) string {
	return c.Request.URL.Query().Get(key)
}

// QueryDefault returns the first value for the named query parameter, or
// def when the parameter is absent or empty.
func (c *Context) QueryDefault(key, def string) string {
	if v := c.Request.URL.Query().Get(key); v != "" {
		return v
	}
	return def
}

// QueryValues returns all values for the named query parameter.
func (c *Context) QueryValues(key string) []string {
	return c.Request.URL.Query()[key]
}

// FormValue returns the first value for the named form field, parsing the
// request body if necessary.
func (c *Context) FormValue(key string) string {
	return c.Request.FormValue(key)
}

// ContentType returns the request's Content-Type header without parameters
// such as charset.
func (c *Context) ContentType() string {
	ct := c.Request.Header.Get("Content-Type")
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}

// ClientIP returns the client address, preferring X-Forwarded-For and
// X-Real-IP headers set by trusted proxies, then falling back to the
// connection's remote address.
func (c *Context) ClientIP() string {
	if xff := c.Request.Header.Get("X-Forwarded-For"); xff != "" {
		// First address is the originating client.
		if i := strings.IndexByte(xff, ','); i >= 0 {
			xff = xff[:i]
		}
		if ip := strings.TrimSpace(xff); ip != "" {
			return ip
		}
	}
	if xrip := c.Request.Header.Get("X-Real-IP"); xrip != "" {
		return strings.TrimSpace(xrip)
	}
	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return host
}
