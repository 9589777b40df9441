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

import "fmt"

// Set stores a value in the request-scoped key/value store. Middleware uses
// it to hand data to deeper handlers (an authenticated user, a request ID).
// The store is cleared when the request completes.
func (c *Context) Set(key string, value any) {
	if c.store == nil {
		c.store = make(map[string]any, 4)
	}
	c.store[key] = value
}

// Get retrieves a value from the request-scoped store. The second return
// distinguishes a missing key from a stored nil.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.store[key]
	return v, ok
}

// GetString returns the string stored under key, or "" when the key is
// missing or holds a non-string.
func (c *Context) GetString(key string) string {
	if v, ok := c.store[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// MustGet retrieves a value from the store and panics if the key is absent.
// Use it for values an earlier middleware is contractually required to set.
func (c *Context) MustGet(key string) any {
	v, ok := c.store[key]
	if !ok {
		panic(fmt.Sprintf("trellis: key %q does not exist in context store", key))
	}
	return v
}

// Value retrieves a typed value from the context store. The boolean is false
// when the key is missing or holds a different type.
//
//	user, ok := trellis.Value[*User](c, "user")
func Value[T any](c *Context, key string) (T, bool) {
	var zero T
	v, ok := c.store[key]
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}
