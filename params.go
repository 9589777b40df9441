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
	"strconv"
)

// Typed path-parameter accessors. Each parses the raw parameter value and
// wraps parse failures with the parameter name, so handlers can return the
// error directly:
//
//	id, err := c.ParamInt("id")
//	if err != nil {
//	    c.AbortWithStatus(http.StatusBadRequest)
//	    return
//	}

// ParamInt returns the named path parameter parsed as an int.
func (c *Context) ParamInt(key string) (int, error) {
	raw := c.Param(key)
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parameter %q: %w", key, err)
	}
	return v, nil
}

// ParamInt64 returns the named path parameter parsed as an int64.
func (c *Context) ParamInt64(key string) (int64, error) {
	raw := c.Param(key)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parameter %q: %w", key, err)
	}
	return v, nil
}

// ParamUint64 returns the named path parameter parsed as a uint64.
func (c *Context) ParamUint64(key string) (uint64, error) {
	raw := c.Param(key)
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parameter %q: %w", key, err)
	}
	return v, nil
}

// ParamFloat64 returns the named path parameter parsed as a float64.
func (c *Context) ParamFloat64(key string) (float64, error) {
	raw := c.Param(key)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parameter %q: %w", key, err)
	}
	return v, nil
}

// ParamBool returns the named path parameter parsed as a bool. Accepts the
// forms strconv.ParseBool accepts ("1", "t", "true", ...).
func (c *Context) ParamBool(key string) (bool, error) {
	raw := c.Param(key)
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parameter %q: %w", key, err)
	}
	return v, nil
}

// ParamIntDefault returns the named path parameter as an int, or def when
// the parameter is missing or malformed.
func (c *Context) ParamIntDefault(key string, def int) int {
	v, err := c.ParamInt(key)
	if err != nil {
		return def
	}
	return v
}
