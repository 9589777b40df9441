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

// Package trellis is a fast HTTP router built around per-method radix
// trees, an onion-model middleware chain, and pooled request contexts.
//
// Routes are registered during a single-threaded configuration phase and
// frozen on the first request; after that, dispatch is lock-free:
//
//	r := trellis.MustNew()
//	r.Use(requestid.New())
//	r.GET("/users/:id", func(c *trellis.Context) {
//	    c.JSON(http.StatusOK, map[string]string{"id": c.Param("id")})
//	})
//	log.Fatal(r.Serve(":8080"))
//
// Patterns mix literal segments, ":name" parameters, and a trailing
// "*name" catch-all. Literal beats parameter beats catch-all at every
// segment position, with backtracking, so registration order never affects
// matching. Conflicting registrations panic at startup.
//
// Middleware and handlers share one signature, func(*Context). Middleware
// calls c.Next() to run the rest of the chain and c.Abort() to stop it;
// returning without calling Next also ends the chain. Contexts are pooled;
// never retain one past the handler's return.
package trellis
