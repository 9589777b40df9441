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
	"sync"
	"sync/atomic"
)

// contextPool recycles Contexts and their response-writer wrappers across
// requests so steady-state dispatch allocates nothing for either. Counters
// are sampling-quality: they use independent atomics, not a lock.
type contextPool struct {
	contexts sync.Pool
	writers  sync.Pool

	gets     atomic.Uint64
	puts     atomic.Uint64
	news     atomic.Uint64
	discards atomic.Uint64
}

// PoolStats is a snapshot of pool activity, for operational visibility.
type PoolStats struct {
	Gets     uint64 // contexts handed out
	Puts     uint64 // contexts returned
	News     uint64 // contexts freshly allocated (pool miss)
	Discards uint64 // contexts dropped instead of returned
}

func newContextPool() *contextPool {
	p := &contextPool{}
	p.contexts.New = func() any {
		p.news.Add(1)
		return &Context{index: -1}
	}
	p.writers.New = func() any {
		return &responseWriter{statusCode: http.StatusOK}
	}
	return p
}

// get returns a reset Context ready for initForRequest.
func (p *contextPool) get() *Context {
	p.gets.Add(1)
	return p.contexts.Get().(*Context)
}

// put resets c and returns it to the pool. Contexts that grew an unusually
// large overflow parameter map are discarded instead, so one pathological
// request cannot pin memory for the lifetime of the pool.
func (p *contextPool) put(c *Context) {
	if len(c.Params) > 64 {
		p.discards.Add(1)
		return
	}
	c.reset()
	p.puts.Add(1)
	p.contexts.Put(c)
}

func (p *contextPool) getWriter(underlying http.ResponseWriter) *responseWriter {
	w := p.writers.Get().(*responseWriter)
	w.reset(underlying)
	return w
}

func (p *contextPool) putWriter(w *responseWriter) {
	w.reset(nil)
	p.writers.Put(w)
}

// stats returns a point-in-time snapshot of the pool counters.
func (p *contextPool) stats() PoolStats {
	return PoolStats{
		Gets:     p.gets.Load(),
		Puts:     p.puts.Load(),
		News:     p.news.Load(),
		Discards: p.discards.Load(),
	}
}
