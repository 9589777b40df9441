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
	"bufio"
	"net"
	"net/http"
)

// responseWriter wraps http.ResponseWriter to record the status code and
// body size, and to make duplicate WriteHeader calls harmless. Every request
// served by the router goes through one.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
	written    bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

// reset rebinds the wrapper to a fresh underlying writer for pooled reuse.
func (w *responseWriter) reset(underlying http.ResponseWriter) {
	w.ResponseWriter = underlying
	w.statusCode = http.StatusOK
	w.size = 0
	w.written = false
}

// WriteHeader records the status code and forwards it once. Later calls are
// ignored, matching net/http's "superfluous WriteHeader" behavior without
// the log noise.
func (w *responseWriter) WriteHeader(code int) {
	if w.written {
		return
	}
	w.statusCode = code
	w.written = true
	w.ResponseWriter.WriteHeader(code)
}

// Write writes the body, implying a 200 header if none was written yet.
func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

// StatusCode returns the status code sent to the client (200 until a write
// happens).
func (w *responseWriter) StatusCode() int {
	return w.statusCode
}

// Size returns the number of body bytes written so far.
func (w *responseWriter) Size() int {
	return w.size
}

// Written reports whether the response header has been sent.
func (w *responseWriter) Written() bool {
	return w.written
}

// Flush forwards to the underlying writer when it supports streaming.
func (w *responseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack lets handlers take over the connection (WebSocket upgrades).
func (w *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hj, ok := w.ResponseWriter.(http.Hijacker); ok {
		return hj.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

// Unwrap exposes the underlying writer for http.ResponseController.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
