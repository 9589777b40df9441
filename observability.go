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

import "net/http"

// ResponseInfo summarizes a finished response for observability recorders.
type ResponseInfo struct {
	StatusCode int
	Size       int
}

// ObservabilityRecorder receives lifecycle callbacks around every request
// the router serves. The router core stays free of metrics and tracing
// concerns; implementations live in the observe package (OpenTelemetry,
// Prometheus, slog access logs) or in application code.
//
// The state value returned by OnRequestStart is threaded through to
// OnRequestEnd unchanged, so recorders can carry spans or timers without
// touching the Context store.
type ObservabilityRecorder interface {
	// OnRequestStart is called before the handler chain runs. The returned
	// request replaces the original (for context propagation); the state
	// value is handed back in OnRequestEnd.
	OnRequestStart(r *http.Request, routePattern string) (*http.Request, any)

	// WrapResponseWriter may replace the response writer, for recorders
	// that need to observe the byte stream itself. Return w unchanged when
	// ResponseInfo is enough.
	WrapResponseWriter(w http.ResponseWriter) http.ResponseWriter

	// OnRequestEnd is called after the chain completes, including on panic
	// recovery paths.
	OnRequestEnd(r *http.Request, state any, info ResponseInfo)
}
