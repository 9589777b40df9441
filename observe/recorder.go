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

// Package observe provides ObservabilityRecorder implementations for the
// router: OpenTelemetry traces and metrics, a Prometheus-backed metrics
// pipeline, and stdout exporters for development.
package observe

import (
	"fmt"
	"net/http"
	"time"

	"github.com/routeworks/trellis"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/routeworks/trellis/observe"

// Recorder implements trellis.ObservabilityRecorder on top of OpenTelemetry.
// Each request opens a server span and records a duration histogram, a
// request counter, and a response size histogram, all labeled with the
// matched route pattern rather than the raw path to keep cardinality
// bounded.
type Recorder struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator

	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	responseSize    metric.Int64Histogram

	serviceName string
}

var _ trellis.ObservabilityRecorder = (*Recorder)(nil)

// RecorderOption configures a Recorder.
type RecorderOption func(*recorderConfig)

type recorderConfig struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	propagator     propagation.TextMapPropagator
	serviceName    string
}

// WithTracerProvider sets the tracer provider. Required: the recorder does
// not fall back to the global provider, so wiring stays explicit.
func WithTracerProvider(tp trace.TracerProvider) RecorderOption {
	return func(c *recorderConfig) {
		c.tracerProvider = tp
	}
}

// WithMeterProvider sets the meter provider.
func WithMeterProvider(mp metric.MeterProvider) RecorderOption {
	return func(c *recorderConfig) {
		c.meterProvider = mp
	}
}

// WithPropagator sets the context propagator used to extract incoming trace
// headers. Defaults to W3C TraceContext plus Baggage.
func WithPropagator(p propagation.TextMapPropagator) RecorderOption {
	return func(c *recorderConfig) {
		c.propagator = p
	}
}

// WithServiceName sets the service.name attribute stamped on spans.
func WithServiceName(name string) RecorderOption {
	return func(c *recorderConfig) {
		c.serviceName = name
	}
}

// NewRecorder builds a Recorder from the given providers.
func NewRecorder(opts ...RecorderOption) (*Recorder, error) {
	cfg := recorderConfig{
		propagator:  propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}),
		serviceName: "trellis",
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.tracerProvider == nil {
		return nil, fmt.Errorf("observe: tracer provider is required")
	}
	if cfg.meterProvider == nil {
		return nil, fmt.Errorf("observe: meter provider is required")
	}

	meter := cfg.meterProvider.Meter(instrumentationName)

	requestCount, err := meter.Int64Counter("http.server.request.count",
		metric.WithDescription("Number of HTTP requests served"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, fmt.Errorf("observe: creating request counter: %w", err)
	}
	requestDuration, err := meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("observe: creating duration histogram: %w", err)
	}
	responseSize, err := meter.Int64Histogram("http.server.response.size",
		metric.WithDescription("HTTP response body size"),
		metric.WithUnit("By"))
	if err != nil {
		return nil, fmt.Errorf("observe: creating size histogram: %w", err)
	}

	return &Recorder{
		tracer:          cfg.tracerProvider.Tracer(instrumentationName),
		propagator:      cfg.propagator,
		requestCount:    requestCount,
		requestDuration: requestDuration,
		responseSize:    responseSize,
		serviceName:     cfg.serviceName,
	}, nil
}

// requestState travels from OnRequestStart to OnRequestEnd.
type requestState struct {
	span  trace.Span
	start time.Time
	route string
}

// OnRequestStart opens a server span named "METHOD /route/pattern" and
// returns the request rebound to the span's context.
func (rec *Recorder) OnRequestStart(r *http.Request, routePattern string) (*http.Request, any) {
	ctx := rec.propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	spanName := r.Method + " " + routePattern
	ctx, span := rec.tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.request.method", r.Method),
			attribute.String("http.route", routePattern),
			attribute.String("url.path", r.URL.Path),
			attribute.String("service.name", rec.serviceName),
		),
	)

	return r.WithContext(ctx), &requestState{
		span:  span,
		start: time.Now(),
		route: routePattern,
	}
}

// WrapResponseWriter returns w unchanged; ResponseInfo carries everything
// the recorder needs.
func (rec *Recorder) WrapResponseWriter(w http.ResponseWriter) http.ResponseWriter {
	return w
}

// OnRequestEnd records the metrics and closes the span.
func (rec *Recorder) OnRequestEnd(r *http.Request, state any, info trellis.ResponseInfo) {
	st, ok := state.(*requestState)
	if !ok {
		return
	}
	elapsed := time.Since(st.start)

	attrs := metric.WithAttributes(
		attribute.String("http.request.method", r.Method),
		attribute.String("http.route", st.route),
		attribute.Int("http.response.status_code", info.StatusCode),
	)
	ctx := r.Context()
	rec.requestCount.Add(ctx, 1, attrs)
	rec.requestDuration.Record(ctx, elapsed.Seconds(), attrs)
	rec.responseSize.Record(ctx, int64(info.Size), attrs)

	st.span.SetAttributes(attribute.Int("http.response.status_code", info.StatusCode))
	if info.StatusCode >= 500 {
		st.span.SetStatus(codes.Error, http.StatusText(info.StatusCode))
	} else {
		st.span.SetStatus(codes.Ok, "")
	}
	st.span.End()
}
