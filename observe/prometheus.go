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

package observe

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// PrometheusMetrics is an OpenTelemetry meter provider backed by a private
// Prometheus registry. A private registry avoids collisions with other
// libraries registering into the default one.
type PrometheusMetrics struct {
	registry *prometheus.Registry
	provider *sdkmetric.MeterProvider
}

// NewPrometheusMetrics builds the Prometheus-backed metrics pipeline. The
// registry also collects Go runtime and process metrics.
func NewPrometheusMetrics() (*PrometheusMetrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("observe: creating prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	return &PrometheusMetrics{registry: registry, provider: provider}, nil
}

// MeterProvider returns the provider to hand to NewRecorder.
func (p *PrometheusMetrics) MeterProvider() *sdkmetric.MeterProvider {
	return p.provider
}

// Handler returns the scrape endpoint handler. Mount it wherever the
// deployment expects /metrics:
//
//	r.GET("/metrics", func(c *trellis.Context) {
//	    pm.Handler().ServeHTTP(c.Response, c.Request)
//	})
func (p *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for application collectors.
func (p *PrometheusMetrics) Registry() *prometheus.Registry {
	return p.registry
}
