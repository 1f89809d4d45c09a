// Copyright 2025 Kadir Pekel
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

package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds the service's instruments. The zero-argument constructor
// returns a no-op set backed by an unexported meter provider, so recording
// is always safe.
type Metrics struct {
	turnDuration   metric.Float64Histogram
	turns          metric.Int64Counter
	turnErrors     metric.Int64Counter
	llmDuration    metric.Float64Histogram
	llmErrors      metric.Int64Counter
	searchDuration metric.Float64Histogram
	searchRelaxed  metric.Int64Counter
	httpDuration   metric.Float64Histogram
	httpRequests   metric.Int64Counter
}

// InitMetrics registers the instruments on a Prometheus-backed meter.
func InitMetrics(serviceName string) (*Metrics, error) {
	promExporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(promExporter),
	)
	return newMetrics(meterProvider.Meter(serviceName))
}

// NewNoopMetrics returns instruments that record nowhere.
func NewNoopMetrics() *Metrics {
	m, _ := newMetrics(sdkmetric.NewMeterProvider().Meter("noop"))
	return m
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.turnDuration, err = meter.Float64Histogram(
		"concierge_turn_duration_seconds",
		metric.WithDescription("End-to-end chat turn duration in seconds"),
	); err != nil {
		return nil, err
	}
	if m.turns, err = meter.Int64Counter(
		"concierge_turns_total",
		metric.WithDescription("Total chat turns processed"),
	); err != nil {
		return nil, err
	}
	if m.turnErrors, err = meter.Int64Counter(
		"concierge_turn_errors_total",
		metric.WithDescription("Total chat turns that ended in an error envelope"),
	); err != nil {
		return nil, err
	}
	if m.llmDuration, err = meter.Float64Histogram(
		"concierge_llm_request_duration_seconds",
		metric.WithDescription("LLM request duration in seconds"),
	); err != nil {
		return nil, err
	}
	if m.llmErrors, err = meter.Int64Counter(
		"concierge_llm_errors_total",
		metric.WithDescription("Total LLM requests that failed and fell back"),
	); err != nil {
		return nil, err
	}
	if m.searchDuration, err = meter.Float64Histogram(
		"concierge_search_duration_seconds",
		metric.WithDescription("Backend search duration in seconds"),
	); err != nil {
		return nil, err
	}
	if m.searchRelaxed, err = meter.Int64Counter(
		"concierge_search_relaxed_filters_total",
		metric.WithDescription("Total filters dropped by progressive relaxation"),
	); err != nil {
		return nil, err
	}
	if m.httpDuration, err = meter.Float64Histogram(
		"concierge_http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
	); err != nil {
		return nil, err
	}
	if m.httpRequests, err = meter.Int64Counter(
		"concierge_http_requests_total",
		metric.WithDescription("Total HTTP requests"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordTurn records one completed chat turn.
func (m *Metrics) RecordTurn(ctx context.Context, stage string, duration time.Duration, errCode string) {
	attrs := metric.WithAttributes(attribute.String("stage", stage))
	m.turnDuration.Record(ctx, duration.Seconds(), attrs)
	m.turns.Add(ctx, 1, attrs)
	if errCode != "" {
		m.turnErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("code", errCode)))
	}
}

// RecordLLMRequest records one structured completion call.
func (m *Metrics) RecordLLMRequest(ctx context.Context, model, schema string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("schema", schema),
	)
	m.llmDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		m.llmErrors.Add(ctx, 1, attrs)
	}
}

// RecordSearch records one dispatched search with its relaxation count.
func (m *Metrics) RecordSearch(ctx context.Context, domain string, duration time.Duration, relaxed int) {
	attrs := metric.WithAttributes(attribute.String("domain", domain))
	m.searchDuration.Record(ctx, duration.Seconds(), attrs)
	if relaxed > 0 {
		m.searchRelaxed.Add(ctx, int64(relaxed), attrs)
	}
}

// RecordHTTPRequest records one served HTTP request.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status", status),
	)
	m.httpDuration.Record(ctx, duration.Seconds(), attrs)
	m.httpRequests.Add(ctx, 1, attrs)
}
