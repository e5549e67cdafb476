// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package metrics bridges processor.Metrics counters into OpenTelemetry
// instruments, exported through a Prometheus registry for scraping.
package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/convopipe/pipeline/pkg/frame"
	"github.com/convopipe/pipeline/pkg/processor"
)

// Provider owns the OTel meter provider and the instruments every
// recorded processor.Metrics snapshot is written into. Metrics.Handled*
// and Metrics.Errors are already running totals since the processor
// started, so they are recorded as gauges rather than counters — adding a
// cumulative total on every Record call would double-count.
type Provider struct {
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter

	handled  metric.Int64Gauge
	errors   metric.Int64Gauge
	priDepth metric.Int64Gauge
	ordDepth metric.Int64Gauge
}

// NewProvider builds a Provider backed by a Prometheus exporter. The
// exporter registers its own collector with the default Prometheus
// registry; callers expose that registry through whatever HTTP handler
// serves /metrics, which is outside this module's scope.
func NewProvider(serviceName string) (*Provider, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("metrics: new prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := mp.Meter(serviceName)

	handled, err := meter.Int64Gauge("pipeline.frames.handled", metric.WithDescription("total frames handled by a processor, by category"))
	if err != nil {
		return nil, fmt.Errorf("metrics: handled gauge: %w", err)
	}
	errs, err := meter.Int64Gauge("pipeline.frames.errors", metric.WithDescription("total handler errors recovered by a processor"))
	if err != nil {
		return nil, fmt.Errorf("metrics: errors gauge: %w", err)
	}
	pri, err := meter.Int64Gauge("pipeline.queue.priority_depth", metric.WithDescription("current priority-queue depth"))
	if err != nil {
		return nil, fmt.Errorf("metrics: priority gauge: %w", err)
	}
	ord, err := meter.Int64Gauge("pipeline.queue.ordinary_depth", metric.WithDescription("current ordinary-queue depth"))
	if err != nil {
		return nil, fmt.Errorf("metrics: ordinary gauge: %w", err)
	}

	return &Provider{
		meterProvider: mp,
		meter:         meter,
		handled:       handled,
		errors:        errs,
		priDepth:      pri,
		ordDepth:      ord,
	}, nil
}

// Shutdown flushes and releases the underlying meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.meterProvider.Shutdown(ctx)
}

// Record writes one processor's current Metrics snapshot into the
// instruments, tagged by processor name and, for the handled gauge, frame
// category.
func (p *Provider) Record(ctx context.Context, processorName string, m processor.Metrics) {
	name := attribute.String("processor", processorName)
	p.handled.Record(ctx, int64(m.HandledSystem), metric.WithAttributes(name, categoryAttr(frame.System)))
	p.handled.Record(ctx, int64(m.HandledControl), metric.WithAttributes(name, categoryAttr(frame.Control)))
	p.handled.Record(ctx, int64(m.HandledData), metric.WithAttributes(name, categoryAttr(frame.Data)))
	p.errors.Record(ctx, int64(m.Errors), metric.WithAttributes(name))
	p.priDepth.Record(ctx, int64(m.PriorityDepth), metric.WithAttributes(name))
	p.ordDepth.Record(ctx, int64(m.OrdinaryDepth), metric.WithAttributes(name))
}

func categoryAttr(c frame.Category) attribute.KeyValue {
	return attribute.String("category", c.String())
}
