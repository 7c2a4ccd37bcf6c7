// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package telemetry provides tracing and Prometheus metrics for nightwatch runs.

A run is one root span; every phase is a child span carrying phase.id,
phase.name, run.id and, once the phase settles, phase.status. Without an
OTLP endpoint the NoOpTracer is used: it still hands out trace IDs so the
report and logs can be correlated, but nothing is exported.

# Metrics Exported

  - nightwatch_phase_duration_seconds: Histogram by phase and status
  - nightwatch_system_health: Gauge, last run's health score
  - nightwatch_iterations: Gauge, last run's improvement rounds
  - nightwatch_optimizations: Gauge, last run's optimization records
  - nightwatch_run_timestamp_seconds: Gauge, unix time of the last report
  - nightwatch_runs_total: Counter by action and outcome
*/
package telemetry

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AleutianAI/nightwatch/cmd/nightwatch/config"
)

// =============================================================================
// Interface
// =============================================================================

// Tracer starts spans for runs and phases.
type Tracer interface {
	// StartSpan starts a span named name. The returned function ends it,
	// recording err as the span status when non-nil.
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, func(error))

	// SetAttributes adds attributes to the span active in ctx.
	SetAttributes(ctx context.Context, attrs map[string]string)

	// TraceID returns the current trace ID, or "".
	TraceID(ctx context.Context) string

	// Shutdown flushes and stops the exporter.
	Shutdown(ctx context.Context) error
}

// =============================================================================
// NoOp Implementation
// =============================================================================

// NoOpTracer generates W3C-shaped trace IDs but exports nothing.
type NoOpTracer struct{}

// NewNoOpTracer returns a NoOpTracer.
func NewNoOpTracer() *NoOpTracer { return &NoOpTracer{} }

type noOpTraceIDKey struct{}

// StartSpan stores a trace ID in ctx, reusing the parent's if present.
func (t *NoOpTracer) StartSpan(ctx context.Context, _ string, _ map[string]string) (context.Context, func(error)) {
	if _, ok := ctx.Value(noOpTraceIDKey{}).(string); !ok {
		ctx = context.WithValue(ctx, noOpTraceIDKey{}, generateID(16))
	}
	return ctx, func(error) {}
}

// SetAttributes is a no-op.
func (t *NoOpTracer) SetAttributes(context.Context, map[string]string) {}

// TraceID returns the ID stored by StartSpan.
func (t *NoOpTracer) TraceID(ctx context.Context) string {
	if id, ok := ctx.Value(noOpTraceIDKey{}).(string); ok {
		return id
	}
	return ""
}

// Shutdown is a no-op.
func (t *NoOpTracer) Shutdown(context.Context) error { return nil }

func generateID(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%0*x", n*2, time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

// =============================================================================
// OpenTelemetry Implementation
// =============================================================================

// OTelTracer exports spans over OTLP/gRPC.
type OTelTracer struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
}

// NewOTelTracer connects to cfg.OTLPEndpoint.
func NewOTelTracer(ctx context.Context, cfg config.TelemetryConfig) (*OTelTracer, error) {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "nightwatch"
	}
	endpoint := cfg.OTLPEndpoint
	if endpoint == "" {
		endpoint = "localhost:4317"
	}

	var dialOpts []grpc.DialOption
	if cfg.Insecure {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	conn, err := grpc.NewClient(endpoint, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			attribute.String("deployment.environment", environment()),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return newOTelTracer(provider, serviceName), nil
}

func newOTelTracer(provider *sdktrace.TracerProvider, serviceName string) *OTelTracer {
	return &OTelTracer{tracer: provider.Tracer(serviceName), provider: provider}
}

// StartSpan starts an internal span with string attributes.
func (t *OTelTracer) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, func(error)) {
	otelAttrs := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		otelAttrs = append(otelAttrs, attribute.String(k, v))
	}

	ctx, span := t.tracer.Start(ctx, name,
		trace.WithAttributes(otelAttrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// SetAttributes adds string attributes to the active span.
func (t *OTelTracer) SetAttributes(ctx context.Context, attrs map[string]string) {
	span := trace.SpanFromContext(ctx)
	for k, v := range attrs {
		span.SetAttributes(attribute.String(k, v))
	}
}

// TraceID returns the active span's trace ID.
func (t *OTelTracer) TraceID(ctx context.Context) string {
	traceID := trace.SpanFromContext(ctx).SpanContext().TraceID()
	if !traceID.IsValid() {
		return ""
	}
	return traceID.String()
}

// Shutdown flushes pending spans.
func (t *OTelTracer) Shutdown(ctx context.Context) error {
	return t.provider.Shutdown(ctx)
}

func environment() string {
	if env := os.Getenv("NIGHTWATCH_ENV"); env != "" {
		return env
	}
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		return env
	}
	return "development"
}

// NewTracer returns an OTelTracer when an OTLP endpoint is configured and
// a NoOpTracer otherwise.
func NewTracer(ctx context.Context, cfg config.TelemetryConfig) (Tracer, error) {
	if cfg.OTLPEndpoint == "" {
		return NewNoOpTracer(), nil
	}
	return NewOTelTracer(ctx, cfg)
}

var (
	_ Tracer = (*NoOpTracer)(nil)
	_ Tracer = (*OTelTracer)(nil)
)
