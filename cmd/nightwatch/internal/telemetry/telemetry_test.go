// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/AleutianAI/nightwatch/cmd/nightwatch/config"
)

func TestNewTracer_NoEndpointIsNoOp(t *testing.T) {
	tracer, err := NewTracer(context.Background(), config.TelemetryConfig{})
	require.NoError(t, err)
	_, ok := tracer.(*NoOpTracer)
	assert.True(t, ok)
}

func TestNoOpTracer_TraceIDPropagates(t *testing.T) {
	tracer := NewNoOpTracer()
	assert.Empty(t, tracer.TraceID(context.Background()))

	ctx, end := tracer.StartSpan(context.Background(), "run", map[string]string{"action": "startup"})
	id := tracer.TraceID(ctx)
	assert.Len(t, id, 32)

	child, endChild := tracer.StartSpan(ctx, "phase", nil)
	assert.Equal(t, id, tracer.TraceID(child), "child spans share the trace")

	endChild(errors.New("boom"))
	end(nil)
	assert.NoError(t, tracer.Shutdown(context.Background()))
}

func TestOTelTracer_SpanAttributesAndStatus(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := newOTelTracer(provider, "nightwatch-test")

	ctx, end := tracer.StartSpan(context.Background(), "phase.security-audit", map[string]string{"phase.id": "security-audit"})
	assert.Len(t, tracer.TraceID(ctx), 32)
	tracer.SetAttributes(ctx, map[string]string{"phase.status": "failed"})
	end(errors.New("timeout"))

	_, endOK := tracer.StartSpan(context.Background(), "phase.final-validation", nil)
	endOK(nil)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "phase.security-audit", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("phase.id", "security-audit"))
	assert.Contains(t, spans[0].Attributes(), attribute.String("phase.status", "failed"))
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, codes.Ok, spans[1].Status().Code)

	require.NoError(t, tracer.Shutdown(context.Background()))
}

func TestPrometheusRunMetrics(t *testing.T) {
	m := NewPrometheusRunMetrics()
	m.ObservePhase("system-validation", "completed", 120*time.Millisecond)
	m.ObservePhase("container-health", "failed", time.Second)
	m.RecordRun(RunSummary{
		Action:        "startup",
		Success:       true,
		Health:        85,
		Iterations:    2,
		Optimizations: 4,
		Timestamp:     time.Unix(1700000000, 0),
	})

	assert.Equal(t, float64(85), testutil.ToFloat64(m.health))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.iterations))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.optimizations))
	assert.Equal(t, float64(1700000000), testutil.ToFloat64(m.lastRun))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.runsTotal.WithLabelValues("startup", "success")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.phaseDuration))

	// A second instance has its own registry.
	assert.NotPanics(t, func() { NewPrometheusRunMetrics() })
}

func TestPrometheusRunMetrics_WriteTextfile(t *testing.T) {
	m := NewPrometheusRunMetrics()
	m.RecordRun(RunSummary{Action: "validate", Health: 70, Timestamp: time.Now()})

	path := filepath.Join(t.TempDir(), "textfile", "nightwatch.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "nightwatch_system_health 70"))
	assert.True(t, strings.Contains(string(data), `nightwatch_runs_total{action="validate",outcome="failure"} 1`))
}

func TestNoOpRunMetrics(t *testing.T) {
	m := NewNoOpRunMetrics()
	m.ObservePhase("a", "completed", time.Second)
	m.ObservePhase("b", "failed", time.Second)
	m.RecordRun(RunSummary{})

	assert.Equal(t, int64(2), m.PhaseCount())
	assert.Equal(t, int64(1), m.RunCount())
	assert.Nil(t, m.Gatherer())
	assert.NoError(t, m.WriteTextfile("/nonexistent/path"))
}
