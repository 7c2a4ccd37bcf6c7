// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/alerts"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/state"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/telemetry"
	"github.com/AleutianAI/nightwatch/pkg/logging"
)

// =============================================================================
// Test doubles
// =============================================================================

// recordingAlerts is an alerts.Manager that records calls.
type recordingAlerts struct {
	mu       sync.Mutex
	created  []state.Alert
	resolved []string
	panicOn  string
}

func (r *recordingAlerts) CreateAlert(_ context.Context, alertType string, severity state.Severity, title, message, source string, metadata map[string]string) (string, error) {
	if r.panicOn == "create" {
		panic("alert backend exploded")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id := fmt.Sprintf("a%d", len(r.created)+1)
	r.created = append(r.created, state.Alert{
		ID: id, Type: alertType, Severity: severity, Title: title,
		Message: message, Source: source, Metadata: metadata,
	})
	return id, nil
}

func (r *recordingAlerts) ResolveAlert(context.Context, string, string) (bool, error) {
	return false, alerts.ErrAlertNotFound
}

func (r *recordingAlerts) ListAlerts(context.Context, bool) ([]state.Alert, error) {
	return nil, nil
}

func (r *recordingAlerts) ResolveSource(_ context.Context, source, _ string) (int, error) {
	if r.panicOn == "resolve" {
		panic("alert backend exploded")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolved = append(r.resolved, source)
	return 0, nil
}

func (r *recordingAlerts) Close() error { return nil }

// recordingTracer is a telemetry.Tracer that records span attributes.
type recordingTracer struct {
	telemetry.NoOpTracer
	mu    sync.Mutex
	attrs map[string]map[string]string
}

type spanNameKey struct{}

func (r *recordingTracer) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, func(error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.attrs == nil {
		r.attrs = make(map[string]map[string]string)
	}
	r.attrs[name] = make(map[string]string)
	for k, v := range attrs {
		r.attrs[name][k] = v
	}
	return context.WithValue(ctx, spanNameKey{}, name), func(error) {}
}

func (r *recordingTracer) SetAttributes(ctx context.Context, attrs map[string]string) {
	name, _ := ctx.Value(spanNameKey{}).(string)
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range attrs {
		r.attrs[name][k] = v
	}
}

func ok(id string) Definition {
	return Definition{ID: id, Name: id, Run: func(context.Context, *state.Run) (any, error) {
		return map[string]string{"ran": id}, nil
	}}
}

// =============================================================================
// Tests
// =============================================================================

func TestExecutor_RunsInOrder(t *testing.T) {
	var order []string
	def := func(id string) Definition {
		return Definition{ID: id, Name: id, Run: func(_ context.Context, run *state.Run) (any, error) {
			order = append(order, id)
			assert.Len(t, run.Phases(), len(order)-1, "earlier phases are appended before the next starts")
			return nil, nil
		}}
	}

	run := state.NewRun(state.ActionStartup)
	NewExecutor(nil, nil, nil, logging.Nop()).RunAll(context.Background(), run, []Definition{def("a"), def("b"), def("c")})

	assert.Equal(t, []string{"a", "b", "c"}, order)
	phases := run.Phases()
	require.Len(t, phases, 3)
	for _, p := range phases {
		assert.Equal(t, state.StatusCompleted, p.Status)
		assert.False(t, p.EndTime.Before(p.StartTime))
		assert.GreaterOrEqual(t, p.DurationMs, int64(0))
	}
}

func TestExecutor_FailSoft(t *testing.T) {
	for failAt := 0; failAt < 4; failAt++ {
		defs := []Definition{ok("a"), ok("b"), ok("c"), ok("d")}
		defs[failAt].Run = func(context.Context, *state.Run) (any, error) {
			return nil, errors.New("probe exploded")
		}

		run := state.NewRun(state.ActionStartup)
		NewExecutor(nil, nil, nil, logging.Nop()).RunAll(context.Background(), run, defs)

		phases := run.Phases()
		require.Len(t, phases, 4, "failAt=%d", failAt)
		for i, p := range phases {
			if i == failAt {
				assert.Equal(t, state.StatusFailed, p.Status)
				assert.Equal(t, map[string]string{"error": "probe exploded"}, p.Results)
				assert.Equal(t, "probe exploded", p.ErrorMessage())
			} else {
				assert.Equal(t, state.StatusCompleted, p.Status, "phase %d", i)
			}
		}
	}
}

func TestExecutor_PanicBecomesFailedPhase(t *testing.T) {
	defs := []Definition{
		{ID: "boom", Name: "Boom", Run: func(context.Context, *state.Run) (any, error) {
			var m map[string]int
			m["x"] = 1
			return nil, nil
		}},
		ok("after"),
	}

	run := state.NewRun(state.ActionStartup)
	NewExecutor(nil, nil, nil, logging.Nop()).RunAll(context.Background(), run, defs)

	phases := run.Phases()
	require.Len(t, phases, 2)
	assert.True(t, phases[0].Failed())
	assert.Contains(t, phases[0].ErrorMessage(), "panic:")
	assert.Equal(t, state.StatusCompleted, phases[1].Status)
}

func TestExecutor_MissingOperation(t *testing.T) {
	run := state.NewRun(state.ActionStartup)
	p := NewExecutor(nil, nil, nil, logging.Nop()).Execute(context.Background(), run, Definition{ID: "empty"})
	assert.True(t, p.Failed())
	assert.Contains(t, p.ErrorMessage(), "no operation")
}

func TestExecutor_AlertHooks(t *testing.T) {
	rec := &recordingAlerts{}
	metrics := telemetry.NewNoOpRunMetrics()
	defs := []Definition{
		ok("good"),
		{ID: "bad", Name: "Bad Phase", Run: func(context.Context, *state.Run) (any, error) {
			return nil, errors.New("timeout")
		}},
	}

	run := state.NewRun(state.ActionValidate)
	NewExecutor(nil, metrics, rec, logging.Nop()).RunAll(context.Background(), run, defs)

	assert.Equal(t, []string{"nightwatch/good"}, rec.resolved)
	require.Len(t, rec.created, 1)
	a := rec.created[0]
	assert.Equal(t, alerts.TypePhaseFailure, a.Type)
	assert.Equal(t, state.SeverityHigh, a.Severity)
	assert.Equal(t, "nightwatch/bad", a.Source)
	assert.Equal(t, "timeout", a.Message)
	assert.Equal(t, "Phase failed: Bad Phase", a.Title)
	assert.Equal(t, run.ID, a.Metadata["run_id"])
	assert.Equal(t, "validate", a.Metadata["action"])

	assert.Equal(t, int64(2), metrics.PhaseCount())
}

func TestExecutor_SpanCarriesPhaseStatus(t *testing.T) {
	tracer := &recordingTracer{}
	defs := []Definition{
		ok("good"),
		{ID: "bad", Name: "Bad", Run: func(context.Context, *state.Run) (any, error) {
			return nil, errors.New("timeout")
		}},
	}

	run := state.NewRun(state.ActionStartup)
	NewExecutor(tracer, nil, nil, logging.Nop()).RunAll(context.Background(), run, defs)

	assert.Equal(t, "completed", tracer.attrs["phase.good"]["phase.status"])
	assert.Equal(t, "failed", tracer.attrs["phase.bad"]["phase.status"])
	assert.Equal(t, "bad", tracer.attrs["phase.bad"]["phase.id"])
	assert.Equal(t, run.ID, tracer.attrs["phase.bad"]["run.id"])
}
