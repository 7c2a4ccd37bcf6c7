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
Package pipeline runs the nightly phase pipeline.

Phases run strictly in order. A phase that returns an error or panics is
recorded as failed with {"error": message} and the next phase starts
anyway: a nightly run must always end with a report. Each settled phase is
appended to the run's audit trail as soon as it finishes, so an
interrupted run still leaves every completed phase behind.
*/
package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/alerts"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/state"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/telemetry"
	"github.com/AleutianAI/nightwatch/pkg/logging"
)

// Operation is the body of a phase. It may read and overwrite
// run.Metrics; the returned value becomes the phase's results.
type Operation func(ctx context.Context, run *state.Run) (any, error)

// Definition names an Operation.
type Definition struct {
	ID   string
	Name string
	Run  Operation
}

// AlertSource is the alert source used for a phase.
func AlertSource(phaseID string) string {
	return "nightwatch/" + phaseID
}

// Executor runs Definitions against a run.
type Executor struct {
	tracer  telemetry.Tracer
	metrics telemetry.RunMetrics
	alerts  alerts.Manager
	logger  *logging.Logger
	now     func() time.Time
}

// NewExecutor creates an Executor. Nil collaborators are replaced by their
// no-op implementations.
func NewExecutor(tracer telemetry.Tracer, metrics telemetry.RunMetrics, alertManager alerts.Manager, logger *logging.Logger) *Executor {
	if tracer == nil {
		tracer = telemetry.NewNoOpTracer()
	}
	if metrics == nil {
		metrics = telemetry.NewNoOpRunMetrics()
	}
	if alertManager == nil {
		alertManager = alerts.NopManager{}
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Executor{
		tracer:  tracer,
		metrics: metrics,
		alerts:  alertManager,
		logger:  logger,
		now:     time.Now,
	}
}

// RunAll executes defs in order. It never stops early.
func (e *Executor) RunAll(ctx context.Context, run *state.Run, defs []Definition) {
	for _, def := range defs {
		e.Execute(ctx, run, def)
	}
}

// Execute runs one phase and appends its record to run.
//
// # Description
//
// The phase moves pending -> running -> completed|failed. A returned error
// or a panic inside the operation marks it failed. Completion resolves the
// phase's open alerts; failure raises a phase_failure alert.
//
// # Outputs
//
//   - state.Phase: The settled record, identical to what was appended.
func (e *Executor) Execute(ctx context.Context, run *state.Run, def Definition) state.Phase {
	phase := state.Phase{ID: def.ID, Name: def.Name, Status: state.StatusPending}

	spanCtx, finish := e.tracer.StartSpan(ctx, "phase."+def.ID, map[string]string{
		"phase.id":   def.ID,
		"phase.name": def.Name,
		"run.id":     run.ID,
	})

	phase.StartTime = e.now()
	phase.Status = state.StatusRunning
	e.logger.Info("phase started", "phase", def.ID, "run_id", run.ID)

	results, err := e.invoke(spanCtx, run, def)

	phase.EndTime = e.now()
	phase.DurationMs = phase.EndTime.Sub(phase.StartTime).Milliseconds()
	duration := phase.EndTime.Sub(phase.StartTime)

	if err != nil {
		phase.Status = state.StatusFailed
		phase.Results = map[string]string{"error": err.Error()}
		e.logger.Error("phase failed",
			"phase", def.ID,
			"status", string(phase.Status),
			"duration_ms", phase.DurationMs,
			"error", err,
		)
	} else {
		phase.Status = state.StatusCompleted
		phase.Results = results
		e.logger.Info("phase finished",
			"phase", def.ID,
			"status", string(phase.Status),
			"duration_ms", phase.DurationMs,
		)
	}

	e.tracer.SetAttributes(spanCtx, map[string]string{"phase.status": string(phase.Status)})
	finish(err)
	e.metrics.ObservePhase(def.ID, string(phase.Status), duration)
	run.AppendPhase(phase)
	e.notify(ctx, run, phase)
	return phase
}

// invoke calls the operation, converting a panic into an error.
func (e *Executor) invoke(ctx context.Context, run *state.Run, def Definition) (results any, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("phase panicked",
				"phase", def.ID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			results = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if def.Run == nil {
		return nil, fmt.Errorf("phase %s has no operation", def.ID)
	}
	return def.Run(ctx, run)
}

func (e *Executor) notify(ctx context.Context, run *state.Run, phase state.Phase) {
	source := AlertSource(phase.ID)

	if !phase.Failed() {
		if _, err := e.alerts.ResolveSource(ctx, source, "phase completed in run "+run.ID); err != nil {
			e.logger.Warn("resolving phase alerts failed", "phase", phase.ID, "error", err)
		}
		return
	}

	_, err := e.alerts.CreateAlert(ctx,
		alerts.TypePhaseFailure,
		state.SeverityHigh,
		fmt.Sprintf("Phase failed: %s", phase.Name),
		phase.ErrorMessage(),
		source,
		map[string]string{
			"run_id": run.ID,
			"phase":  phase.ID,
			"action": string(run.Action),
		},
	)
	if err != nil {
		e.logger.Warn("raising phase alert failed", "phase", phase.ID, "error", err)
	}
}
