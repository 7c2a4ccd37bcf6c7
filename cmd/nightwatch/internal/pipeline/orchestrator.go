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
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/AleutianAI/nightwatch/cmd/nightwatch/config"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/alerts"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/connectivity"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/containers"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/improve"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/knowledge"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/optimize"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/performance"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/probe"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/report"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/security"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/state"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/system"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/telemetry"
	"github.com/AleutianAI/nightwatch/pkg/logging"
)

// ErrRunInProgress is returned by TryRunAction while another run holds the
// orchestrator.
var ErrRunInProgress = errors.New("a run is already in progress")

// HealthAlertSource is the alert source of health_degraded alerts.
const HealthAlertSource = "nightwatch"

// Response is what an invocation returns to its caller.
type Response struct {
	Success         bool         `json:"success"`
	Phases          int          `json:"phases"`
	Optimizations   int          `json:"optimizations"`
	Iterations      int          `json:"iterations"`
	TotalDurationMs int64        `json:"totalDuration"`
	SystemHealth    int          `json:"systemHealth"`
	Action          state.Action `json:"action"`
	RunID           string       `json:"runId"`
	Error           string       `json:"error,omitempty"`

	Report *state.StartupReport `json:"-"`
}

// Deps are the long-lived collaborators of an Orchestrator. Per-run
// components (checkers, the improvement controller) are built from them for
// every run.
type Deps struct {
	Prober  probe.Prober
	Sampler probe.HostSampler
	Runtime containers.Runtime

	// Pingers overrides the redis/postgres pingers. Nil uses the defaults.
	Pingers map[string]connectivity.Pinger

	// Index is the vector index behind the knowledge validator. May be nil.
	Index knowledge.VectorIndex

	// Snapshots overrides the optimization before-snapshots. Nil derives
	// them from config.
	Snapshots map[string]optimize.Snapshotter

	Alerts    alerts.Manager
	Tracer    telemetry.Tracer
	Metrics   telemetry.RunMetrics
	Publisher *report.Publisher

	closers []func() error
}

// Orchestrator runs the pipeline for an action. One run at a time.
type Orchestrator struct {
	cfg      *config.NightwatchConfig
	deps     Deps
	executor *Executor
	logger   *logging.Logger
	now      func() time.Time

	// components builds the per-run components; replaced in tests.
	components func(run *state.Run) Components

	mu sync.Mutex
}

// NewOrchestrator wires an Orchestrator from explicit dependencies.
func NewOrchestrator(cfg *config.NightwatchConfig, deps Deps, logger *logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.Nop()
	}
	if deps.Tracer == nil {
		deps.Tracer = telemetry.NewNoOpTracer()
	}
	if deps.Metrics == nil {
		deps.Metrics = telemetry.NewNoOpRunMetrics()
	}
	if deps.Alerts == nil {
		deps.Alerts = alerts.NopManager{}
	}
	o := &Orchestrator{
		cfg:      cfg,
		deps:     deps,
		executor: NewExecutor(deps.Tracer, deps.Metrics, deps.Alerts, logger),
		logger:   logger,
		now:      time.Now,
	}
	o.components = o.buildComponents
	return o
}

// Alerts returns the alert manager.
func (o *Orchestrator) Alerts() alerts.Manager { return o.deps.Alerts }

// Metrics returns the run metrics.
func (o *Orchestrator) Metrics() telemetry.RunMetrics { return o.deps.Metrics }

// ReportDir returns the local report directory.
func (o *Orchestrator) ReportDir() string {
	if o.deps.Publisher == nil {
		return ""
	}
	return o.deps.Publisher.Dir()
}

// Close releases every owned resource. Errors are joined.
func (o *Orchestrator) Close(ctx context.Context) error {
	var errs []error
	for i := len(o.deps.closers) - 1; i >= 0; i-- {
		if err := o.deps.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := o.deps.Tracer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
	}
	return errors.Join(errs...)
}

// RunAction runs the full pipeline for action, waiting for any run in
// progress to finish first.
//
// # Description
//
// All actions execute the same ten phases; the action is carried through
// as a tag on the run, the report and the trace. The call always returns a
// Response: an unexpected failure outside any phase is reported as
// Success=false with the counts accumulated so far.
func (o *Orchestrator) RunAction(ctx context.Context, action state.Action) Response {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.run(ctx, action)
}

// TryRunAction is RunAction but fails with ErrRunInProgress instead of
// waiting.
func (o *Orchestrator) TryRunAction(ctx context.Context, action state.Action) (Response, error) {
	if !o.mu.TryLock() {
		return Response{}, ErrRunInProgress
	}
	defer o.mu.Unlock()
	return o.run(ctx, action), nil
}

func (o *Orchestrator) run(ctx context.Context, action state.Action) (resp Response) {
	run := state.NewRun(action)
	run.StartedAt = o.now()

	ctx, finish := o.deps.Tracer.StartSpan(ctx, "nightwatch.run", map[string]string{
		"run.id": run.ID,
		"action": string(action),
	})
	var runErr error
	defer func() { finish(runErr) }()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("run aborted",
				"run_id", run.ID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			resp = o.partialResponse(run)
			resp.Error = fmt.Sprintf("unexpected failure: %v", r)
			runErr = errors.New(resp.Error)
		}
	}()

	o.logger.Info("run started",
		"run_id", run.ID,
		"action", string(action),
		"trace_id", o.deps.Tracer.TraceID(ctx),
	)

	var rep *state.StartupReport
	components := o.components(run)
	o.executor.RunAll(ctx, run, components.Definitions(func(r *state.StartupReport) {
		rep = r
		o.deps.Metrics.RecordRun(telemetry.RunSummary{
			Action:        string(action),
			Success:       true,
			Health:        r.SystemHealth,
			Iterations:    r.Iterations,
			Optimizations: r.Optimizations,
			Timestamp:     o.now(),
		})
	}))
	if rep == nil {
		// Only reachable if report generation panicked before building.
		rep = report.Build(run, o.cfg.Run.SlowResponseThreshold, o.now())
	}

	o.checkHealth(ctx, run, rep)

	o.logger.Info("run finished",
		"run_id", run.ID,
		"system_health", rep.SystemHealth,
		"failed_phases", rep.FailedPhases,
		"iterations", rep.Iterations,
		"duration_ms", rep.TotalDurationMs,
	)

	return Response{
		Success:         true,
		Phases:          rep.Phases,
		Optimizations:   rep.Optimizations,
		Iterations:      rep.Iterations,
		TotalDurationMs: rep.TotalDurationMs,
		SystemHealth:    rep.SystemHealth,
		Action:          action,
		RunID:           run.ID,
		Report:          rep,
	}
}

// partialResponse summarizes whatever the run accumulated.
func (o *Orchestrator) partialResponse(run *state.Run) Response {
	phases := run.Phases()
	return Response{
		Success:         false,
		Phases:          len(phases),
		Optimizations:   len(run.Optimizations()),
		Iterations:      run.Iterations(),
		TotalDurationMs: o.now().Sub(run.StartedAt).Milliseconds(),
		SystemHealth:    report.HealthScore(phases, run.Metrics, o.cfg.Run.SlowResponseThreshold),
		Action:          run.Action,
		RunID:           run.ID,
	}
}

// checkHealth raises a health_degraded alert below the configured
// threshold and resolves earlier ones otherwise.
func (o *Orchestrator) checkHealth(ctx context.Context, run *state.Run, rep *state.StartupReport) {
	if !o.cfg.Alerts.Enabled {
		return
	}
	threshold := o.cfg.Alerts.HealthThreshold

	if rep.SystemHealth >= threshold {
		if _, err := o.deps.Alerts.ResolveSource(ctx, HealthAlertSource, "health recovered in run "+run.ID); err != nil {
			o.logger.Warn("resolving health alerts failed", "error", err)
		}
		return
	}

	severity := state.SeverityMedium
	if rep.SystemHealth < threshold/2 {
		severity = state.SeverityCritical
	}
	_, err := o.deps.Alerts.CreateAlert(ctx,
		alerts.TypeHealthDegraded,
		severity,
		fmt.Sprintf("System health %d is below %d", rep.SystemHealth, threshold),
		strings.Join(rep.Recommendations, "; "),
		HealthAlertSource,
		map[string]string{
			"run_id":        run.ID,
			"system_health": strconv.Itoa(rep.SystemHealth),
			"failed_phases": strconv.Itoa(rep.FailedPhases),
		},
	)
	if err != nil {
		o.logger.Warn("raising health alert failed", "error", err)
	}
}

// buildComponents creates the per-run components. Container start attempts
// and settle pacing are scoped to the run.
func (o *Orchestrator) buildComponents(run *state.Run) Components {
	cfg, d := o.cfg, o.deps

	containerChecker := containers.NewChecker(d.Runtime, cfg.Inventory.Containers, o.logger)
	serviceChecker := connectivity.NewChecker(cfg.Inventory.Services, d.Prober, d.Pingers, cfg.Run.ProbeTimeout, o.logger)
	analyzer := performance.NewAnalyzer(cfg.Performance.StatusURL, cfg.Performance.DiskPath, cfg.Run.ProbeTimeout, d.Prober, d.Sampler)

	snapshots := d.Snapshots
	if snapshots == nil {
		snapshots = map[string]optimize.Snapshotter{
			optimize.ComponentContainers: optimize.ContainerLimits(d.Runtime, cfg.Inventory.Containers),
			optimize.ComponentAPI:        optimize.APILatency(analyzer.Latency),
		}
		if cfg.Optimization.DatastoreDSN != "" {
			snapshots[optimize.ComponentDatastore] = optimize.PostgresPool(cfg.Optimization.DatastoreDSN)
		}
		if cfg.Optimization.CacheURL != "" {
			snapshots[optimize.ComponentCache] = optimize.RedisPolicy(cfg.Optimization.CacheURL)
		}
	}

	controller := improve.NewController(
		improve.Config{
			MaxIterations:         cfg.Run.MaxIterations,
			SlowResponseThreshold: cfg.Run.SlowResponseThreshold,
			SettleInterval:        cfg.Run.SettleInterval,
		},
		improve.NewDefaultFixer(containerChecker, serviceChecker, analyzer),
		improve.CheckFunc{ContainersFunc: containerChecker.Check, ServicesFunc: serviceChecker.Check},
		o.logger.With("run_id", run.ID),
	)

	return Components{
		System:        system.NewValidator(cfg.System, cfg.Run.ProbeTimeout, d.Prober, d.Sampler, o.logger),
		Containers:    containerChecker,
		Services:      serviceChecker,
		Performance:   analyzer,
		Security:      security.NewAuditor(cfg.Security, cfg.Inventory.CriticalFiles, cfg.Run.CommandTimeout, d.Prober, o.logger),
		Knowledge:     knowledge.NewValidator(cfg.Knowledge, cfg.Run.ProbeTimeout, d.Prober, d.Index, o.logger),
		Optimizer:     optimize.NewEngine(snapshots, cfg.Run.ProbeTimeout, o.logger),
		Improver:      controller,
		Publisher:     d.Publisher,
		SlowThreshold: cfg.Run.SlowResponseThreshold,
		Logger:        o.logger,
		Now:           o.now,
	}
}
