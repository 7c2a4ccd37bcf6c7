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
	"fmt"
	"time"

	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/improve"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/report"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/state"
	"github.com/AleutianAI/nightwatch/pkg/logging"
)

// Phase IDs in execution order.
const (
	PhaseSystemValidation     = "system-validation"
	PhaseContainerHealth      = "container-health"
	PhaseServiceConnectivity  = "service-connectivity"
	PhasePerformanceAnalysis  = "performance-analysis"
	PhaseSecurityAudit        = "security-audit"
	PhaseKnowledgeValidation  = "knowledge-validation"
	PhaseSelfOptimization     = "self-optimization"
	PhaseIterativeImprovement = "iterative-improvement"
	PhaseFinalValidation      = "final-validation"
	PhaseReportGeneration     = "report-generation"
)

// =============================================================================
// Component contracts
// =============================================================================

// SystemValidator checks the host.
type SystemValidator interface {
	Validate(ctx context.Context) (*state.ResourceStatus, error)
}

// ContainerChecker inspects the declared containers.
type ContainerChecker interface {
	Check(ctx context.Context) map[string]state.ContainerStatus
}

// ServiceChecker probes the declared services.
type ServiceChecker interface {
	Check(ctx context.Context) map[string]state.ServiceStatus
}

// PerformanceAnalyzer takes one performance sample.
type PerformanceAnalyzer interface {
	Analyze(ctx context.Context) (*state.PerformanceSample, error)
}

// SecurityAuditor produces advisory findings.
type SecurityAuditor interface {
	Audit(ctx context.Context) *state.SecurityFindings
}

// KnowledgeValidator inspects the knowledge base.
type KnowledgeValidator interface {
	Validate(ctx context.Context) *state.KnowledgeStatus
}

// Optimizer produces the optimization records.
type Optimizer interface {
	Run(ctx context.Context) []state.OptimizationResult
}

// Improver runs the remediation loop.
type Improver interface {
	Run(ctx context.Context, run *state.Run) (improve.Result, error)
}

// ReportPublisher persists a report and returns where it was written.
type ReportPublisher interface {
	Publish(ctx context.Context, report *state.StartupReport) (string, error)
}

// Components is everything one run needs.
type Components struct {
	System      SystemValidator
	Containers  ContainerChecker
	Services    ServiceChecker
	Performance PerformanceAnalyzer
	Security    SecurityAuditor
	Knowledge   KnowledgeValidator
	Optimizer   Optimizer
	Improver    Improver
	Publisher   ReportPublisher

	SlowThreshold time.Duration
	Logger        *logging.Logger
	Now           func() time.Time
}

// =============================================================================
// Phase payloads
// =============================================================================

// OptimizationSummary is the self-optimization payload.
type OptimizationSummary struct {
	Count   int                        `json:"count"`
	Results []state.OptimizationResult `json:"results"`
}

// FinalValidation is the final-validation payload.
type FinalValidation struct {
	Issues            []string `json:"issues"`
	HealthyContainers int      `json:"healthyContainers"`
	TotalContainers   int      `json:"totalContainers"`
	ReachableServices int      `json:"reachableServices"`
	TotalServices     int      `json:"totalServices"`
}

// ReportResult is the report-generation payload.
type ReportResult struct {
	Path         string `json:"path"`
	SystemHealth int    `json:"systemHealth"`
}

// =============================================================================
// Catalogue
// =============================================================================

// Definitions returns the ten phases in execution order. onReport receives
// the report as soon as it is built, before it is persisted.
func (c Components) Definitions(onReport func(*state.StartupReport)) []Definition {
	return []Definition{
		{ID: PhaseSystemValidation, Name: "System Validation", Run: c.systemValidation},
		{ID: PhaseContainerHealth, Name: "Container Health", Run: c.containerHealth},
		{ID: PhaseServiceConnectivity, Name: "Service Connectivity", Run: c.serviceConnectivity},
		{ID: PhasePerformanceAnalysis, Name: "Performance Analysis", Run: c.performanceAnalysis},
		{ID: PhaseSecurityAudit, Name: "Security Audit", Run: c.securityAudit},
		{ID: PhaseKnowledgeValidation, Name: "Knowledge Base Validation", Run: c.knowledgeValidation},
		{ID: PhaseSelfOptimization, Name: "Self-Optimization", Run: c.selfOptimization},
		{ID: PhaseIterativeImprovement, Name: "Iterative Improvement", Run: c.iterativeImprovement},
		{ID: PhaseFinalValidation, Name: "Final Validation", Run: c.finalValidation},
		{ID: PhaseReportGeneration, Name: "Report Generation", Run: c.reportGeneration(onReport)},
	}
}

func (c Components) systemValidation(ctx context.Context, run *state.Run) (any, error) {
	resources, err := c.System.Validate(ctx)
	if err != nil {
		return nil, err
	}
	run.Metrics.Resources = resources
	return resources, nil
}

func (c Components) containerHealth(ctx context.Context, run *state.Run) (any, error) {
	statuses := c.Containers.Check(ctx)
	run.Metrics.Containers = statuses
	return statuses, nil
}

func (c Components) serviceConnectivity(ctx context.Context, run *state.Run) (any, error) {
	statuses := c.Services.Check(ctx)
	run.Metrics.Services = statuses
	return statuses, nil
}

// performanceAnalysis never fails: a missing sample is acceptable and is
// left out of the aggregate.
func (c Components) performanceAnalysis(ctx context.Context, run *state.Run) (any, error) {
	sample, err := c.Performance.Analyze(ctx)
	if err != nil {
		c.Logger.Warn("performance sample unavailable", "error", err)
		return map[string]string{"skipped": err.Error()}, nil
	}
	run.Metrics.Performance = sample
	return sample, nil
}

func (c Components) securityAudit(ctx context.Context, run *state.Run) (any, error) {
	findings := c.Security.Audit(ctx)
	run.Metrics.Security = findings
	return findings, nil
}

func (c Components) knowledgeValidation(ctx context.Context, run *state.Run) (any, error) {
	status := c.Knowledge.Validate(ctx)
	run.Metrics.Knowledge = status
	return status, nil
}

func (c Components) selfOptimization(ctx context.Context, run *state.Run) (any, error) {
	results := c.Optimizer.Run(ctx)
	run.AddOptimizations(results...)
	return OptimizationSummary{Count: len(results), Results: results}, nil
}

func (c Components) iterativeImprovement(ctx context.Context, run *state.Run) (any, error) {
	result, err := c.Improver.Run(ctx, run)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c Components) finalValidation(ctx context.Context, run *state.Run) (any, error) {
	run.Metrics.Containers = c.Containers.Check(ctx)
	run.Metrics.Services = c.Services.Check(ctx)

	m := run.Metrics
	fv := FinalValidation{
		Issues:            []string{},
		TotalContainers:   len(m.Containers),
		HealthyContainers: len(m.Containers) - len(m.UnhealthyContainers()),
		TotalServices:     len(m.Services),
		ReachableServices: len(m.Services) - len(m.UnreachableServices()),
	}
	for _, area := range improve.Identify(m, c.SlowThreshold) {
		fv.Issues = append(fv.Issues, area.String())
	}
	for _, name := range m.UnhealthyContainers() {
		if m.Containers[name].Running {
			fv.Issues = append(fv.Issues, fmt.Sprintf("container %s running but unhealthy", name))
		}
	}
	return fv, nil
}

func (c Components) reportGeneration(onReport func(*state.StartupReport)) Operation {
	return func(ctx context.Context, run *state.Run) (any, error) {
		now := time.Now
		if c.Now != nil {
			now = c.Now
		}
		rep := report.Build(run, c.SlowThreshold, now())
		if onReport != nil {
			onReport(rep)
		}

		path, err := c.Publisher.Publish(ctx, rep)
		if err != nil {
			return nil, fmt.Errorf("persisting report: %w", err)
		}
		return ReportResult{Path: path, SystemHealth: rep.SystemHealth}, nil
	}
}
