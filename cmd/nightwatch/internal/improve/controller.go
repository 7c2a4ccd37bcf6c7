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
Package improve runs the bounded remediation loop.

Each round identifies improvement areas in the current SystemMetrics,
dispatches a fixer per area, waits for the settle interval and re-validates
containers and services. The loop stops as soon as a round finds nothing to
fix, and never runs more than MaxIterations rounds.

# Iteration Counting

The iteration count is the number of rounds started. A clean system
records 1. A system that never recovers records exactly MaxIterations.
*/
package improve

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/state"
	"github.com/AleutianAI/nightwatch/pkg/logging"
)

// DefaultMaxIterations bounds the loop when no bound is configured.
const DefaultMaxIterations = 5

// =============================================================================
// Areas
// =============================================================================

// AreaKind classifies an improvement area.
type AreaKind string

const (
	AreaContainer AreaKind = "container"
	AreaService   AreaKind = "service"
	AreaAPI       AreaKind = "api"
)

// Area is one thing the loop will try to fix.
type Area struct {
	Kind   AreaKind `json:"kind"`
	Target string   `json:"target"`
	Detail string   `json:"detail,omitempty"`
}

func (a Area) String() string {
	switch a.Kind {
	case AreaContainer:
		return fmt.Sprintf("container %s not running", a.Target)
	case AreaService:
		if a.Detail != "" {
			return fmt.Sprintf("service %s unreachable: %s", a.Target, a.Detail)
		}
		return fmt.Sprintf("service %s unreachable", a.Target)
	default:
		return fmt.Sprintf("API response time %s exceeds threshold", a.Detail)
	}
}

// Identify scans metrics for improvement areas: stopped containers,
// unreachable services and a response time above threshold. Names are
// sorted so the result is deterministic.
func Identify(m *state.SystemMetrics, threshold time.Duration) []Area {
	var areas []Area
	for _, name := range m.StoppedContainers() {
		areas = append(areas, Area{Kind: AreaContainer, Target: name, Detail: m.Containers[name].Status})
	}
	for _, name := range m.UnreachableServices() {
		areas = append(areas, Area{Kind: AreaService, Target: name, Detail: m.Services[name].Error})
	}
	if m.SlowResponse(threshold) {
		areas = append(areas, Area{
			Kind:   AreaAPI,
			Target: "api",
			Detail: fmt.Sprintf("%dms", m.Performance.ResponseTimeMs),
		})
	}
	return areas
}

// =============================================================================
// Collaborators
// =============================================================================

// Fixer applies a best-effort fix for one area. It may update metrics
// (the API fixer replaces the performance sample).
type Fixer interface {
	Fix(ctx context.Context, area Area, metrics *state.SystemMetrics) FixResult
}

// ContainerTargets is implemented by fixers that restart containers. The
// controller uses it to restart each container at most once per round, so a
// stopped container that also backs an unreachable service is not restarted
// twice.
type ContainerTargets interface {
	ContainerFor(area Area) string
}

// FixResult is the outcome of one fix attempt.
type FixResult struct {
	Area    Area   `json:"area"`
	Action  string `json:"action"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Revalidator re-runs the container and service checks.
type Revalidator interface {
	Containers(ctx context.Context) map[string]state.ContainerStatus
	Services(ctx context.Context) map[string]state.ServiceStatus
}

// =============================================================================
// Controller
// =============================================================================

// Round records one iteration of the loop.
type Round struct {
	Iteration int         `json:"iteration"`
	Areas     []Area      `json:"areas"`
	Fixes     []FixResult `json:"fixes"`
	Issues    []string    `json:"issues"`
}

// Result is the loop's phase payload.
type Result struct {
	Iterations int      `json:"iterations"`
	Resolved   bool     `json:"resolved"`
	Rounds     []Round  `json:"rounds"`
	Remaining  []string `json:"remaining,omitempty"`
}

// Controller runs the improvement loop.
type Controller struct {
	maxIterations int
	threshold     time.Duration
	fixer         Fixer
	revalidator   Revalidator
	limiter       *rate.Limiter
	logger        *logging.Logger
}

// Config configures a Controller.
type Config struct {
	// MaxIterations bounds the loop. Values below 1 use DefaultMaxIterations.
	MaxIterations int

	// SlowResponseThreshold is the API latency above which the API is an
	// improvement area.
	SlowResponseThreshold time.Duration

	// SettleInterval is the minimum spacing between re-validations, giving
	// restarted containers time to come up. Zero disables pacing.
	SettleInterval time.Duration
}

// NewController creates a Controller.
func NewController(cfg Config, fixer Fixer, revalidator Revalidator, logger *logging.Logger) *Controller {
	if cfg.MaxIterations < 1 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	return &Controller{
		maxIterations: cfg.MaxIterations,
		threshold:     cfg.SlowResponseThreshold,
		fixer:         fixer,
		revalidator:   revalidator,
		limiter:       newSettleLimiter(cfg.SettleInterval),
		logger:        logger,
	}
}

// newSettleLimiter returns a limiter whose first Wait already blocks for
// one interval.
func newSettleLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	l := rate.NewLimiter(rate.Every(interval), 1)
	l.Allow()
	return l
}

// Run executes the loop against run.Metrics and records the iteration
// count on run as each round starts.
//
// # Description
//
// For each round: identify areas; stop if none; fix each area; wait for
// the settle interval; re-validate containers and services, overwriting
// the aggregate; record remaining issues.
//
// # Outputs
//
//   - Result: Always populated with the rounds that ran.
//   - error: Only ctx cancellation during the settle wait.
func (c *Controller) Run(ctx context.Context, run *state.Run) (Result, error) {
	var result Result

	for it := 1; it <= c.maxIterations; it++ {
		result.Iterations = it
		run.SetIterations(it)

		areas := Identify(run.Metrics, c.threshold)
		if len(areas) == 0 {
			c.logger.Info("no improvement areas", "iteration", it)
			result.Resolved = true
			return result, nil
		}

		c.logger.Info("improvement round", "iteration", it, "areas", len(areas))
		round := Round{Iteration: it, Areas: areas}
		restarted := make(map[string]bool)
		for _, area := range areas {
			container := c.containerFor(area)
			if container != "" && restarted[container] {
				round.Fixes = append(round.Fixes, FixResult{
					Area:    area,
					Action:  "container " + container + " already restarted this round",
					Success: true,
				})
				continue
			}
			if container != "" {
				restarted[container] = true
			}
			fix := c.fixer.Fix(ctx, area, run.Metrics)
			if !fix.Success {
				c.logger.Warn("fix failed", "area", area.String(), "error", fix.Error)
			}
			round.Fixes = append(round.Fixes, fix)
		}

		if err := c.limiter.Wait(ctx); err != nil {
			result.Rounds = append(result.Rounds, round)
			return result, fmt.Errorf("waiting to re-validate: %w", err)
		}

		run.Metrics.Containers = c.revalidator.Containers(ctx)
		run.Metrics.Services = c.revalidator.Services(ctx)

		round.Issues = issueStrings(Identify(run.Metrics, c.threshold))
		result.Rounds = append(result.Rounds, round)
	}

	result.Remaining = issueStrings(Identify(run.Metrics, c.threshold))
	result.Resolved = len(result.Remaining) == 0
	if !result.Resolved {
		c.logger.Warn("improvement loop exhausted", "iterations", result.Iterations, "remaining", len(result.Remaining))
	}
	return result, nil
}

func (c *Controller) containerFor(area Area) string {
	if t, ok := c.fixer.(ContainerTargets); ok {
		return t.ContainerFor(area)
	}
	return ""
}

func issueStrings(areas []Area) []string {
	out := make([]string, 0, len(areas))
	for _, a := range areas {
		out = append(out, a.String())
	}
	return out
}
