// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package improve

import (
	"context"
	"fmt"

	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/state"
)

// ContainerRestarter restarts a container by name.
type ContainerRestarter interface {
	Restart(ctx context.Context, name string) error
}

// ServiceResolver maps a service to its backing container.
type ServiceResolver interface {
	ContainerFor(service string) string
}

// PerformanceSampler takes a fresh performance sample.
type PerformanceSampler interface {
	Analyze(ctx context.Context) (*state.PerformanceSample, error)
}

// DefaultFixer dispatches to the container, service or API fixer.
type DefaultFixer struct {
	restarter ContainerRestarter
	resolver  ServiceResolver
	sampler   PerformanceSampler
}

// NewDefaultFixer creates a DefaultFixer. Any collaborator may be nil, in
// which case the matching fixer reports that it cannot act.
func NewDefaultFixer(restarter ContainerRestarter, resolver ServiceResolver, sampler PerformanceSampler) *DefaultFixer {
	return &DefaultFixer{restarter: restarter, resolver: resolver, sampler: sampler}
}

// ContainerFor returns the container a fix for area would restart, or ""
// when the fix does not touch a container.
func (f *DefaultFixer) ContainerFor(area Area) string {
	switch area.Kind {
	case AreaContainer:
		return area.Target
	case AreaService:
		if f.resolver != nil {
			return f.resolver.ContainerFor(area.Target)
		}
	}
	return ""
}

// Fix implements Fixer.
func (f *DefaultFixer) Fix(ctx context.Context, area Area, metrics *state.SystemMetrics) FixResult {
	switch area.Kind {
	case AreaContainer:
		return f.restart(ctx, area, area.Target)

	case AreaService:
		container := f.ContainerFor(area)
		if container == "" {
			return FixResult{Area: area, Action: "none", Error: "no backing container declared"}
		}
		return f.restart(ctx, area, container)

	case AreaAPI:
		if f.sampler == nil {
			return FixResult{Area: area, Action: "none", Error: "no performance sampler"}
		}
		sample, err := f.sampler.Analyze(ctx)
		if err != nil {
			return FixResult{Area: area, Action: "resample performance", Error: err.Error()}
		}
		metrics.Performance = sample
		return FixResult{
			Area:    area,
			Action:  fmt.Sprintf("resample performance (%dms)", sample.ResponseTimeMs),
			Success: true,
		}

	default:
		return FixResult{Area: area, Action: "none", Error: fmt.Sprintf("unknown area kind %q", area.Kind)}
	}
}

func (f *DefaultFixer) restart(ctx context.Context, area Area, container string) FixResult {
	action := "restart container " + container
	if f.restarter == nil {
		return FixResult{Area: area, Action: action, Error: "no container runtime"}
	}
	if err := f.restarter.Restart(ctx, container); err != nil {
		return FixResult{Area: area, Action: action, Error: err.Error()}
	}
	return FixResult{Area: area, Action: action, Success: true}
}

// CheckFunc adapts a pair of check functions to Revalidator.
type CheckFunc struct {
	ContainersFunc func(ctx context.Context) map[string]state.ContainerStatus
	ServicesFunc   func(ctx context.Context) map[string]state.ServiceStatus
}

// Containers calls ContainersFunc.
func (c CheckFunc) Containers(ctx context.Context) map[string]state.ContainerStatus {
	return c.ContainersFunc(ctx)
}

// Services calls ServicesFunc.
func (c CheckFunc) Services(ctx context.Context) map[string]state.ServiceStatus {
	return c.ServicesFunc(ctx)
}

var (
	_ Fixer            = (*DefaultFixer)(nil)
	_ ContainerTargets = (*DefaultFixer)(nil)
	_ Revalidator      = CheckFunc{}
)
