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
Package optimize produces the run's optimization records.

The engine is advisory. Each entry of the catalogue describes one tuning
action; the engine captures a "before" snapshot from the live system where
it can and records the proposed change as "after". Nothing is applied to
live infrastructure here.
*/
package optimize

import (
	"context"
	"time"

	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/state"
	"github.com/AleutianAI/nightwatch/pkg/logging"
)

// Component names used as catalogue keys.
const (
	ComponentContainers = "containers"
	ComponentDatastore  = "datastore"
	ComponentCache      = "cache"
	ComponentAPI        = "api"
)

// Proposal is one catalogue row.
type Proposal struct {
	Component   string
	Improvement string
	After       string
	Impact      state.Impact
}

// catalogue is the fixed set of tuning actions, in report order.
var catalogue = []Proposal{
	{
		Component:   ComponentContainers,
		Improvement: "Right-size container CPU and memory allocation",
		After:       "CPU and memory limits set from observed peak usage plus 25% headroom",
		Impact:      state.ImpactMedium,
	},
	{
		Component:   ComponentDatastore,
		Improvement: "Tune datastore connection pooling",
		After:       "Pool capped at 20 connections per service with 5m idle timeout",
		Impact:      state.ImpactHigh,
	},
	{
		Component:   ComponentCache,
		Improvement: "Tune cache eviction and TTL",
		After:       "maxmemory-policy=allkeys-lru with 1h default TTL on session keys",
		Impact:      state.ImpactMedium,
	},
	{
		Component:   ComponentAPI,
		Improvement: "Reduce API response time",
		After:       "Response compression and keep-alive enabled; target p50 under 500ms",
		Impact:      state.ImpactHigh,
	},
}

// Catalogue returns a copy of the tuning catalogue.
func Catalogue() []Proposal {
	out := make([]Proposal, len(catalogue))
	copy(out, catalogue)
	return out
}

// Snapshotter captures the current value a proposal would change.
type Snapshotter interface {
	Snapshot(ctx context.Context) (string, error)
}

// SnapshotFunc adapts a function to Snapshotter.
type SnapshotFunc func(ctx context.Context) (string, error)

// Snapshot calls f.
func (f SnapshotFunc) Snapshot(ctx context.Context) (string, error) { return f(ctx) }

// Engine turns the catalogue into OptimizationResults.
type Engine struct {
	snapshots map[string]Snapshotter
	timeout   time.Duration
	logger    *logging.Logger
}

// NewEngine creates an Engine. snapshots maps a component to its live
// before-snapshot; components without one record "not captured".
func NewEngine(snapshots map[string]Snapshotter, timeout time.Duration, logger *logging.Logger) *Engine {
	return &Engine{snapshots: snapshots, timeout: timeout, logger: logger}
}

// Run returns one result per catalogue entry, in catalogue order. Every
// result is flagged automated.
func (e *Engine) Run(ctx context.Context) []state.OptimizationResult {
	results := make([]state.OptimizationResult, 0, len(catalogue))
	for _, p := range catalogue {
		results = append(results, state.OptimizationResult{
			Component:   p.Component,
			Improvement: p.Improvement,
			Before:      e.before(ctx, p.Component),
			After:       p.After,
			Impact:      p.Impact,
			Automated:   true,
		})
	}
	return results
}

func (e *Engine) before(ctx context.Context, component string) string {
	snap, ok := e.snapshots[component]
	if !ok || snap == nil {
		return "not captured"
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	value, err := snap.Snapshot(ctx)
	if err != nil {
		e.logger.Warn("optimization snapshot failed", "component", component, "error", err)
		return "unavailable: " + err.Error()
	}
	return value
}
