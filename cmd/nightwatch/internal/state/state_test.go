// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	for in, want := range map[string]Action{
		"":          ActionStartup,
		"startup":   ActionStartup,
		"VALIDATE":  ActionValidate,
		" optimize": ActionOptimize,
	} {
		got, err := ParseAction(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseAction("deploy")
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestSystemMetrics_SortedNames(t *testing.T) {
	m := NewSystemMetrics()
	m.Containers["zeta"] = ContainerStatus{Running: true, Healthy: false}
	m.Containers["alpha"] = ContainerStatus{}
	m.Containers["mid"] = ContainerStatus{Running: true, Healthy: true}
	m.Services["redis"] = ServiceStatus{Reachable: false}
	m.Services["api"] = ServiceStatus{Reachable: false}
	m.Services["db"] = ServiceStatus{Reachable: true}

	assert.Equal(t, []string{"alpha", "zeta"}, m.UnhealthyContainers())
	assert.Equal(t, []string{"alpha"}, m.StoppedContainers())
	assert.Equal(t, []string{"api", "redis"}, m.UnreachableServices())
}

func TestSystemMetrics_SlowResponse(t *testing.T) {
	m := NewSystemMetrics()
	assert.False(t, m.SlowResponse(time.Second), "missing sample is not slow")

	m.Performance = &PerformanceSample{ResponseTimeMs: 1000}
	assert.False(t, m.SlowResponse(time.Second), "boundary is exclusive")

	m.Performance.ResponseTimeMs = 1001
	assert.True(t, m.SlowResponse(time.Second))
}

func TestRun_AppendOnlyCopies(t *testing.T) {
	run := NewRun(ActionValidate)
	assert.NotEmpty(t, run.ID)

	run.AppendPhase(Phase{ID: "a", Status: StatusCompleted})
	phases := run.Phases()
	phases[0].Status = StatusFailed
	assert.Equal(t, StatusCompleted, run.Phases()[0].Status, "callers get a copy")

	run.AddOptimizations(OptimizationResult{Component: "cache"})
	run.AddOptimizations(OptimizationResult{Component: "api"}, OptimizationResult{Component: "datastore"})
	require.Len(t, run.Optimizations(), 3)
	assert.Equal(t, "cache", run.Optimizations()[0].Component)

	run.SetIterations(4)
	assert.Equal(t, 4, run.Iterations())
}

func TestPhase_ErrorMessage(t *testing.T) {
	p := Phase{Status: StatusFailed, Results: map[string]string{"error": "boom"}}
	assert.True(t, p.Failed())
	assert.Equal(t, "boom", p.ErrorMessage())
	assert.Empty(t, Phase{Results: 42}.ErrorMessage())
}
