// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package containers

import (
	"context"
	"sync"

	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/state"
	"github.com/AleutianAI/nightwatch/pkg/logging"
)

// Checker reports the state of every declared container.
//
// A Checker belongs to one run: a container that is found stopped gets
// exactly one start attempt for the lifetime of the Checker, however many
// times Check is called.
type Checker struct {
	runtime Runtime
	names   []string
	logger  *logging.Logger

	mu        sync.Mutex
	attempted map[string]*startOutcome
}

// startOutcome is the result of the one start attempt a container gets.
type startOutcome struct {
	started bool
	err     string
}

// NewChecker creates a Checker for names.
func NewChecker(runtime Runtime, names []string, logger *logging.Logger) *Checker {
	return &Checker{
		runtime:   runtime,
		names:     names,
		logger:    logger,
		attempted: make(map[string]*startOutcome),
	}
}

// Names returns the declared container names.
func (c *Checker) Names() []string { return c.names }

// Check inspects every declared container.
//
// # Description
//
// A stopped container gets one start attempt per run; the outcome is
// recorded in Started and StartError and the container is inspected again.
// Later checks of a container that is still stopped carry that outcome
// forward. Healthy is Running && !Unhealthy. Inspection errors are recorded
// on the container's Status; Check never fails.
//
// # Outputs
//
//   - map[string]state.ContainerStatus: One entry per declared name.
func (c *Checker) Check(ctx context.Context) map[string]state.ContainerStatus {
	out := make(map[string]state.ContainerStatus, len(c.names))
	for _, name := range c.names {
		out[name] = c.checkOne(ctx, name)
	}
	return out
}

func (c *Checker) checkOne(ctx context.Context, name string) state.ContainerStatus {
	info, err := c.runtime.Inspect(ctx, name)
	if err != nil {
		c.logger.Warn("container inspect failed", "container", name, "error", err)
		return state.ContainerStatus{Status: "error: " + err.Error()}
	}

	cs := toStatus(info)
	if info.Running {
		return cs
	}
	outcome, first := c.claimStart(name)
	if !first {
		if outcome.started || outcome.err != "" {
			started := outcome.started
			cs.Started = &started
			cs.StartError = outcome.err
		}
		return cs
	}

	started := true
	if err := c.runtime.Start(ctx, name); err != nil {
		started = false
		cs.StartError = err.Error()
		c.record(name, started, cs.StartError)
		c.logger.Warn("container start failed", "container", name, "error", err)
	} else {
		c.record(name, started, "")
		c.logger.Info("container started", "container", name)
		if after, err := c.runtime.Inspect(ctx, name); err == nil {
			cs = toStatus(after)
		}
	}
	cs.Started = &started
	return cs
}

// claimStart reports whether this is the first start attempt for name. On
// later calls it returns a copy of the recorded outcome.
func (c *Checker) claimStart(name string) (startOutcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if o, ok := c.attempted[name]; ok {
		return *o, false
	}
	c.attempted[name] = &startOutcome{}
	return startOutcome{}, true
}

func (c *Checker) record(name string, started bool, errMsg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempted[name] = &startOutcome{started: started, err: errMsg}
}

// Restart restarts one container. Used by the improvement loop.
func (c *Checker) Restart(ctx context.Context, name string) error {
	return c.runtime.Restart(ctx, name)
}

// Runtime returns the underlying engine.
func (c *Checker) Runtime() Runtime { return c.runtime }

func toStatus(info Info) state.ContainerStatus {
	return state.ContainerStatus{
		Running: info.Running,
		Healthy: info.Running && !info.Unhealthy,
		Status:  info.Status,
	}
}
