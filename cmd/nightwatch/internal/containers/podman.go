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
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/probe"
)

// PodmanRuntime drives the podman CLI through a Prober.
type PodmanRuntime struct {
	prober  probe.Prober
	timeout time.Duration
}

// NewPodmanRuntime creates a PodmanRuntime.
func NewPodmanRuntime(prober probe.Prober, timeout time.Duration) *PodmanRuntime {
	return &PodmanRuntime{prober: prober, timeout: timeout}
}

// Name returns "podman".
func (r *PodmanRuntime) Name() string { return "podman" }

// Inspect reads the `podman ps` status line of an exactly-named container.
// Running means the status begins with "Up"; unhealthy means the health
// suffix reads "(unhealthy)".
func (r *PodmanRuntime) Inspect(ctx context.Context, name string) (Info, error) {
	out, err := r.prober.Run(ctx, r.timeout, "podman", "ps", "-a",
		"--filter", "name=^"+name+"$", "--format", "{{.Status}}")
	if err != nil {
		return Info{}, fmt.Errorf("podman ps failed: %w", err)
	}
	status := strings.TrimSpace(string(out))
	if status == "" {
		return Info{Status: "not found"}, nil
	}
	if i := strings.IndexByte(status, '\n'); i >= 0 {
		status = status[:i]
	}
	return Info{
		Exists:    true,
		Running:   strings.HasPrefix(status, "Up"),
		Unhealthy: strings.Contains(status, "unhealthy"),
		Status:    status,
	}, nil
}

// Start runs `podman start`.
func (r *PodmanRuntime) Start(ctx context.Context, name string) error {
	if _, err := r.prober.Run(ctx, r.timeout, "podman", "start", name); err != nil {
		return fmt.Errorf("podman start %s: %w", name, err)
	}
	return nil
}

// Restart runs `podman restart`.
func (r *PodmanRuntime) Restart(ctx context.Context, name string) error {
	if _, err := r.prober.Run(ctx, r.timeout, "podman", "restart", name); err != nil {
		return fmt.Errorf("podman restart %s: %w", name, err)
	}
	return nil
}

// Limits reads NanoCpus and Memory from the container's host config.
func (r *PodmanRuntime) Limits(ctx context.Context, name string) (Limits, error) {
	out, err := r.prober.Run(ctx, r.timeout, "podman", "inspect",
		"--format", "{{.HostConfig.NanoCpus}} {{.HostConfig.Memory}}", name)
	if err != nil {
		return Limits{}, fmt.Errorf("podman inspect %s: %w", name, err)
	}
	fields := strings.Fields(string(out))
	if len(fields) != 2 {
		return Limits{}, fmt.Errorf("unexpected podman inspect output %q", strings.TrimSpace(string(out)))
	}
	nano, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Limits{}, fmt.Errorf("parse NanoCpus: %w", err)
	}
	memory, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return Limits{}, fmt.Errorf("parse Memory: %w", err)
	}
	return Limits{CPUs: float64(nano) / 1e9, MemoryBytes: memory}, nil
}

// Close is a no-op.
func (r *PodmanRuntime) Close() error { return nil }

var _ Runtime = (*PodmanRuntime)(nil)
