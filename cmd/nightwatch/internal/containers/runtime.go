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
Package containers checks the declared containers and starts or restarts
them when asked.

Two engines are supported behind the Runtime interface: podman, driven
through its CLI, and docker, driven through the Engine API.
*/
package containers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/probe"
)

// ErrUnsupportedRuntime is returned by NewRuntime for an unknown engine.
var ErrUnsupportedRuntime = errors.New("unsupported container runtime")

// Info is the engine's view of one container.
type Info struct {
	Exists    bool
	Running   bool
	Unhealthy bool
	// Status is the engine's human-readable status, e.g. "Up 2 hours (healthy)".
	Status string
}

// Limits is the resource allocation of a container. Zero means unlimited.
type Limits struct {
	CPUs        float64
	MemoryBytes int64
}

// Runtime is a container engine.
type Runtime interface {
	Name() string
	Inspect(ctx context.Context, name string) (Info, error)
	Start(ctx context.Context, name string) error
	Restart(ctx context.Context, name string) error
	Limits(ctx context.Context, name string) (Limits, error)
	Close() error
}

// NewRuntime builds the Runtime for kind ("podman" or "docker").
// dockerHost overrides DOCKER_HOST when non-empty.
func NewRuntime(kind string, prober probe.Prober, timeout time.Duration, dockerHost string) (Runtime, error) {
	switch kind {
	case "", "podman":
		return NewPodmanRuntime(prober, timeout), nil
	case "docker":
		return NewDockerRuntime(dockerHost, timeout)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRuntime, kind)
	}
}
