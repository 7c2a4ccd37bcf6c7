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
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
)

// dockerAPI is the subset of the Engine API client DockerRuntime uses.
type dockerAPI interface {
	ContainerInspect(ctx context.Context, containerID string) (types.ContainerJSON, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerRestart(ctx context.Context, containerID string, options container.StopOptions) error
	Close() error
}

// DockerRuntime drives the Docker Engine API.
type DockerRuntime struct {
	api     dockerAPI
	timeout time.Duration
}

// NewDockerRuntime connects using DOCKER_HOST and friends from the
// environment, with API version negotiation. host overrides DOCKER_HOST.
func NewDockerRuntime(host string, timeout time.Duration) (*DockerRuntime, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &DockerRuntime{api: cli, timeout: timeout}, nil
}

// Name returns "docker".
func (r *DockerRuntime) Name() string { return "docker" }

// Inspect reads State from ContainerInspect. A missing container is not
// an error.
func (r *DockerRuntime) Inspect(ctx context.Context, name string) (Info, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.api.ContainerInspect(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return Info{Status: "not found"}, nil
		}
		return Info{}, fmt.Errorf("container inspect: %w", err)
	}
	if resp.ContainerJSONBase == nil || resp.State == nil {
		return Info{Exists: true, Status: "unknown"}, nil
	}

	info := Info{Exists: true, Running: resp.State.Running, Status: resp.State.Status}
	if resp.State.Health != nil && resp.State.Health.Status != "" {
		info.Status = fmt.Sprintf("%s (%s)", resp.State.Status, resp.State.Health.Status)
		info.Unhealthy = resp.State.Health.Status == "unhealthy"
	}
	return info, nil
}

// Start calls ContainerStart.
func (r *DockerRuntime) Start(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.api.ContainerStart(ctx, name, container.StartOptions{}); err != nil {
		return fmt.Errorf("container start %s: %w", name, err)
	}
	return nil
}

// Restart calls ContainerRestart with the container's own stop timeout.
func (r *DockerRuntime) Restart(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.api.ContainerRestart(ctx, name, container.StopOptions{}); err != nil {
		return fmt.Errorf("container restart %s: %w", name, err)
	}
	return nil
}

// Limits reads NanoCPUs and Memory from the container's HostConfig.
func (r *DockerRuntime) Limits(ctx context.Context, name string) (Limits, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.api.ContainerInspect(ctx, name)
	if err != nil {
		return Limits{}, fmt.Errorf("container inspect: %w", err)
	}
	if resp.ContainerJSONBase == nil || resp.HostConfig == nil {
		return Limits{}, nil
	}
	return Limits{
		CPUs:        float64(resp.HostConfig.NanoCPUs) / 1e9,
		MemoryBytes: resp.HostConfig.Memory,
	}, nil
}

// Close releases the API client.
func (r *DockerRuntime) Close() error {
	return r.api.Close()
}

var _ Runtime = (*DockerRuntime)(nil)
