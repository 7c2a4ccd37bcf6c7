// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostSampler reads host resource usage.
type HostSampler interface {
	// CPUPercent samples total CPU usage over interval.
	CPUPercent(ctx context.Context, interval time.Duration) (float64, error)

	// DiskUsedPercent returns used space on the filesystem holding path.
	DiskUsedPercent(ctx context.Context, path string) (float64, error)

	// Memory returns available and total memory in bytes.
	Memory(ctx context.Context) (available, total uint64, err error)
}

// GopsutilSampler implements HostSampler with gopsutil.
type GopsutilSampler struct{}

// NewGopsutilSampler returns a GopsutilSampler.
func NewGopsutilSampler() *GopsutilSampler {
	return &GopsutilSampler{}
}

// CPUPercent returns combined usage across all CPUs.
func (s *GopsutilSampler) CPUPercent(ctx context.Context, interval time.Duration) (float64, error) {
	percents, err := cpu.PercentWithContext(ctx, interval, false)
	if err != nil {
		return 0, fmt.Errorf("failed to sample cpu: %w", err)
	}
	if len(percents) == 0 {
		return 0, fmt.Errorf("no cpu samples returned")
	}
	return percents[0], nil
}

// DiskUsedPercent returns the used percentage of path's filesystem.
func (s *GopsutilSampler) DiskUsedPercent(ctx context.Context, path string) (float64, error) {
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("failed to read disk usage for %s: %w", path, err)
	}
	return usage.UsedPercent, nil
}

// Memory returns virtual memory availability.
func (s *GopsutilSampler) Memory(ctx context.Context) (uint64, uint64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read memory: %w", err)
	}
	return vm.Available, vm.Total, nil
}

var (
	_ HostSampler = (*GopsutilSampler)(nil)
	_ HostSampler = (*MockHostSampler)(nil)
)
