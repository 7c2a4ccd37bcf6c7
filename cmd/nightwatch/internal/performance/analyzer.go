// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package performance takes one latency sample and one host usage sample.
// There is no averaging; the run happens once a night.
package performance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/probe"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/state"
)

// ErrNoStatusURL is returned when no status endpoint is configured.
var ErrNoStatusURL = errors.New("no status endpoint configured")

// DefaultCPUInterval is how long the CPU sample observes the host.
const DefaultCPUInterval = 500 * time.Millisecond

// Analyzer samples latency and resource usage.
type Analyzer struct {
	statusURL   string
	diskPath    string
	timeout     time.Duration
	cpuInterval time.Duration
	prober      probe.Prober
	sampler     probe.HostSampler
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(statusURL, diskPath string, timeout time.Duration, prober probe.Prober, sampler probe.HostSampler) *Analyzer {
	if diskPath == "" {
		diskPath = "/"
	}
	return &Analyzer{
		statusURL:   statusURL,
		diskPath:    diskPath,
		timeout:     timeout,
		cpuInterval: DefaultCPUInterval,
		prober:      prober,
		sampler:     sampler,
	}
}

// Analyze returns a single sample. Any failed measurement fails the whole
// sample; callers treat that as "no performance data", not as a problem.
func (a *Analyzer) Analyze(ctx context.Context) (*state.PerformanceSample, error) {
	latency, err := a.Latency(ctx)
	if err != nil {
		return nil, err
	}
	cpu, err := a.sampler.CPUPercent(ctx, a.cpuInterval)
	if err != nil {
		return nil, err
	}
	disk, err := a.sampler.DiskUsedPercent(ctx, a.diskPath)
	if err != nil {
		return nil, err
	}
	return &state.PerformanceSample{
		ResponseTimeMs: latency.Milliseconds(),
		ResourceUsage:  state.ResourceUsage{CPU: cpu, Disk: disk},
	}, nil
}

// Latency measures one GET round trip to the status endpoint.
func (a *Analyzer) Latency(ctx context.Context) (time.Duration, error) {
	if a.statusURL == "" {
		return 0, ErrNoStatusURL
	}
	resp, err := a.prober.HTTPGet(ctx, a.timeout, a.statusURL)
	if err != nil {
		return 0, fmt.Errorf("latency sample: %w", err)
	}
	return resp.Elapsed, nil
}
