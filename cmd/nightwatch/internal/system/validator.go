// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package system checks that the host can run the rest of the pipeline:
// required runtimes are installed, the model server answers and there is
// disk and memory to work with.
package system

import (
	"context"
	"fmt"
	"time"

	"github.com/AleutianAI/nightwatch/cmd/nightwatch/config"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/probe"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/state"
	"github.com/AleutianAI/nightwatch/pkg/logging"
)

const bytesPerMB = 1024 * 1024

// Validator checks runtimes and host resources.
type Validator struct {
	cfg     config.SystemConfig
	timeout time.Duration
	prober  probe.Prober
	sampler probe.HostSampler
	logger  *logging.Logger
}

// NewValidator creates a Validator. timeout bounds each individual probe.
func NewValidator(cfg config.SystemConfig, timeout time.Duration, prober probe.Prober, sampler probe.HostSampler, logger *logging.Logger) *Validator {
	return &Validator{cfg: cfg, timeout: timeout, prober: prober, sampler: sampler, logger: logger}
}

// Validate probes every configured runtime, the model server, disk and
// memory.
//
// # Description
//
// A missing runtime, an unreachable model server or a failed resource
// sample is recorded on the returned status and logged; none of them fail
// the check. The model server in particular may come up later in the run.
//
// # Outputs
//
//   - *state.ResourceStatus: Always non-nil when err is nil.
//   - error: A *probe.CheckError wrapping probe.ErrHostUnusable when the
//     configured shell cannot be found. Probes cannot run at all then.
func (v *Validator) Validate(ctx context.Context) (*state.ResourceStatus, error) {
	shell := v.cfg.Shell
	if shell == "" {
		shell = "sh"
	}
	if _, err := v.prober.LookPath(shell); err != nil {
		return nil, &probe.CheckError{
			Type:        probe.CheckErrorShellMissing,
			Message:     fmt.Sprintf("shell %q not found; host probes cannot run", shell),
			Detail:      err.Error(),
			Remediation: "Install a POSIX shell or set system.shell in nightwatch.yaml",
			Err:         probe.ErrHostUnusable,
		}
	}

	status := &state.ResourceStatus{Runtimes: make(map[string]state.RuntimeStatus, len(v.cfg.Runtimes))}

	for _, rt := range v.cfg.Runtimes {
		rs := state.RuntimeStatus{Required: rt.Required}
		version, err := v.prober.CommandVersion(ctx, v.timeout, rt.Command, rt.Args...)
		if err != nil {
			rs.Error = err.Error()
			if rt.Required {
				v.logger.Warn("required runtime missing", "runtime", rt.Name, "error", err)
				status.Notes = append(status.Notes, (&probe.CheckError{
					Type:    probe.CheckErrorRuntimeMissing,
					Message: fmt.Sprintf("required runtime %s unavailable", rt.Name),
				}).Error())
			} else {
				v.logger.Debug("optional runtime missing", "runtime", rt.Name, "error", err)
			}
		} else {
			rs.Present = true
			rs.Version = version
		}
		status.Runtimes[rt.Name] = rs
	}

	if v.cfg.ModelServerURL != "" {
		resp, err := v.prober.HTTPGet(ctx, v.timeout, v.cfg.ModelServerURL)
		switch {
		case err != nil:
			v.logger.Warn("model server unreachable", "url", v.cfg.ModelServerURL, "error", err)
			status.Notes = append(status.Notes, "model server unreachable: "+err.Error())
		case resp.StatusCode >= 500:
			status.Notes = append(status.Notes, fmt.Sprintf("model server returned HTTP %d", resp.StatusCode))
		default:
			status.ModelServerReachable = true
		}
	}

	diskPath := v.cfg.DiskPath
	if diskPath == "" {
		diskPath = "/"
	}
	if pct, err := v.sampler.DiskUsedPercent(ctx, diskPath); err != nil {
		v.logger.Warn("disk sample failed", "path", diskPath, "error", err)
		status.Notes = append(status.Notes, err.Error())
	} else {
		status.DiskUsedPercent = pct
	}

	if avail, total, err := v.sampler.Memory(ctx); err != nil {
		v.logger.Warn("memory sample failed", "error", err)
		status.Notes = append(status.Notes, err.Error())
	} else {
		status.MemoryFreeMB = avail / bytesPerMB
		status.MemoryTotalMB = total / bytesPerMB
	}

	return status, nil
}
