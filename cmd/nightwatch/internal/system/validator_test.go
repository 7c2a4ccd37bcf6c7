// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package system

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/nightwatch/cmd/nightwatch/config"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/probe"
	"github.com/AleutianAI/nightwatch/pkg/logging"
)

func testConfig() config.SystemConfig {
	return config.SystemConfig{
		Shell: "sh",
		Runtimes: []config.RuntimeConfig{
			{Name: "podman", Command: "podman", Args: []string{"--version"}, Required: true},
			{Name: "git", Command: "git", Args: []string{"--version"}},
		},
		ModelServerURL: "http://localhost:11434/api/version",
		DiskPath:       "/",
	}
}

func TestValidate_AllPresent(t *testing.T) {
	prober := &probe.MockProber{
		LookPathFunc: func(name string) (string, error) { return "/bin/" + name, nil },
		CommandVersionFunc: func(ctx context.Context, name string, args ...string) (string, error) {
			return name + " version 1.0", nil
		},
		HTTPGetFunc: func(ctx context.Context, url string) (*probe.HTTPResponse, error) {
			return &probe.HTTPResponse{StatusCode: 200, Body: []byte(`{"version":"0.5"}`)}, nil
		},
	}
	sampler := &probe.MockHostSampler{Disk: 42.5, Available: 2048 * bytesPerMB, Total: 8192 * bytesPerMB}

	v := NewValidator(testConfig(), time.Second, prober, sampler, logging.Nop())
	status, err := v.Validate(context.Background())
	require.NoError(t, err)

	assert.True(t, status.Runtimes["podman"].Present)
	assert.True(t, status.Runtimes["podman"].Required)
	assert.Equal(t, "git version 1.0", status.Runtimes["git"].Version)
	assert.True(t, status.ModelServerReachable)
	assert.Equal(t, 42.5, status.DiskUsedPercent)
	assert.Equal(t, uint64(2048), status.MemoryFreeMB)
	assert.Equal(t, uint64(8192), status.MemoryTotalMB)
	assert.Empty(t, status.Notes)
}

func TestValidate_DegradesWithoutFailing(t *testing.T) {
	prober := &probe.MockProber{
		LookPathFunc: func(name string) (string, error) { return "/bin/sh", nil },
		CommandVersionFunc: func(ctx context.Context, name string, args ...string) (string, error) {
			return "", errors.New("executable file not found")
		},
		HTTPGetFunc: func(ctx context.Context, url string) (*probe.HTTPResponse, error) {
			return nil, errors.New("connection refused")
		},
	}
	sampler := &probe.MockHostSampler{DiskErr: errors.New("no such path"), MemErr: errors.New("denied")}

	v := NewValidator(testConfig(), time.Second, prober, sampler, logging.Nop())
	status, err := v.Validate(context.Background())
	require.NoError(t, err)

	assert.False(t, status.Runtimes["podman"].Present)
	assert.NotEmpty(t, status.Runtimes["podman"].Error)
	assert.False(t, status.ModelServerReachable)
	assert.Len(t, status.Notes, 4, "required runtime, model server, disk, memory")
}

func TestValidate_MissingShellIsFatal(t *testing.T) {
	prober := &probe.MockProber{
		LookPathFunc: func(name string) (string, error) { return "", errors.New("not found") },
	}

	v := NewValidator(testConfig(), time.Second, prober, &probe.MockHostSampler{}, logging.Nop())
	status, err := v.Validate(context.Background())

	assert.Nil(t, status)
	require.Error(t, err)
	assert.ErrorIs(t, err, probe.ErrHostUnusable)

	var checkErr *probe.CheckError
	require.True(t, errors.As(err, &checkErr))
	assert.Equal(t, probe.CheckErrorShellMissing, checkErr.Type)
	assert.Empty(t, prober.CallsTo("CommandVersion"), "no probes after the shell check fails")
}
