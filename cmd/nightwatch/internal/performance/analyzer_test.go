// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package performance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/probe"
)

func TestAnalyze(t *testing.T) {
	prober := &probe.MockProber{
		HTTPGetFunc: func(ctx context.Context, url string) (*probe.HTTPResponse, error) {
			return &probe.HTTPResponse{StatusCode: 200, Body: []byte("ok"), Elapsed: 1500 * time.Millisecond}, nil
		},
	}
	sampler := &probe.MockHostSampler{CPU: 37.5, Disk: 81.2}

	sample, err := NewAnalyzer("http://localhost:12210/health", "", time.Second, prober, sampler).Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1500), sample.ResponseTimeMs)
	assert.Equal(t, 37.5, sample.ResourceUsage.CPU)
	assert.Equal(t, 81.2, sample.ResourceUsage.Disk)
}

func TestAnalyze_FailuresLeaveNoSample(t *testing.T) {
	okProber := &probe.MockProber{
		HTTPGetFunc: func(ctx context.Context, url string) (*probe.HTTPResponse, error) {
			return &probe.HTTPResponse{StatusCode: 200, Body: []byte("ok")}, nil
		},
	}
	downProber := &probe.MockProber{
		HTTPGetFunc: func(ctx context.Context, url string) (*probe.HTTPResponse, error) {
			return nil, errors.New("connection refused")
		},
	}

	tests := map[string]*Analyzer{
		"endpoint down": NewAnalyzer("http://localhost:1", "/", time.Second, downProber, &probe.MockHostSampler{}),
		"cpu failed":    NewAnalyzer("http://localhost:1", "/", time.Second, okProber, &probe.MockHostSampler{CPUErr: errors.New("x")}),
		"disk failed":   NewAnalyzer("http://localhost:1", "/", time.Second, okProber, &probe.MockHostSampler{DiskErr: errors.New("x")}),
		"no url":        NewAnalyzer("", "/", time.Second, okProber, &probe.MockHostSampler{}),
	}
	for name, a := range tests {
		t.Run(name, func(t *testing.T) {
			sample, err := a.Analyze(context.Background())
			assert.Error(t, err)
			assert.Nil(t, sample)
		})
	}
}
