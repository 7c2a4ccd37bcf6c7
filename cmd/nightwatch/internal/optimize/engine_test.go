// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package optimize

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/containers"
	"github.com/AleutianAI/nightwatch/pkg/logging"
)

func TestCatalogue_Complete(t *testing.T) {
	var components []string
	for _, p := range Catalogue() {
		components = append(components, p.Component)
		assert.NotEmpty(t, p.Improvement, p.Component)
		assert.NotEmpty(t, p.After, p.Component)
		assert.NotEmpty(t, p.Impact, p.Component)
	}
	assert.Equal(t, []string{ComponentContainers, ComponentDatastore, ComponentCache, ComponentAPI}, components)
}

func TestEngine_Run(t *testing.T) {
	snapshots := map[string]Snapshotter{
		ComponentCache: SnapshotFunc(func(ctx context.Context) (string, error) {
			return "maxmemory-policy=noeviction maxmemory=0", nil
		}),
		ComponentDatastore: SnapshotFunc(func(ctx context.Context) (string, error) {
			return "", errors.New("connection refused")
		}),
		ComponentAPI: APILatency(func(ctx context.Context) (time.Duration, error) {
			return 230 * time.Millisecond, nil
		}),
	}

	results := NewEngine(snapshots, time.Second, logging.Nop()).Run(context.Background())
	require.Len(t, results, 4)

	for _, r := range results {
		assert.True(t, r.Automated, r.Component)
	}
	assert.Equal(t, "not captured", results[0].Before)
	assert.Equal(t, "unavailable: connection refused", results[1].Before)
	assert.Equal(t, "maxmemory-policy=noeviction maxmemory=0", results[2].Before)
	assert.Equal(t, "response time 230ms", results[3].Before)
}

func TestContainerLimits(t *testing.T) {
	rt := containers.NewFakeRuntime(map[string]containers.Info{})
	rt.LimitsByName["db"] = containers.Limits{CPUs: 1.5, MemoryBytes: 512 << 20}

	got, err := ContainerLimits(rt, []string{"db", "api"}).Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "db: 1.50 cpu / 512MiB; api: unlimited cpu / unlimited memory", got)

	_, err = ContainerLimits(rt, nil).Snapshot(context.Background())
	assert.Error(t, err)
}

func TestRedisPolicy_InvalidURL(t *testing.T) {
	_, err := RedisPolicy("::bad").Snapshot(context.Background())
	assert.Error(t, err)
}
