// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/state"
	"github.com/AleutianAI/nightwatch/pkg/logging"
)

func newTestManager(t *testing.T) *BadgerManager {
	t.Helper()
	m, err := NewBadgerManager(StoreConfig{InMemory: true}, logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	clock := time.Date(2025, 3, 1, 2, 0, 0, 0, time.UTC)
	m.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return m
}

func TestBadgerManager_CreateAndList(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	first, err := m.CreateAlert(ctx, TypePhaseFailure, state.SeverityHigh, "Phase failed", "boom",
		"nightwatch/container-health", map[string]string{"phase": "container-health"})
	require.NoError(t, err)
	second, err := m.CreateAlert(ctx, TypeHealthDegraded, state.SeverityMedium, "Health 55", "below 70",
		"nightwatch", nil)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	all, err := m.ListAlerts(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first, all[0].ID, "oldest first")
	assert.Equal(t, "container-health", all[0].Metadata["phase"])
	assert.Equal(t, state.SeverityHigh, all[0].Severity)
	assert.False(t, all[0].Resolved)
}

func TestBadgerManager_ResolveAlert(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	id, err := m.CreateAlert(ctx, TypePhaseFailure, state.SeverityHigh, "t", "m", "nightwatch/x", nil)
	require.NoError(t, err)

	ok, err := m.ResolveAlert(ctx, id, "restarted")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.ResolveAlert(ctx, id, "again")
	require.NoError(t, err)
	assert.False(t, ok, "already resolved")

	_, err = m.ResolveAlert(ctx, "missing", "x")
	assert.ErrorIs(t, err, ErrAlertNotFound)

	active, err := m.ListAlerts(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := m.ListAlerts(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "restarted", all[0].Resolution)
	require.NotNil(t, all[0].ResolvedAt)
}

func TestBadgerManager_ResolveSource(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	for i := 0; i < 2; i++ {
		_, err := m.CreateAlert(ctx, TypePhaseFailure, state.SeverityHigh, "t", "m", "nightwatch/a", nil)
		require.NoError(t, err)
	}
	_, err := m.CreateAlert(ctx, TypePhaseFailure, state.SeverityHigh, "t", "m", "nightwatch/b", nil)
	require.NoError(t, err)

	n, err := m.ResolveSource(ctx, "nightwatch/a", "phase completed")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = m.ResolveSource(ctx, "nightwatch/a", "phase completed")
	require.NoError(t, err)
	assert.Zero(t, n)

	active, err := m.ListAlerts(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "nightwatch/b", active[0].Source)
}

func TestBadgerManager_Persists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	m, err := NewBadgerManager(StoreConfig{Dir: dir}, nil)
	require.NoError(t, err)
	id, err := m.CreateAlert(ctx, TypePhaseFailure, state.SeverityHigh, "t", "m", "s", nil)
	require.NoError(t, err)
	require.NoError(t, m.Close())

	m, err = NewBadgerManager(StoreConfig{Dir: dir}, nil)
	require.NoError(t, err)
	defer m.Close()

	all, err := m.ListAlerts(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, id, all[0].ID)
}

func TestBadgerManager_RequiresDir(t *testing.T) {
	_, err := NewBadgerManager(StoreConfig{}, nil)
	assert.Error(t, err)
}

func TestBadgerManager_CancelledContext(t *testing.T) {
	m := newTestManager(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.CreateAlert(ctx, TypePhaseFailure, state.SeverityHigh, "t", "m", "s", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNopManager(t *testing.T) {
	var m Manager = NopManager{}
	ctx := context.Background()

	id, err := m.CreateAlert(ctx, TypePhaseFailure, state.SeverityHigh, "t", "m", "s", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = m.ResolveAlert(ctx, id, "x")
	assert.ErrorIs(t, err, ErrAlertNotFound)

	list, err := m.ListAlerts(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, list)
}
