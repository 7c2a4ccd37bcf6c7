// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/alerts"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/pipeline"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/report"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/state"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/telemetry"
	"github.com/AleutianAI/nightwatch/pkg/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRunner struct {
	busy    bool
	actions []state.Action
	resp    pipeline.Response
}

func (f *fakeRunner) TryRunAction(_ context.Context, action state.Action) (pipeline.Response, error) {
	if f.busy {
		return pipeline.Response{}, pipeline.ErrRunInProgress
	}
	f.actions = append(f.actions, action)
	resp := f.resp
	resp.Action = action
	return resp, nil
}

type testServer struct {
	router  *gin.Engine
	runner  *fakeRunner
	alerts  *alerts.BadgerManager
	dir     string
	metrics *telemetry.PrometheusRunMetrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	manager, err := alerts.NewBadgerManager(alerts.StoreConfig{InMemory: true}, logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })

	runner := &fakeRunner{resp: pipeline.Response{
		Success: true, Phases: 9, Optimizations: 4, Iterations: 1, TotalDurationMs: 1200, SystemHealth: 100,
	}}
	metrics := telemetry.NewPrometheusRunMetrics()
	dir := t.TempDir()

	router := NewRouter("nightwatch-test", &Handlers{
		Runner:    runner,
		Alerts:    manager,
		ReportDir: dir,
		Gatherer:  metrics.Gatherer(),
		Logger:    logging.Nop(),
	})
	return &testServer{router: router, runner: runner, alerts: manager, dir: dir, metrics: metrics}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := newTestServer(t).do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestRun(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/v1/run/validate", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(9), body["phases"])
	assert.Equal(t, float64(4), body["optimizations"])
	assert.Equal(t, float64(1), body["iterations"])
	assert.Equal(t, float64(1200), body["totalDuration"])
	assert.Equal(t, float64(100), body["systemHealth"])
	assert.Equal(t, []state.Action{state.ActionValidate}, s.runner.actions)
}

func TestRun_UnknownAction(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodPost, "/v1/run/reboot", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, s.runner.actions)
}

func TestRun_Busy(t *testing.T) {
	s := newTestServer(t)
	s.runner.busy = true
	w := s.do(http.MethodPost, "/v1/run/startup", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRun_TopLevelFailure(t *testing.T) {
	s := newTestServer(t)
	s.runner.resp = pipeline.Response{Success: false, Phases: 3, Error: "unexpected failure: boom"}
	w := s.do(http.MethodPost, "/v1/run/optimize", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
	assert.Contains(t, w.Body.String(), `"phases":3`)
}

func TestLatestReport(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/v1/report/latest", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	rep := &state.StartupReport{
		Timestamp:       time.Now().UTC().Format(report.TimestampFormat),
		SystemHealth:    85,
		Recommendations: []string{"Container db is not running; inspect its logs and restart it"},
	}
	_, err := report.NewPublisher(report.NewFileSink(s.dir), logging.Nop()).Publish(context.Background(), rep)
	require.NoError(t, err)

	w = s.do(http.MethodGet, "/v1/report/latest", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got state.StartupReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 85, got.SystemHealth)
}

func TestAlerts(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	id, err := s.alerts.CreateAlert(ctx, alerts.TypePhaseFailure, state.SeverityHigh, "Phase failed", "x", "nightwatch/a", nil)
	require.NoError(t, err)
	_, err = s.alerts.CreateAlert(ctx, alerts.TypeHealthDegraded, state.SeverityMedium, "Health", "y", "nightwatch", nil)
	require.NoError(t, err)

	w := s.do(http.MethodGet, "/v1/alerts?active=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":2`)

	w = s.do(http.MethodPost, "/v1/alerts/"+id+"/resolve", `{"resolution":"restarted by operator"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"resolved":true`)

	w = s.do(http.MethodGet, "/v1/alerts?active=true", "")
	assert.Contains(t, w.Body.String(), `"count":1`)

	w = s.do(http.MethodGet, "/v1/alerts", "")
	assert.Contains(t, w.Body.String(), `"count":2`)

	w = s.do(http.MethodPost, "/v1/alerts/missing/resolve", `{"resolution":"x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/v1/alerts/"+id+"/resolve", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t)
	s.metrics.RecordRun(telemetry.RunSummary{Action: "startup", Success: true, Health: 77, Timestamp: time.Now()})

	w := s.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "nightwatch_system_health 77")
}
