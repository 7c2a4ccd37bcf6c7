// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, 5, cfg.Run.MaxIterations)
	assert.Equal(t, time.Second, cfg.Run.SlowResponseThreshold)
	assert.Equal(t, "podman", cfg.Inventory.ContainerRuntime)
}

func TestLoad_CreatesDefaultWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "nightwatch.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Inventory.Containers, cfg.Inventory.Containers)

	_, err = os.Stat(path)
	require.NoError(t, err, "default config should have been written")

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestParse_OverlaysDefaults(t *testing.T) {
	data := []byte(`
run:
  max_iterations: 3
  settle_interval: 0s
inventory:
  container_runtime: docker
  containers: [api, db]
  services:
    - name: api
      kind: http
      endpoint: http://localhost:8080/health
      container: api
`)
	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Run.MaxIterations)
	assert.Equal(t, time.Duration(0), cfg.Run.SettleInterval)
	assert.Equal(t, 5*time.Second, cfg.Run.ProbeTimeout, "unset fields keep defaults")
	assert.Equal(t, "docker", cfg.Inventory.ContainerRuntime)
	assert.Equal(t, []string{"api", "db"}, cfg.Inventory.Containers)
	require.Len(t, cfg.Inventory.Services, 1)
	assert.Equal(t, "api", cfg.Inventory.Services[0].Container)
}

func TestParse_RejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"zero iterations": "run:\n  max_iterations: 0\n",
		"unknown runtime": "inventory:\n  container_runtime: lxc\n",
		"unknown kind":    "inventory:\n  services:\n    - {name: x, kind: smtp, endpoint: localhost:25}\n",
		"gcs incomplete":  "report:\n  gcs:\n    enabled: true\n",
		"bad yaml":        "run: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("NIGHTWATCH_MAX_ITERATIONS", "2")
	t.Setenv("NIGHTWATCH_REPORT_DIR", "/tmp/nw-reports")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")

	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Run.MaxIterations)
	assert.Equal(t, "/tmp/nw-reports", cfg.Report.Dir)
	assert.Equal(t, "collector:4317", cfg.Telemetry.OTLPEndpoint)
}
