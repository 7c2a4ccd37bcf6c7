// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package security

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/nightwatch/cmd/nightwatch/config"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/probe"
	"github.com/AleutianAI/nightwatch/pkg/logging"
)

func TestParseOutdated(t *testing.T) {
	goOut := []byte(`github.com/AleutianAI/nightwatch
github.com/gin-gonic/gin v1.10.0 [v1.11.0]
golang.org/x/net v0.46.0
gopkg.in/yaml.v3 v3.0.0 [v3.0.1]
example.com/pinned v1.4.0 [v1.3.9]
not a module v1 [v2]
`)
	assert.Equal(t, []string{
		"github.com/gin-gonic/gin v1.10.0 -> v1.11.0",
		"gopkg.in/yaml.v3 v3.0.0 -> v3.0.1",
	}, ParseOutdated(goOut, "go"))

	assert.Equal(t, []string{"requests==2.31.0", "numpy==1.26.0"},
		ParseOutdated([]byte("requests==2.31.0\n\nnumpy==1.26.0\n"), "lines"))

	assert.Empty(t, ParseOutdated(nil, "go"))
}

func TestAudit_Permissions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("X=1"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "compose.yml"), []byte("x"), 0o644))
	shared := filepath.Join(dir, "shared.yaml")
	require.NoError(t, os.WriteFile(shared, []byte("x"), 0o644))
	require.NoError(t, os.Chmod(shared, 0o666))

	prober := &probe.MockProber{
		RunFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return nil, nil
		},
	}
	cfg := config.SecurityConfig{OutdatedCommand: []string{"go", "list", "-m", "-u", "all"}, OutdatedFormat: "go", WorkDir: dir}
	a := NewAuditor(cfg, []string{".env", "compose.yml", "shared.yaml", "missing.key"}, time.Second, prober, logging.Nop())

	findings := a.Audit(context.Background())
	assert.Empty(t, findings.OutdatedPackages, "no output means nothing outdated")
	assert.NotNil(t, findings.OutdatedPackages)
	assert.Equal(t, map[string]string{
		".env":        "0600",
		"compose.yml": "0644",
		"shared.yaml": "0666",
	}, findings.Permissions)
	assert.Equal(t, []string{"shared.yaml"}, findings.WorldWritable)

	calls := prober.CallsTo("Run")
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"-C", dir, "list", "-m", "-u", "all"}, calls[0].Args)
}

func TestAudit_CommandFailureIsAdvisory(t *testing.T) {
	prober := &probe.MockProber{
		RunFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return nil, errors.New("go: not found")
		},
	}
	a := NewAuditor(config.SecurityConfig{OutdatedCommand: []string{"go", "list"}}, nil, time.Second, prober, logging.Nop())

	findings := a.Audit(context.Background())
	assert.Empty(t, findings.OutdatedPackages)
	assert.Empty(t, findings.Permissions)
}
