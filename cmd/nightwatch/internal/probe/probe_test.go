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
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// SSRF Guard
// =============================================================================

func TestIsURLSafe(t *testing.T) {
	tests := []struct {
		url     string
		blocked bool
		invalid bool
	}{
		{"http://localhost:12210/health", false, false},
		{"http://127.0.0.1:8080", false, false},
		{"http://10.0.0.5/health", false, false},
		{"http://weaviate:8080/v1/.well-known/ready", false, false},
		{"tcp://172.17.0.2:5432", false, false},
		{"http://169.254.169.254/latest/meta-data", true, false},
		{"http://169.254.10.1/", true, false},
		{"http:///nohost", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := IsURLSafe(tt.url)
			switch {
			case tt.blocked:
				assert.ErrorIs(t, err, ErrSSRFBlocked)
			case tt.invalid:
				assert.Error(t, err)
				assert.False(t, errors.Is(err, ErrSSRFBlocked))
			default:
				assert.NoError(t, err)
			}
		})
	}
}

// =============================================================================
// DefaultProber
// =============================================================================

func TestDefaultProber_HTTPGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	resp, err := NewDefaultProber().HTTPGet(context.Background(), time.Second, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"status":"ok"}`, string(resp.Body))
	assert.Greater(t, resp.Elapsed, time.Duration(0))
}

func TestDefaultProber_HTTPGetTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := NewDefaultProber().HTTPGet(context.Background(), 50*time.Millisecond, srv.URL)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestDefaultProber_HTTPGetBlocked(t *testing.T) {
	_, err := NewDefaultProber().HTTPGet(context.Background(), time.Second, "http://169.254.169.254/")
	assert.ErrorIs(t, err, ErrSSRFBlocked)
}

func TestDefaultProber_TCPConnect(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	p := NewDefaultProber()
	_, err = p.TCPConnect(context.Background(), time.Second, ln.Addr().String())
	assert.NoError(t, err)

	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	_, err = p.TCPConnect(context.Background(), time.Second, addr)
	assert.Error(t, err)
}

func TestDefaultProber_RunMissingBinary(t *testing.T) {
	_, err := NewDefaultProber().Run(context.Background(), time.Second, "nightwatch-definitely-not-installed")
	assert.Error(t, err)
}

func TestDefaultProber_CommandVersion(t *testing.T) {
	p := NewDefaultProber()
	if _, err := p.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	v, err := p.CommandVersion(context.Background(), time.Second, "sh", "-c", "printf '\\nshell 1.2\\nextra\\n'")
	require.NoError(t, err)
	assert.Equal(t, "shell 1.2", v)
}

// =============================================================================
// CheckError
// =============================================================================

func TestCheckError(t *testing.T) {
	cause := errors.New("exec: \"sh\": executable file not found in $PATH")
	err := &CheckError{
		Type:        CheckErrorShellMissing,
		Message:     "no shell available",
		Detail:      cause.Error(),
		Remediation: "Install a POSIX shell",
		Err:         ErrHostUnusable,
	}

	assert.Equal(t, "no shell available", err.Error())
	assert.ErrorIs(t, err, ErrHostUnusable)
	assert.True(t, strings.Contains(err.FullError(), "To fix:"))
	assert.Equal(t, "SHELL_MISSING", err.Type.String())
}

func TestMockProber_RecordsCalls(t *testing.T) {
	m := &MockProber{
		RunFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return []byte("ok"), nil
		},
	}
	_, _ = m.Run(context.Background(), time.Second, "podman", "ps")
	_, _ = m.Run(context.Background(), time.Second, "podman", "start", "db")

	calls := m.CallsTo("Run")
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"start", "db"}, calls[1].Args)

	m.Reset()
	assert.Empty(t, m.GetCalls())
}
