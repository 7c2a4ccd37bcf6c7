// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package probe abstracts the external checks nightwatch performs: spawning a
version command, issuing an HTTP GET, opening a TCP connection and sampling
host resources.

Every checker in the pipeline goes through a Prober rather than calling
os/exec or net/http directly, so tests substitute MockProber and never start
a real process.

# Timeouts

Every Prober method takes an explicit timeout on top of the caller's
context. A probe that hangs past its timeout returns an error; it is never
allowed to block the run.
*/
package probe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/exec"
	"strings"
	"time"
)

// maxBodyBytes caps how much of an HTTP response body is read.
const maxBodyBytes = 1 << 20

// -----------------------------------------------------------------------------
// Interface Definition
// -----------------------------------------------------------------------------

// Prober performs external checks.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use; the service checker
// probes endpoints in parallel.
type Prober interface {
	// LookPath resolves an executable on PATH.
	LookPath(name string) (string, error)

	// CommandVersion runs a version command (e.g. "podman --version") and
	// returns the first non-empty line of its output.
	CommandVersion(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error)

	// Run executes a command and returns its stdout. Stderr is folded into
	// the error on failure.
	Run(ctx context.Context, timeout time.Duration, name string, args ...string) ([]byte, error)

	// HTTPGet issues a GET and returns the status, body and elapsed time.
	// Non-2xx statuses are not errors; transport failures are.
	HTTPGet(ctx context.Context, timeout time.Duration, url string) (*HTTPResponse, error)

	// TCPConnect opens and immediately closes a TCP connection to address
	// ("host:port"), returning the connect time.
	TCPConnect(ctx context.Context, timeout time.Duration, address string) (time.Duration, error)
}

// HTTPResponse is the outcome of Prober.HTTPGet.
type HTTPResponse struct {
	StatusCode int
	Body       []byte
	Elapsed    time.Duration
}

// -----------------------------------------------------------------------------
// Default Implementation
// -----------------------------------------------------------------------------

// DefaultProber implements Prober with os/exec, net/http and net.
type DefaultProber struct {
	client *http.Client
}

// NewDefaultProber creates a DefaultProber. The HTTP client has no
// timeout of its own; each call applies the timeout it is given.
func NewDefaultProber() *DefaultProber {
	return &DefaultProber{client: &http.Client{}}
}

// LookPath resolves name with exec.LookPath.
func (p *DefaultProber) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// CommandVersion runs name with args and returns the first output line.
func (p *DefaultProber) CommandVersion(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error) {
	out, err := p.Run(ctx, timeout, name, args...)
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line, nil
		}
	}
	return "", fmt.Errorf("%s produced no version output", name)
}

// Run executes a command synchronously under timeout.
func (p *DefaultProber) Run(ctx context.Context, timeout time.Duration, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%s timed out after %s", name, timeout)
		}
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

// HTTPGet performs a GET after checking the URL against the SSRF guard.
func (p *DefaultProber) HTTPGet(ctx context.Context, timeout time.Duration, rawURL string) (*HTTPResponse, error) {
	if err := IsURLSafe(rawURL); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	elapsed := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return &HTTPResponse{StatusCode: resp.StatusCode, Body: body, Elapsed: elapsed}, nil
}

// TCPConnect dials address and closes the connection.
func (p *DefaultProber) TCPConnect(ctx context.Context, timeout time.Duration, address string) (time.Duration, error) {
	if err := IsURLSafe("tcp://" + address); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	start := time.Now()
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return 0, fmt.Errorf("TCP connection failed: %w", err)
	}
	elapsed := time.Since(start)
	_ = conn.Close()
	return elapsed, nil
}

// Compile-time interface compliance check.
var (
	_ Prober = (*DefaultProber)(nil)
	_ Prober = (*MockProber)(nil)
)
