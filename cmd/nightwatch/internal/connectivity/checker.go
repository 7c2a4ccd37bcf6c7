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
Package connectivity checks that every declared service endpoint answers.

Four kinds of endpoint are understood:

  - http: a GET that returns a non-empty body
  - tcp: a connect-and-close to host:port
  - redis: a PING over a redis:// URL
  - postgres: a pool Ping over a postgres:// DSN

Services are probed in parallel. Each probe writes only its own result
slot, and the map handed back to the caller is assembled after every probe
has settled.
*/
package connectivity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/nightwatch/cmd/nightwatch/config"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/probe"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/state"
	"github.com/AleutianAI/nightwatch/pkg/logging"
)

// maxParallelProbes caps concurrent service probes.
const maxParallelProbes = 8

// Checker probes the declared services.
type Checker struct {
	services []config.ServiceConfig
	prober   probe.Prober
	pingers  map[string]Pinger
	timeout  time.Duration
	logger   *logging.Logger
}

// NewChecker creates a Checker. pingers maps a service kind ("redis",
// "postgres") to the Pinger that handles it; nil uses DefaultPingers.
func NewChecker(services []config.ServiceConfig, prober probe.Prober, pingers map[string]Pinger, timeout time.Duration, logger *logging.Logger) *Checker {
	if pingers == nil {
		pingers = DefaultPingers()
	}
	return &Checker{
		services: services,
		prober:   prober,
		pingers:  pingers,
		timeout:  timeout,
		logger:   logger,
	}
}

// Check probes every declared service.
//
// # Description
//
// Unreachable services are recorded with an error string. Check itself
// never fails; a cancelled context shows up as per-service errors.
//
// # Outputs
//
//   - map[string]state.ServiceStatus: One entry per declared service.
func (c *Checker) Check(ctx context.Context) map[string]state.ServiceStatus {
	results := make([]state.ServiceStatus, len(c.services))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelProbes)
	for i, svc := range c.services {
		g.Go(func() error {
			results[i] = c.CheckOne(gctx, svc)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]state.ServiceStatus, len(c.services))
	for i, svc := range c.services {
		out[svc.Name] = results[i]
	}
	return out
}

// CheckOne probes a single service.
func (c *Checker) CheckOne(ctx context.Context, svc config.ServiceConfig) state.ServiceStatus {
	status := state.ServiceStatus{Kind: svc.Kind, Endpoint: svc.Endpoint}

	elapsed, err := c.probe(ctx, svc)
	status.ResponseTimeMs = elapsed.Milliseconds()
	if err != nil {
		status.Error = err.Error()
		c.logger.Warn("service unreachable", "service", svc.Name, "kind", svc.Kind, "error", err)
		return status
	}
	status.Reachable = true
	return status
}

func (c *Checker) probe(ctx context.Context, svc config.ServiceConfig) (time.Duration, error) {
	switch svc.Kind {
	case "", "http":
		resp, err := c.prober.HTTPGet(ctx, c.timeout, svc.Endpoint)
		if err != nil {
			return 0, err
		}
		if len(resp.Body) == 0 {
			return resp.Elapsed, fmt.Errorf("empty response (HTTP %d)", resp.StatusCode)
		}
		return resp.Elapsed, nil

	case "tcp":
		return c.prober.TCPConnect(ctx, c.timeout, tcpAddress(svc.Endpoint))

	default:
		pinger, ok := c.pingers[svc.Kind]
		if !ok {
			return 0, fmt.Errorf("no prober for service kind %q", svc.Kind)
		}
		pctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		start := time.Now()
		if err := pinger.Ping(pctx, svc.Endpoint); err != nil {
			return 0, err
		}
		return time.Since(start), nil
	}
}

// ContainerFor returns the backing container of a service, or "".
func (c *Checker) ContainerFor(service string) string {
	for _, svc := range c.services {
		if svc.Name == service {
			return svc.Container
		}
	}
	return ""
}

// Service returns the declaration of a service by name.
func (c *Checker) Service(name string) (config.ServiceConfig, bool) {
	for _, svc := range c.services {
		if svc.Name == name {
			return svc, true
		}
	}
	return config.ServiceConfig{}, false
}

func tcpAddress(endpoint string) string {
	for _, prefix := range []string{"tcp://", "http://", "https://"} {
		endpoint = strings.TrimPrefix(endpoint, prefix)
	}
	return strings.TrimSuffix(endpoint, "/")
}
