// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// =============================================================================
// Interface
// =============================================================================

// RunMetrics records per-phase and per-run measurements.
type RunMetrics interface {
	// ObservePhase records a finished phase.
	ObservePhase(phaseID, status string, duration time.Duration)

	// RecordRun records the summary of a finished run.
	RecordRun(summary RunSummary)

	// Gatherer exposes the collected metrics, or nil when nothing is kept.
	Gatherer() prometheus.Gatherer

	// WriteTextfile writes the metrics in node_exporter textfile format.
	WriteTextfile(path string) error
}

// RunSummary is the per-run data behind the run gauges.
type RunSummary struct {
	Action        string
	Success       bool
	Health        int
	Iterations    int
	Optimizations int
	Timestamp     time.Time
}

// =============================================================================
// Prometheus Implementation
// =============================================================================

// PrometheusRunMetrics keeps metrics on a private registry so a process can
// build several orchestrators without duplicate registration.
type PrometheusRunMetrics struct {
	registry *prometheus.Registry

	phaseDuration *prometheus.HistogramVec
	runsTotal     *prometheus.CounterVec
	health        prometheus.Gauge
	iterations    prometheus.Gauge
	optimizations prometheus.Gauge
	lastRun       prometheus.Gauge

	mu sync.Mutex
}

// NewPrometheusRunMetrics creates and registers the nightwatch collectors.
func NewPrometheusRunMetrics() *PrometheusRunMetrics {
	m := &PrometheusRunMetrics{
		registry: prometheus.NewRegistry(),
		phaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "nightwatch",
				Name:      "phase_duration_seconds",
				Help:      "Duration of each orchestration phase",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"phase", "status"},
		),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nightwatch",
				Name:      "runs_total",
				Help:      "Runs by action and outcome",
			},
			[]string{"action", "outcome"},
		),
		health: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nightwatch",
			Name:      "system_health",
			Help:      "Health score of the last run (0-100)",
		}),
		iterations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nightwatch",
			Name:      "iterations",
			Help:      "Improvement rounds in the last run",
		}),
		optimizations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nightwatch",
			Name:      "optimizations",
			Help:      "Optimization records in the last run",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nightwatch",
			Name:      "run_timestamp_seconds",
			Help:      "Unix time of the last report",
		}),
	}
	m.registry.MustRegister(
		m.phaseDuration,
		m.runsTotal,
		m.health,
		m.iterations,
		m.optimizations,
		m.lastRun,
	)
	return m
}

// ObservePhase implements RunMetrics.
func (m *PrometheusRunMetrics) ObservePhase(phaseID, status string, duration time.Duration) {
	m.phaseDuration.WithLabelValues(phaseID, status).Observe(duration.Seconds())
}

// RecordRun implements RunMetrics.
func (m *PrometheusRunMetrics) RecordRun(s RunSummary) {
	outcome := "success"
	if !s.Success {
		outcome = "failure"
	}
	m.runsTotal.WithLabelValues(s.Action, outcome).Inc()
	m.health.Set(float64(s.Health))
	m.iterations.Set(float64(s.Iterations))
	m.optimizations.Set(float64(s.Optimizations))
	m.lastRun.Set(float64(s.Timestamp.Unix()))
}

// Gatherer implements RunMetrics.
func (m *PrometheusRunMetrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes the registry to path atomically.
func (m *PrometheusRunMetrics) WriteTextfile(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating textfile directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}

// =============================================================================
// NoOp Implementation
// =============================================================================

// NoOpRunMetrics counts calls and exports nothing.
type NoOpRunMetrics struct {
	phases atomic.Int64
	runs   atomic.Int64
}

// NewNoOpRunMetrics returns a NoOpRunMetrics.
func NewNoOpRunMetrics() *NoOpRunMetrics { return &NoOpRunMetrics{} }

// ObservePhase implements RunMetrics.
func (m *NoOpRunMetrics) ObservePhase(string, string, time.Duration) { m.phases.Add(1) }

// RecordRun implements RunMetrics.
func (m *NoOpRunMetrics) RecordRun(RunSummary) { m.runs.Add(1) }

// Gatherer returns nil.
func (m *NoOpRunMetrics) Gatherer() prometheus.Gatherer { return nil }

// WriteTextfile is a no-op.
func (m *NoOpRunMetrics) WriteTextfile(string) error { return nil }

// PhaseCount returns the number of ObservePhase calls.
func (m *NoOpRunMetrics) PhaseCount() int64 { return m.phases.Load() }

// RunCount returns the number of RecordRun calls.
func (m *NoOpRunMetrics) RunCount() int64 { return m.runs.Load() }

var (
	_ RunMetrics = (*PrometheusRunMetrics)(nil)
	_ RunMetrics = (*NoOpRunMetrics)(nil)
)
