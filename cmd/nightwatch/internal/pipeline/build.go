// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"context"
	"fmt"

	"github.com/AleutianAI/nightwatch/cmd/nightwatch/config"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/alerts"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/containers"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/knowledge"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/probe"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/report"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/telemetry"
	"github.com/AleutianAI/nightwatch/pkg/logging"
)

// New builds an Orchestrator with production collaborators from cfg.
//
// # Description
//
// Opens the container runtime, the alert store, the tracer and every
// enabled report sink. Optional integrations that fail to initialize (the
// Weaviate client, GCS, the alert store) are logged and skipped so a
// misconfigured extra never prevents the nightly run.
//
// # Outputs
//
//   - *Orchestrator: Call Close when done.
//   - error: The container runtime or tracer could not be created.
func New(ctx context.Context, cfg *config.NightwatchConfig, logger *logging.Logger) (*Orchestrator, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	prober := probe.NewDefaultProber()
	deps := Deps{
		Prober:  prober,
		Sampler: probe.NewGopsutilSampler(),
	}

	runtime, err := containers.NewRuntime(cfg.Inventory.ContainerRuntime, prober, cfg.Run.CommandTimeout, cfg.Inventory.DockerHost)
	if err != nil {
		return nil, fmt.Errorf("container runtime: %w", err)
	}
	deps.Runtime = runtime
	deps.closers = append(deps.closers, runtime.Close)

	tracer, err := telemetry.NewTracer(ctx, cfg.Telemetry)
	if err != nil {
		closeAll(deps.closers)
		return nil, fmt.Errorf("tracer: %w", err)
	}
	deps.Tracer = tracer

	if cfg.Knowledge.WeaviateURL != "" {
		if index, err := knowledge.NewWeaviateIndex(cfg.Knowledge.WeaviateURL); err != nil {
			logger.Warn("weaviate client unavailable", "url", cfg.Knowledge.WeaviateURL, "error", err)
		} else {
			deps.Index = index
		}
	}

	deps.Alerts = alerts.NopManager{}
	if cfg.Alerts.Enabled {
		manager, err := alerts.NewBadgerManager(alerts.StoreConfig{Dir: logging.ExpandPath(cfg.Alerts.StoreDir)}, logger)
		if err != nil {
			logger.Warn("alert store unavailable, alerts will not be persisted", "error", err)
		} else {
			deps.Alerts = manager
			deps.closers = append(deps.closers, manager.Close)
		}
	}

	metrics := telemetry.NewPrometheusRunMetrics()
	deps.Metrics = metrics

	var sinks []report.Sink
	if cfg.Report.MetricsTextfile != "" {
		sinks = append(sinks, report.NewTextfileSink(metrics, logging.ExpandPath(cfg.Report.MetricsTextfile)))
	}
	if cfg.Report.GCS.Enabled {
		gcs := cfg.Report.GCS
		client, err := report.NewGCSClient(ctx, gcs.ProjectID, gcs.Bucket, logging.ExpandPath(gcs.CredentialsFile))
		if err != nil {
			logger.Warn("GCS report archive unavailable", "bucket", gcs.Bucket, "error", err)
		} else {
			sinks = append(sinks, report.NewGCSSink(client, gcs.Prefix))
			deps.closers = append(deps.closers, client.Close)
		}
	}
	if cfg.Report.Influx.Enabled {
		influx := report.NewInfluxSink(cfg.Report.Influx)
		sinks = append(sinks, influx)
		deps.closers = append(deps.closers, func() error { influx.Close(); return nil })
	}
	deps.Publisher = report.NewPublisher(report.NewFileSink(logging.ExpandPath(cfg.Report.Dir)), logger, sinks...)

	return NewOrchestrator(cfg, deps, logger), nil
}

func closeAll(closers []func() error) {
	for i := len(closers) - 1; i >= 0; i-- {
		_ = closers[i]()
	}
}
