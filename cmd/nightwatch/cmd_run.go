// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/pipeline"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/server"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/state"
	"github.com/AleutianAI/nightwatch/pkg/ux"
)

const shutdownTimeout = 10 * time.Second

func runPipeline(cmd *cobra.Command, args []string) error {
	var raw string
	if len(args) > 0 {
		raw = args[0]
	}
	action, err := state.ParseAction(raw)
	if err != nil {
		return err
	}

	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch, err := pipeline.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeOrchestrator(orch)

	resp := orch.RunAction(ctx, action)
	printResponse(printer(cmd), resp, cfg.Alerts.HealthThreshold)

	if !resp.Success {
		var runErr error
		if resp.Error != "" {
			runErr = errors.New(resp.Error)
		}
		return &ExitError{Code: 1, Err: runErr}
	}
	return nil
}

// printResponse writes the outcome of one run in the printer's mode.
func printResponse(p *ux.Printer, resp pipeline.Response, threshold int) {
	if p.Machine() {
		_ = p.JSON(resp)
		return
	}
	if resp.Report != nil {
		p.Report(reportView(resp.Report, threshold))
		return
	}
	// No report means the run failed before the report phase.
	p.Error("run " + resp.RunID + " failed: " + resp.Error)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch, err := pipeline.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeOrchestrator(orch)

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	router := server.NewRouter(cfg.Telemetry.ServiceName, &server.Handlers{
		Runner:    orch,
		Alerts:    orch.Alerts(),
		ReportDir: orch.ReportDir(),
		Gatherer:  orch.Metrics().Gatherer(),
		Logger:    logger,
	})
	return server.Serve(ctx, addr, router, logger)
}

func closeOrchestrator(orch *pipeline.Orchestrator) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = orch.Close(ctx)
}
