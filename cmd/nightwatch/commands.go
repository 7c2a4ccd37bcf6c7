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
	"github.com/spf13/cobra"

	"github.com/AleutianAI/nightwatch/cmd/nightwatch/config"
	"github.com/AleutianAI/nightwatch/pkg/logging"
	"github.com/AleutianAI/nightwatch/pkg/ux"
)

// --- Global Command Variables ---
var (
	configPath  string
	outputMode  string
	jsonOutput  bool
	activeOnly  bool
	serveAddr   string
	verboseLogs bool

	rootCmd = &cobra.Command{
		Use:   "nightwatch",
		Short: "Nightly validation and self-repair for the local Aleutian stack",
		Long: `nightwatch checks the host, the containers and the services of a
local deployment, restarts what it can, records optimization advice and
writes a health report.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// --- Runs ---
	runCmd = &cobra.Command{
		Use:       "run [startup|validate|optimize]",
		Short:     "Run the validation pipeline once and print the report",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"startup", "validate", "optimize"},
		RunE:      runPipeline, // Defined in cmd_run.go
	}
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the run, report, alert and metrics endpoints over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServe, // Defined in cmd_run.go
	}

	// --- Alerts ---
	alertsCmd = &cobra.Command{
		Use:   "alerts",
		Short: "Inspect and resolve alerts raised by past runs",
	}
	alertsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List alerts",
		Args:  cobra.NoArgs,
		RunE:  runAlertsList, // Defined in cmd_alerts.go
	}
	alertsResolveCmd = &cobra.Command{
		Use:   "resolve [id] [resolution]",
		Short: "Mark an alert resolved",
		Args:  cobra.ExactArgs(2),
		RunE:  runAlertsResolve, // Defined in cmd_alerts.go
	}

	// --- Reports ---
	reportCmd = &cobra.Command{
		Use:   "report",
		Short: "Show persisted reports",
	}
	reportLatestCmd = &cobra.Command{
		Use:     "latest",
		Aliases: []string{"show"},
		Short:   "Print the most recent report",
		Args:    cobra.NoArgs,
		RunE:    runReportLatest, // Defined in cmd_alerts.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to nightwatch.yaml (default ~/.nightwatch/nightwatch.yaml)")
	rootCmd.PersistentFlags().StringVar(&outputMode, "output", "", "output mode: styled, plain or json (default: detect)")
	rootCmd.PersistentFlags().BoolVarP(&verboseLogs, "verbose", "v", false, "log at debug level")

	runCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the invocation response as JSON")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	alertsListCmd.Flags().BoolVar(&activeOnly, "active", false, "only unresolved alerts")

	rootCmd.AddCommand(runCmd, serveCmd, alertsCmd, reportCmd)
	alertsCmd.AddCommand(alertsListCmd, alertsResolveCmd)
	reportCmd.AddCommand(reportLatestCmd)
}

// loadRuntime loads the config and builds the logger for a command.
//
// # Description
//
// Console logs go to stderr so stdout stays parseable in JSON mode. The
// caller owns the returned logger and must Close it.
func loadRuntime() (*config.NightwatchConfig, *logging.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	level := logging.ParseLevel(cfg.Logging.Level)
	if verboseLogs {
		level = logging.LevelDebug
	}
	logger := logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: cfg.Telemetry.ServiceName,
		JSON:    cfg.Logging.JSON,
	})
	return &cfg, logger, nil
}

// printer builds the output printer for cmd, honoring --json on run.
func printer(cmd *cobra.Command) *ux.Printer {
	mode := outputMode
	if jsonOutput {
		mode = string(ux.ModeMachine)
	}
	w := cmd.OutOrStdout()
	return ux.NewPrinter(w, ux.DetectMode(mode, w))
}
