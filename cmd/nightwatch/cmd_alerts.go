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
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/nightwatch/cmd/nightwatch/config"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/alerts"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/report"
	"github.com/AleutianAI/nightwatch/pkg/logging"
)

// openAlerts opens the alert store directly. It fails while `nightwatch
// serve` holds the store; use the HTTP endpoints in that case.
func openAlerts(cfg *config.NightwatchConfig, logger *logging.Logger) (*alerts.BadgerManager, error) {
	if !cfg.Alerts.Enabled {
		return nil, errors.New("alerts are disabled in the config (alerts.enabled)")
	}
	manager, err := alerts.NewBadgerManager(alerts.StoreConfig{Dir: logging.ExpandPath(cfg.Alerts.StoreDir)}, logger)
	if err != nil {
		return nil, fmt.Errorf("opening the alert store (is `nightwatch serve` running?): %w", err)
	}
	return manager, nil
}

func runAlertsList(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer logger.Close()

	manager, err := openAlerts(cfg, logger)
	if err != nil {
		return err
	}
	defer manager.Close()

	list, err := manager.ListAlerts(cmd.Context(), activeOnly)
	if err != nil {
		return err
	}

	p := printer(cmd)
	if p.Machine() {
		return p.JSON(map[string]any{"alerts": list, "count": len(list)})
	}
	p.Alerts(alertLines(list, time.Now()))
	return nil
}

func runAlertsResolve(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer logger.Close()

	manager, err := openAlerts(cfg, logger)
	if err != nil {
		return err
	}
	defer manager.Close()

	id, resolution := args[0], args[1]
	resolved, err := manager.ResolveAlert(cmd.Context(), id, resolution)
	if err != nil {
		return err
	}

	p := printer(cmd)
	if p.Machine() {
		return p.JSON(map[string]any{"id": id, "resolved": resolved})
	}
	if resolved {
		p.Success("resolved " + id)
	} else {
		p.Success(id + " was already resolved")
	}
	return nil
}

func runReportLatest(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer logger.Close()

	rep, err := report.ReadLatest(logging.ExpandPath(cfg.Report.Dir))
	if err != nil {
		return err
	}

	p := printer(cmd)
	if p.Machine() {
		return p.JSON(rep)
	}
	p.Report(reportView(rep, cfg.Alerts.HealthThreshold))
	return nil
}
