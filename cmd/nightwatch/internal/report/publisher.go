// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/state"
	"github.com/AleutianAI/nightwatch/pkg/logging"
)

// Publisher persists a report to the local directory and fans it out to
// the optional sinks.
type Publisher struct {
	local  *FileSink
	extras []Sink
	logger *logging.Logger
}

// NewPublisher creates a Publisher writing locally to local.
func NewPublisher(local *FileSink, logger *logging.Logger, extras ...Sink) *Publisher {
	return &Publisher{local: local, extras: extras, logger: logger}
}

// Dir returns the local report directory.
func (p *Publisher) Dir() string { return p.local.Dir }

// Publish writes the report.
//
// # Outputs
//
//   - string: Path of the timestamped local file.
//   - error: Encoding or local write failure. Optional sink failures are
//     logged and never returned.
func (p *Publisher) Publish(ctx context.Context, report *state.StartupReport) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding report: %w", err)
	}

	target, err := p.local.WriteReport(report, data)
	if err != nil {
		return "", err
	}
	p.logger.Info("report written", "path", target, "system_health", report.SystemHealth)

	for _, sink := range p.extras {
		if err := sink.Write(ctx, report, data); err != nil {
			p.logger.Warn("report sink failed", "sink", sink.Name(), "error", err)
			continue
		}
		p.logger.Debug("report sink written", "sink", sink.Name())
	}
	return target, nil
}
