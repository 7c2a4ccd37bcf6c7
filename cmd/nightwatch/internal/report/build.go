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
	"time"

	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/state"
)

// TimestampFormat is ISO-8601 with millisecond precision in UTC.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// Build derives the StartupReport from the phases settled so far.
//
// # Description
//
// Counts cover every phase already appended to run. The report phase
// itself is appended by the caller after persisting, so it is not counted.
//
// # Inputs
//
//   - run: The run record. Its metrics are read, never modified.
//   - slow: Slow response threshold; zero uses DefaultSlowThreshold.
//   - now: Report time; also closes the total duration.
func Build(run *state.Run, slow time.Duration, now time.Time) *state.StartupReport {
	phases := run.Phases()
	optimizations := run.Optimizations()

	successful, failed := 0, 0
	for _, p := range phases {
		switch p.Status {
		case state.StatusCompleted:
			successful++
		case state.StatusFailed:
			failed++
		}
	}

	return &state.StartupReport{
		Timestamp:           now.UTC().Format(TimestampFormat),
		TotalDurationMs:     now.Sub(run.StartedAt).Milliseconds(),
		Phases:              len(phases),
		SuccessfulPhases:    successful,
		FailedPhases:        failed,
		Optimizations:       len(optimizations),
		Iterations:          run.Iterations(),
		SystemHealth:        HealthScore(phases, run.Metrics, slow),
		Recommendations:     Recommendations(phases, run.Metrics, slow),
		RunID:               run.ID,
		Action:              run.Action,
		PhaseDetails:        phases,
		OptimizationDetails: optimizations,
		Metrics:             run.Metrics,
	}
}
