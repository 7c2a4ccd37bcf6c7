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
	"fmt"
	"time"

	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/state"
	"github.com/AleutianAI/nightwatch/pkg/ux"
)

func reportView(rep *state.StartupReport, threshold int) ux.ReportView {
	v := ux.ReportView{
		Timestamp:       rep.Timestamp,
		Action:          string(rep.Action),
		RunID:           rep.RunID,
		Health:          rep.SystemHealth,
		Threshold:       threshold,
		Phases:          rep.Phases,
		Failed:          rep.FailedPhases,
		Optimizations:   rep.Optimizations,
		Iterations:      rep.Iterations,
		DurationMs:      rep.TotalDurationMs,
		Recommendations: rep.Recommendations,
	}
	for _, p := range rep.PhaseDetails {
		v.PhaseLines = append(v.PhaseLines, ux.PhaseLine{
			Name:       p.Name,
			Status:     string(p.Status),
			DurationMs: p.DurationMs,
			Error:      p.ErrorMessage(),
		})
	}
	return v
}

func alertLines(list []state.Alert, now time.Time) []ux.AlertLine {
	lines := make([]ux.AlertLine, 0, len(list))
	for _, a := range list {
		lines = append(lines, ux.AlertLine{
			ID:       a.ID,
			Severity: string(a.Severity),
			Title:    a.Title,
			Source:   a.Source,
			Resolved: a.Resolved,
			Age:      humanAge(now.Sub(a.Timestamp)),
		})
	}
	return lines
}

func humanAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
