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
Package report derives the health score and recommendations of a run and
persists the resulting StartupReport.

# Health Score

The score starts at 100 and is deducted:

	-10 per failed phase
	 -5 per unhealthy container
	 -5 per unreachable service
	-10 if the sampled response time exceeds the slow threshold

and floored at 0. A missing performance sample costs nothing.
*/
package report

import (
	"fmt"
	"time"

	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/state"
)

// Score deductions.
const (
	MaxHealth              = 100
	FailedPhasePenalty     = 10
	UnhealthyContainerCost = 5
	UnreachableServiceCost = 5
	SlowResponsePenalty    = 10
)

// DefaultSlowThreshold is the response time above which the API is slow.
const DefaultSlowThreshold = 1000 * time.Millisecond

// OptimalRecommendation is the only recommendation of a clean run.
const OptimalRecommendation = "System is operating optimally - continue monitoring"

// HealthScore computes systemHealth from the phase list and final metrics.
func HealthScore(phases []state.Phase, m *state.SystemMetrics, slow time.Duration) int {
	if slow <= 0 {
		slow = DefaultSlowThreshold
	}

	score := MaxHealth
	for _, p := range phases {
		if p.Failed() {
			score -= FailedPhasePenalty
		}
	}
	if m != nil {
		score -= UnhealthyContainerCost * len(m.UnhealthyContainers())
		score -= UnreachableServiceCost * len(m.UnreachableServices())
		if m.SlowResponse(slow) {
			score -= SlowResponsePenalty
		}
	}

	if score < 0 {
		return 0
	}
	return score
}

// Recommendations scans the same signals as HealthScore. Failed phases come
// first in execution order, then containers and services by name, then the
// performance suggestion.
func Recommendations(phases []state.Phase, m *state.SystemMetrics, slow time.Duration) []string {
	if slow <= 0 {
		slow = DefaultSlowThreshold
	}

	var recs []string
	for _, p := range phases {
		if !p.Failed() {
			continue
		}
		if msg := p.ErrorMessage(); msg != "" {
			recs = append(recs, fmt.Sprintf("Investigate failed phase %q: %s", p.Name, msg))
		} else {
			recs = append(recs, fmt.Sprintf("Investigate failed phase %q", p.Name))
		}
	}

	if m != nil {
		for _, name := range m.UnhealthyContainers() {
			c := m.Containers[name]
			switch {
			case !c.Running && c.StartError != "":
				recs = append(recs, fmt.Sprintf("Container %s is not running and could not be started (%s); inspect its logs", name, c.StartError))
			case !c.Running:
				recs = append(recs, fmt.Sprintf("Container %s is not running; inspect its logs and restart it", name))
			default:
				recs = append(recs, fmt.Sprintf("Container %s is running but reports unhealthy; check its health check", name))
			}
		}
		for _, name := range m.UnreachableServices() {
			s := m.Services[name]
			if s.Error != "" {
				recs = append(recs, fmt.Sprintf("Service %s at %s is unreachable (%s); verify it is running and listening", name, s.Endpoint, s.Error))
			} else {
				recs = append(recs, fmt.Sprintf("Service %s at %s is unreachable; verify it is running and listening", name, s.Endpoint))
			}
		}
		if m.SlowResponse(slow) {
			recs = append(recs, fmt.Sprintf(
				"API response time %dms exceeds %dms; tune performance (connection pooling, caching, resource limits)",
				m.Performance.ResponseTimeMs, slow.Milliseconds()))
		}
	}

	if len(recs) == 0 {
		return []string{OptimalRecommendation}
	}
	return recs
}
