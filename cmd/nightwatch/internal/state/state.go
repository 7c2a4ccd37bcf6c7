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
Package state holds the records one nightwatch run produces: the phase audit
trail, the SystemMetrics aggregate, the append-only optimization list and the
final StartupReport.

A Run is created per invocation and passed by pointer into every phase
operation. There are no package-level singletons, so two runs in the same
process never share state.
*/
package state

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownAction is returned by ParseAction for anything other than
// startup, validate or optimize.
var ErrUnknownAction = errors.New("unknown action")

// =============================================================================
// Action
// =============================================================================

// Action selects the entry point. All actions run the same pipeline; the
// action is carried through to the report as a tag.
type Action string

const (
	ActionStartup  Action = "startup"
	ActionValidate Action = "validate"
	ActionOptimize Action = "optimize"
)

// ParseAction maps a user-supplied string to an Action. Empty means startup.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case "":
		return ActionStartup, nil
	case ActionStartup, ActionValidate, ActionOptimize:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q (want startup, validate or optimize)", ErrUnknownAction, s)
	}
}

// =============================================================================
// Phase
// =============================================================================

// PhaseStatus is the lifecycle state of a Phase.
type PhaseStatus string

const (
	StatusPending   PhaseStatus = "pending"
	StatusRunning   PhaseStatus = "running"
	StatusCompleted PhaseStatus = "completed"
	StatusFailed    PhaseStatus = "failed"
)

// Phase is one timed pipeline step. Results holds the operation's payload,
// or {"error": message} when the operation failed.
type Phase struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Status     PhaseStatus `json:"status"`
	StartTime  time.Time   `json:"startTime"`
	EndTime    time.Time   `json:"endTime"`
	DurationMs int64       `json:"duration"`
	Results    any         `json:"results,omitempty"`
}

// Failed reports whether the phase ended in StatusFailed.
func (p Phase) Failed() bool { return p.Status == StatusFailed }

// ErrorMessage returns the recorded error of a failed phase, or "".
func (p Phase) ErrorMessage() string {
	if m, ok := p.Results.(map[string]string); ok {
		return m["error"]
	}
	return ""
}

// =============================================================================
// SystemMetrics
// =============================================================================

// SystemMetrics is the aggregate written by the checking phases. A later
// check replaces the earlier value wholesale; nothing is merged.
type SystemMetrics struct {
	Resources   *ResourceStatus            `json:"resources,omitempty"`
	Containers  map[string]ContainerStatus `json:"containers"`
	Services    map[string]ServiceStatus   `json:"services"`
	Performance *PerformanceSample         `json:"performance,omitempty"`
	Security    *SecurityFindings          `json:"security,omitempty"`
	Knowledge   *KnowledgeStatus           `json:"knowledge,omitempty"`
}

// NewSystemMetrics returns an aggregate with empty maps.
func NewSystemMetrics() *SystemMetrics {
	return &SystemMetrics{
		Containers: make(map[string]ContainerStatus),
		Services:   make(map[string]ServiceStatus),
	}
}

// ResourceStatus is the System Validator's outcome.
type ResourceStatus struct {
	Runtimes             map[string]RuntimeStatus `json:"runtimes"`
	ModelServerReachable bool                     `json:"modelServerReachable"`
	DiskUsedPercent      float64                  `json:"diskUsedPercent"`
	MemoryFreeMB         uint64                   `json:"memoryFreeMB"`
	MemoryTotalMB        uint64                   `json:"memoryTotalMB"`
	Notes                []string                 `json:"notes,omitempty"`
}

// RuntimeStatus records one version probe.
type RuntimeStatus struct {
	Present  bool   `json:"present"`
	Version  string `json:"version,omitempty"`
	Required bool   `json:"required,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ContainerStatus is the state of one declared container.
type ContainerStatus struct {
	Running    bool   `json:"running"`
	Healthy    bool   `json:"healthy"`
	Status     string `json:"status"`
	Started    *bool  `json:"started,omitempty"`
	StartError string `json:"startError,omitempty"`
}

// ServiceStatus is the reachability of one declared service.
type ServiceStatus struct {
	Kind           string `json:"kind"`
	Endpoint       string `json:"endpoint"`
	Reachable      bool   `json:"reachable"`
	ResponseTimeMs int64  `json:"responseTime"`
	Error          string `json:"error,omitempty"`
}

// PerformanceSample is a single latency and host usage sample.
type PerformanceSample struct {
	ResponseTimeMs int64         `json:"responseTime"`
	ResourceUsage  ResourceUsage `json:"resourceUsage"`
}

// ResourceUsage is host CPU and disk usage in percent.
type ResourceUsage struct {
	CPU  float64 `json:"cpu"`
	Disk float64 `json:"disk"`
}

// SecurityFindings is advisory output of the Security Auditor.
// Permissions maps a critical file to its octal mode, e.g. "0600".
type SecurityFindings struct {
	OutdatedPackages []string          `json:"outdatedPackages"`
	Permissions      map[string]string `json:"permissions"`
	WorldWritable    []string          `json:"worldWritable,omitempty"`
}

// KnowledgeStatus is the Knowledge Base Validator's outcome.
type KnowledgeStatus struct {
	Documents  int      `json:"documents"`
	Indexes    int      `json:"indexes"`
	Embeddings int      `json:"embeddings"`
	Searchable bool     `json:"searchable"`
	Notes      []string `json:"notes,omitempty"`
}

// UnhealthyContainers returns the sorted names of containers with
// Healthy == false.
func (m *SystemMetrics) UnhealthyContainers() []string {
	var names []string
	for name, c := range m.Containers {
		if !c.Healthy {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// StoppedContainers returns the sorted names of containers with
// Running == false.
func (m *SystemMetrics) StoppedContainers() []string {
	var names []string
	for name, c := range m.Containers {
		if !c.Running {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// UnreachableServices returns the sorted names of services with
// Reachable == false.
func (m *SystemMetrics) UnreachableServices() []string {
	var names []string
	for name, s := range m.Services {
		if !s.Reachable {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// SlowResponse reports whether a performance sample exists and exceeds
// threshold. A missing sample is not slow.
func (m *SystemMetrics) SlowResponse(threshold time.Duration) bool {
	if m.Performance == nil {
		return false
	}
	return m.Performance.ResponseTimeMs > threshold.Milliseconds()
}

// =============================================================================
// OptimizationResult
// =============================================================================

// Impact grades an optimization.
type Impact string

const (
	ImpactLow    Impact = "low"
	ImpactMedium Impact = "medium"
	ImpactHigh   Impact = "high"
)

// OptimizationResult is one proposed or applied tuning action.
type OptimizationResult struct {
	Component   string `json:"component"`
	Improvement string `json:"improvement"`
	Before      string `json:"before"`
	After       string `json:"after"`
	Impact      Impact `json:"impact"`
	Automated   bool   `json:"automated"`
}

// =============================================================================
// Run
// =============================================================================

// Run is the record of one pipeline execution. Phases and optimizations
// are append-only; Metrics is overwritten in place by later checks.
type Run struct {
	ID        string
	Action    Action
	StartedAt time.Time
	Metrics   *SystemMetrics

	mu            sync.Mutex
	phases        []Phase
	optimizations []OptimizationResult
	iterations    int
}

// NewRun starts a run record for action.
func NewRun(action Action) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Action:    action,
		StartedAt: time.Now(),
		Metrics:   NewSystemMetrics(),
	}
}

// AppendPhase adds a settled phase to the audit trail.
func (r *Run) AppendPhase(p Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = append(r.phases, p)
}

// Phases returns a copy of the audit trail.
func (r *Run) Phases() []Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Phase, len(r.phases))
	copy(out, r.phases)
	return out
}

// AddOptimizations appends results. Existing entries are never touched.
func (r *Run) AddOptimizations(results ...OptimizationResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.optimizations = append(r.optimizations, results...)
}

// Optimizations returns a copy of the optimization list.
func (r *Run) Optimizations() []OptimizationResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]OptimizationResult, len(r.optimizations))
	copy(out, r.optimizations)
	return out
}

// SetIterations records how many improvement rounds ran.
func (r *Run) SetIterations(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.iterations = n
}

// Iterations returns the recorded improvement round count.
func (r *Run) Iterations() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.iterations
}

// =============================================================================
// StartupReport
// =============================================================================

// StartupReport is the persisted artifact of a run.
type StartupReport struct {
	Timestamp        string   `json:"timestamp"`
	TotalDurationMs  int64    `json:"totalDuration"`
	Phases           int      `json:"phases"`
	SuccessfulPhases int      `json:"successfulPhases"`
	FailedPhases     int      `json:"failedPhases"`
	Optimizations    int      `json:"optimizations"`
	Iterations       int      `json:"iterations"`
	SystemHealth     int      `json:"systemHealth"`
	Recommendations  []string `json:"recommendations"`

	RunID               string               `json:"runId"`
	Action              Action               `json:"action"`
	PhaseDetails        []Phase              `json:"phaseDetails,omitempty"`
	OptimizationDetails []OptimizationResult `json:"optimizationDetails,omitempty"`
	Metrics             *SystemMetrics       `json:"metrics,omitempty"`
}

// =============================================================================
// Alert
// =============================================================================

// Severity grades an alert.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Alert is a notification raised about the deployment.
type Alert struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Severity   Severity          `json:"severity"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	Timestamp  time.Time         `json:"timestamp"`
	Source     string            `json:"source"`
	Resolved   bool              `json:"resolved"`
	Resolution string            `json:"resolution,omitempty"`
	ResolvedAt *time.Time        `json:"resolvedAt,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}
