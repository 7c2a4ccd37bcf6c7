// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux renders nightwatch results for people and for scripts.
package ux

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Aleutian color palette
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7")
	ColorTealPrimary = lipgloss.Color("#20B9B4")
	ColorTealDeep    = lipgloss.Color("#16858E")
	ColorSlate       = lipgloss.Color("#2C4A54")

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Bold     lipgloss.Style
	Muted    lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Box      lipgloss.Style
}{
	Title:    lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Subtitle: lipgloss.NewStyle().Foreground(ColorTealPrimary),
	Bold:     lipgloss.NewStyle().Bold(true),
	Muted:    lipgloss.NewStyle().Foreground(ColorSlate),
	Success:  lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:  lipgloss.NewStyle().Foreground(ColorWarning),
	Error:    lipgloss.NewStyle().Foreground(ColorError),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorTealDeep).
		Padding(0, 1),
}

// Icon provides themed status icons
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconPending Icon = "○"
	IconBullet  Icon = "•"
)

func (i Icon) style() lipgloss.Style {
	switch i {
	case IconSuccess:
		return Styles.Success
	case IconWarning:
		return Styles.Warning
	case IconError:
		return Styles.Error
	default:
		return Styles.Muted
	}
}

// =============================================================================
// Views
// =============================================================================

// PhaseLine is one row of the phase table.
type PhaseLine struct {
	Name       string
	Status     string
	DurationMs int64
	Error      string
}

// ReportView is the human-facing summary of a persisted report.
type ReportView struct {
	Timestamp       string
	Action          string
	RunID           string
	Health          int
	Threshold       int
	Phases          int
	Failed          int
	Optimizations   int
	Iterations      int
	DurationMs      int64
	PhaseLines      []PhaseLine
	Recommendations []string
}

// AlertLine is one row of the alert list.
type AlertLine struct {
	ID       string
	Severity string
	Title    string
	Source   string
	Resolved bool
	Age      string
}

// =============================================================================
// Printer
// =============================================================================

// Printer writes views to an io.Writer in one Mode.
type Printer struct {
	w    io.Writer
	mode Mode
}

// NewPrinter creates a Printer. An empty mode is detected from w.
func NewPrinter(w io.Writer, mode Mode) *Printer {
	if mode == "" {
		mode = DetectMode("", w)
	}
	return &Printer{w: w, mode: mode}
}

// Mode returns the printer's output mode.
func (p *Printer) Mode() Mode { return p.mode }

// Machine reports whether output should be JSON.
func (p *Printer) Machine() bool { return p.mode == ModeMachine }

func (p *Printer) render(s lipgloss.Style, text string) string {
	if p.mode != ModeStyled {
		return text
	}
	return s.Render(text)
}

func (p *Printer) icon(i Icon) string {
	return p.render(i.style(), string(i))
}

// JSON writes v as indented JSON.
func (p *Printer) JSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Report prints the health score, the phase table and the recommendations.
func (p *Printer) Report(v ReportView) {
	header := fmt.Sprintf("nightwatch %s  %s", v.Action, v.Timestamp)
	fmt.Fprintln(p.w, p.render(Styles.Title, header))
	if v.RunID != "" {
		fmt.Fprintln(p.w, p.render(Styles.Muted, "run "+v.RunID))
	}
	fmt.Fprintln(p.w)

	fmt.Fprintf(p.w, "%s %s  %s\n",
		p.render(Styles.Bold, "System health"),
		p.healthScore(v.Health, v.Threshold),
		p.HealthBar(v.Health, 30),
	)
	fmt.Fprintf(p.w, "%s phases  %s failed  %s optimizations  %s iterations  %s\n\n",
		p.render(Styles.Bold, fmt.Sprint(v.Phases)),
		p.render(Styles.Error, fmt.Sprint(v.Failed)),
		p.render(Styles.Bold, fmt.Sprint(v.Optimizations)),
		p.render(Styles.Bold, fmt.Sprint(v.Iterations)),
		p.render(Styles.Muted, fmt.Sprintf("%dms", v.DurationMs)),
	)

	if len(v.PhaseLines) > 0 {
		width := 0
		for _, l := range v.PhaseLines {
			width = max(width, len(l.Name))
		}
		for _, l := range v.PhaseLines {
			icon := IconSuccess
			if l.Status == "failed" {
				icon = IconError
			} else if l.Status != "completed" {
				icon = IconPending
			}
			line := fmt.Sprintf("%s %-*s %s", p.icon(icon), width, l.Name, p.render(Styles.Muted, fmt.Sprintf("%6dms", l.DurationMs)))
			if l.Error != "" {
				line += "  " + p.render(Styles.Error, l.Error)
			}
			fmt.Fprintln(p.w, line)
		}
		fmt.Fprintln(p.w)
	}

	var recs strings.Builder
	for i, r := range v.Recommendations {
		if i > 0 {
			recs.WriteString("\n")
		}
		fmt.Fprintf(&recs, "%s %s", p.icon(IconBullet), r)
	}
	p.box("Recommendations", recs.String())
}

func (p *Printer) healthScore(health, threshold int) string {
	text := fmt.Sprintf("%d/100", health)
	switch {
	case threshold > 0 && health < threshold/2:
		return p.render(Styles.Error.Bold(true), text)
	case threshold > 0 && health < threshold:
		return p.render(Styles.Warning.Bold(true), text)
	default:
		return p.render(Styles.Success.Bold(true), text)
	}
}

func (p *Printer) box(title, content string) {
	if p.mode != ModeStyled {
		fmt.Fprintf(p.w, "%s:\n%s\n", title, content)
		return
	}
	fmt.Fprintln(p.w, Styles.Box.Width(78).Render(Styles.Title.Render(title)+"\n"+content))
}

// Alerts prints the alert list, newest last.
func (p *Printer) Alerts(lines []AlertLine) {
	if len(lines) == 0 {
		fmt.Fprintln(p.w, p.icon(IconSuccess)+" no alerts")
		return
	}
	for _, a := range lines {
		icon := IconWarning
		sev := Styles.Warning
		switch {
		case a.Resolved:
			icon, sev = IconSuccess, Styles.Muted
		case a.Severity == "critical" || a.Severity == "high":
			icon, sev = IconError, Styles.Error
		}
		fmt.Fprintf(p.w, "%s %s %-8s %s %s\n",
			p.icon(icon),
			p.render(Styles.Muted, a.ID),
			p.render(sev, a.Severity),
			a.Title,
			p.render(Styles.Muted, "("+a.Source+", "+a.Age+")"),
		)
	}
}

// Success prints a success message with checkmark
func (p *Printer) Success(text string) {
	fmt.Fprintf(p.w, "%s %s\n", p.icon(IconSuccess), p.render(Styles.Success, text))
}

// Error prints an error message
func (p *Printer) Error(text string) {
	fmt.Fprintf(p.w, "%s %s\n", p.icon(IconError), p.render(Styles.Error, text))
}

// HealthBar renders a health score as a bar of the given width.
func (p *Printer) HealthBar(health, width int) string {
	health = min(max(health, 0), 100)
	filled := health * width / 100
	return p.render(Styles.Success, strings.Repeat("█", filled)) +
		p.render(Styles.Muted, strings.Repeat("░", width-filled))
}
