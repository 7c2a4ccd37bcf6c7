// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Mode controls how rich the CLI output is.
type Mode string

const (
	// ModeStyled renders colors, icons and boxes.
	ModeStyled Mode = "styled"

	// ModePlain renders the same layout without ANSI styling.
	ModePlain Mode = "plain"

	// ModeMachine writes JSON for scripts and schedulers.
	ModeMachine Mode = "machine"
)

// ParseMode converts a flag or environment value to a Mode. Unknown values
// yield "" so the caller falls back to detection.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "styled", "full", "color":
		return ModeStyled
	case "plain", "minimal", "text":
		return ModePlain
	case "machine", "json", "quiet":
		return ModeMachine
	default:
		return ""
	}
}

// DetectMode picks the output mode for w.
//
// # Description
//
// An explicit value wins, then NIGHTWATCH_OUTPUT. Otherwise a terminal gets
// ModeStyled and anything else (a pipe, a file, cron) gets ModeMachine.
//
// # Inputs
//
//   - explicit: Value of the --output flag. May be empty.
//   - w: Destination writer.
//
// # Outputs
//
//   - Mode: Never empty.
func DetectMode(explicit string, w io.Writer) Mode {
	if m := ParseMode(explicit); m != "" {
		return m
	}
	if m := ParseMode(os.Getenv("NIGHTWATCH_OUTPUT")); m != "" {
		return m
	}
	if IsTerminal(w) {
		return ModeStyled
	}
	return ModeMachine
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
