// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package security runs the advisory audit: outdated dependencies and the
// permission bits of critical files. Nothing here fails the run.
package security

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/mod/module"
	"golang.org/x/mod/semver"

	"github.com/AleutianAI/nightwatch/cmd/nightwatch/config"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/probe"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/state"
	"github.com/AleutianAI/nightwatch/pkg/logging"
)

// Auditor collects security findings.
type Auditor struct {
	cfg           config.SecurityConfig
	criticalFiles []string
	timeout       time.Duration
	prober        probe.Prober
	logger        *logging.Logger
}

// NewAuditor creates an Auditor. Relative critical file paths resolve
// against cfg.WorkDir.
func NewAuditor(cfg config.SecurityConfig, criticalFiles []string, timeout time.Duration, prober probe.Prober, logger *logging.Logger) *Auditor {
	return &Auditor{cfg: cfg, criticalFiles: criticalFiles, timeout: timeout, prober: prober, logger: logger}
}

// Audit returns the findings. It never fails.
func (a *Auditor) Audit(ctx context.Context) *state.SecurityFindings {
	return &state.SecurityFindings{
		OutdatedPackages: a.outdated(ctx),
		Permissions:      a.permissions(),
		WorldWritable:    a.worldWritable(),
	}
}

func (a *Auditor) outdated(ctx context.Context) []string {
	packages := []string{}
	if len(a.cfg.OutdatedCommand) == 0 {
		return packages
	}

	name, args := a.cfg.OutdatedCommand[0], a.cfg.OutdatedCommand[1:]
	if name == "go" && a.cfg.WorkDir != "" {
		args = append([]string{"-C", a.cfg.WorkDir}, args...)
	}

	out, err := a.prober.Run(ctx, a.timeout, name, args...)
	if err != nil {
		a.logger.Warn("outdated dependency check failed", "command", name, "error", err)
		return packages
	}
	return ParseOutdated(out, a.cfg.OutdatedFormat)
}

// ParseOutdated extracts outdated packages from command output.
//
// Format "go" reads `go list -m -u all`, where an available upgrade is
// shown in brackets: "golang.org/x/net v0.20.0 [v0.21.0]" becomes
// "golang.org/x/net v0.20.0 -> v0.21.0". Entries with an invalid module
// path, or whose bracketed version is not a newer semver, are dropped.
// Format "lines" (or empty) takes every non-blank line as one package.
func ParseOutdated(out []byte, format string) []string {
	packages := []string{}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if format != "go" {
			packages = append(packages, line)
			continue
		}
		open := strings.Index(line, "[")
		closing := strings.Index(line, "]")
		if open < 0 || closing < open {
			continue
		}
		fields := strings.Fields(line[:open])
		next := strings.TrimSpace(line[open+1 : closing])
		if len(fields) != 2 || module.CheckPath(fields[0]) != nil {
			continue
		}
		if !semver.IsValid(fields[1]) || semver.Compare(next, fields[1]) <= 0 {
			continue
		}
		packages = append(packages, fields[0]+" "+fields[1]+" -> "+next)
	}
	return packages
}

func (a *Auditor) resolve(path string) string {
	path = logging.ExpandPath(path)
	if a.cfg.WorkDir != "" && !filepath.IsAbs(path) {
		return filepath.Join(a.cfg.WorkDir, path)
	}
	return path
}

// permissions maps each existing critical file to its octal mode.
func (a *Auditor) permissions() map[string]string {
	perms := make(map[string]string, len(a.criticalFiles))
	for _, f := range a.criticalFiles {
		info, err := os.Stat(a.resolve(f))
		if err != nil {
			continue
		}
		perms[f] = fmt.Sprintf("%04o", info.Mode().Perm())
	}
	return perms
}

func (a *Auditor) worldWritable() []string {
	var out []string
	for _, f := range a.criticalFiles {
		info, err := os.Stat(a.resolve(f))
		if err != nil {
			continue
		}
		if info.Mode().Perm()&0o002 != 0 {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}
