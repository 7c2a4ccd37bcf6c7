// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package probe

import (
	"bytes"
	"errors"
)

// ErrHostUnusable marks a host on which probes cannot run at all.
var ErrHostUnusable = errors.New("host unusable")

// CheckErrorType categorizes system check failures.
type CheckErrorType int

const (
	// CheckErrorShellMissing means no shell could be found to run probes.
	CheckErrorShellMissing CheckErrorType = iota

	// CheckErrorRuntimeMissing means a required runtime was not found.
	CheckErrorRuntimeMissing

	// CheckErrorModelServerDown means the model server did not answer.
	CheckErrorModelServerDown

	// CheckErrorResourceSample means disk or memory could not be read.
	CheckErrorResourceSample
)

// String returns the error type as a string for logging.
func (t CheckErrorType) String() string {
	switch t {
	case CheckErrorShellMissing:
		return "SHELL_MISSING"
	case CheckErrorRuntimeMissing:
		return "RUNTIME_MISSING"
	case CheckErrorModelServerDown:
		return "MODEL_SERVER_DOWN"
	case CheckErrorResourceSample:
		return "RESOURCE_SAMPLE_FAILED"
	default:
		return "UNKNOWN"
	}
}

// CheckError provides structured error information for system checks.
type CheckError struct {
	// Type categorizes the error for programmatic handling.
	Type CheckErrorType

	// Message is a human-readable error description.
	Message string

	// Detail provides technical information for debugging.
	Detail string

	// Remediation suggests how to fix the issue.
	Remediation string

	// Err is the underlying cause, exposed through Unwrap.
	Err error
}

// Error implements the error interface.
func (e *CheckError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *CheckError) Unwrap() error {
	return e.Err
}

// FullError returns the message with detail and remediation appended.
func (e *CheckError) FullError() string {
	var buf bytes.Buffer
	buf.WriteString(e.Message)
	if e.Detail != "" {
		buf.WriteString("\n\nDetails: ")
		buf.WriteString(e.Detail)
	}
	if e.Remediation != "" {
		buf.WriteString("\n\nTo fix:\n")
		buf.WriteString(e.Remediation)
	}
	return buf.String()
}
