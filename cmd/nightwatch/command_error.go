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

import "fmt"

// ExitError carries a process exit code out of a command.
//
// # Description
//
// Commands return an ExitError when the outcome, not a usage problem,
// decides the exit status: a run that reported Success=false exits 1 even
// though the report was printed. Err may be nil when everything the user
// needs has already been written.
type ExitError struct {
	// Code is the process exit code.
	Code int

	// Err is printed to stderr when non-nil.
	Err error
}

// Error returns a formatted error message.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("exit %d: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("exit %d", e.Code)
}

// Unwrap returns the underlying error.
func (e *ExitError) Unwrap() error {
	return e.Err
}
