// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package containers

import (
	"context"
	"fmt"
	"sync"
)

// FakeRuntime is an in-memory Runtime for tests. Containers listed in
// Infos exist; Start and Restart flip them to running unless the name is
// in FailStart or FailRestart.
type FakeRuntime struct {
	mu           sync.Mutex
	Infos        map[string]Info
	LimitsByName map[string]Limits
	FailStart    map[string]error
	FailRestart  map[string]error
	Starts       []string
	Restarts     []string
}

// NewFakeRuntime returns a FakeRuntime with the given containers.
func NewFakeRuntime(infos map[string]Info) *FakeRuntime {
	return &FakeRuntime{
		Infos:        infos,
		LimitsByName: map[string]Limits{},
		FailStart:    map[string]error{},
		FailRestart:  map[string]error{},
	}
}

// Name returns "fake".
func (f *FakeRuntime) Name() string { return "fake" }

// Inspect returns the recorded Info.
func (f *FakeRuntime) Inspect(_ context.Context, name string) (Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.Infos[name]
	if !ok {
		return Info{Status: "not found"}, nil
	}
	return info, nil
}

// Start records the call and marks the container running.
func (f *FakeRuntime) Start(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Starts = append(f.Starts, name)
	if err := f.FailStart[name]; err != nil {
		return err
	}
	if _, ok := f.Infos[name]; !ok {
		return fmt.Errorf("no such container: %s", name)
	}
	f.Infos[name] = Info{Exists: true, Running: true, Status: "Up Less than a second"}
	return nil
}

// Restart records the call and marks the container running and healthy.
func (f *FakeRuntime) Restart(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Restarts = append(f.Restarts, name)
	if err := f.FailRestart[name]; err != nil {
		return err
	}
	if _, ok := f.Infos[name]; !ok {
		return fmt.Errorf("no such container: %s", name)
	}
	f.Infos[name] = Info{Exists: true, Running: true, Status: "Up Less than a second"}
	return nil
}

// Limits returns LimitsByName[name].
func (f *FakeRuntime) Limits(_ context.Context, name string) (Limits, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.LimitsByName[name], nil
}

// Close is a no-op.
func (f *FakeRuntime) Close() error { return nil }

var _ Runtime = (*FakeRuntime)(nil)
