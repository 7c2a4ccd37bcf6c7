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
	"context"
	"sync"
	"time"
)

// MockProber is a test double for Prober.
//
// Configure the mock by setting function fields before use. If a function
// field is nil and the corresponding method is called, it will panic.
//
// # Examples
//
//	mock := &MockProber{
//	    RunFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
//	        if name == "podman" && args[0] == "ps" {
//	            return []byte("Up 2 hours (healthy)\n"), nil
//	        }
//	        return nil, fmt.Errorf("unexpected command: %s", name)
//	    },
//	}
type MockProber struct {
	LookPathFunc       func(name string) (string, error)
	CommandVersionFunc func(ctx context.Context, name string, args ...string) (string, error)
	RunFunc            func(ctx context.Context, name string, args ...string) ([]byte, error)
	HTTPGetFunc        func(ctx context.Context, url string) (*HTTPResponse, error)
	TCPConnectFunc     func(ctx context.Context, address string) (time.Duration, error)

	// Calls records all method invocations for verification
	Calls []ProberCall

	mu sync.Mutex
}

// ProberCall records a single method invocation.
type ProberCall struct {
	Method string
	Target string
	Args   []string
}

func (m *MockProber) record(method, target string, args []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, ProberCall{Method: method, Target: target, Args: args})
}

// LookPath delegates to LookPathFunc and records the call.
func (m *MockProber) LookPath(name string) (string, error) {
	m.record("LookPath", name, nil)
	if m.LookPathFunc == nil {
		panic("MockProber.LookPathFunc not set")
	}
	return m.LookPathFunc(name)
}

// CommandVersion delegates to CommandVersionFunc and records the call.
func (m *MockProber) CommandVersion(ctx context.Context, _ time.Duration, name string, args ...string) (string, error) {
	m.record("CommandVersion", name, args)
	if m.CommandVersionFunc == nil {
		panic("MockProber.CommandVersionFunc not set")
	}
	return m.CommandVersionFunc(ctx, name, args...)
}

// Run delegates to RunFunc and records the call.
func (m *MockProber) Run(ctx context.Context, _ time.Duration, name string, args ...string) ([]byte, error) {
	m.record("Run", name, args)
	if m.RunFunc == nil {
		panic("MockProber.RunFunc not set")
	}
	return m.RunFunc(ctx, name, args...)
}

// HTTPGet delegates to HTTPGetFunc and records the call.
func (m *MockProber) HTTPGet(ctx context.Context, _ time.Duration, url string) (*HTTPResponse, error) {
	m.record("HTTPGet", url, nil)
	if m.HTTPGetFunc == nil {
		panic("MockProber.HTTPGetFunc not set")
	}
	return m.HTTPGetFunc(ctx, url)
}

// TCPConnect delegates to TCPConnectFunc and records the call.
func (m *MockProber) TCPConnect(ctx context.Context, _ time.Duration, address string) (time.Duration, error) {
	m.record("TCPConnect", address, nil)
	if m.TCPConnectFunc == nil {
		panic("MockProber.TCPConnectFunc not set")
	}
	return m.TCPConnectFunc(ctx, address)
}

// Reset clears all recorded calls.
func (m *MockProber) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
}

// GetCalls returns a copy of all recorded calls.
func (m *MockProber) GetCalls() []ProberCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]ProberCall, len(m.Calls))
	copy(result, m.Calls)
	return result
}

// CallsTo returns the recorded calls of one method.
func (m *MockProber) CallsTo(method string) []ProberCall {
	var out []ProberCall
	for _, c := range m.GetCalls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// MockHostSampler is a test double for HostSampler. Zero value returns
// zeros and no errors.
type MockHostSampler struct {
	CPU       float64
	CPUErr    error
	Disk      float64
	DiskErr   error
	Available uint64
	Total     uint64
	MemErr    error
}

// CPUPercent returns CPU, CPUErr.
func (m *MockHostSampler) CPUPercent(context.Context, time.Duration) (float64, error) {
	return m.CPU, m.CPUErr
}

// DiskUsedPercent returns Disk, DiskErr.
func (m *MockHostSampler) DiskUsedPercent(context.Context, string) (float64, error) {
	return m.Disk, m.DiskErr
}

// Memory returns Available, Total, MemErr.
func (m *MockHostSampler) Memory(context.Context) (uint64, uint64, error) {
	return m.Available, m.Total, m.MemErr
}
