// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import "time"

// DefaultConfig returns the inventory of the standard local stack: the Go
// orchestrator, the RAG engine, Ollama, Weaviate, Postgres and Redis.
func DefaultConfig() NightwatchConfig {
	return NightwatchConfig{
		Run: RunConfig{
			MaxIterations:         5,
			ProbeTimeout:          5 * time.Second,
			CommandTimeout:        10 * time.Second,
			SlowResponseThreshold: 1000 * time.Millisecond,
			SettleInterval:        5 * time.Second,
		},
		Inventory: InventoryConfig{
			ContainerRuntime: "podman",
			Containers: []string{
				"aleutian-go-orchestrator",
				"aleutian-rag-engine",
				"aleutian-weaviate",
				"aleutian-postgres",
				"aleutian-redis",
			},
			Services: []ServiceConfig{
				{Name: "orchestrator", Kind: "http", Endpoint: "http://localhost:12210/health", Container: "aleutian-go-orchestrator"},
				{Name: "rag-engine", Kind: "http", Endpoint: "http://localhost:12125/health", Container: "aleutian-rag-engine"},
				{Name: "ollama", Kind: "http", Endpoint: "http://localhost:11434/api/tags"},
				{Name: "weaviate", Kind: "http", Endpoint: "http://localhost:12127/v1/.well-known/ready", Container: "aleutian-weaviate"},
				{Name: "postgres", Kind: "postgres", Endpoint: "postgres://aleutian@localhost:5432/aleutian?sslmode=disable", Container: "aleutian-postgres"},
				{Name: "redis", Kind: "redis", Endpoint: "redis://localhost:6379/0", Container: "aleutian-redis"},
			},
			CriticalFiles: []string{
				".env",
				"nightwatch.yaml",
				"podman-compose.yml",
				"secrets/postgres_password",
			},
		},
		System: SystemConfig{
			Shell: "sh",
			Runtimes: []RuntimeConfig{
				{Name: "podman", Command: "podman", Args: []string{"--version"}, Required: true},
				{Name: "ollama", Command: "ollama", Args: []string{"--version"}},
				{Name: "go", Command: "go", Args: []string{"version"}},
				{Name: "python", Command: "python3", Args: []string{"--version"}},
				{Name: "git", Command: "git", Args: []string{"--version"}},
			},
			ModelServerURL: "http://localhost:11434/api/version",
			DiskPath:       "/",
		},
		Performance: PerformanceConfig{
			StatusURL: "http://localhost:12210/health",
			DiskPath:  "/",
		},
		Security: SecurityConfig{
			OutdatedCommand: []string{"go", "list", "-m", "-u", "all"},
			OutdatedFormat:  "go",
		},
		Knowledge: KnowledgeConfig{
			DocumentsDir:  "data/documents",
			IndexFile:     "data/search_index.json",
			SearchURL:     "http://localhost:12210/v1/search?q=health",
			WeaviateURL:   "http://localhost:12127",
			WeaviateClass: "Document",
		},
		Optimization: OptimizationConfig{
			DatastoreDSN: "postgres://aleutian@localhost:5432/aleutian?sslmode=disable",
			CacheURL:     "redis://localhost:6379/0",
		},
		Report: ReportConfig{
			Dir: "~/.nightwatch/reports",
		},
		Alerts: AlertsConfig{
			Enabled:         true,
			StoreDir:        "~/.nightwatch/alerts",
			HealthThreshold: 70,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "nightwatch",
			Insecure:    true,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "~/.nightwatch/logs",
		},
		Server: ServerConfig{
			Addr: ":12290",
		},
	}
}
