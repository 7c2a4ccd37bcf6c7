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

// NightwatchConfig is the full nightwatch.yaml document.
type NightwatchConfig struct {
	Run          RunConfig          `yaml:"run"`
	Inventory    InventoryConfig    `yaml:"inventory"`
	System       SystemConfig       `yaml:"system"`
	Performance  PerformanceConfig  `yaml:"performance"`
	Security     SecurityConfig     `yaml:"security"`
	Knowledge    KnowledgeConfig    `yaml:"knowledge"`
	Optimization OptimizationConfig `yaml:"optimization"`
	Report       ReportConfig       `yaml:"report"`
	Alerts       AlertsConfig       `yaml:"alerts"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
	Logging      LoggingConfig      `yaml:"logging"`
	Server       ServerConfig       `yaml:"server"`
}

// RunConfig bounds the run: probe timeouts and the improvement loop.
type RunConfig struct {
	MaxIterations         int           `yaml:"max_iterations" validate:"min=1,max=50"`
	ProbeTimeout          time.Duration `yaml:"probe_timeout" validate:"gt=0"`
	CommandTimeout        time.Duration `yaml:"command_timeout" validate:"gt=0"`
	SlowResponseThreshold time.Duration `yaml:"slow_response_threshold" validate:"gt=0"`
	SettleInterval        time.Duration `yaml:"settle_interval" validate:"min=0"`
}

// InventoryConfig is the declared deployment. Nothing here is discovered.
type InventoryConfig struct {
	ContainerRuntime string          `yaml:"container_runtime" validate:"oneof=podman docker"`
	DockerHost       string          `yaml:"docker_host,omitempty"`
	Containers       []string        `yaml:"containers" validate:"dive,required"`
	Services         []ServiceConfig `yaml:"services" validate:"dive"`
	CriticalFiles    []string        `yaml:"critical_files"`
}

// ServiceConfig declares one service endpoint.
type ServiceConfig struct {
	Name     string `yaml:"name" validate:"required"`
	Kind     string `yaml:"kind" validate:"oneof=http tcp redis postgres"`
	Endpoint string `yaml:"endpoint" validate:"required"`
	// Container is the backing container restarted when the service is unreachable.
	Container string `yaml:"container,omitempty"`
}

// SystemConfig lists the runtimes probed by the system validator.
type SystemConfig struct {
	Shell          string          `yaml:"shell"`
	Runtimes       []RuntimeConfig `yaml:"runtimes" validate:"dive"`
	ModelServerURL string          `yaml:"model_server_url"`
	DiskPath       string          `yaml:"disk_path"`
}

// RuntimeConfig is one version probe, e.g. {podman, [--version]}.
type RuntimeConfig struct {
	Name     string   `yaml:"name" validate:"required"`
	Command  string   `yaml:"command" validate:"required"`
	Args     []string `yaml:"args"`
	Required bool     `yaml:"required"`
}

// PerformanceConfig points the analyzer at a status endpoint.
type PerformanceConfig struct {
	StatusURL string `yaml:"status_url"`
	DiskPath  string `yaml:"disk_path"`
}

// SecurityConfig configures the dependency staleness check.
type SecurityConfig struct {
	OutdatedCommand []string `yaml:"outdated_command"`
	// OutdatedFormat is "go" (go list -m -u output) or "lines".
	OutdatedFormat string `yaml:"outdated_format" validate:"omitempty,oneof=go lines"`
	WorkDir        string `yaml:"work_dir,omitempty"`
}

// KnowledgeConfig locates the document store and search index.
type KnowledgeConfig struct {
	DocumentsDir  string `yaml:"documents_dir"`
	IndexFile     string `yaml:"index_file"`
	SearchURL     string `yaml:"search_url"`
	WeaviateURL   string `yaml:"weaviate_url"`
	WeaviateClass string `yaml:"weaviate_class"`
}

// OptimizationConfig names the live endpoints used for before-snapshots.
type OptimizationConfig struct {
	DatastoreDSN string `yaml:"datastore_dsn"`
	CacheURL     string `yaml:"cache_url"`
}

// ReportConfig controls where the report is persisted.
type ReportConfig struct {
	Dir             string       `yaml:"dir" validate:"required"`
	MetricsTextfile string       `yaml:"metrics_textfile,omitempty"`
	GCS             GCSConfig    `yaml:"gcs"`
	Influx          InfluxConfig `yaml:"influx"`
}

// GCSConfig enables uploading reports to a bucket.
type GCSConfig struct {
	Enabled         bool   `yaml:"enabled"`
	ProjectID       string `yaml:"project_id" validate:"required_if=Enabled true"`
	Bucket          string `yaml:"bucket" validate:"required_if=Enabled true"`
	CredentialsFile string `yaml:"credentials_file" validate:"required_if=Enabled true"`
	Prefix          string `yaml:"prefix"`
}

// InfluxConfig enables writing one point per run.
type InfluxConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url" validate:"required_if=Enabled true"`
	Token   string `yaml:"token"`
	Org     string `yaml:"org" validate:"required_if=Enabled true"`
	Bucket  string `yaml:"bucket" validate:"required_if=Enabled true"`
}

// AlertsConfig enables the local alert store.
type AlertsConfig struct {
	Enabled         bool   `yaml:"enabled"`
	StoreDir        string `yaml:"store_dir"`
	HealthThreshold int    `yaml:"health_threshold" validate:"min=0,max=100"`
}

// TelemetryConfig configures tracing and metrics.
type TelemetryConfig struct {
	ServiceName  string `yaml:"service_name"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure"`
}

// LoggingConfig configures pkg/logging.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Dir   string `yaml:"dir"`
	JSON  bool   `yaml:"json"`
}

// ServerConfig configures `nightwatch serve`.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}
