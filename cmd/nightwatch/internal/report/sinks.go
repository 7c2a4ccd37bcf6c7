// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"google.golang.org/api/option"

	"github.com/AleutianAI/nightwatch/cmd/nightwatch/config"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/state"
)

// LatestFile is the name of the copy of the most recent report.
const LatestFile = "latest.json"

// ErrNoReport is returned by ReadLatest when no run has been reported yet.
var ErrNoReport = errors.New("no report has been written yet")

// Sink receives an encoded report.
type Sink interface {
	Name() string
	Write(ctx context.Context, report *state.StartupReport, data []byte) error
}

// =============================================================================
// Local files
// =============================================================================

// FileSink writes report-<timestamp>.json and latest.json into Dir.
type FileSink struct {
	Dir string
}

// NewFileSink creates a FileSink.
func NewFileSink(dir string) *FileSink {
	return &FileSink{Dir: dir}
}

// Name implements Sink.
func (s *FileSink) Name() string { return "file" }

// Write implements Sink.
func (s *FileSink) Write(_ context.Context, report *state.StartupReport, data []byte) error {
	_, err := s.WriteReport(report, data)
	return err
}

// WriteReport writes both files and returns the timestamped path.
// latest.json is replaced by rename so readers never see a partial file.
func (s *FileSink) WriteReport(report *state.StartupReport, data []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o750); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}

	name := ReportFileName(report)
	target := filepath.Join(s.Dir, name)
	if err := os.WriteFile(target, data, 0o640); err != nil {
		return "", fmt.Errorf("writing %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.Dir, ".latest-*.json")
	if err != nil {
		return "", fmt.Errorf("staging %s: %w", LatestFile, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("staging %s: %w", LatestFile, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("staging %s: %w", LatestFile, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.Dir, LatestFile)); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("replacing %s: %w", LatestFile, err)
	}
	return target, nil
}

// ReportFileName returns report-<timestamp>.json for report, falling back
// to the current time when the report timestamp does not parse.
func ReportFileName(report *state.StartupReport) string {
	ts, err := time.Parse(TimestampFormat, report.Timestamp)
	if err != nil {
		ts = time.Now()
	}
	return fmt.Sprintf("report-%s.json", ts.UTC().Format("20060102T150405.000Z"))
}

// ReadLatest loads latest.json from dir.
func ReadLatest(dir string) (*state.StartupReport, error) {
	data, err := os.ReadFile(filepath.Join(dir, LatestFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoReport
	}
	if err != nil {
		return nil, fmt.Errorf("reading latest report: %w", err)
	}
	var r state.StartupReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding latest report: %w", err)
	}
	return &r, nil
}

// =============================================================================
// Google Cloud Storage
// =============================================================================

// ObjectUploader stores bytes under an object name.
type ObjectUploader interface {
	Upload(ctx context.Context, object string, data []byte) error
}

// GCSClient uploads to one bucket with a service account key.
type GCSClient struct {
	storageClient *storage.Client
	ProjectID     string
	BucketName    string
}

// NewGCSClient creates a client authenticated with the key at saKeyPath.
func NewGCSClient(ctx context.Context, projectID, bucketName, saKeyPath string) (*GCSClient, error) {
	if _, err := os.Stat(saKeyPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("service account key not found at path: %s", saKeyPath)
	}

	storageClient, err := storage.NewClient(ctx, option.WithCredentialsFile(saKeyPath))
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	return &GCSClient{
		storageClient: storageClient,
		ProjectID:     projectID,
		BucketName:    bucketName,
	}, nil
}

// Upload writes data to gs://bucket/object.
func (c *GCSClient) Upload(ctx context.Context, object string, data []byte) error {
	writer := c.storageClient.Bucket(c.BucketName).Object(object).NewWriter(ctx)
	writer.ContentType = "application/json"
	writer.CacheControl = "no-cache, no-store, must-revalidate"

	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write GCS object %s: %w", object, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer for %s: %w", object, err)
	}
	return nil
}

// Close releases the storage client.
func (c *GCSClient) Close() error {
	return c.storageClient.Close()
}

// GCSSink archives each report under Prefix.
type GCSSink struct {
	uploader ObjectUploader
	prefix   string
}

// NewGCSSink creates a GCSSink.
func NewGCSSink(uploader ObjectUploader, prefix string) *GCSSink {
	return &GCSSink{uploader: uploader, prefix: prefix}
}

// Name implements Sink.
func (s *GCSSink) Name() string { return "gcs" }

// Write implements Sink.
func (s *GCSSink) Write(ctx context.Context, report *state.StartupReport, data []byte) error {
	return s.uploader.Upload(ctx, path.Join(s.prefix, ReportFileName(report)), data)
}

// =============================================================================
// InfluxDB
// =============================================================================

// InfluxSink writes one nightwatch_run point per report.
type InfluxSink struct {
	writer api.WriteAPIBlocking
	client influxdb2.Client
}

// NewInfluxSink connects to the configured InfluxDB bucket.
func NewInfluxSink(cfg config.InfluxConfig) *InfluxSink {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxSink{
		writer: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		client: client,
	}
}

// NewInfluxSinkWithWriter wraps an existing write API.
func NewInfluxSinkWithWriter(writer api.WriteAPIBlocking) *InfluxSink {
	return &InfluxSink{writer: writer}
}

// Name implements Sink.
func (s *InfluxSink) Name() string { return "influx" }

// Write implements Sink.
func (s *InfluxSink) Write(ctx context.Context, report *state.StartupReport, _ []byte) error {
	if err := s.writer.WritePoint(ctx, RunPoint(report)); err != nil {
		return fmt.Errorf("writing nightwatch_run point: %w", err)
	}
	return nil
}

// Close closes the client if the sink owns one.
func (s *InfluxSink) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

// RunPoint converts a report into the nightwatch_run point.
func RunPoint(report *state.StartupReport) *write.Point {
	ts, err := time.Parse(TimestampFormat, report.Timestamp)
	if err != nil {
		ts = time.Now()
	}
	return influxdb2.NewPoint(
		"nightwatch_run",
		map[string]string{
			"action": string(report.Action),
		},
		map[string]interface{}{
			"system_health":     report.SystemHealth,
			"phases":            report.Phases,
			"successful_phases": report.SuccessfulPhases,
			"failed_phases":     report.FailedPhases,
			"optimizations":     report.Optimizations,
			"iterations":        report.Iterations,
			"total_duration_ms": report.TotalDurationMs,
		},
		ts,
	)
}

// =============================================================================
// Prometheus textfile
// =============================================================================

// TextfileWriter writes metrics in node_exporter textfile format.
type TextfileWriter interface {
	WriteTextfile(path string) error
}

// TextfileSink refreshes the node_exporter textfile after each run.
type TextfileSink struct {
	metrics TextfileWriter
	path    string
}

// NewTextfileSink creates a TextfileSink.
func NewTextfileSink(metrics TextfileWriter, path string) *TextfileSink {
	return &TextfileSink{metrics: metrics, path: path}
}

// Name implements Sink.
func (s *TextfileSink) Name() string { return "textfile" }

// Write implements Sink.
func (s *TextfileSink) Write(context.Context, *state.StartupReport, []byte) error {
	return s.metrics.WriteTextfile(s.path)
}

var (
	_ Sink = (*FileSink)(nil)
	_ Sink = (*GCSSink)(nil)
	_ Sink = (*InfluxSink)(nil)
	_ Sink = (*TextfileSink)(nil)

	_ ObjectUploader = (*GCSClient)(nil)
)
