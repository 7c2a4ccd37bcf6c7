// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package knowledge validates the document store and search index that
// back retrieval: documents on disk, entries in the search index, vectors
// in Weaviate and a live search probe.
package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/AleutianAI/nightwatch/cmd/nightwatch/config"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/probe"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/state"
	"github.com/AleutianAI/nightwatch/pkg/logging"
)

// Validator checks the knowledge base. Every check is independent;
// partial results are normal.
type Validator struct {
	cfg     config.KnowledgeConfig
	timeout time.Duration
	prober  probe.Prober
	index   VectorIndex
	logger  *logging.Logger
}

// NewValidator creates a Validator. index may be nil when no vector store
// is configured.
func NewValidator(cfg config.KnowledgeConfig, timeout time.Duration, prober probe.Prober, index VectorIndex, logger *logging.Logger) *Validator {
	return &Validator{cfg: cfg, timeout: timeout, prober: prober, index: index, logger: logger}
}

// Validate runs all checks. It never fails.
func (v *Validator) Validate(ctx context.Context) *state.KnowledgeStatus {
	ks := &state.KnowledgeStatus{}

	if v.cfg.DocumentsDir != "" {
		n, err := CountDocuments(logging.ExpandPath(v.cfg.DocumentsDir))
		if err != nil {
			ks.Notes = append(ks.Notes, err.Error())
		}
		ks.Documents = n
	}

	if v.cfg.IndexFile != "" {
		n, err := CountIndexEntries(logging.ExpandPath(v.cfg.IndexFile))
		if err != nil {
			ks.Notes = append(ks.Notes, err.Error())
		}
		ks.Indexes = n
	}

	if v.index != nil && v.cfg.WeaviateClass != "" {
		cctx, cancel := context.WithTimeout(ctx, v.timeout)
		n, err := v.index.Count(cctx, v.cfg.WeaviateClass)
		cancel()
		if err != nil {
			v.logger.Warn("embedding count failed", "class", v.cfg.WeaviateClass, "error", err)
			ks.Notes = append(ks.Notes, err.Error())
		} else {
			ks.Embeddings = n
		}
	}

	ks.Searchable = v.searchable(ctx, ks)
	return ks
}

func (v *Validator) searchable(ctx context.Context, ks *state.KnowledgeStatus) bool {
	if v.cfg.SearchURL != "" {
		resp, err := v.prober.HTTPGet(ctx, v.timeout, v.cfg.SearchURL)
		if err != nil {
			ks.Notes = append(ks.Notes, "search probe: "+err.Error())
			return false
		}
		if resp.StatusCode >= 400 || len(resp.Body) == 0 {
			ks.Notes = append(ks.Notes, fmt.Sprintf("search probe returned HTTP %d", resp.StatusCode))
			return false
		}
		return true
	}
	if v.index != nil {
		cctx, cancel := context.WithTimeout(ctx, v.timeout)
		defer cancel()
		ready, err := v.index.Ready(cctx)
		if err != nil {
			ks.Notes = append(ks.Notes, "vector index readiness: "+err.Error())
			return false
		}
		return ready
	}
	return false
}

// CountDocuments counts regular files under dir. A missing directory
// counts as zero without error.
func CountDocuments(dir string) (int, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return 0, nil
	}
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			count++
		}
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("count documents in %s: %w", dir, err)
	}
	return count, nil
}

// CountIndexEntries counts entries in a JSON search-index file. A top
// level array counts its elements; an object with a "documents" array
// counts that array; any other object counts its keys. A missing file
// counts as zero without error.
func CountIndexEntries(path string) (int, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read search index: %w", err)
	}

	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err == nil {
		return len(list), nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return 0, fmt.Errorf("parse search index %s: %w", path, err)
	}
	if raw, ok := obj["documents"]; ok {
		if err := json.Unmarshal(raw, &list); err == nil {
			return len(list), nil
		}
	}
	return len(obj), nil
}
