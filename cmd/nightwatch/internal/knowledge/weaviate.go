// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
)

// VectorIndex is the embedding store behind the knowledge base.
type VectorIndex interface {
	// Ready reports whether the store accepts queries.
	Ready(ctx context.Context) (bool, error)

	// Count returns the number of objects of class.
	Count(ctx context.Context, class string) (int, error)
}

// WeaviateIndex implements VectorIndex with the Weaviate client.
type WeaviateIndex struct {
	client *weaviate.Client
}

// NewWeaviateIndex connects to rawURL ("http://host:port" or a bare
// host:port, which is treated as http).
func NewWeaviateIndex(rawURL string) (*WeaviateIndex, error) {
	cfg := weaviate.Config{Host: rawURL, Scheme: "http"}
	switch {
	case strings.HasPrefix(rawURL, "https://"):
		cfg.Scheme = "https"
		cfg.Host = strings.TrimPrefix(rawURL, "https://")
	case strings.HasPrefix(rawURL, "http://"):
		cfg.Host = strings.TrimPrefix(rawURL, "http://")
	}
	cfg.Host = strings.TrimSuffix(cfg.Host, "/")

	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create weaviate client: %w", err)
	}
	return &WeaviateIndex{client: client}, nil
}

// Ready calls the readiness endpoint.
func (w *WeaviateIndex) Ready(ctx context.Context) (bool, error) {
	return w.client.Misc().ReadyChecker().Do(ctx)
}

// Count runs an Aggregate meta count on class.
func (w *WeaviateIndex) Count(ctx context.Context, class string) (int, error) {
	result, err := w.client.GraphQL().Aggregate().
		WithClassName(class).
		WithFields(graphql.Field{
			Name: "meta",
			Fields: []graphql.Field{
				{Name: "count"},
			},
		}).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("aggregate query failed: %w", err)
	}
	if len(result.Errors) > 0 && result.Errors[0] != nil {
		return 0, fmt.Errorf("aggregate query failed: %s", result.Errors[0].Message)
	}

	jsonBytes, err := json.Marshal(result.Data)
	if err != nil {
		return 0, fmt.Errorf("marshal aggregate response: %w", err)
	}
	return parseAggregateCount(jsonBytes, class)
}

func parseAggregateCount(data []byte, class string) (int, error) {
	var response struct {
		Aggregate map[string][]struct {
			Meta struct {
				Count float64 `json:"count"`
			} `json:"meta"`
		} `json:"Aggregate"`
	}
	if err := json.Unmarshal(data, &response); err != nil {
		return 0, fmt.Errorf("unmarshal aggregate response: %w", err)
	}
	groups := response.Aggregate[class]
	if len(groups) == 0 {
		return 0, nil
	}
	return int(groups[0].Meta.Count), nil
}

var _ VectorIndex = (*WeaviateIndex)(nil)
