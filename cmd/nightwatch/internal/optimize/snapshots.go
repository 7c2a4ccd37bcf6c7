// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package optimize

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/containers"
)

// ContainerLimits snapshots the CPU and memory limits of each container.
func ContainerLimits(runtime containers.Runtime, names []string) Snapshotter {
	return SnapshotFunc(func(ctx context.Context) (string, error) {
		if len(names) == 0 {
			return "", fmt.Errorf("no containers declared")
		}
		parts := make([]string, 0, len(names))
		for _, name := range names {
			limits, err := runtime.Limits(ctx, name)
			if err != nil {
				parts = append(parts, name+": unknown")
				continue
			}
			parts = append(parts, name+": "+FormatLimits(limits))
		}
		return strings.Join(parts, "; "), nil
	})
}

// FormatLimits renders limits as "1.50 cpu / 512MiB", with "unlimited"
// for zero values.
func FormatLimits(l containers.Limits) string {
	cpu := "unlimited cpu"
	if l.CPUs > 0 {
		cpu = fmt.Sprintf("%.2f cpu", l.CPUs)
	}
	memory := "unlimited memory"
	if l.MemoryBytes > 0 {
		memory = fmt.Sprintf("%dMiB", l.MemoryBytes>>20)
	}
	return cpu + " / " + memory
}

// PostgresPool snapshots max_connections and current backend count.
func PostgresPool(dsn string) Snapshotter {
	return SnapshotFunc(func(ctx context.Context) (string, error) {
		cfg, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			return "", fmt.Errorf("invalid postgres dsn: %w", err)
		}
		cfg.MaxConns = 1
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return "", fmt.Errorf("postgres connect: %w", err)
		}
		defer pool.Close()

		var maxConns string
		if err := pool.QueryRow(ctx, "SHOW max_connections").Scan(&maxConns); err != nil {
			return "", fmt.Errorf("show max_connections: %w", err)
		}
		var active int
		if err := pool.QueryRow(ctx, "SELECT count(*) FROM pg_stat_activity").Scan(&active); err != nil {
			return "", fmt.Errorf("count backends: %w", err)
		}
		return fmt.Sprintf("max_connections=%s active=%d", maxConns, active), nil
	})
}

// RedisPolicy snapshots the eviction policy and memory cap.
func RedisPolicy(url string) Snapshotter {
	return SnapshotFunc(func(ctx context.Context) (string, error) {
		opts, err := redis.ParseURL(url)
		if err != nil {
			return "", fmt.Errorf("invalid redis url: %w", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()

		policy, err := client.ConfigGet(ctx, "maxmemory-policy").Result()
		if err != nil {
			return "", fmt.Errorf("config get maxmemory-policy: %w", err)
		}
		maxmemory, err := client.ConfigGet(ctx, "maxmemory").Result()
		if err != nil {
			return "", fmt.Errorf("config get maxmemory: %w", err)
		}
		return fmt.Sprintf("maxmemory-policy=%s maxmemory=%s", policy["maxmemory-policy"], maxmemory["maxmemory"]), nil
	})
}

// APILatency snapshots one response-time sample.
func APILatency(sample func(ctx context.Context) (time.Duration, error)) Snapshotter {
	return SnapshotFunc(func(ctx context.Context) (string, error) {
		d, err := sample(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("response time %dms", d.Milliseconds()), nil
	})
}
