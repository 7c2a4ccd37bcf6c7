// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package connectivity

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Pinger checks a datastore endpoint with its native protocol.
type Pinger interface {
	Ping(ctx context.Context, endpoint string) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context, endpoint string) error

// Ping calls f.
func (f PingerFunc) Ping(ctx context.Context, endpoint string) error { return f(ctx, endpoint) }

// DefaultPingers returns the redis and postgres pingers.
func DefaultPingers() map[string]Pinger {
	return map[string]Pinger{
		"redis":    RedisPinger{},
		"postgres": PostgresPinger{},
	}
}

// RedisPinger sends PING to a redis:// URL.
type RedisPinger struct{}

// Ping opens a client, pings and closes it.
func (RedisPinger) Ping(ctx context.Context, endpoint string) error {
	opts, err := redis.ParseURL(endpoint)
	if err != nil {
		return fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// PostgresPinger pings a postgres:// DSN through a single-connection pool.
type PostgresPinger struct{}

// Ping opens a pool, pings and closes it.
func (PostgresPinger) Ping(ctx context.Context, endpoint string) error {
	cfg, err := pgxpool.ParseConfig(endpoint)
	if err != nil {
		return fmt.Errorf("invalid postgres dsn: %w", err)
	}
	cfg.MaxConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("postgres connect: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}
