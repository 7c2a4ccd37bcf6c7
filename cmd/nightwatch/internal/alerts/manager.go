// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package alerts implements the Alert Manager used by the orchestrator.

The orchestrator only creates, resolves and lists alerts. Alerts are stored
in an embedded badger database under keys "alert/<id>" as JSON so that
`nightwatch alerts list` and the HTTP surface see what the nightly job
raised.
*/
package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/state"
	"github.com/AleutianAI/nightwatch/pkg/logging"
)

// ErrAlertNotFound is returned when resolving an unknown alert ID.
var ErrAlertNotFound = errors.New("alert not found")

// Alert types raised by nightwatch itself.
const (
	TypePhaseFailure   = "phase_failure"
	TypeHealthDegraded = "health_degraded"
)

const keyPrefix = "alert/"

// =============================================================================
// Interface
// =============================================================================

// Manager is the alert create/resolve/query contract.
type Manager interface {
	// CreateAlert stores a new active alert and returns its ID.
	CreateAlert(ctx context.Context, alertType string, severity state.Severity, title, message, source string, metadata map[string]string) (string, error)

	// ResolveAlert marks an alert resolved. It returns false when the alert
	// was already resolved and ErrAlertNotFound for an unknown ID.
	ResolveAlert(ctx context.Context, id, resolution string) (bool, error)

	// ListAlerts returns alerts oldest first, optionally only active ones.
	ListAlerts(ctx context.Context, activeOnly bool) ([]state.Alert, error)

	// ResolveSource resolves every active alert raised by source and returns
	// how many it resolved.
	ResolveSource(ctx context.Context, source, resolution string) (int, error)

	// Close releases the store.
	Close() error
}

// =============================================================================
// Badger Implementation
// =============================================================================

// BadgerManager is a Manager backed by badger.
type BadgerManager struct {
	db     *badger.DB
	logger *logging.Logger
	now    func() time.Time
}

// NewBadgerManager opens the store described by cfg.
func NewBadgerManager(cfg StoreConfig, logger *logging.Logger) (*BadgerManager, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Slog()
	}
	db, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	return &BadgerManager{db: db, logger: logger, now: time.Now}, nil
}

// CreateAlert implements Manager.
func (m *BadgerManager) CreateAlert(ctx context.Context, alertType string, severity state.Severity, title, message, source string, metadata map[string]string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	alert := state.Alert{
		ID:        uuid.NewString(),
		Type:      alertType,
		Severity:  severity,
		Title:     title,
		Message:   message,
		Timestamp: m.now().UTC(),
		Source:    source,
		Metadata:  metadata,
	}
	data, err := json.Marshal(alert)
	if err != nil {
		return "", fmt.Errorf("encoding alert: %w", err)
	}

	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(alertKey(alert.ID), data)
	})
	if err != nil {
		return "", fmt.Errorf("storing alert: %w", err)
	}

	m.logger.Warn("alert raised",
		"alert_id", alert.ID,
		"type", alertType,
		"severity", string(severity),
		"source", source,
		"title", title,
	)
	return alert.ID, nil
}

// ResolveAlert implements Manager.
func (m *BadgerManager) ResolveAlert(ctx context.Context, id, resolution string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var resolved bool
	err := m.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(alertKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrAlertNotFound
		}
		if err != nil {
			return err
		}

		var alert state.Alert
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &alert)
		}); err != nil {
			return fmt.Errorf("decoding alert %s: %w", id, err)
		}
		if alert.Resolved {
			return nil
		}

		m.markResolved(&alert, resolution)
		data, err := json.Marshal(alert)
		if err != nil {
			return err
		}
		resolved = true
		return txn.Set(alertKey(id), data)
	})
	if err != nil {
		return false, err
	}
	if resolved {
		m.logger.Info("alert resolved", "alert_id", id, "resolution", resolution)
	}
	return resolved, nil
}

// ListAlerts implements Manager.
func (m *BadgerManager) ListAlerts(ctx context.Context, activeOnly bool) ([]state.Alert, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	alerts := []state.Alert{}
	err := m.db.View(func(txn *badger.Txn) error {
		all, err := scan(txn)
		if err != nil {
			return err
		}
		for _, a := range all {
			if activeOnly && a.Resolved {
				continue
			}
			alerts = append(alerts, a)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		if !alerts[i].Timestamp.Equal(alerts[j].Timestamp) {
			return alerts[i].Timestamp.Before(alerts[j].Timestamp)
		}
		return alerts[i].ID < alerts[j].ID
	})
	return alerts, nil
}

// ResolveSource implements Manager.
func (m *BadgerManager) ResolveSource(ctx context.Context, source, resolution string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var count int
	err := m.db.Update(func(txn *badger.Txn) error {
		all, err := scan(txn)
		if err != nil {
			return err
		}
		// Writes happen after the iterator is closed.
		for _, a := range all {
			if a.Resolved || a.Source != source {
				continue
			}
			m.markResolved(&a, resolution)
			data, err := json.Marshal(a)
			if err != nil {
				return err
			}
			if err := txn.Set(alertKey(a.ID), data); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("resolving alerts for %s: %w", source, err)
	}
	if count > 0 {
		m.logger.Info("alerts auto-resolved", "source", source, "count", count)
	}
	return count, nil
}

// Close implements Manager.
func (m *BadgerManager) Close() error {
	return m.db.Close()
}

func (m *BadgerManager) markResolved(a *state.Alert, resolution string) {
	at := m.now().UTC()
	a.Resolved = true
	a.Resolution = resolution
	a.ResolvedAt = &at
}

func scan(txn *badger.Txn) ([]state.Alert, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(keyPrefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	var out []state.Alert
	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		var a state.Alert
		err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &a)
		})
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", strings.TrimPrefix(string(item.Key()), keyPrefix), err)
		}
		out = append(out, a)
	}
	return out, nil
}

func alertKey(id string) []byte {
	return []byte(keyPrefix + id)
}

// =============================================================================
// NoOp Implementation
// =============================================================================

// NopManager accepts every call and stores nothing. Used when alerting is
// disabled.
type NopManager struct{}

// CreateAlert returns a fresh ID.
func (NopManager) CreateAlert(context.Context, string, state.Severity, string, string, string, map[string]string) (string, error) {
	return uuid.NewString(), nil
}

// ResolveAlert reports ErrAlertNotFound.
func (NopManager) ResolveAlert(context.Context, string, string) (bool, error) {
	return false, ErrAlertNotFound
}

// ListAlerts returns an empty list.
func (NopManager) ListAlerts(context.Context, bool) ([]state.Alert, error) {
	return []state.Alert{}, nil
}

// ResolveSource resolves nothing.
func (NopManager) ResolveSource(context.Context, string, string) (int, error) { return 0, nil }

// Close is a no-op.
func (NopManager) Close() error { return nil }

var (
	_ Manager = (*BadgerManager)(nil)
	_ Manager = NopManager{}
)
