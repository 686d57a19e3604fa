// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package ratelimit

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/sage-x-project/coordkit/storage"
)

// PostgresAdapter is an Adapter backed by storage.SQLTable. The record's
// Kind/Attempt/StartedAt/MetricsBytes fields are packed into the shared
// table's opaque Payload column; Owner is left unused.
type PostgresAdapter struct {
	table *storage.SQLTable
}

// NewPostgresAdapter wraps an already-migrated storage.SQLTable.
func NewPostgresAdapter(table *storage.SQLTable) *PostgresAdapter {
	return &PostgresAdapter{table: table}
}

type postgresPayload struct {
	Kind         StateKind `json:"kind"`
	MetricsBytes []byte    `json:"metricsBytes,omitempty"`
	Attempt      int       `json:"attempt,omitempty"`
	StartedAt    time.Time `json:"startedAt,omitempty"`
}

func packPayload(rec *StoredRecord) ([]byte, error) {
	return json.Marshal(postgresPayload{
		Kind:         rec.Kind,
		MetricsBytes: rec.MetricsBytes,
		Attempt:      rec.Attempt,
		StartedAt:    rec.StartedAt,
	})
}

func unpackRow(row *storage.KVRow) (*StoredRecord, error) {
	if row == nil {
		return nil, nil
	}
	var payload postgresPayload
	if err := json.Unmarshal(row.Payload, &payload); err != nil {
		return nil, err
	}
	rec := &StoredRecord{
		Kind:         payload.Kind,
		MetricsBytes: payload.MetricsBytes,
		Attempt:      payload.Attempt,
		StartedAt:    payload.StartedAt,
	}
	if row.ExpiresAt.Valid {
		rec.ExpiresAt = row.ExpiresAt.Time
	}
	return rec, nil
}

// Transaction implements Adapter. storage.SQLTable.Transaction runs at
// serializable isolation, so the read-modify-write cycle is atomic per key
// the same way it is for the lock and cache Postgres adapters.
func (a *PostgresAdapter) Transaction(ctx context.Context, key string, now time.Time, fn Transition) (*StoredRecord, error) {
	var result *StoredRecord
	err := a.table.Transaction(ctx, func(tx *storage.Tx) error {
		row, err := tx.Find(ctx, key, now)
		if err != nil {
			return err
		}
		current, err := unpackRow(row)
		if err != nil {
			return err
		}

		next, err := fn(current, now)
		if err != nil {
			return err
		}
		result = next

		if next == nil {
			_, err := tx.Remove(ctx, key)
			return err
		}
		payload, err := packPayload(next)
		if err != nil {
			return err
		}
		return tx.Upsert(ctx, storage.KVRow{
			Key:       key,
			Payload:   payload,
			ExpiresAt: sql.NullTime{Time: next.ExpiresAt, Valid: true},
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Read implements Adapter.
func (a *PostgresAdapter) Read(ctx context.Context, key string, now time.Time) (*StoredRecord, error) {
	var result *StoredRecord
	err := a.table.Transaction(ctx, func(tx *storage.Tx) error {
		row, err := tx.Find(ctx, key, now)
		if err != nil {
			return err
		}
		result, err = unpackRow(row)
		return err
	})
	return result, err
}

// Remove implements Adapter.
func (a *PostgresAdapter) Remove(ctx context.Context, key string) error {
	return a.table.Transaction(ctx, func(tx *storage.Tx) error {
		_, err := tx.Remove(ctx, key)
		return err
	})
}
