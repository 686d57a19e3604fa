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

package cache

import (
	"context"
	"database/sql"
	"time"

	"github.com/sage-x-project/coordkit/storage"
)

// PostgresAdapter is an Adapter backed by the shared coordination table,
// storing a record's value directly as the row's payload. Expiration is
// enforced by storage.Tx.Find's own check plus a periodic Sweep, since
// Postgres has no native per-row TTL.
type PostgresAdapter struct {
	table *storage.SQLTable
}

// NewPostgresAdapter wraps an existing *storage.SQLTable.
func NewPostgresAdapter(table *storage.SQLTable) *PostgresAdapter {
	return &PostgresAdapter{table: table}
}

func rowToRecord(row *storage.KVRow) *Record {
	if row == nil {
		return nil
	}
	rec := &Record{Value: row.Payload}
	if row.ExpiresAt.Valid {
		rec.ExpiresAt = row.ExpiresAt.Time
	}
	return rec
}

// Transaction implements Adapter.
func (a *PostgresAdapter) Transaction(ctx context.Context, key string, now time.Time, fn Transition) (*Record, error) {
	var result *Record
	err := a.table.Transaction(ctx, func(tx *storage.Tx) error {
		row, err := tx.Find(ctx, key, now)
		if err != nil {
			return err
		}

		next, err := fn(rowToRecord(row), now)
		if err != nil {
			return err
		}
		result = next

		if next == nil {
			_, err := tx.Remove(ctx, key)
			return err
		}

		expiresAt := sql.NullTime{}
		if !next.ExpiresAt.IsZero() {
			expiresAt = sql.NullTime{Time: next.ExpiresAt, Valid: true}
		}
		return tx.Upsert(ctx, storage.KVRow{Key: key, Payload: next.Value, ExpiresAt: expiresAt})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Read implements Adapter.
func (a *PostgresAdapter) Read(ctx context.Context, key string, now time.Time) (*Record, error) {
	var result *Record
	err := a.table.Transaction(ctx, func(tx *storage.Tx) error {
		row, err := tx.Find(ctx, key, now)
		if err != nil {
			return err
		}
		result = rowToRecord(row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Remove implements Adapter.
func (a *PostgresAdapter) Remove(ctx context.Context, key string) (bool, error) {
	var existed bool
	err := a.table.Transaction(ctx, func(tx *storage.Tx) error {
		var err error
		existed, err = tx.Remove(ctx, key)
		return err
	})
	return existed, err
}

// RemoveMany implements Adapter.
func (a *PostgresAdapter) RemoveMany(ctx context.Context, keys []string) (int, error) {
	n, err := a.table.RemoveMany(ctx, keys)
	return int(n), err
}

// Clear implements Adapter.
func (a *PostgresAdapter) Clear(ctx context.Context, prefix string) (int, error) {
	n, err := a.table.RemoveByPrefixCounted(ctx, prefix)
	return int(n), err
}

// Sweep implements Sweeper, evicting every row whose TTL has elapsed.
func (a *PostgresAdapter) Sweep(ctx context.Context, now time.Time) (int, error) {
	n, err := a.table.RemoveExpired(ctx, now)
	return int(n), err
}
