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

package lock

import (
	"context"
	"database/sql"
	"time"

	"github.com/sage-x-project/coordkit/storage"
)

// PostgresAdapter is an Adapter backed by storage.SQLTable, the shared
// find/upsert/remove primitive table also used by the cache and
// rate-limiter Postgres adapters.
type PostgresAdapter struct {
	table *storage.SQLTable
}

// NewPostgresAdapter wraps an already-migrated storage.SQLTable.
func NewPostgresAdapter(table *storage.SQLTable) *PostgresAdapter {
	return &PostgresAdapter{table: table}
}

// Acquire implements Adapter. A ttl of zero (or less) stores a null
// expires_at, a non-expiring lock that Find treats as permanently live.
func (a *PostgresAdapter) Acquire(ctx context.Context, key, lockID string, ttl time.Duration, now time.Time) (bool, error) {
	acquired := false
	err := a.table.Transaction(ctx, func(tx *storage.Tx) error {
		row, err := tx.Find(ctx, key, now)
		if err != nil {
			return err
		}
		if row != nil {
			return nil
		}
		var expiresAt sql.NullTime
		if ttl > 0 {
			expiresAt = sql.NullTime{Time: now.Add(ttl), Valid: true}
		}
		acquired = true
		return tx.Upsert(ctx, storage.KVRow{
			Key:       key,
			Owner:     sql.NullString{String: lockID, Valid: true},
			ExpiresAt: expiresAt,
		})
	})
	return acquired, err
}

// Release implements Adapter. Find already treats expired rows as absent,
// so an expired row (even one this lockID previously owned) yields false.
func (a *PostgresAdapter) Release(ctx context.Context, key, lockID string) (bool, error) {
	released := false
	err := a.table.Transaction(ctx, func(tx *storage.Tx) error {
		row, err := tx.Find(ctx, key, time.Now())
		if err != nil {
			return err
		}
		if row == nil || !row.Owner.Valid || row.Owner.String != lockID {
			return nil
		}
		ok, err := tx.Remove(ctx, key)
		released = ok
		return err
	})
	return released, err
}

// ForceRelease implements Adapter. It deletes unconditionally, bypassing
// Find's expiry filtering so stale rows are cleaned up too.
func (a *PostgresAdapter) ForceRelease(ctx context.Context, key string) (bool, error) {
	removed := false
	err := a.table.Transaction(ctx, func(tx *storage.Tx) error {
		ok, err := tx.Remove(ctx, key)
		removed = ok
		return err
	})
	return removed, err
}

// Refresh implements Adapter. A row with a null expires_at is non-expiring
// and has nothing to extend, so it is rejected even if lockID owns it.
func (a *PostgresAdapter) Refresh(ctx context.Context, key, lockID string, ttl time.Duration, now time.Time) (bool, error) {
	refreshed := false
	err := a.table.Transaction(ctx, func(tx *storage.Tx) error {
		row, err := tx.Find(ctx, key, now)
		if err != nil {
			return err
		}
		if row == nil || !row.Owner.Valid || row.Owner.String != lockID || !row.ExpiresAt.Valid {
			return nil
		}
		refreshed = true
		expiresAt := now.Add(ttl)
		return tx.UpdateExpiration(ctx, key, &expiresAt)
	})
	return refreshed, err
}

// GetState implements Adapter.
func (a *PostgresAdapter) GetState(ctx context.Context, key, lockID string, now time.Time) (State, error) {
	var state State
	err := a.table.Transaction(ctx, func(tx *storage.Tx) error {
		row, err := tx.Find(ctx, key, now)
		if err != nil {
			return err
		}
		if row == nil {
			state = State{Kind: StateExpired}
			return nil
		}
		if !row.Owner.Valid || row.Owner.String != lockID {
			state = State{Kind: StateUnavailable}
			return nil
		}
		remaining := time.Duration(0)
		if row.ExpiresAt.Valid {
			remaining = row.ExpiresAt.Time.Sub(now)
		}
		state = State{Kind: StateAcquired, RemainingTime: remaining}
		return nil
	})
	return state, err
}
