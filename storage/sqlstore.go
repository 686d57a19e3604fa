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

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// KVRow is one row of the shared coordination table that backs the
// Postgres-flavored lock, cache, and rate-limiter adapters. Each engine
// uses a disjoint subset of the columns: lock uses Owner as lockId and
// leaves Payload empty, cache stores its serialized value in Payload, the
// rate-limiter stores its serialized state in Payload.
type KVRow struct {
	Key       string         `db:"key"`
	Owner     sql.NullString `db:"owner"`
	Payload   []byte         `db:"payload"`
	ExpiresAt sql.NullTime   `db:"expires_at"`
}

// SQLTable is a sqlx-backed table shared by the Postgres lock, cache, and
// rate-limiter adapters. It exposes the find/upsert/remove primitives the
// CRUD-flavor adapter contracts in SPEC_FULL.md §6 describe, executed
// inside a single serializable transaction per call.
type SQLTable struct {
	db   *sqlx.DB
	name string
}

// NewSQLTable wraps db and ensures the backing table exists, creating it
// under the given name (CREATE TABLE IF NOT EXISTS) when it is absent.
func NewSQLTable(ctx context.Context, db *sqlx.DB, name string) (*SQLTable, error) {
	t := &SQLTable{db: db, name: name}
	if err := t.migrate(ctx); err != nil {
		return nil, fmt.Errorf("coordkit: migrate table %s: %w", name, err)
	}
	return t, nil
}

func (t *SQLTable) migrate(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key         TEXT PRIMARY KEY,
			owner       TEXT,
			payload     BYTEA NOT NULL DEFAULT '',
			expires_at  TIMESTAMPTZ
		)
	`, t.name)
	_, err := t.db.ExecContext(ctx, query)
	return err
}

// Tx is the set of primitives available inside a transaction.
type Tx struct {
	tx   *sqlx.Tx
	name string
}

// Transaction runs fn inside a serializable transaction and commits iff fn
// returns a nil error.
func (t *SQLTable) Transaction(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := t.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("coordkit: begin transaction: %w", err)
	}

	if err := fn(&Tx{tx: sqlTx, name: t.name}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	return sqlTx.Commit()
}

// Find reads the row for key, or returns (nil, nil) if absent or expired.
func (tx *Tx) Find(ctx context.Context, key string, now time.Time) (*KVRow, error) {
	query := fmt.Sprintf(`SELECT key, owner, payload, expires_at FROM %s WHERE key = $1 FOR UPDATE`, tx.name)
	var row KVRow
	err := tx.tx.GetContext(ctx, &row, query, key)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("coordkit: find %s: %w", key, err)
	}
	if row.ExpiresAt.Valid && !row.ExpiresAt.Time.After(now) {
		return nil, nil
	}
	return &row, nil
}

// Upsert inserts or overwrites the row for key.
func (tx *Tx) Upsert(ctx context.Context, row KVRow) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (key, owner, payload, expires_at)
		VALUES (:key, :owner, :payload, :expires_at)
		ON CONFLICT (key) DO UPDATE SET
			owner = EXCLUDED.owner,
			payload = EXCLUDED.payload,
			expires_at = EXCLUDED.expires_at
	`, tx.name)
	_, err := tx.tx.NamedExecContext(ctx, query, row)
	if err != nil {
		return fmt.Errorf("coordkit: upsert %s: %w", row.Key, err)
	}
	return nil
}

// UpdateExpiration updates only the expires_at column for key, leaving
// owner/payload untouched.
func (tx *Tx) UpdateExpiration(ctx context.Context, key string, expiresAt *time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET expires_at = $1 WHERE key = $2`, tx.name)
	_, err := tx.tx.ExecContext(ctx, query, nullableTime(expiresAt), key)
	if err != nil {
		return fmt.Errorf("coordkit: update expiration %s: %w", key, err)
	}
	return nil
}

// Remove deletes the row for key unconditionally, reporting whether a row existed.
func (tx *Tx) Remove(ctx context.Context, key string) (bool, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, tx.name)
	result, err := tx.tx.ExecContext(ctx, query, key)
	if err != nil {
		return false, fmt.Errorf("coordkit: remove %s: %w", key, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("coordkit: remove %s: %w", key, err)
	}
	return n > 0, nil
}

// RemoveByPrefix deletes every row whose key starts with prefix.
func (t *SQLTable) RemoveByPrefix(ctx context.Context, prefix string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE key LIKE $1`, t.name)
	_, err := t.db.ExecContext(ctx, query, prefix+"%")
	if err != nil {
		return fmt.Errorf("coordkit: clear prefix %s: %w", prefix, err)
	}
	return nil
}

// RemoveByPrefixCounted deletes every row whose key starts with prefix and
// reports how many rows were removed, for callers (the cache engine's
// clear operation) that need the count RemoveByPrefix discards.
func (t *SQLTable) RemoveByPrefixCounted(ctx context.Context, prefix string) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE key LIKE $1`, t.name)
	result, err := t.db.ExecContext(ctx, query, prefix+"%")
	if err != nil {
		return 0, fmt.Errorf("coordkit: clear prefix %s: %w", prefix, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("coordkit: clear prefix %s: %w", prefix, err)
	}
	return n, nil
}

// RemoveMany deletes every row whose key is in keys and reports how many
// rows were removed.
func (t *SQLTable) RemoveMany(ctx context.Context, keys []string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = ANY($1)`, t.name)
	result, err := t.db.ExecContext(ctx, query, pq.Array(keys))
	if err != nil {
		return 0, fmt.Errorf("coordkit: remove many: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("coordkit: remove many: %w", err)
	}
	return n, nil
}

// RemoveExpired deletes every row whose expires_at has elapsed as of now,
// for adapters (cache) that need a periodic sweep against backends with no
// native per-row TTL.
func (t *SQLTable) RemoveExpired(ctx context.Context, now time.Time) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE expires_at IS NOT NULL AND expires_at <= $1`, t.name)
	result, err := t.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("coordkit: remove expired: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("coordkit: remove expired: %w", err)
	}
	return n, nil
}

// Ping verifies the underlying database connection is reachable, for use
// by health.Checker implementations.
func (t *SQLTable) Ping(ctx context.Context) error {
	return t.db.PingContext(ctx)
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
