// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

//go:build integration

package storage

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
)

func sqlNullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

func sqlNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func setupSQLTable(t *testing.T) *SQLTable {
	t.Helper()

	dsn := os.Getenv("COORDKIT_POSTGRES_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5432 user=postgres dbname=coordkit_test sslmode=disable"
	}

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("postgres not available: %v", err)
	}

	ctx := context.Background()
	table, err := NewSQLTable(ctx, db, "coordkit_sqlstore_test")
	if err != nil {
		t.Fatalf("NewSQLTable() error = %v", err)
	}

	t.Cleanup(func() {
		_ = table.RemoveByPrefix(ctx, "")
		db.Close()
	})

	return table
}

func TestSQLTable_UpsertFindRemove(t *testing.T) {
	table := setupSQLTable(t)
	ctx := context.Background()

	err := table.Transaction(ctx, func(tx *Tx) error {
		return tx.Upsert(ctx, KVRow{Key: "k1", Owner: sqlNullString("lockA"), Payload: []byte("v1")})
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	var found *KVRow
	err = table.Transaction(ctx, func(tx *Tx) error {
		var e error
		found, e = tx.Find(ctx, "k1", time.Now())
		return e
	})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if found == nil || found.Owner.String != "lockA" {
		t.Fatalf("Find() = %+v, want owner lockA", found)
	}

	err = table.Transaction(ctx, func(tx *Tx) error {
		_, e := tx.Remove(ctx, "k1")
		return e
	})
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	err = table.Transaction(ctx, func(tx *Tx) error {
		var e error
		found, e = tx.Find(ctx, "k1", time.Now())
		return e
	})
	if err != nil {
		t.Fatalf("Find() after remove error = %v", err)
	}
	if found != nil {
		t.Fatalf("Find() after remove = %+v, want nil", found)
	}
}

func TestSQLTable_FindExpired(t *testing.T) {
	table := setupSQLTable(t)
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)

	err := table.Transaction(ctx, func(tx *Tx) error {
		return tx.Upsert(ctx, KVRow{Key: "expired", ExpiresAt: sqlNullTime(&past)})
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	var found *KVRow
	err = table.Transaction(ctx, func(tx *Tx) error {
		var e error
		found, e = tx.Find(ctx, "expired", time.Now())
		return e
	})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if found != nil {
		t.Fatal("Find() returned an expired row")
	}
}
