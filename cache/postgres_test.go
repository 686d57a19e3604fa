// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

//go:build integration

package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sage-x-project/coordkit/storage"
)

func setupPostgresAdapter(t *testing.T) *PostgresAdapter {
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
	table, err := storage.NewSQLTable(ctx, db, "coordkit_cache_test")
	if err != nil {
		t.Fatalf("NewSQLTable() error = %v", err)
	}
	t.Cleanup(func() {
		_ = table.RemoveByPrefix(ctx, "")
		db.Close()
	})

	return NewPostgresAdapter(table)
}

func TestPostgresAdapter_TransactionPersistsAcrossReads(t *testing.T) {
	a := setupPostgresAdapter(t)
	ctx := context.Background()
	now := time.Now()

	_, err := a.Transaction(ctx, "k1", now, func(current *Record, now time.Time) (*Record, error) {
		if current != nil {
			t.Fatal("expected no prior record on a fresh key")
		}
		return &Record{Value: []byte("hello"), ExpiresAt: now.Add(time.Minute)}, nil
	})
	if err != nil {
		t.Fatalf("Transaction() error = %v", err)
	}

	read, err := a.Read(ctx, "k1", now)
	if err != nil || read == nil || string(read.Value) != "hello" {
		t.Fatalf("Read() = %+v, %v, want hello", read, err)
	}
}

func TestPostgresAdapter_TransactionDeletesOnNil(t *testing.T) {
	a := setupPostgresAdapter(t)
	ctx := context.Background()
	now := time.Now()

	if _, err := a.Transaction(ctx, "k2", now, func(current *Record, now time.Time) (*Record, error) {
		return &Record{Value: []byte("v"), ExpiresAt: now.Add(time.Minute)}, nil
	}); err != nil {
		t.Fatalf("first Transaction() error = %v", err)
	}

	if _, err := a.Transaction(ctx, "k2", now, func(current *Record, now time.Time) (*Record, error) {
		if current == nil {
			t.Fatal("expected the previously written record")
		}
		return nil, nil
	}); err != nil {
		t.Fatalf("second Transaction() error = %v", err)
	}

	read, err := a.Read(ctx, "k2", now)
	if err != nil || read != nil {
		t.Fatalf("Read() after delete = %+v, %v, want nil, nil", read, err)
	}
}

func TestPostgresAdapter_Sweep(t *testing.T) {
	a := setupPostgresAdapter(t)
	ctx := context.Background()
	now := time.Now()

	if _, err := a.Transaction(ctx, "k3", now, func(current *Record, now time.Time) (*Record, error) {
		return &Record{Value: []byte("v"), ExpiresAt: now.Add(-time.Second)}, nil
	}); err != nil {
		t.Fatalf("Transaction() error = %v", err)
	}

	n, err := a.Sweep(ctx, now)
	if err != nil || n < 1 {
		t.Fatalf("Sweep() = %d, %v, want >= 1, nil", n, err)
	}
}
