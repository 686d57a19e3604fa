// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

//go:build integration

package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func setupRedisAdapter(t *testing.T) *RedisAdapter {
	t.Helper()

	addr := os.Getenv("COORDKIT_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	t.Cleanup(func() { client.Close() })
	return NewRedisAdapter(client)
}

func TestRedisAdapter_TransactionPersistsAcrossReads(t *testing.T) {
	a := setupRedisAdapter(t)
	ctx := context.Background()
	key := "coordkit-test-ratelimit:transaction"
	now := time.Now()

	rec, err := a.Transaction(ctx, key, now, func(current *StoredRecord, now time.Time) (*StoredRecord, error) {
		if current != nil {
			t.Fatal("expected no prior record on a fresh key")
		}
		return &StoredRecord{Kind: StateAllowed, Attempt: 1, ExpiresAt: now.Add(time.Minute)}, nil
	})
	if err != nil {
		t.Fatalf("Transaction() error = %v", err)
	}
	if rec == nil || rec.Attempt != 1 {
		t.Fatalf("Transaction() returned = %+v, want Attempt 1", rec)
	}

	read, err := a.Read(ctx, key, now)
	if err != nil || read == nil {
		t.Fatalf("Read() = %+v, %v, want a persisted record", read, err)
	}
	if read.Kind != StateAllowed {
		t.Fatalf("Read().Kind = %v, want ALLOWED", read.Kind)
	}

	if err := a.Remove(ctx, key); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	read, err = a.Read(ctx, key, now)
	if err != nil || read != nil {
		t.Fatalf("Read() after Remove() = %+v, %v, want nil, nil", read, err)
	}
}

func TestRedisAdapter_TransactionDeletesOnNil(t *testing.T) {
	a := setupRedisAdapter(t)
	ctx := context.Background()
	key := "coordkit-test-ratelimit:delete"
	now := time.Now()

	if _, err := a.Transaction(ctx, key, now, func(current *StoredRecord, now time.Time) (*StoredRecord, error) {
		return &StoredRecord{Kind: StateAllowed, ExpiresAt: now.Add(time.Minute)}, nil
	}); err != nil {
		t.Fatalf("first Transaction() error = %v", err)
	}

	if _, err := a.Transaction(ctx, key, now, func(current *StoredRecord, now time.Time) (*StoredRecord, error) {
		if current == nil {
			t.Fatal("expected the previously written record")
		}
		return nil, nil
	}); err != nil {
		t.Fatalf("second Transaction() error = %v", err)
	}

	read, err := a.Read(ctx, key, now)
	if err != nil || read != nil {
		t.Fatalf("Read() after delete = %+v, %v, want nil, nil", read, err)
	}
}
