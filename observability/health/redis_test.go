// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

//go:build integration

package health

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
)

func setupRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("COORDKIT_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})

	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisChecker_Healthy(t *testing.T) {
	client := setupRedisClient(t)
	checker := NewRedisChecker("redis", client)

	if got := checker.Name(); got != "redis" {
		t.Errorf("Name() = %q, want %q", got, "redis")
	}

	result := checker.Check(context.Background())
	if result.Status != StatusHealthy {
		t.Errorf("Check().Status = %v, want %v", result.Status, StatusHealthy)
	}
	if result.Message != "" {
		t.Errorf("Check().Message = %q, want empty", result.Message)
	}
}

func TestRedisChecker_UnhealthyOnUnreachableHost(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { client.Close() })
	checker := NewRedisChecker("redis", client)

	result := checker.Check(context.Background())
	if result.Status != StatusUnhealthy {
		t.Errorf("Check().Status = %v, want %v", result.Status, StatusUnhealthy)
	}
	if result.Message == "" {
		t.Error("Check().Message = empty, want a connection error")
	}
}
