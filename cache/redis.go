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
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// cacheCasScript mirrors the rate-limiter's compare-and-set script: it only
// commits the write if the key's raw bytes are unchanged (or still absent)
// since the read that produced next, so a racing writer forces a retry
// instead of a lost update.
var cacheCasScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
local expectPresent = ARGV[3] == "1"
local matches
if expectPresent then
	matches = current == ARGV[1]
else
	matches = current == false
end
if not matches then
	return 0
end
if ARGV[2] == "1" then
	redis.call("DEL", KEYS[1])
elseif ARGV[5] == "0" then
	redis.call("SET", KEYS[1], ARGV[4])
else
	redis.call("SET", KEYS[1], ARGV[4], "PX", ARGV[5])
end
return 1
`)

const (
	cacheRedisTxRetries = 10
	cacheScanBatchSize  = 200
)

// RedisAdapter is an Adapter backed by Redis, storing each record's value
// directly as the key's bytes and relying on Redis's own PX expiry for
// eviction rather than a sweep.
type RedisAdapter struct {
	client *redis.Client
}

// NewRedisAdapter wraps an existing *redis.Client.
func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

// Transaction implements Adapter.
func (a *RedisAdapter) Transaction(ctx context.Context, key string, now time.Time, fn Transition) (*Record, error) {
	for attempt := 0; attempt < cacheRedisTxRetries; attempt++ {
		raw, err := a.client.Get(ctx, key).Bytes()
		present := true
		if err == redis.Nil {
			present = false
		} else if err != nil {
			return nil, fmt.Errorf("coordkit: redis cache read %s: %w", key, err)
		}

		var current *Record
		if present {
			current = &Record{Value: raw, ExpiresAt: time.Time{}}
			pttl, err := a.client.PTTL(ctx, key).Result()
			if err != nil {
				return nil, fmt.Errorf("coordkit: redis cache ttl %s: %w", key, err)
			}
			if pttl > 0 {
				current.ExpiresAt = now.Add(pttl)
			}
		}

		next, err := fn(current, now)
		if err != nil {
			return nil, err
		}

		expectPresent := "0"
		if present {
			expectPresent = "1"
		}
		deleteFlag, value, ttlMillis := "1", "", "0"
		if next != nil {
			deleteFlag = "0"
			value = string(next.Value)
			if !next.ExpiresAt.IsZero() {
				ttl := next.ExpiresAt.Sub(now)
				if ttl <= 0 {
					ttl = time.Millisecond
				}
				ttlMillis = fmt.Sprintf("%d", ttl.Milliseconds())
			}
		}

		n, err := cacheCasScript.Run(ctx, a.client, []string{key}, raw, deleteFlag, expectPresent, value, ttlMillis).Int()
		if err != nil {
			return nil, fmt.Errorf("coordkit: redis cache transaction %s: %w", key, err)
		}
		if n == 1 {
			return next, nil
		}
	}
	return nil, fmt.Errorf("coordkit: redis cache transaction %s: exceeded %d retries", key, cacheRedisTxRetries)
}

// Read implements Adapter.
func (a *RedisAdapter) Read(ctx context.Context, key string, now time.Time) (*Record, error) {
	raw, err := a.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("coordkit: redis cache read %s: %w", key, err)
	}
	return &Record{Value: raw}, nil
}

// Remove implements Adapter.
func (a *RedisAdapter) Remove(ctx context.Context, key string) (bool, error) {
	n, err := a.client.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("coordkit: redis cache remove %s: %w", key, err)
	}
	return n > 0, nil
}

// RemoveMany implements Adapter.
func (a *RedisAdapter) RemoveMany(ctx context.Context, keys []string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := a.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("coordkit: redis cache remove many: %w", err)
	}
	return int(n), nil
}

// Clear implements Adapter, scanning rather than KEYS so a large keyspace
// doesn't block the server for the duration of the call.
func (a *RedisAdapter) Clear(ctx context.Context, prefix string) (int, error) {
	var cursor uint64
	n := 0
	for {
		keys, next, err := a.client.Scan(ctx, cursor, prefix+"*", cacheScanBatchSize).Result()
		if err != nil {
			return n, fmt.Errorf("coordkit: redis cache clear %s: %w", prefix, err)
		}
		if len(keys) > 0 {
			removed, err := a.client.Del(ctx, keys...).Result()
			if err != nil {
				return n, fmt.Errorf("coordkit: redis cache clear %s: %w", prefix, err)
			}
			n += int(removed)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return n, nil
}
