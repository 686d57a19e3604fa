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
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisTxRetries bounds the compare-and-set retry loop Transaction runs
// when a concurrent writer changes the key between our read and write.
const redisTxRetries = 10

// casScript compares key's current raw value against ARGV[1] (only when
// ARGV[4] == "1"; otherwise the key must still be absent) and, on a match,
// either deletes it (ARGV[2] == "1") or sets it to ARGV[5] with a PX TTL of
// ARGV[3] milliseconds. Returns 1 on a successful swap, 0 on conflict.
var casScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
local expectPresent = ARGV[4] == "1"
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
else
	redis.call("PSETEX", KEYS[1], ARGV[3], ARGV[5])
end
return 1
`)

type redisRecordWire struct {
	Kind         StateKind `json:"kind"`
	MetricsBytes []byte    `json:"metricsBytes,omitempty"`
	Attempt      int       `json:"attempt,omitempty"`
	StartedAt    time.Time `json:"startedAt,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

func encodeRecord(rec *StoredRecord) ([]byte, error) {
	return json.Marshal(redisRecordWire{
		Kind:         rec.Kind,
		MetricsBytes: rec.MetricsBytes,
		Attempt:      rec.Attempt,
		StartedAt:    rec.StartedAt,
		ExpiresAt:    rec.ExpiresAt,
	})
}

func decodeRecord(data []byte) (*StoredRecord, error) {
	var wire redisRecordWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, err
	}
	return &StoredRecord{
		Kind:         wire.Kind,
		MetricsBytes: wire.MetricsBytes,
		Attempt:      wire.Attempt,
		StartedAt:    wire.StartedAt,
		ExpiresAt:    wire.ExpiresAt,
	}, nil
}

// RedisAdapter is an Adapter backed by Redis. Transition is an arbitrary Go
// closure, not something that can run inside Lua, so Transaction reads the
// raw value, computes the next record in Go, and writes it back through
// casScript: a single atomic round trip that only commits if nothing else
// touched the key since the read. A lost race retries from the read.
type RedisAdapter struct {
	client *redis.Client
}

// NewRedisAdapter wraps an existing *redis.Client.
func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

// Transaction implements Adapter.
func (a *RedisAdapter) Transaction(ctx context.Context, key string, now time.Time, fn Transition) (*StoredRecord, error) {
	for attempt := 0; attempt < redisTxRetries; attempt++ {
		raw, err := a.client.Get(ctx, key).Result()
		present := true
		if err == redis.Nil {
			present = false
		} else if err != nil {
			return nil, fmt.Errorf("coordkit: redis ratelimit read %s: %w", key, err)
		}

		var current *StoredRecord
		if present {
			rec, err := decodeRecord([]byte(raw))
			if err != nil {
				return nil, fmt.Errorf("coordkit: redis ratelimit decode %s: %w", key, err)
			}
			if rec.ExpiresAt.After(now) {
				current = rec
			} else {
				present = false
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
		deleteFlag, ttlMillis, payload := "1", "1", ""
		if next != nil {
			deleteFlag = "0"
			ttl := next.ExpiresAt.Sub(now)
			if ttl <= 0 {
				ttl = time.Millisecond
			}
			ttlMillis = fmt.Sprintf("%d", ttl.Milliseconds())
			encoded, err := encodeRecord(next)
			if err != nil {
				return nil, err
			}
			payload = string(encoded)
		}

		n, err := casScript.Run(ctx, a.client, []string{key}, raw, deleteFlag, ttlMillis, expectPresent, payload).Int()
		if err != nil {
			return nil, fmt.Errorf("coordkit: redis ratelimit transaction %s: %w", key, err)
		}
		if n == 1 {
			return next, nil
		}
	}
	return nil, fmt.Errorf("coordkit: redis ratelimit transaction %s: exceeded %d retries", key, redisTxRetries)
}

// Read implements Adapter.
func (a *RedisAdapter) Read(ctx context.Context, key string, now time.Time) (*StoredRecord, error) {
	data, err := a.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("coordkit: redis ratelimit read %s: %w", key, err)
	}
	rec, err := decodeRecord(data)
	if err != nil {
		return nil, fmt.Errorf("coordkit: redis ratelimit decode %s: %w", key, err)
	}
	if !rec.ExpiresAt.After(now) {
		return nil, nil
	}
	return rec, nil
}

// Remove implements Adapter.
func (a *RedisAdapter) Remove(ctx context.Context, key string) error {
	if err := a.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("coordkit: redis ratelimit remove %s: %w", key, err)
	}
	return nil
}
