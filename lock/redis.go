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
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes key iff its value equals the caller's lockID,
// matching the atomic "delete-if-owner" requirement.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`)

// refreshScript extends key's TTL iff its value equals the caller's lockID
// and the key currently carries a TTL at all: a key Redis reports PTTL -1
// for (no expiration, i.e. a non-expiring lock) has nothing to extend and
// is rejected even if owned by the caller.
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) ~= ARGV[1] then
	return 0
end
if redis.call("PTTL", KEYS[1]) == -1 then
	return 0
end
return redis.call("PEXPIRE", KEYS[1], ARGV[2])
`)

// RedisAdapter is an Adapter backed by Redis. Native key expiration handles
// the "absent or expired" precondition: an expired key is simply gone.
type RedisAdapter struct {
	client *redis.Client
}

// NewRedisAdapter wraps an existing *redis.Client.
func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

// Acquire implements Adapter using SET NX PX, which natively expresses
// "insert iff absent" and ignores already-expired keys (Redis deletes them
// lazily/actively on its own). A ttl of zero (or less) falls through to a
// bare SETNX with no expiration, Redis's native non-expiring key.
func (a *RedisAdapter) Acquire(ctx context.Context, key, lockID string, ttl time.Duration, now time.Time) (bool, error) {
	if ttl < 0 {
		ttl = 0
	}
	ok, err := a.client.SetNX(ctx, key, lockID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("coordkit: redis lock acquire %s: %w", key, err)
	}
	return ok, nil
}

// Release implements Adapter via releaseScript.
func (a *RedisAdapter) Release(ctx context.Context, key, lockID string) (bool, error) {
	n, err := releaseScript.Run(ctx, a.client, []string{key}, lockID).Int()
	if err != nil {
		return false, fmt.Errorf("coordkit: redis lock release %s: %w", key, err)
	}
	return n == 1, nil
}

// ForceRelease implements Adapter.
func (a *RedisAdapter) ForceRelease(ctx context.Context, key string) (bool, error) {
	n, err := a.client.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("coordkit: redis lock force release %s: %w", key, err)
	}
	return n > 0, nil
}

// Refresh implements Adapter via refreshScript.
func (a *RedisAdapter) Refresh(ctx context.Context, key, lockID string, ttl time.Duration, now time.Time) (bool, error) {
	n, err := refreshScript.Run(ctx, a.client, []string{key}, lockID, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("coordkit: redis lock refresh %s: %w", key, err)
	}
	return n == 1, nil
}

// GetState implements Adapter.
func (a *RedisAdapter) GetState(ctx context.Context, key, lockID string, now time.Time) (State, error) {
	owner, err := a.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return State{Kind: StateExpired}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("coordkit: redis lock get state %s: %w", key, err)
	}
	if owner != lockID {
		return State{Kind: StateUnavailable}, nil
	}
	ttl, err := a.client.PTTL(ctx, key).Result()
	if err != nil {
		return State{}, fmt.Errorf("coordkit: redis lock ttl %s: %w", key, err)
	}
	if ttl < 0 {
		// -1: key has no expiration (non-expiring lock). -2: key vanished
		// between GET and PTTL; either way there is no meaningful remaining
		// time to report.
		ttl = 0
	}
	return State{Kind: StateAcquired, RemainingTime: ttl}, nil
}
