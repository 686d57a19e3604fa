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

package health

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisChecker reports whether a Redis connection used by a lock, cache,
// rate-limiter, or event-bus adapter is reachable.
type RedisChecker struct {
	name   string
	client *redis.Client
}

// NewRedisChecker builds a RedisChecker named name pinging client.
func NewRedisChecker(name string, client *redis.Client) *RedisChecker {
	return &RedisChecker{name: name, client: client}
}

// Name returns this check's name.
func (c *RedisChecker) Name() string { return c.name }

// Check pings the Redis server, reporting StatusUnhealthy on failure.
func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return CheckResult{
			Name:    c.name,
			Status:  StatusUnhealthy,
			Message: err.Error(),
		}
	}
	return CheckResult{Name: c.name, Status: StatusHealthy}
}
