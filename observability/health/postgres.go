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
)

// pingable is satisfied by storage.SQLTable, the shared table backing the
// Postgres lock/cache/rate-limiter adapters.
type pingable interface {
	Ping(ctx context.Context) error
}

// PostgresChecker reports whether the Postgres table backing a lock,
// cache, or rate-limiter adapter is reachable.
type PostgresChecker struct {
	name  string
	table pingable
}

// NewPostgresChecker builds a PostgresChecker named name pinging table.
func NewPostgresChecker(name string, table pingable) *PostgresChecker {
	return &PostgresChecker{name: name, table: table}
}

// Name returns this check's name.
func (c *PostgresChecker) Name() string { return c.name }

// Check pings the backing table's database connection, reporting
// StatusUnhealthy on failure.
func (c *PostgresChecker) Check(ctx context.Context) CheckResult {
	if err := c.table.Ping(ctx); err != nil {
		return CheckResult{
			Name:    c.name,
			Status:  StatusUnhealthy,
			Message: err.Error(),
		}
	}
	return CheckResult{Name: c.name, Status: StatusHealthy}
}
