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

// Package cache implements a key-indexed TTL store with typed values,
// layered over the same transactional Adapter shape as the lock and
// rate-limiter engines.
package cache

import (
	"context"
	"time"
)

// Record is the adapter-level, value-opaque persisted form of one cache
// entry.
type Record struct {
	Value     []byte
	ExpiresAt time.Time
}

// Transition is called by Adapter.Transaction with the current record for a
// key (nil if absent or expired) and must return the record to persist, or
// nil to delete it.
type Transition func(current *Record, now time.Time) (*Record, error)

// Adapter is the atomicity contract every cache backend implements. All of
// add/update/put/increment/decrement/getAndRemove are expressible as one
// Transaction call, which is what makes them atomic with respect to
// concurrent callers on the same key.
type Adapter interface {
	// Transaction atomically reads key's current record, applies fn, and
	// persists the result (or deletes the record if fn returns nil).
	Transaction(ctx context.Context, key string, now time.Time, fn Transition) (*Record, error)

	// Read returns key's current record without mutating it, or nil if
	// absent or expired.
	Read(ctx context.Context, key string, now time.Time) (*Record, error)

	// Remove deletes key's record, reporting whether it existed.
	Remove(ctx context.Context, key string) (bool, error)

	// RemoveMany deletes every key in keys, reporting how many existed.
	RemoveMany(ctx context.Context, keys []string) (int, error)

	// Clear deletes every record whose key starts with prefix, reporting
	// how many were removed.
	Clear(ctx context.Context, prefix string) (int, error)
}

// Sweeper is implemented by adapters without native TTL expiration
// (MemoryAdapter, PostgresAdapter); Provider.StartSweeper calls Sweep on an
// interval to reclaim expired records that are never read again.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}
