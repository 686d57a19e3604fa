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
	"time"
)

// Adapter is the atomic primitive contract every lock backend implements.
// Every method must be atomic with respect to concurrent callers sharing
// the same key.
type Adapter interface {
	// Acquire creates the record for key iff it is absent or expired,
	// stamping lockID as owner and now.Add(ttl) as the expiration. A ttl of
	// zero (or less) creates a non-expiring record, which Acquire and
	// GetState treat as permanently live.
	Acquire(ctx context.Context, key, lockID string, ttl time.Duration, now time.Time) (bool, error)

	// Release deletes the record for key iff it is owned by lockID and not
	// expired.
	Release(ctx context.Context, key, lockID string) (bool, error)

	// ForceRelease deletes the record for key unconditionally.
	ForceRelease(ctx context.Context, key string) (bool, error)

	// Refresh extends the record's expiration to now.Add(ttl) iff it is
	// owned by lockID, not expired, and currently expiring (a non-expiring
	// record has nothing to extend, and Refresh returns false for it
	// regardless of ownership). Callers pass ttl > 0; Lock.Refresh rejects
	// ttl <= 0 before reaching the adapter.
	Refresh(ctx context.Context, key, lockID string, ttl time.Duration, now time.Time) (bool, error)

	// GetState reads the record for key without mutating it.
	GetState(ctx context.Context, key, lockID string, now time.Time) (State, error)
}
