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
	"time"
)

// Transition is called by Adapter.Transaction with the current record for a
// key (nil if absent or expired) and must return the record to persist, or
// nil to delete the record.
type Transition func(current *StoredRecord, now time.Time) (*StoredRecord, error)

// Adapter is the atomicity contract every rate-limiter backend implements:
// Transaction must read and write a key's record as a single serializable
// unit with respect to concurrent callers on that key.
type Adapter interface {
	// Transaction atomically reads key's current record, applies fn, and
	// persists the result (or deletes the record if fn returns nil).
	Transaction(ctx context.Context, key string, now time.Time, fn Transition) (*StoredRecord, error)

	// Read returns key's current record without mutating it, or nil if
	// absent or expired.
	Read(ctx context.Context, key string, now time.Time) (*StoredRecord, error)

	// Remove deletes key's record unconditionally.
	Remove(ctx context.Context, key string) error
}
