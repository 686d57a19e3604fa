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

package errors

// Lock errors
var (
	// ErrFailedAcquireLock indicates acquireOrFail could not obtain the lock.
	ErrFailedAcquireLock = &Error{
		Category: CategoryLock,
		Code:     "FAILED_ACQUIRE_LOCK",
		Message:  "failed to acquire lock",
	}

	// ErrFailedReleaseLock indicates the caller did not own the lock it tried to release.
	ErrFailedReleaseLock = &Error{
		Category: CategoryLock,
		Code:     "FAILED_RELEASE_LOCK",
		Message:  "failed to release lock",
	}

	// ErrFailedRefreshLock indicates the lock could not be refreshed (unowned, non-expiring, or absent).
	ErrFailedRefreshLock = &Error{
		Category: CategoryLock,
		Code:     "FAILED_REFRESH_LOCK",
		Message:  "failed to refresh lock",
	}
)
