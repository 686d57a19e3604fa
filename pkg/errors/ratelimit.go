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

// ErrBlockedRateLimiter indicates runOrFail was called while the key's state was Blocked.
// The blocked state snapshot is attached via WithDetail("state", ...) by the caller.
var ErrBlockedRateLimiter = &Error{
	Category: CategoryRateLimit,
	Code:     "BLOCKED",
	Message:  "rate limiter is blocking this key",
}
