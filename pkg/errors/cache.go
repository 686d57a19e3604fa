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

// Cache errors
var (
	// ErrKeyExistsCache indicates an *OrFail add call found the key already present.
	ErrKeyExistsCache = &Error{
		Category: CategoryCache,
		Code:     "KEY_EXISTS",
		Message:  "key already exists in cache",
	}

	// ErrKeyNotFoundCache indicates an *OrFail read or update call found no record for the key.
	ErrKeyNotFoundCache = &Error{
		Category: CategoryCache,
		Code:     "KEY_NOT_FOUND",
		Message:  "key not found in cache",
	}

	// ErrTypeCache indicates a stored value did not match the type an operation required
	// (e.g. increment on a non-numeric value, or a schema-validator mismatch).
	ErrTypeCache = &Error{
		Category: CategoryCache,
		Code:     "TYPE_MISMATCH",
		Message:  "cached value has an unexpected type",
	}
)
