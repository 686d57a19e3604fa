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

// Adapter/provider wiring errors
var (
	// ErrUnregisteredAdapter indicates a provider was asked to use an adapter name
	// that was never registered.
	ErrUnregisteredAdapter = &Error{
		Category: CategoryAdapter,
		Code:     "UNREGISTERED_ADAPTER",
		Message:  "adapter is not registered",
	}

	// ErrDefaultAdapterNotDefined indicates a provider was constructed without an
	// adapter and no default adapter was configured.
	ErrDefaultAdapterNotDefined = &Error{
		Category: CategoryAdapter,
		Code:     "DEFAULT_ADAPTER_NOT_DEFINED",
		Message:  "no default adapter is defined",
	}
)
