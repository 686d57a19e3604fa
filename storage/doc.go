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

// Package storage holds the shared Postgres table used by the Postgres
// lock, cache, and rate-limiter adapters.
//
// SQLTable wraps one sqlx.DB-backed table and exposes the find/upsert/
// remove primitives those three adapters build on: a single row format
// (key, owner, payload, expires_at) covers a lock's current holder, a
// cache entry's serialized value, and a rate-limiter's serialized window
// state, with the CRUD operations running inside a serializable
// transaction per call. Redis-backed equivalents live alongside each
// adapter's own package (lock.RedisAdapter, cache.RedisAdapter,
// ratelimit.RedisAdapter) rather than here, since each needs Redis
// primitives (Lua scripts) specific to its own atomicity
// requirements.
package storage
