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

// Package config provides configuration loading for a coordkit deployment.
//
// Precedence, highest first:
//  1. Environment variables (prefixed with COORDKIT_)
//  2. Configuration file (YAML or JSON)
//  3. Default values (DefaultConfig)
//
// # Configuration Structure
//
// The configuration is organized into sections:
//   - Namespace: the root/rootId a deployment's providers share
//   - Storage: which backing store (memory, Redis, Postgres) backs every engine
//   - EventBus: in-process or cross-process (Redis pub/sub) event delivery
//   - Lock: default TTL and AcquireBlocking pacing
//   - RateLimit: default limit/window and backoff shape
//   - Cache: default TTL and sweep interval for backends without native TTL
//   - Logging, Metrics: observability settings
//
// # Usage
//
//	cfg, err := config.LoadFromFile("config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Environment variable override:
//
//	export COORDKIT_STORAGE_TYPE=redis
//	export COORDKIT_REDIS_HOST=redis.internal
//	export COORDKIT_REDIS_PORT=6379
//
// # Validation
//
// LoadFromFile validates the merged configuration before returning it; see
// Config.Validate for the complete set of rules (storage type matches its
// connection section, event bus type "redis" requires storage type
// "redis", backoff parameters are sane for the selected shape, and so on).
package config
