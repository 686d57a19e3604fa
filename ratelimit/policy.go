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

// Package ratelimit implements a stateful Allowed/Blocked rate limiter: a
// pluggable counting Policy decides when a key should transition to
// Blocked, and a pluggable backoff function decides how long it stays
// there.
package ratelimit

import "time"

// Metrics is the policy-specific counting state persisted alongside a key.
// Its shape is opaque to the engine; only the owning Policy interprets it.
type Metrics map[string]any

// Policy is a pure value type describing how attempts are counted and when
// they should trip a block.
type Policy interface {
	// InitialMetrics returns the metrics for a key's first observed attempt.
	InitialMetrics(now time.Time) Metrics

	// ShouldBlock reports whether metrics has exceeded limit as of now.
	ShouldBlock(metrics Metrics, limit int, now time.Time) bool

	// Attempts returns the attempt count represented by metrics as of now.
	Attempts(metrics Metrics, now time.Time) int

	// Expiration returns when metrics (and the record carrying it) should
	// be considered stale.
	Expiration(metrics Metrics, now time.Time) time.Time

	// UpdateMetrics folds in a new attempt at now.
	UpdateMetrics(metrics Metrics, now time.Time) Metrics

	// EncodeMetrics serializes metrics to a storage-ready byte form.
	EncodeMetrics(metrics Metrics) ([]byte, error)

	// DecodeMetrics reconstructs metrics from bytes produced by EncodeMetrics.
	DecodeMetrics(data []byte) (Metrics, error)
}
