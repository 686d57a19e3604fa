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
	"encoding/json"
	"time"
)

// FixedWindow counts attempts within window-long buckets anchored on the
// first attempt of the window; the window resets once window has elapsed
// since the first attempt.
type FixedWindow struct {
	Window time.Duration
}

// InitialMetrics implements Policy.
func (p FixedWindow) InitialMetrics(now time.Time) Metrics {
	return Metrics{"attempt": 1, "lastAttemptAt": now}
}

// ShouldBlock implements Policy.
func (p FixedWindow) ShouldBlock(metrics Metrics, limit int, now time.Time) bool {
	last := metrics["lastAttemptAt"].(time.Time)
	attempt := metrics["attempt"].(int)
	return now.Sub(last) < p.Window && attempt > limit
}

// Attempts implements Policy.
func (p FixedWindow) Attempts(metrics Metrics, now time.Time) int {
	return metrics["attempt"].(int)
}

// Expiration implements Policy.
func (p FixedWindow) Expiration(metrics Metrics, now time.Time) time.Time {
	last := metrics["lastAttemptAt"].(time.Time)
	return last.Add(p.Window)
}

// UpdateMetrics implements Policy. A new window starts once the previous
// one has elapsed; otherwise the attempt counter accumulates.
func (p FixedWindow) UpdateMetrics(metrics Metrics, now time.Time) Metrics {
	last := metrics["lastAttemptAt"].(time.Time)
	attempt := metrics["attempt"].(int)

	if now.Sub(last) >= p.Window {
		return Metrics{"attempt": 1, "lastAttemptAt": now}
	}
	return Metrics{"attempt": attempt + 1, "lastAttemptAt": last}
}

type fixedWindowWire struct {
	Attempt       int       `json:"attempt"`
	LastAttemptAt time.Time `json:"lastAttemptAt"`
}

// EncodeMetrics implements Policy.
func (p FixedWindow) EncodeMetrics(metrics Metrics) ([]byte, error) {
	return json.Marshal(fixedWindowWire{
		Attempt:       metrics["attempt"].(int),
		LastAttemptAt: metrics["lastAttemptAt"].(time.Time),
	})
}

// DecodeMetrics implements Policy.
func (p FixedWindow) DecodeMetrics(data []byte) (Metrics, error) {
	var w fixedWindowWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	return Metrics{"attempt": w.Attempt, "lastAttemptAt": w.LastAttemptAt}, nil
}
