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
	"strconv"
	"time"
)

// SlidingWindow approximates a true sliding window by keeping a counter per
// fixed-size bucket and weighting the previous bucket's count by how much
// of it still overlaps the trailing window.
//
// Window boundaries are floor-rounded to multiples of Window since the
// Unix epoch, so two processes observing the same wall clock agree on
// bucket boundaries without coordinating.
type SlidingWindow struct {
	Window time.Duration
}

type slidingBuckets map[int64]int

func (p SlidingWindow) bucketStart(t time.Time) int64 {
	w := p.Window.Nanoseconds()
	if w <= 0 {
		return t.UnixNano()
	}
	return (t.UnixNano() / w) * w
}

func (p SlidingWindow) buckets(metrics Metrics) slidingBuckets {
	b, _ := metrics["buckets"].(slidingBuckets)
	if b == nil {
		return slidingBuckets{}
	}
	return b
}

// InitialMetrics implements Policy.
func (p SlidingWindow) InitialMetrics(now time.Time) Metrics {
	return Metrics{"buckets": slidingBuckets{p.bucketStart(now): 1}}
}

// Attempts implements Policy: the current bucket's count plus the previous
// bucket's count weighted by how much of the window is still "in" it.
func (p SlidingWindow) Attempts(metrics Metrics, now time.Time) int {
	current := p.bucketStart(now)
	previous := current - p.Window.Nanoseconds()
	b := p.buckets(metrics)

	elapsed := time.Duration(now.UnixNano() - current)
	weight := 1.0
	if p.Window > 0 {
		weight = 1.0 - float64(elapsed)/float64(p.Window)
	}
	if weight < 0 {
		weight = 0
	}

	weighted := float64(b[current]) + float64(b[previous])*weight
	return int(weighted + 0.5)
}

// ShouldBlock implements Policy.
func (p SlidingWindow) ShouldBlock(metrics Metrics, limit int, now time.Time) bool {
	return p.Attempts(metrics, now) > limit
}

// Expiration implements Policy. Buckets are kept long enough to still
// weight into the next bucket's calculation.
func (p SlidingWindow) Expiration(metrics Metrics, now time.Time) time.Time {
	current := p.bucketStart(now)
	return time.Unix(0, current).Add(2 * p.Window)
}

// UpdateMetrics implements Policy: increments the current bucket and prunes
// every bucket older than the previous one.
func (p SlidingWindow) UpdateMetrics(metrics Metrics, now time.Time) Metrics {
	current := p.bucketStart(now)
	previous := current - p.Window.Nanoseconds()

	next := slidingBuckets{}
	for start, count := range p.buckets(metrics) {
		if start == current || start == previous {
			next[start] = count
		}
	}
	next[current]++
	return Metrics{"buckets": next}
}

// EncodeMetrics implements Policy. Bucket keys are int64 nanosecond epoch
// offsets; JSON object keys must be strings, so they round-trip through
// strconv rather than relying on encoding/json's own int-key support to
// keep the wire format explicit.
func (p SlidingWindow) EncodeMetrics(metrics Metrics) ([]byte, error) {
	wire := make(map[string]int, len(p.buckets(metrics)))
	for start, count := range p.buckets(metrics) {
		wire[strconv.FormatInt(start, 10)] = count
	}
	return json.Marshal(wire)
}

// DecodeMetrics implements Policy.
func (p SlidingWindow) DecodeMetrics(data []byte) (Metrics, error) {
	var wire map[string]int
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, err
	}
	buckets := slidingBuckets{}
	for k, count := range wire {
		start, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return nil, err
		}
		buckets[start] = count
	}
	return Metrics{"buckets": buckets}, nil
}
