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

package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryAdapter is an in-process Adapter backed by a mutex-guarded map. It
// has no native expiration, so expired records linger until Read,
// Transaction, or Sweep observes and evicts them.
type MemoryAdapter struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemoryAdapter returns an empty MemoryAdapter.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{records: make(map[string]Record)}
}

func (a *MemoryAdapter) isLive(rec Record, now time.Time) bool {
	return rec.ExpiresAt.IsZero() || rec.ExpiresAt.After(now)
}

// Transaction implements Adapter.
func (a *MemoryAdapter) Transaction(ctx context.Context, key string, now time.Time, fn Transition) (*Record, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var current *Record
	if rec, exists := a.records[key]; exists && a.isLive(rec, now) {
		c := rec
		current = &c
	}

	next, err := fn(current, now)
	if err != nil {
		return nil, err
	}
	if next == nil {
		delete(a.records, key)
		return nil, nil
	}
	a.records[key] = *next
	return next, nil
}

// Read implements Adapter.
func (a *MemoryAdapter) Read(ctx context.Context, key string, now time.Time) (*Record, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec, exists := a.records[key]
	if !exists || !a.isLive(rec, now) {
		return nil, nil
	}
	return &rec, nil
}

// Remove implements Adapter.
func (a *MemoryAdapter) Remove(ctx context.Context, key string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	_, existed := a.records[key]
	delete(a.records, key)
	return existed, nil
}

// RemoveMany implements Adapter.
func (a *MemoryAdapter) RemoveMany(ctx context.Context, keys []string) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := 0
	for _, key := range keys {
		if _, exists := a.records[key]; exists {
			n++
		}
		delete(a.records, key)
	}
	return n, nil
}

// Clear implements Adapter.
func (a *MemoryAdapter) Clear(ctx context.Context, prefix string) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := 0
	for key := range a.records {
		if strings.HasPrefix(key, prefix) {
			delete(a.records, key)
			n++
		}
	}
	return n, nil
}

// Sweep implements Sweeper, evicting every record whose TTL has elapsed.
func (a *MemoryAdapter) Sweep(ctx context.Context, now time.Time) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := 0
	for key, rec := range a.records {
		if !a.isLive(rec, now) {
			delete(a.records, key)
			n++
		}
	}
	return n, nil
}
