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
	"encoding/json"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sage-x-project/coordkit/clock"
	"github.com/sage-x-project/coordkit/eventbus"
	"github.com/sage-x-project/coordkit/namespace"
	"github.com/sage-x-project/coordkit/observability/metrics"
	coorderrors "github.com/sage-x-project/coordkit/pkg/errors"
)

// Event topics dispatched on the Provider's event bus. Payloads are Event values.
const (
	EventAdded       = "cache.added"
	EventUpdated     = "cache.updated"
	EventRemoved     = "cache.removed"
	EventIncremented = "cache.incremented"
	EventDecremented = "cache.decremented"
	EventFound       = "cache.found"
	EventNotFound    = "cache.not_found"
	EventCleared     = "cache.cleared"
)

// Event is the payload dispatched alongside every cache topic.
type Event struct {
	Key string
}

// Validator is called to check a value before it is persisted (add/put/
// update) and after it is decoded from storage (any read), so a schema
// mismatch in either direction fails with ErrTypeCache rather than handing
// the caller an inconsistent value.
type Validator[T any] func(T) error

// Provider is a typed cache bound to one Adapter. Unlike Lock and Limiter,
// Provider has no per-key handle: its methods take the key directly, since
// a cache has no notion of an owning handle to track.
type Provider[T any] struct {
	adapter    Adapter
	clock      clock.Clock
	bus        eventbus.Bus
	namespace  namespace.Namespace
	validator  Validator[T]
	defaultTTL time.Duration
	group      singleflight.Group
	metrics    metrics.Collector
}

// NewProvider constructs a Provider. A nil clock defaults to the real wall
// clock; a nil bus defaults to eventbus.NoOp.
func NewProvider[T any](adapter Adapter, opts ...ProviderOption[T]) *Provider[T] {
	p := &Provider[T]{
		adapter:   adapter,
		clock:     clock.New(),
		bus:       eventbus.NoOp{},
		namespace: namespace.NoOp(),
		metrics:   metrics.NoOp{},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.clock == nil {
		p.clock = clock.New()
	}
	if p.bus == nil {
		p.bus = eventbus.NoOp{}
	}
	return p
}

// ProviderOption configures a Provider at construction time.
type ProviderOption[T any] func(*Provider[T])

// WithClock overrides the Provider's clock (used by tests to inject clock.Fake).
func WithClock[T any](c clock.Clock) ProviderOption[T] {
	return func(p *Provider[T]) { p.clock = c }
}

// WithEventBus overrides the Provider's event bus.
func WithEventBus[T any](bus eventbus.Bus) ProviderOption[T] {
	return func(p *Provider[T]) { p.bus = bus }
}

// WithNamespace overrides the Provider's namespace.
func WithNamespace[T any](ns namespace.Namespace) ProviderOption[T] {
	return func(p *Provider[T]) { p.namespace = ns }
}

// WithValidator installs a schema validator applied on every encode and
// decode.
func WithValidator[T any](v Validator[T]) ProviderOption[T] {
	return func(p *Provider[T]) { p.validator = v }
}

// WithDefaultTTL sets the TTL used by add/put/getOrAdd calls that pass 0.
// A Provider with no default TTL set (the zero value) stores entries
// without expiration unless a call site requests one explicitly.
func WithDefaultTTL[T any](ttl time.Duration) ProviderOption[T] {
	return func(p *Provider[T]) { p.defaultTTL = ttl }
}

// WithMetrics overrides the Provider's metrics.Collector. Every dispatched
// event also increments a coordkit_cache_events_total counter labeled by
// topic.
func WithMetrics[T any](c metrics.Collector) ProviderOption[T] {
	return func(p *Provider[T]) { p.metrics = c }
}

func (p *Provider[T]) dispatch(ctx context.Context, topic, key string) {
	_ = p.bus.Dispatch(ctx, topic, Event{Key: key})
	p.metrics.IncrementCounter("coordkit_cache_events_total", metrics.Labels{"topic": topic})
}

func (p *Provider[T]) encode(v T) ([]byte, error) {
	if p.validator != nil {
		if err := p.validator(v); err != nil {
			return nil, coorderrors.ErrTypeCache.WithDetail("cause", err.Error())
		}
	}
	return json.Marshal(v)
}

func (p *Provider[T]) decode(data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, coorderrors.ErrTypeCache.WithDetail("cause", err.Error())
	}
	if p.validator != nil {
		if err := p.validator(v); err != nil {
			return v, coorderrors.ErrTypeCache.WithDetail("cause", err.Error())
		}
	}
	return v, nil
}

func (p *Provider[T]) expiration(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		ttl = p.defaultTTL
	}
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

// Exists reports whether key currently has a live record.
func (p *Provider[T]) Exists(ctx context.Context, key string) (bool, error) {
	rec, err := p.adapter.Read(ctx, p.namespace.Create(key), p.clock.Now())
	if err != nil {
		return false, err
	}
	return rec != nil, nil
}

// Missing is the complement of Exists.
func (p *Provider[T]) Missing(ctx context.Context, key string) (bool, error) {
	ok, err := p.Exists(ctx, key)
	return !ok, err
}

// Get reads key, reporting whether it was found.
func (p *Provider[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T
	encKey := p.namespace.Create(key)
	rec, err := p.adapter.Read(ctx, encKey, p.clock.Now())
	if err != nil {
		return zero, false, err
	}
	if rec == nil {
		p.dispatch(ctx, EventNotFound, encKey)
		return zero, false, nil
	}
	v, err := p.decode(rec.Value)
	if err != nil {
		return zero, false, err
	}
	p.dispatch(ctx, EventFound, encKey)
	return v, true, nil
}

// GetOrFail reads key, failing with ErrKeyNotFoundCache if absent.
func (p *Provider[T]) GetOrFail(ctx context.Context, key string) (T, error) {
	v, found, err := p.Get(ctx, key)
	if err != nil {
		return v, err
	}
	if !found {
		return v, coorderrors.ErrKeyNotFoundCache.WithDetail("key", key)
	}
	return v, nil
}

// GetAndRemove atomically reads and deletes key.
func (p *Provider[T]) GetAndRemove(ctx context.Context, key string) (T, bool, error) {
	var zero T
	encKey := p.namespace.Create(key)
	now := p.clock.Now()

	var found bool
	var raw []byte
	_, err := p.adapter.Transaction(ctx, encKey, now, func(current *Record, now time.Time) (*Record, error) {
		if current == nil {
			return nil, nil
		}
		found = true
		raw = current.Value
		return nil, nil
	})
	if err != nil {
		return zero, false, err
	}
	if !found {
		return zero, false, nil
	}
	v, err := p.decode(raw)
	if err != nil {
		return zero, false, err
	}
	p.dispatch(ctx, EventRemoved, encKey)
	return v, true, nil
}

// GetOr reads key, falling back to def's result without storing it.
func (p *Provider[T]) GetOr(ctx context.Context, key string, def func(ctx context.Context) (T, error)) (T, error) {
	v, found, err := p.Get(ctx, key)
	if err != nil {
		return v, err
	}
	if found {
		return v, nil
	}
	return def(ctx)
}

// GetOrAdd reads key, evaluating and inserting def's result on a miss.
// Concurrent misses on the same key collapse into a single evaluation of
// def via singleflight.
func (p *Provider[T]) GetOrAdd(ctx context.Context, key string, def func(ctx context.Context) (T, error), ttl time.Duration) (T, error) {
	v, found, err := p.Get(ctx, key)
	if err != nil {
		return v, err
	}
	if found {
		return v, nil
	}

	encKey := p.namespace.Create(key)
	result, err, _ := p.group.Do(encKey, func() (interface{}, error) {
		// Re-check: another caller may have populated key while we waited
		// to acquire the singleflight slot.
		if v, found, err := p.Get(ctx, key); err != nil {
			return v, err
		} else if found {
			return v, nil
		}

		v, err := def(ctx)
		if err != nil {
			return v, err
		}
		encoded, err := p.encode(v)
		if err != nil {
			return v, err
		}
		now := p.clock.Now()
		_, err = p.adapter.Transaction(ctx, encKey, now, func(current *Record, now time.Time) (*Record, error) {
			if current != nil {
				return current, nil
			}
			return &Record{Value: encoded, ExpiresAt: p.expiration(now, ttl)}, nil
		})
		if err != nil {
			return v, err
		}
		p.dispatch(ctx, EventAdded, encKey)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

// Add inserts value iff key is absent, reporting whether it was inserted.
func (p *Provider[T]) Add(ctx context.Context, key string, value T, ttl time.Duration) (bool, error) {
	encoded, err := p.encode(value)
	if err != nil {
		return false, err
	}
	encKey := p.namespace.Create(key)
	now := p.clock.Now()

	var inserted bool
	_, err = p.adapter.Transaction(ctx, encKey, now, func(current *Record, now time.Time) (*Record, error) {
		if current != nil {
			return current, nil
		}
		inserted = true
		return &Record{Value: encoded, ExpiresAt: p.expiration(now, ttl)}, nil
	})
	if err != nil {
		return false, err
	}
	if inserted {
		p.dispatch(ctx, EventAdded, encKey)
	}
	return inserted, nil
}

// AddOrFail calls Add, failing with ErrKeyExistsCache if it returns false.
func (p *Provider[T]) AddOrFail(ctx context.Context, key string, value T, ttl time.Duration) error {
	ok, err := p.Add(ctx, key, value, ttl)
	if err != nil {
		return err
	}
	if !ok {
		return coorderrors.ErrKeyExistsCache.WithDetail("key", key)
	}
	return nil
}

// Update overwrites value iff key is present, preserving its existing
// expiration, and reports whether it was updated.
func (p *Provider[T]) Update(ctx context.Context, key string, value T) (bool, error) {
	encoded, err := p.encode(value)
	if err != nil {
		return false, err
	}
	encKey := p.namespace.Create(key)
	now := p.clock.Now()

	var updated bool
	_, err = p.adapter.Transaction(ctx, encKey, now, func(current *Record, now time.Time) (*Record, error) {
		if current == nil {
			return nil, nil
		}
		updated = true
		return &Record{Value: encoded, ExpiresAt: current.ExpiresAt}, nil
	})
	if err != nil {
		return false, err
	}
	if updated {
		p.dispatch(ctx, EventUpdated, encKey)
	}
	return updated, nil
}

// UpdateOrFail calls Update, failing with ErrKeyNotFoundCache if it returns false.
func (p *Provider[T]) UpdateOrFail(ctx context.Context, key string, value T) error {
	ok, err := p.Update(ctx, key, value)
	if err != nil {
		return err
	}
	if !ok {
		return coorderrors.ErrKeyNotFoundCache.WithDetail("key", key)
	}
	return nil
}

// Put upserts value, reporting whether it overwrote an existing record.
func (p *Provider[T]) Put(ctx context.Context, key string, value T, ttl time.Duration) (bool, error) {
	encoded, err := p.encode(value)
	if err != nil {
		return false, err
	}
	encKey := p.namespace.Create(key)
	now := p.clock.Now()

	var overwrote bool
	_, err = p.adapter.Transaction(ctx, encKey, now, func(current *Record, now time.Time) (*Record, error) {
		if current != nil {
			overwrote = true
		}
		return &Record{Value: encoded, ExpiresAt: p.expiration(now, ttl)}, nil
	})
	if err != nil {
		return false, err
	}
	if overwrote {
		p.dispatch(ctx, EventUpdated, encKey)
	} else {
		p.dispatch(ctx, EventAdded, encKey)
	}
	return overwrote, nil
}

func (p *Provider[T]) addDelta(ctx context.Context, key string, delta float64, topic string) (float64, bool, error) {
	encKey := p.namespace.Create(key)
	now := p.clock.Now()

	var found bool
	var result float64
	_, err := p.adapter.Transaction(ctx, encKey, now, func(current *Record, now time.Time) (*Record, error) {
		if current == nil {
			return nil, nil
		}
		found = true
		var num float64
		if err := json.Unmarshal(current.Value, &num); err != nil {
			return nil, coorderrors.ErrTypeCache.WithDetail("key", key)
		}
		num += delta
		result = num
		encoded, err := json.Marshal(num)
		if err != nil {
			return nil, err
		}
		return &Record{Value: encoded, ExpiresAt: current.ExpiresAt}, nil
	})
	if err != nil {
		return 0, false, err
	}
	if !found {
		return 0, false, nil
	}
	p.dispatch(ctx, topic, encKey)
	return result, true, nil
}

// Increment applies delta to key's existing numeric value atomically,
// reporting false if key is absent, and failing with ErrTypeCache if the
// stored value is not numeric.
func (p *Provider[T]) Increment(ctx context.Context, key string, delta float64) (float64, bool, error) {
	return p.addDelta(ctx, key, delta, EventIncremented)
}

// Decrement is Increment with delta negated.
func (p *Provider[T]) Decrement(ctx context.Context, key string, delta float64) (float64, bool, error) {
	return p.addDelta(ctx, key, -delta, EventDecremented)
}

// IncrementOrFail calls Increment, failing with ErrKeyNotFoundCache if key is absent.
func (p *Provider[T]) IncrementOrFail(ctx context.Context, key string, delta float64) (float64, error) {
	v, found, err := p.Increment(ctx, key, delta)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, coorderrors.ErrKeyNotFoundCache.WithDetail("key", key)
	}
	return v, nil
}

// DecrementOrFail calls Decrement, failing with ErrKeyNotFoundCache if key is absent.
func (p *Provider[T]) DecrementOrFail(ctx context.Context, key string, delta float64) (float64, error) {
	v, found, err := p.Decrement(ctx, key, delta)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, coorderrors.ErrKeyNotFoundCache.WithDetail("key", key)
	}
	return v, nil
}

// Remove deletes key, reporting whether it existed.
func (p *Provider[T]) Remove(ctx context.Context, key string) (bool, error) {
	encKey := p.namespace.Create(key)
	existed, err := p.adapter.Remove(ctx, encKey)
	if err != nil {
		return false, err
	}
	if existed {
		p.dispatch(ctx, EventRemoved, encKey)
	}
	return existed, nil
}

// RemoveOrFail calls Remove, failing with ErrKeyNotFoundCache if key did not exist.
func (p *Provider[T]) RemoveOrFail(ctx context.Context, key string) error {
	ok, err := p.Remove(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return coorderrors.ErrKeyNotFoundCache.WithDetail("key", key)
	}
	return nil
}

// RemoveMany deletes every key in keys, reporting whether at least one existed.
func (p *Provider[T]) RemoveMany(ctx context.Context, keys []string) (bool, error) {
	encKeys := make([]string, len(keys))
	for i, k := range keys {
		encKeys[i] = p.namespace.Create(k)
	}
	n, err := p.adapter.RemoveMany(ctx, encKeys)
	if err != nil {
		return false, err
	}
	if n > 0 {
		p.dispatch(ctx, EventRemoved, "")
	}
	return n > 0, nil
}

// Clear deletes every record under this Provider's namespace, reporting how
// many were removed.
func (p *Provider[T]) Clear(ctx context.Context) (int, error) {
	n, err := p.adapter.Clear(ctx, p.namespace.Prefix())
	if err != nil {
		return 0, err
	}
	p.dispatch(ctx, EventCleared, p.namespace.Prefix())
	return n, nil
}

// StartSweeper runs adapter.Sweep every interval until ctx is cancelled, for
// backends (MemoryAdapter, PostgresAdapter) with no native per-row TTL.
// Adapters with native expiration (RedisAdapter) do not implement Sweeper,
// so StartSweeper is a no-op for them.
func (p *Provider[T]) StartSweeper(ctx context.Context, interval time.Duration) (stop func()) {
	sweeper, ok := p.adapter.(Sweeper)
	if !ok || interval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				_, _ = sweeper.Sweep(ctx, p.clock.Now())
			}
		}
	}()
	return func() { close(done) }
}
