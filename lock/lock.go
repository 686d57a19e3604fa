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

// Package lock provides a distributed mutual-exclusion primitive backed by
// a pluggable Adapter (in-memory, Redis, or Postgres), with events
// published through an eventbus.Bus and retry pacing via golang.org/x/time/rate.
package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/sage-x-project/coordkit/clock"
	"github.com/sage-x-project/coordkit/eventbus"
	"github.com/sage-x-project/coordkit/namespace"
	"github.com/sage-x-project/coordkit/observability/metrics"
	coorderrors "github.com/sage-x-project/coordkit/pkg/errors"
	"github.com/sage-x-project/coordkit/serde"
)

// Event topics dispatched on the Provider's event bus. Payloads are Event values.
const (
	EventAcquired      = "lock.acquired"
	EventReleased      = "lock.released"
	EventRefreshed     = "lock.refreshed"
	EventForceReleased = "lock.force_released"
	EventFailedRelease = "lock.failed_release"
	EventFailedRefresh = "lock.failed_refresh"
	EventUnownedRelease = "lock.unowned_release"
	EventUnownedRefresh = "lock.unowned_refresh"
)

// Event is the payload dispatched alongside every lock topic.
type Event struct {
	Key    string
	LockID string
	State  State
}

// StateKind enumerates the three observable lock states.
type StateKind string

const (
	StateAcquired    StateKind = "ACQUIRED"
	StateUnavailable StateKind = "UNAVAILABLE"
	StateExpired     StateKind = "EXPIRED"
)

// State is the result of GetState: Kind tags which fields are meaningful.
type State struct {
	Kind          StateKind
	RemainingTime time.Duration
}

// Provider constructs Lock handles sharing one Adapter, Clock, event bus,
// and namespace. Build one Provider per backing store and reuse it across
// every distinct lock key an application needs.
type Provider struct {
	adapter   Adapter
	clock     clock.Clock
	bus       eventbus.Bus
	namespace namespace.Namespace
	metrics   metrics.Collector
	registry  *serde.Registry
	serdeTag  serde.Tag
}

// NewProvider constructs a Provider. A nil clock defaults to the real
// wall clock; a nil bus defaults to eventbus.NoOp. At construction time the
// Provider also registers a serde.Transformer for its own *Lock handles,
// tagged by adapter class and namespace prefix, so a handle this Provider
// hands out can be serialized and later rehydrated (by this same Provider,
// or by another process's Provider sharing a registry and pointed at the
// same adapter/namespace) without losing its lockId, key, or ttl.
func NewProvider(adapter Adapter, opts ...ProviderOption) *Provider {
	p := &Provider{
		adapter:   adapter,
		clock:     clock.New(),
		bus:       eventbus.NoOp{},
		namespace: namespace.NoOp(),
		metrics:   metrics.NoOp{},
		registry:  serde.NewRegistry(),
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
	p.serdeTag = serde.Tag{
		Component:    "lock",
		AdapterClass: adapterClassName(p.adapter),
		Namespace:    p.namespace.Prefix(),
	}
	serde.RegisterCustom(p.registry, p.serdeTag, serde.Transformer[*Lock]{
		Name:         "lock.v1",
		IsApplicable: func(value any) bool { _, ok := value.(*Lock); return ok },
		Serialize: func(l *Lock) (serde.Record, error) {
			return serde.Record{
				Version: 1,
				Fields: map[string]any{
					"key":    l.key,
					"lockId": l.lockID,
					"ttlMs":  int64(l.ttl / time.Millisecond),
				},
			}, nil
		},
		Deserialize: func(rec serde.Record) (*Lock, error) {
			key, _ := rec.Fields["key"].(string)
			lockID, _ := rec.Fields["lockId"].(string)
			ttlMs, _ := rec.Fields["ttlMs"].(int64)
			return &Lock{
				provider: p,
				key:      key,
				lockID:   lockID,
				ttl:      time.Duration(ttlMs) * time.Millisecond,
			}, nil
		},
	})
	return p
}

// adapterClassName tags a Provider's registered transformer by adapter
// implementation, so providers over different backends sharing a namespace
// prefix never rehydrate into the wrong one.
func adapterClassName(a Adapter) string {
	switch a.(type) {
	case *MemoryAdapter:
		return "memory"
	case *RedisAdapter:
		return "redis"
	case *PostgresAdapter:
		return "postgres"
	default:
		return "custom"
	}
}

// SerdeRegistry returns the registry this Provider registered its handle
// transformer with. Pass the same *serde.Registry to WithSerdeRegistry on
// another Provider (same adapter class and namespace prefix) to let it
// rehydrate handles this Provider serialized.
func (p *Provider) SerdeRegistry() *serde.Registry { return p.registry }

// SerdeTag returns the Tag this Provider's handle transformer is registered
// under.
func (p *Provider) SerdeTag() serde.Tag { return p.serdeTag }

// ProviderOption configures a Provider at construction time.
type ProviderOption func(*Provider)

// WithClock overrides the Provider's clock (used by tests to inject clock.Fake).
func WithClock(c clock.Clock) ProviderOption {
	return func(p *Provider) { p.clock = c }
}

// WithEventBus overrides the Provider's event bus.
func WithEventBus(bus eventbus.Bus) ProviderOption {
	return func(p *Provider) { p.bus = bus }
}

// WithNamespace overrides the Provider's namespace.
func WithNamespace(ns namespace.Namespace) ProviderOption {
	return func(p *Provider) { p.namespace = ns }
}

// WithMetrics overrides the Provider's metrics.Collector. Every dispatched
// event also increments a coordkit_lock_events_total counter labeled by
// topic, regardless of whether a bus is configured.
func WithMetrics(c metrics.Collector) ProviderOption {
	return func(p *Provider) { p.metrics = c }
}

// WithSerdeRegistry overrides the registry a Provider registers its handle
// transformer with. Providers across process boundaries that want to
// exchange serialized handles must share a registry (or otherwise agree on
// Tag) and each register themselves against it, typically by pointing
// every process's Provider for a given adapter/namespace at the same
// backing registry implementation.
func WithSerdeRegistry(r *serde.Registry) ProviderOption {
	return func(p *Provider) { p.registry = r }
}

// New builds a Lock handle for key with the given TTL. Each handle gets a
// fresh random lockId, so two handles for the same key never self-collide.
func (p *Provider) New(key string, ttl time.Duration) *Lock {
	return &Lock{
		provider: p,
		key:      p.namespace.Create(key),
		lockID:   uuid.NewString(),
		ttl:      ttl,
	}
}

// Lock is a handle bound to one key and one lockId.
type Lock struct {
	provider *Provider
	key      string
	lockID   string
	ttl      time.Duration
}

// Serialize converts the handle to a portable serde.Record via its
// Provider's registered transformer. The Record carries the handle's key,
// lockId, and ttl but nothing about the Provider itself; rehydrating it
// (via Provider.DeserializeLock, possibly in another process) binds it to
// whichever Provider's registry performs the Deserialize call.
func (l *Lock) Serialize() (serde.Record, error) {
	return l.provider.registry.Serialize(l.provider.serdeTag, l)
}

// DeserializeLock rehydrates rec into a Lock bound to this Provider's
// adapter, namespace, and event bus. rec must have been produced by a
// Provider sharing this one's registry, adapter class, and namespace
// prefix (the two fail to match and Deserialize errors otherwise, since
// there is no registered transformer for a mismatched Tag).
func (p *Provider) DeserializeLock(rec serde.Record) (*Lock, error) {
	v, err := p.registry.Deserialize(p.serdeTag, rec)
	if err != nil {
		return nil, err
	}
	l, ok := v.(*Lock)
	if !ok {
		return nil, coorderrors.ErrInvalidInput.WithMessage("deserialized value is not a *Lock")
	}
	return l, nil
}

// Key returns the handle's namespaced key.
func (l *Lock) Key() string { return l.key }

// LockID returns this handle's randomly generated owner identifier.
func (l *Lock) LockID() string { return l.lockID }

func (l *Lock) dispatch(ctx context.Context, topic string, state State) {
	_ = l.provider.bus.Dispatch(ctx, topic, Event{Key: l.key, LockID: l.lockID, State: state})
	l.provider.metrics.IncrementCounter("coordkit_lock_events_total", metrics.Labels{"topic": topic})
}

// Acquire creates the backing record iff it is absent or expired.
func (l *Lock) Acquire(ctx context.Context) (bool, error) {
	now := l.provider.clock.Now()
	ok, err := l.provider.adapter.Acquire(ctx, l.key, l.lockID, l.ttl, now)
	if err != nil {
		return false, err
	}
	if ok {
		l.dispatch(ctx, EventAcquired, State{Kind: StateAcquired, RemainingTime: l.ttl})
	}
	return ok, nil
}

// AcquireOrFail calls Acquire and fails with ErrFailedAcquireLock if it
// returns false.
func (l *Lock) AcquireOrFail(ctx context.Context) error {
	ok, err := l.Acquire(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return coorderrors.ErrFailedAcquireLock.WithDetail("key", l.key)
	}
	return nil
}

// AcquireBlocking retries Acquire every interval, paced by a
// golang.org/x/time/rate limiter so a long budget with a short interval
// does not busy-loop, until it succeeds or budget elapses.
func (l *Lock) AcquireBlocking(ctx context.Context, budget, interval time.Duration) (bool, error) {
	if budget <= 0 || interval <= 0 {
		return false, coorderrors.ErrInvalidInput.WithMessage("acquireBlocking requires budget and interval > 0")
	}

	deadline := l.provider.clock.Now().Add(budget)
	limiter := rate.NewLimiter(rate.Every(interval), 1)

	for {
		ok, err := l.Acquire(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		if !l.provider.clock.Now().Before(deadline) {
			return false, nil
		}
		if err := limiter.Wait(ctx); err != nil {
			return false, err
		}
		if !l.provider.clock.Now().Before(deadline) {
			return false, nil
		}
	}
}

// Release deletes the record iff it is currently owned by this handle.
func (l *Lock) Release(ctx context.Context) (bool, error) {
	ok, err := l.provider.adapter.Release(ctx, l.key, l.lockID)
	if err != nil {
		return false, err
	}
	if ok {
		l.dispatch(ctx, EventReleased, State{Kind: StateExpired})
	} else {
		// Adapter.Release only returns a bool, so a missing/expired record
		// and one owned by someone else both land here; both topics fire.
		l.dispatch(ctx, EventFailedRelease, State{Kind: StateUnavailable})
		l.dispatch(ctx, EventUnownedRelease, State{Kind: StateUnavailable})
	}
	return ok, nil
}

// ForceRelease deletes the record unconditionally.
func (l *Lock) ForceRelease(ctx context.Context) (bool, error) {
	ok, err := l.provider.adapter.ForceRelease(ctx, l.key)
	if err != nil {
		return false, err
	}
	if ok {
		l.dispatch(ctx, EventForceReleased, State{Kind: StateExpired})
	}
	return ok, nil
}

// Refresh extends the record's expiration to ttl iff it is owned by this
// handle and currently expiring (a non-expiring record has nothing to
// extend and Refresh returns false for it). ttl must be > 0: Refresh never
// turns a record non-expiring.
func (l *Lock) Refresh(ctx context.Context, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, coorderrors.ErrInvalidInput.WithMessage("refresh requires ttl > 0")
	}
	now := l.provider.clock.Now()
	ok, err := l.provider.adapter.Refresh(ctx, l.key, l.lockID, ttl, now)
	if err != nil {
		return false, err
	}
	if ok {
		l.dispatch(ctx, EventRefreshed, State{Kind: StateAcquired, RemainingTime: ttl})
	} else {
		l.dispatch(ctx, EventFailedRefresh, State{Kind: StateUnavailable})
		l.dispatch(ctx, EventUnownedRefresh, State{Kind: StateUnavailable})
	}
	return ok, nil
}

// GetState reads the current state without mutating anything.
func (l *Lock) GetState(ctx context.Context) (State, error) {
	now := l.provider.clock.Now()
	return l.provider.adapter.GetState(ctx, l.key, l.lockID, now)
}

// Run acquires the lock and, if successful, runs fn before releasing
// afterward (even if fn panics or returns an error). If the lock could not
// be acquired, Run returns (zero, false, nil) without invoking fn — unlike
// RunOrFail, failing to acquire is not itself an error.
func Run[T any](ctx context.Context, l *Lock, fn func(ctx context.Context) (T, error)) (T, bool, error) {
	var zero T
	ok, err := l.Acquire(ctx)
	if err != nil {
		return zero, false, err
	}
	if !ok {
		return zero, false, nil
	}
	defer func() { _, _ = l.Release(ctx) }()
	v, err := fn(ctx)
	return v, true, err
}

// RunOrFail acquires the lock, runs fn, and always releases afterward (even
// if fn panics or returns an error), failing with ErrFailedAcquireLock if
// acquisition did not succeed.
func RunOrFail[T any](ctx context.Context, l *Lock, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	ok, err := l.Acquire(ctx)
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, coorderrors.ErrFailedAcquireLock.WithDetail("key", l.key)
	}
	defer func() { _, _ = l.Release(ctx) }()
	return fn(ctx)
}

// RunBlockingOrFail acquires the lock via AcquireBlocking, runs fn, and
// always releases afterward.
func RunBlockingOrFail[T any](ctx context.Context, l *Lock, budget, interval time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	ok, err := l.AcquireBlocking(ctx, budget, interval)
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, coorderrors.ErrFailedAcquireLock.WithDetail("key", l.key)
	}
	defer func() { _, _ = l.Release(ctx) }()
	return fn(ctx)
}
