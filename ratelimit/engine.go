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
	"context"
	"time"

	"github.com/sage-x-project/coordkit/clock"
	"github.com/sage-x-project/coordkit/eventbus"
	"github.com/sage-x-project/coordkit/namespace"
	"github.com/sage-x-project/coordkit/observability/metrics"
	coorderrors "github.com/sage-x-project/coordkit/pkg/errors"
)

// Event topics dispatched on the Provider's event bus. Payloads are Event values.
const (
	EventAllowed          = "ratelimit.allowed"
	EventBlocked          = "ratelimit.blocked"
	EventReseted          = "ratelimit.reseted"
	EventTrackedFailure   = "ratelimit.tracked_failure"
	EventUntrackedFailure = "ratelimit.untracked_failure"
)

// Event is the payload dispatched alongside every rate-limiter topic.
type Event struct {
	Key   string
	State State
}

// Provider constructs Limiter handles sharing one Adapter, Clock, and event
// bus.
type Provider struct {
	adapter   Adapter
	clock     clock.Clock
	bus       eventbus.Bus
	namespace namespace.Namespace
	metrics   metrics.Collector
}

// NewProvider constructs a Provider. A nil clock defaults to the real wall
// clock; a nil bus defaults to eventbus.NoOp.
func NewProvider(adapter Adapter, opts ...ProviderOption) *Provider {
	p := &Provider{
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
type ProviderOption func(*Provider)

// WithClock overrides the Provider's clock.
func WithClock(c clock.Clock) ProviderOption { return func(p *Provider) { p.clock = c } }

// WithEventBus overrides the Provider's event bus.
func WithEventBus(bus eventbus.Bus) ProviderOption { return func(p *Provider) { p.bus = bus } }

// WithNamespace overrides the Provider's namespace.
func WithNamespace(ns namespace.Namespace) ProviderOption {
	return func(p *Provider) { p.namespace = ns }
}

// WithMetrics overrides the Provider's metrics.Collector. Every dispatched
// event also increments a coordkit_ratelimit_events_total counter labeled
// by topic.
func WithMetrics(c metrics.Collector) ProviderOption {
	return func(p *Provider) { p.metrics = c }
}

// LimiterOption configures a Limiter at construction time.
type LimiterOption func(*Limiter)

// WithOnlyError switches the limiter into gated mode: updateState only
// runs when the wrapped call fails and errorPolicy accepts the failure
// (errorPolicy == nil accepts every failure), so successful calls never
// consume an attempt.
func WithOnlyError(errorPolicy func(error) bool) LimiterOption {
	return func(l *Limiter) {
		l.onlyError = true
		l.errorPolicy = errorPolicy
	}
}

// Limiter is a handle bound to one key, limit, policy, and backoff.
type Limiter struct {
	provider  *Provider
	key       string
	limit     int
	policy    Policy
	backoff   BackoffFunc
	onlyError bool
	errorPolicy func(error) bool
}

// New builds a Limiter for key.
func (p *Provider) New(key string, limit int, policy Policy, backoff BackoffFunc, opts ...LimiterOption) *Limiter {
	l := &Limiter{
		provider: p,
		key:      p.namespace.Create(key),
		limit:    limit,
		policy:   policy,
		backoff:  backoff,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Limiter) dispatch(ctx context.Context, topic string, state State) {
	_ = l.provider.bus.Dispatch(ctx, topic, Event{Key: l.key, State: state})
	l.provider.metrics.IncrementCounter("coordkit_ratelimit_events_total", metrics.Labels{"topic": topic})
}

// transitionResult pairs the next State with the record's persisted
// expiration so updateState can hand both to encodeState in one step.
type transitionResult struct {
	state      State
	expiration time.Time
}

// transition folds one attempt into current (nil if key is absent or
// expired) and decides the next state:
//
//   - absent -> Allowed, seeded from policy.InitialMetrics
//   - Allowed -> policy.UpdateMetrics; policy.ShouldBlock promotes to
//     Blocked{attempt: 1, startedAt: now}
//   - Blocked -> once now reaches startedAt+backoff(attempt) it resets to a
//     fresh Allowed state; otherwise the block continues with attempt
//     incremented and startedAt unchanged
func (l *Limiter) transition(current *StoredRecord, now time.Time) (transitionResult, error) {
	if current == nil {
		metrics := l.policy.InitialMetrics(now)
		return transitionResult{State{Kind: StateAllowed, Metrics: metrics}, l.policy.Expiration(metrics, now)}, nil
	}

	cur, err := decodeState(l.policy, current)
	if err != nil {
		return transitionResult{}, err
	}

	if cur.Kind == StateBlocked {
		endsAt := cur.StartedAt.Add(l.backoff(cur.Attempt))
		if !now.Before(endsAt) {
			metrics := l.policy.InitialMetrics(now)
			return transitionResult{State{Kind: StateAllowed, Metrics: metrics}, l.policy.Expiration(metrics, now)}, nil
		}
		state := State{Kind: StateBlocked, Attempt: cur.Attempt + 1, StartedAt: cur.StartedAt}
		return transitionResult{state, endsAt}, nil
	}

	newMetrics := l.policy.UpdateMetrics(cur.Metrics, now)
	if l.policy.ShouldBlock(newMetrics, l.limit, now) {
		state := State{Kind: StateBlocked, Attempt: 1, StartedAt: now}
		return transitionResult{state, now.Add(l.backoff(1))}, nil
	}
	state := State{Kind: StateAllowed, Metrics: newMetrics}
	return transitionResult{state, l.policy.Expiration(newMetrics, now)}, nil
}

// updateState runs transition inside one adapter transaction so concurrent
// callers on the same key never race on the read-modify-write cycle.
func (l *Limiter) updateState(ctx context.Context) (State, error) {
	now := l.provider.clock.Now()

	var result State
	_, err := l.provider.adapter.Transaction(ctx, l.key, now, func(current *StoredRecord, now time.Time) (*StoredRecord, error) {
		next, err := l.transition(current, now)
		if err != nil {
			return nil, err
		}
		result = next.state
		rec, err := encodeState(l.policy, next.state, now, next.expiration)
		if err != nil {
			return nil, err
		}
		return &rec, nil
	})
	if err != nil {
		return State{}, err
	}
	return result, nil
}

// GetState reads the current state without mutating anything.
func (l *Limiter) GetState(ctx context.Context) (State, error) {
	now := l.provider.clock.Now()
	rec, err := l.provider.adapter.Read(ctx, l.key, now)
	if err != nil {
		return State{}, err
	}
	if rec == nil {
		return State{Kind: StateAllowed, Metrics: l.policy.InitialMetrics(now)}, nil
	}
	return decodeState(l.policy, rec)
}

// Reset removes the key's record, returning it to its initial Allowed state.
func (l *Limiter) Reset(ctx context.Context) error {
	if err := l.provider.adapter.Remove(ctx, l.key); err != nil {
		return err
	}
	l.dispatch(ctx, EventReseted, State{Kind: StateAllowed})
	return nil
}

// RunOrFail calls fn if the limiter currently allows it, failing with
// ErrBlockedRateLimiter (carrying the blocked state) otherwise. In
// onlyError mode, fn always runs first and only a failure matching
// errorPolicy consumes an attempt.
func RunOrFail[T any](ctx context.Context, l *Limiter, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if l.onlyError {
		current, err := l.GetState(ctx)
		if err != nil {
			return zero, err
		}
		if current.Kind == StateBlocked {
			l.dispatch(ctx, EventBlocked, current)
			return zero, coorderrors.ErrBlockedRateLimiter.WithDetail("state", current)
		}

		v, ferr := fn(ctx)
		if ferr == nil {
			return v, nil
		}
		if l.errorPolicy != nil && !l.errorPolicy(ferr) {
			l.dispatch(ctx, EventUntrackedFailure, current)
			return zero, ferr
		}

		l.dispatch(ctx, EventTrackedFailure, current)
		state, err := l.updateState(ctx)
		if err != nil {
			return zero, err
		}
		if state.Kind == StateBlocked {
			l.dispatch(ctx, EventBlocked, state)
		}
		return zero, ferr
	}

	state, err := l.updateState(ctx)
	if err != nil {
		return zero, err
	}
	if state.Kind == StateBlocked {
		l.dispatch(ctx, EventBlocked, state)
		return zero, coorderrors.ErrBlockedRateLimiter.WithDetail("state", state)
	}
	l.dispatch(ctx, EventAllowed, state)
	return fn(ctx)
}
