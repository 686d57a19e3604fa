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

package task

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrorPolicy decides whether a middleware should act on an error (retry
// it, fall back from it, count it). A nil policy matches every error.
type ErrorPolicy func(err error) bool

// BackoffFunc computes the delay before retry attempt n (1-indexed).
type BackoffFunc func(attempt int) time.Duration

// ConstantBackoff returns a BackoffFunc that always waits d.
func ConstantBackoff(d time.Duration) BackoffFunc {
	return func(int) time.Duration { return d }
}

// Retry re-invokes the wrapped producer up to maxAttempts times (the first
// call counts as attempt 1), waiting backoff(attempt) between attempts,
// stopping early if policy rejects the error (policy == nil matches all).
func Retry[T any](maxAttempts int, backoff BackoffFunc, policy ErrorPolicy) Middleware[T] {
	return func(name string, next Producer[T]) Producer[T] {
		return func(ctx context.Context) (T, error) {
			var zero T
			var lastErr error
			for attempt := 1; attempt <= maxAttempts; attempt++ {
				v, err := next(ctx)
				if err == nil {
					return v, nil
				}
				lastErr = err
				if policy != nil && !policy(err) {
					return zero, err
				}
				if attempt == maxAttempts {
					break
				}
				wait := backoff(attempt)
				timer := time.NewTimer(wait)
				select {
				case <-timer.C:
				case <-ctx.Done():
					timer.Stop()
					return zero, ctx.Err()
				}
			}
			return zero, lastErr
		}
	}
}

// Timeout cancels the derived context and fails with context.DeadlineExceeded
// if the wrapped producer does not complete within waitTime.
func Timeout[T any](waitTime time.Duration) Middleware[T] {
	return func(name string, next Producer[T]) Producer[T] {
		return func(ctx context.Context) (T, error) {
			tctx, cancel := context.WithTimeout(ctx, waitTime)
			defer cancel()
			return next(tctx)
		}
	}
}

// Fallback substitutes fallback's result when the wrapped producer fails
// with an error matching policy (nil matches every error).
func Fallback[T any](fallback Producer[T], policy ErrorPolicy) Middleware[T] {
	return func(name string, next Producer[T]) Producer[T] {
		return func(ctx context.Context) (T, error) {
			v, err := next(ctx)
			if err == nil {
				return v, nil
			}
			if policy != nil && !policy(err) {
				return v, err
			}
			return fallback(ctx)
		}
	}
}

// HedgingSequential tries next, then each alternate in order, returning the
// first success. Alternates only start after the previous attempt fails.
func HedgingSequential[T any](alternates ...Producer[T]) Middleware[T] {
	return func(name string, next Producer[T]) Producer[T] {
		return func(ctx context.Context) (T, error) {
			v, err := next(ctx)
			if err == nil {
				return v, nil
			}
			for _, alt := range alternates {
				v, err = alt(ctx)
				if err == nil {
					return v, nil
				}
			}
			return v, err
		}
	}
}

// HedgingConcurrent launches next and every alternate at once, returning
// the first success (or the last error, if all fail).
func HedgingConcurrent[T any](alternates ...Producer[T]) Middleware[T] {
	return func(name string, next Producer[T]) Producer[T] {
		return func(ctx context.Context) (T, error) {
			all := append([]Producer[T]{next}, alternates...)
			type settled struct {
				v   T
				err error
			}
			ch := make(chan settled, len(all))
			for _, p := range all {
				p := p
				go func() {
					v, err := p(ctx)
					ch <- settled{v, err}
				}()
			}
			var lastErr error
			var zero T
			for range all {
				s := <-ch
				if s.err == nil {
					return s.v, nil
				}
				lastErr = s.err
			}
			return zero, lastErr
		}
	}
}

// ObserveHooks are invoked around the wrapped producer's execution. Any
// hook left nil is skipped.
type ObserveHooks[T any] struct {
	OnStart   func(name string)
	OnSuccess func(name string, value T)
	OnError   func(name string, err error)
	OnFinally func(name string)
}

// Observe reports lifecycle events through hooks without altering the
// wrapped producer's result.
func Observe[T any](hooks ObserveHooks[T]) Middleware[T] {
	return func(name string, next Producer[T]) Producer[T] {
		return func(ctx context.Context) (T, error) {
			if hooks.OnStart != nil {
				hooks.OnStart(name)
			}
			if hooks.OnFinally != nil {
				defer hooks.OnFinally(name)
			}
			v, err := next(ctx)
			if err != nil {
				if hooks.OnError != nil {
					hooks.OnError(name, err)
				}
				return v, err
			}
			if hooks.OnSuccess != nil {
				hooks.OnSuccess(name, v)
			}
			return v, nil
		}
	}
}

// Bulkhead bounds concurrent executions of the wrapped producer to limit,
// and collapses concurrent calls sharing the same key into a single
// in-flight execution via singleflight.
func Bulkhead[T any](limit int, key func() string) Middleware[T] {
	sem := make(chan struct{}, limit)
	var group singleflight.Group

	return func(name string, next Producer[T]) Producer[T] {
		return func(ctx context.Context) (T, error) {
			var zero T
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return zero, ctx.Err()
			}
			defer func() { <-sem }()

			v, err, _ := group.Do(key(), func() (interface{}, error) {
				return next(ctx)
			})
			if err != nil {
				return zero, err
			}
			return v.(T), nil
		}
	}
}
