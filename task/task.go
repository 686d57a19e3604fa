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

// Package task provides a lazy, single-shot deferred computation type (the
// event bus's AsPromise returns one) and combinators that compose retry,
// timeout, fallback, hedging, and bulkhead behavior around a call.
package task

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Producer is the function a Task wraps. It receives the context the Task
// was run with and returns a value or an error.
type Producer[T any] func(ctx context.Context) (T, error)

// Middleware wraps a Producer with additional behavior (retry, timeout,
// fallback, ...). name is used for logging/observability by middlewares
// that report progress.
type Middleware[T any] func(name string, next Producer[T]) Producer[T]

// Task is a single-shot lazy computation: it does not run until Run or
// Detach is called, and its result is memoized for subsequent calls.
type Task[T any] struct {
	name     string
	produce  Producer[T]
	mu       sync.Mutex
	started  bool
	done     chan struct{}
	result   T
	err      error
}

// New builds a Task named name around producer. The name is carried through
// to middlewares for logging and is otherwise inert.
func New[T any](name string, producer Producer[T]) *Task[T] {
	return &Task[T]{
		name:    name,
		produce: producer,
		done:    make(chan struct{}),
	}
}

// Run executes the task at most once and returns its (memoized) result.
// Concurrent callers block until the single execution completes.
func (t *Task[T]) Run(ctx context.Context) (T, error) {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		<-t.done
		return t.result, t.err
	}
	t.started = true
	t.mu.Unlock()

	t.result, t.err = t.produce(ctx)
	close(t.done)
	return t.result, t.err
}

// Detach starts execution in the background and discards the result. Use
// Run (or a subsequent Detach) to observe completion; Detach itself never
// blocks.
func (t *Task[T]) Detach(ctx context.Context) {
	go func() { _, _ = t.Run(ctx) }()
}

// Pipe returns a new Task wrapping the receiver's producer with mw.
// The receiver is left untouched; Pipe can be chained.
func (t *Task[T]) Pipe(mw Middleware[T]) *Task[T] {
	return New(t.name, mw(t.name, t.produce))
}

// PipeWhen applies mw only if cond is true, otherwise returns an equivalent
// unwrapped Task. Useful for conditionally enabling a middleware based on
// configuration without branching at every call site.
func (t *Task[T]) PipeWhen(cond bool, mw Middleware[T]) *Task[T] {
	if !cond {
		return New(t.name, t.produce)
	}
	return t.Pipe(mw)
}

// Delay returns a Task that resolves after d, or fails with ctx.Err() if ctx
// is cancelled first.
func Delay(name string, d time.Duration) *Task[struct{}] {
	return New(name, func(ctx context.Context) (struct{}, error) {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return struct{}{}, nil
		case <-ctx.Done():
			return struct{}{}, ctx.Err()
		}
	})
}

// All runs every task concurrently and returns their results in order,
// failing fast on the first error (remaining tasks are not cancelled beyond
// ctx propagation through errgroup).
func All[T any](ctx context.Context, tasks ...*Task[T]) ([]T, error) {
	results := make([]T, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	for i, tsk := range tasks {
		i, tsk := i, tsk
		g.Go(func() error {
			v, err := tsk.Run(gctx)
			if err != nil {
				return err
			}
			results[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Outcome is one task's settled result, used by AllSettled.
type Outcome[T any] struct {
	Value T
	Err   error
}

// AllSettled runs every task concurrently and waits for all of them,
// collecting each outcome instead of failing fast.
func AllSettled[T any](ctx context.Context, tasks ...*Task[T]) []Outcome[T] {
	outcomes := make([]Outcome[T], len(tasks))
	var wg sync.WaitGroup
	wg.Add(len(tasks))
	for i, tsk := range tasks {
		i, tsk := i, tsk
		go func() {
			defer wg.Done()
			v, err := tsk.Run(ctx)
			outcomes[i] = Outcome[T]{Value: v, Err: err}
		}()
	}
	wg.Wait()
	return outcomes
}

// Race returns the result of whichever task completes first, successful or
// not. Slower tasks keep running to completion (their results are
// discarded) since Task has no mid-flight cancellation of its producer.
func Race[T any](ctx context.Context, tasks ...*Task[T]) (T, error) {
	type settled struct {
		v   T
		err error
	}
	ch := make(chan settled, len(tasks))
	for _, tsk := range tasks {
		tsk := tsk
		go func() {
			v, err := tsk.Run(ctx)
			ch <- settled{v, err}
		}()
	}
	first := <-ch
	return first.v, first.err
}

// Any returns the first successful result. If every task fails, Any returns
// the last observed error.
func Any[T any](ctx context.Context, tasks ...*Task[T]) (T, error) {
	type settled struct {
		v   T
		err error
	}
	ch := make(chan settled, len(tasks))
	for _, tsk := range tasks {
		tsk := tsk
		go func() {
			v, err := tsk.Run(ctx)
			ch <- settled{v, err}
		}()
	}

	var lastErr error
	var zero T
	for range tasks {
		s := <-ch
		if s.err == nil {
			return s.v, nil
		}
		lastErr = s.err
	}
	return zero, lastErr
}
