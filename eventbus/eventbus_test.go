// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package eventbus

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestInProcess_DispatchDeliversToAllListeners(t *testing.T) {
	bus := NewInProcess(nil)
	var count atomic.Int32

	bus.AddListener("topic", func(ctx context.Context, payload any) error {
		count.Add(1)
		return nil
	})
	bus.AddListener("topic", func(ctx context.Context, payload any) error {
		count.Add(1)
		return nil
	})

	if err := bus.Dispatch(context.Background(), "topic", "payload"); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if got := count.Load(); got != 2 {
		t.Fatalf("count = %d, want 2", got)
	}
}

func TestInProcess_DispatchNoListeners(t *testing.T) {
	bus := NewInProcess(nil)
	if err := bus.Dispatch(context.Background(), "nobody-listening", "x"); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
}

func TestInProcess_UnsubscribeStopsDelivery(t *testing.T) {
	bus := NewInProcess(nil)
	var count atomic.Int32

	sub := bus.AddListener("topic", func(ctx context.Context, payload any) error {
		count.Add(1)
		return nil
	})
	sub.Unsubscribe()
	sub.Unsubscribe() // idempotent

	_ = bus.Dispatch(context.Background(), "topic", "x")
	if got := count.Load(); got != 0 {
		t.Fatalf("count = %d, want 0 after unsubscribe", got)
	}
}

func TestInProcess_ListenOnceFiresOnlyOnce(t *testing.T) {
	bus := NewInProcess(nil)
	var count atomic.Int32

	bus.ListenOnce("topic", func(ctx context.Context, payload any) error {
		count.Add(1)
		return nil
	})

	_ = bus.Dispatch(context.Background(), "topic", "first")
	_ = bus.Dispatch(context.Background(), "topic", "second")

	if got := count.Load(); got != 1 {
		t.Fatalf("count = %d, want 1", got)
	}
}

func TestInProcess_ListenOnceCancelBeforeFirstDispatch(t *testing.T) {
	bus := NewInProcess(nil)
	var count atomic.Int32

	sub := bus.ListenOnce("topic", func(ctx context.Context, payload any) error {
		count.Add(1)
		return nil
	})
	sub.Unsubscribe()

	_ = bus.Dispatch(context.Background(), "topic", "x")
	if got := count.Load(); got != 0 {
		t.Fatalf("count = %d, want 0", got)
	}
}

func TestInProcess_ListenerErrorDoesNotBlockSiblings(t *testing.T) {
	bus := NewInProcess(nil)
	var ran atomic.Bool

	bus.AddListener("topic", func(ctx context.Context, payload any) error {
		return errors.New("boom")
	})
	bus.AddListener("topic", func(ctx context.Context, payload any) error {
		ran.Store(true)
		return nil
	})

	if err := bus.Dispatch(context.Background(), "topic", "x"); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if !ran.Load() {
		t.Fatal("sibling listener did not run after another listener errored")
	}
}

func TestInProcess_TopicsAreIsolated(t *testing.T) {
	bus := NewInProcess(nil)
	var a, b atomic.Int32

	bus.AddListener("a", func(ctx context.Context, payload any) error { a.Add(1); return nil })
	bus.AddListener("b", func(ctx context.Context, payload any) error { b.Add(1); return nil })

	_ = bus.Dispatch(context.Background(), "a", nil)

	if a.Load() != 1 || b.Load() != 0 {
		t.Fatalf("a=%d b=%d, want a=1 b=0", a.Load(), b.Load())
	}
}

func TestInProcess_SubscribeConvenience(t *testing.T) {
	bus := NewInProcess(nil)
	var count atomic.Int32

	unsubscribe := bus.Subscribe("topic", func(ctx context.Context, payload any) error {
		count.Add(1)
		return nil
	})
	_ = bus.Dispatch(context.Background(), "topic", nil)
	unsubscribe()
	_ = bus.Dispatch(context.Background(), "topic", nil)

	if got := count.Load(); got != 1 {
		t.Fatalf("count = %d, want 1", got)
	}
}

func TestInProcess_ConcurrentDispatch(t *testing.T) {
	bus := NewInProcess(nil)
	var total atomic.Int32

	bus.AddListener("topic", func(ctx context.Context, payload any) error {
		total.Add(1)
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = bus.Dispatch(context.Background(), "topic", nil)
		}()
	}
	wg.Wait()

	if got := total.Load(); got != 50 {
		t.Fatalf("total = %d, want 50", got)
	}
}

func TestInProcess_AsPromiseResolvesWithDispatchedPayloadOnce(t *testing.T) {
	bus := NewInProcess(nil)
	promise := bus.AsPromise("add")

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = bus.Dispatch(context.Background(), "add", map[string]int{"a": 1, "b": 2})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := promise.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := map[string]int{"a": 1, "b": 2}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Run() = %v, want %v", got, want)
	}

	// A second dispatch must not re-resolve the already-settled Task: Run
	// keeps returning the first payload, and the listener has already
	// self-removed.
	if err := bus.Dispatch(context.Background(), "add", map[string]int{"a": 99, "b": 99}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	got, err = promise.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() second call error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Run() after second dispatch = %v, want unchanged %v", got, want)
	}
}

func TestInProcess_AsPromiseCtxDoneWithoutDispatch(t *testing.T) {
	bus := NewInProcess(nil)
	promise := bus.AsPromise("never")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := promise.Run(ctx); err == nil {
		t.Fatal("Run() error = nil, want context deadline error")
	}
}

func TestNoOp_AsPromiseNeverResolvesWithoutDispatch(t *testing.T) {
	var bus Bus = NoOp{}
	promise := bus.AsPromise("topic")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := promise.Run(ctx); err == nil {
		t.Fatal("Run() error = nil, want context deadline error")
	}
}

func TestNoOp_NeverInvokesListener(t *testing.T) {
	var bus Bus = NoOp{}
	called := false

	sub := bus.AddListener("topic", func(ctx context.Context, payload any) error {
		called = true
		return nil
	})
	defer sub.Unsubscribe()

	if err := bus.Dispatch(context.Background(), "topic", "x"); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if called {
		t.Fatal("NoOp bus invoked a listener")
	}

	onceSub := bus.ListenOnce("topic", func(ctx context.Context, payload any) error {
		called = true
		return nil
	})
	onceSub.Unsubscribe()
}
