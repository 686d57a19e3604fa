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

package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/sage-x-project/coordkit/observability/logging"
	"github.com/sage-x-project/coordkit/task"
)

// Redis is a cross-process Bus backed by Redis pub/sub. Delivery is
// at-most-once: a subscriber that isn't connected when a message is
// published never sees it, and there is no persisted log to replay from.
// Because a payload crosses a process boundary, it round-trips through
// JSON: a listener receives the payload decoded as the same shape
// encoding/json would produce into an any (map[string]any for struct
// payloads), not the original Go type a same-process InProcess bus would
// hand it. Callers that need the concrete type should decode the
// JSON-shaped map themselves (or re-marshal and unmarshal into the
// expected struct) inside the listener.
type Redis struct {
	client *redis.Client
	prefix string
	logger logging.Logger

	mu      sync.Mutex
	topics  map[string]*redisTopic
	closing chan struct{}
	once    sync.Once
}

type redisTopic struct {
	pubsub    *redis.PubSub
	nextID    uint64
	listeners map[uint64]Listener
}

// NewRedis constructs a Redis bus publishing to channels named
// prefix+topic. A nil logger disables logging.
func NewRedis(client *redis.Client, prefix string, logger logging.Logger) *Redis {
	if logger == nil {
		logger = logging.NoOp()
	}
	return &Redis{
		client:  client,
		prefix:  prefix,
		logger:  logger,
		topics:  make(map[string]*redisTopic),
		closing: make(chan struct{}),
	}
}

func (b *Redis) channel(topic string) string {
	return b.prefix + topic
}

// Dispatch implements Bus, publishing payload (JSON-encoded) to topic's
// channel. It returns once Redis has accepted the publish; it does not wait
// for, or report on, subscriber delivery.
func (b *Redis) Dispatch(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("coordkit: eventbus redis marshal %s: %w", topic, err)
	}
	if err := b.client.Publish(ctx, b.channel(topic), data).Err(); err != nil {
		return fmt.Errorf("coordkit: eventbus redis publish %s: %w", topic, err)
	}
	return nil
}

type redisSubscription struct {
	bus   *Redis
	topic string
	id    uint64
}

func (s *redisSubscription) Unsubscribe() {
	s.bus.remove(s.topic, s.id)
}

func (b *Redis) ensureTopic(topic string) *redisTopic {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, exists := b.topics[topic]
	if exists {
		return t
	}

	pubsub := b.client.Subscribe(context.Background(), b.channel(topic))
	t = &redisTopic{pubsub: pubsub, listeners: make(map[uint64]Listener)}
	b.topics[topic] = t

	go b.relay(topic, t)
	return t
}

func (b *Redis) relay(topic string, t *redisTopic) {
	ch := t.pubsub.Channel()
	for {
		select {
		case <-b.closing:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var payload any
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				b.logger.Warn(context.Background(), "eventbus: redis payload decode error",
					logging.String("topic", topic),
					logging.Error(err),
				)
				continue
			}

			b.mu.Lock()
			snapshot := make([]Listener, 0, len(t.listeners))
			for _, fn := range t.listeners {
				snapshot = append(snapshot, fn)
			}
			b.mu.Unlock()

			for _, fn := range snapshot {
				fn := fn
				go func() {
					if err := fn(context.Background(), payload); err != nil {
						b.logger.Warn(context.Background(), "eventbus: listener error",
							logging.String("topic", topic),
							logging.Error(err),
						)
					}
				}()
			}
		}
	}
}

// AddListener implements Bus.
func (b *Redis) AddListener(topic string, fn Listener) Subscription {
	t := b.ensureTopic(topic)

	b.mu.Lock()
	defer b.mu.Unlock()
	t.nextID++
	id := t.nextID
	t.listeners[id] = fn
	return &redisSubscription{bus: b, topic: topic, id: id}
}

// ListenOnce implements Bus.
func (b *Redis) ListenOnce(topic string, fn Listener) Subscription {
	sub := &redisSubscription{bus: b, topic: topic}
	var fired atomic.Bool
	wrapper := func(ctx context.Context, payload any) error {
		if !fired.CompareAndSwap(false, true) {
			return nil
		}
		sub.Unsubscribe()
		return fn(ctx, payload)
	}
	registered := b.AddListener(topic, wrapper).(*redisSubscription)
	sub.id = registered.id
	return sub
}

// AsPromise implements Bus.
func (b *Redis) AsPromise(topic string) *task.Task[any] {
	return newPromiseTask(b, topic)
}

func (b *Redis) remove(topic string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, exists := b.topics[topic]
	if !exists {
		return
	}
	delete(t.listeners, id)
	if len(t.listeners) == 0 {
		_ = t.pubsub.Close()
		delete(b.topics, topic)
	}
}

// Close unsubscribes from every topic and stops all relay goroutines. A
// closed Redis bus must not be used again.
func (b *Redis) Close() error {
	var err error
	b.once.Do(func() {
		close(b.closing)
		b.mu.Lock()
		defer b.mu.Unlock()
		for topic, t := range b.topics {
			if cerr := t.pubsub.Close(); cerr != nil && err == nil {
				err = cerr
			}
			delete(b.topics, topic)
		}
	})
	return err
}
