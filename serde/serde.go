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

// Package serde registers and looks up transformers that convert engine
// handles (locks, rate limiters, cache bindings) to and from a portable
// record, so a handle can cross a process boundary (a queue message, an
// HTTP response) and be rehydrated against the same adapter, namespace,
// and event bus the receiving process has configured for that name.
package serde

import (
	"fmt"
	"sync"
)

// Tag identifies a registered Transformer. Component is the engine kind
// ("lock", "cache", "ratelimit"), AdapterClass is the adapter
// implementation's name ("memory", "redis", "postgres"), and Namespace is
// the namespace prefix the provider was constructed with — so two lock
// providers pointed at different adapters or namespaces never collide.
type Tag struct {
	Component    string
	AdapterClass string
	Namespace    string
}

// String renders the tag as the composite registry key.
func (t Tag) String() string {
	return fmt.Sprintf("%s/%s/%s", t.Component, t.AdapterClass, t.Namespace)
}

// Record is the minimal portable form a handle serializes to.
type Record struct {
	Version int
	Fields  map[string]any
}

// Transformer converts a handle of type T to and from a Record.
// IsApplicable decides whether this transformer owns value; it exists
// because a single tag's registry slot may see handles from more than one
// concrete type during a migration.
type Transformer[T any] struct {
	Name         string
	IsApplicable func(value any) bool
	Serialize    func(value T) (Record, error)
	Deserialize  func(record Record) (T, error)
}

type registered struct {
	name         string
	isApplicable func(value any) bool
	serialize    func(value any) (Record, error)
	deserialize  func(record Record) (any, error)
}

// Registry is a process-local, append-only (after construction) set of
// transformers keyed by Tag. Registries are safe for concurrent read once
// registration is complete; RegisterCustom still takes a lock so
// registration itself is safe to call from multiple goroutines during
// provider setup.
type Registry struct {
	mu    sync.RWMutex
	byTag map[string][]registered
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byTag: make(map[string][]registered)}
}

// RegisterCustom registers transformer under tag. Multiple transformers may
// share a tag; Serialize/Deserialize use the first whose IsApplicable (for
// serialize) or whose Name (for deserialize, carried in the Record) matches.
func RegisterCustom[T any](r *Registry, tag Tag, transformer Transformer[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byTag[tag.String()] = append(r.byTag[tag.String()], registered{
		name:         transformer.Name,
		isApplicable: transformer.IsApplicable,
		serialize: func(value any) (Record, error) {
			v, ok := value.(T)
			if !ok {
				return Record{}, fmt.Errorf("serde: value is not of the registered type for %s", transformer.Name)
			}
			rec, err := transformer.Serialize(v)
			if err != nil {
				return Record{}, err
			}
			if rec.Fields == nil {
				rec.Fields = map[string]any{}
			}
			rec.Fields["__transformer"] = transformer.Name
			return rec, nil
		},
		deserialize: func(record Record) (any, error) {
			return transformer.Deserialize(record)
		},
	})
}

// Serialize finds the first transformer registered under tag whose
// IsApplicable accepts value, and serializes it.
func (r *Registry) Serialize(tag Tag, value any) (Record, error) {
	r.mu.RLock()
	candidates := r.byTag[tag.String()]
	r.mu.RUnlock()

	for _, c := range candidates {
		if c.isApplicable(value) {
			return c.serialize(value)
		}
	}
	return Record{}, fmt.Errorf("serde: no transformer registered for tag %s applicable to value", tag)
}

// Deserialize finds the transformer named in record under tag and
// reconstructs a value from it.
func (r *Registry) Deserialize(tag Tag, record Record) (any, error) {
	name, _ := record.Fields["__transformer"].(string)

	r.mu.RLock()
	candidates := r.byTag[tag.String()]
	r.mu.RUnlock()

	for _, c := range candidates {
		if name != "" && c.name != name {
			continue
		}
		return c.deserialize(record)
	}
	return nil, fmt.Errorf("serde: no transformer registered for tag %s matching %q", tag, name)
}
