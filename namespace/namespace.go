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

// Package namespace implements the key-prefixing scheme that isolates
// tenants and adapters sharing one physical store.
//
// A Namespace encodes a logical key as:
//
//	join(root, keyDelim) + idDelim + rootId + idDelim + join(key, keyDelim)
//
// Two namespaces with a different root or rootId never produce colliding
// encoded keys, which is what lets many Lock/Cache/RateLimiter providers
// share a single Redis instance or Postgres table without stepping on
// each other's data.
package namespace

import "strings"

const (
	defaultIDDelim  = ":"
	defaultKeyDelim = ":"
)

// Namespace is an immutable key-encoding scheme. All mutator-looking methods
// (SetRoot, AppendRoot, SetRootID, SetDelims) return a new Namespace rather
// than modifying the receiver.
type Namespace struct {
	root     []string
	rootID   string
	idDelim  string
	keyDelim string
}

// New constructs a Namespace with the given rootId and no root segments.
// Delimiters default to ":".
func New(rootID string) Namespace {
	return Namespace{
		rootID:   rootID,
		idDelim:  defaultIDDelim,
		keyDelim: defaultKeyDelim,
	}
}

// NoOp returns a Namespace whose Create is the identity function on single-
// segment keys; it has an empty root and an empty rootId. It is the default
// namespace for providers that do not need tenant isolation.
func NoOp() Namespace {
	return Namespace{idDelim: defaultIDDelim, keyDelim: defaultKeyDelim}
}

// Root returns a copy of the namespace's root segments.
func (n Namespace) Root() []string {
	out := make([]string, len(n.root))
	copy(out, n.root)
	return out
}

// RootID returns the namespace's tenant/provider identifier.
func (n Namespace) RootID() string {
	return n.rootID
}

// SetRoot returns a new Namespace with root replaced by segments.
func (n Namespace) SetRoot(segments ...string) Namespace {
	next := n
	next.root = append([]string(nil), segments...)
	return next
}

// AppendRoot returns a new Namespace with segments appended to the existing root.
func (n Namespace) AppendRoot(segments ...string) Namespace {
	next := n
	next.root = append(append([]string(nil), n.root...), segments...)
	return next
}

// SetRootID returns a new Namespace with rootId replaced.
func (n Namespace) SetRootID(rootID string) Namespace {
	next := n
	next.rootID = rootID
	return next
}

// SetDelims returns a new Namespace using idDelim to separate root/rootId/key
// and keyDelim to join multi-segment keys and roots.
func (n Namespace) SetDelims(idDelim, keyDelim string) Namespace {
	next := n
	next.idDelim = idDelim
	next.keyDelim = keyDelim
	return next
}

func (n Namespace) delims() (id, key string) {
	id, key = n.idDelim, n.keyDelim
	if id == "" {
		id = defaultIDDelim
	}
	if key == "" {
		key = defaultKeyDelim
	}
	return id, key
}

// Prefix returns the portion of an encoded key up to and including the
// trailing idDelim after rootId. Adapters use this for bulk Clear/removeByPrefix.
// A namespace with no root segments and an empty rootId has an empty prefix.
func (n Namespace) Prefix() string {
	if len(n.root) == 0 && n.rootID == "" {
		return ""
	}
	idDelim, keyDelim := n.delims()
	var b strings.Builder
	if len(n.root) > 0 {
		b.WriteString(strings.Join(n.root, keyDelim))
		b.WriteString(idDelim)
	}
	b.WriteString(n.rootID)
	b.WriteString(idDelim)
	return b.String()
}

// Create deterministically encodes key (a single string or an ordered
// sequence of strings joined by keyDelim) under this namespace.
func (n Namespace) Create(key ...string) string {
	_, keyDelim := n.delims()
	return n.Prefix() + strings.Join(key, keyDelim)
}

// Decode strips this namespace's prefix from an encoded key, returning the
// original key string. It is undefined (returns encoded unchanged, ok=false)
// for keys this namespace did not produce.
func (n Namespace) Decode(encoded string) (key string, ok bool) {
	prefix := n.Prefix()
	if !strings.HasPrefix(encoded, prefix) {
		return encoded, false
	}
	return strings.TrimPrefix(encoded, prefix), true
}
